package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Suit is a card suit. The numeric value doubles as the suit ranking.
type Suit int

const (
	Spades   Suit = 1
	Clubs    Suit = 2
	Diamonds Suit = 3
	Hearts   Suit = 4
)

// Suits lists every suit from strongest to weakest.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

const (
	RankAce   = 1
	RankJack  = 11
	RankQueen = 12
	RankKing  = 13

	aceHigh = 14
)

// Card is a single playing card. Rank runs 1..13 with 1 = Ace.
type Card struct {
	Suit Suit `json:"suit"`
	Rank int  `json:"rank"`
}

// AceOfHearts is the one card with its own ranking tier.
var AceOfHearts = Card{Suit: Hearts, Rank: RankAce}

// IsAce reports whether the card is an Ace of any suit.
func (c Card) IsAce() bool { return c.Rank == RankAce }

// IsAceOfHearts reports whether the card is the Ace of Hearts.
func (c Card) IsAceOfHearts() bool { return c == AceOfHearts }

// Valid reports whether suit and rank are in range.
func (c Card) Valid() bool {
	return c.Suit >= Spades && c.Suit <= Hearts && c.Rank >= RankAce && c.Rank <= RankKing
}

func (s Suit) String() string {
	switch s {
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	case Clubs:
		return "C"
	case Spades:
		return "S"
	default:
		return "?"
	}
}

func (c Card) String() string {
	var r string
	switch c.Rank {
	case RankAce:
		r = "A"
	case RankJack:
		r = "J"
	case RankQueen:
		r = "Q"
	case RankKing:
		r = "K"
	default:
		r = strconv.Itoa(c.Rank)
	}
	return r + c.Suit.String()
}

// ParseCard parses the text form produced by Card.String, e.g. "AH" or "10D".
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	var suit Suit
	switch s[len(s)-1] {
	case 'H':
		suit = Hearts
	case 'D':
		suit = Diamonds
	case 'C':
		suit = Clubs
	case 'S':
		suit = Spades
	default:
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}
	var rank int
	switch r := s[:len(s)-1]; r {
	case "A":
		rank = RankAce
	case "J":
		rank = RankJack
	case "Q":
		rank = RankQueen
	case "K":
		rank = RankKing
	default:
		n, err := strconv.Atoi(r)
		if err != nil || n < 2 || n > 10 {
			return Card{}, fmt.Errorf("invalid rank in card %q", s)
		}
		rank = n
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// Tier separates the Ace of Hearts from the ordinary (suit, rank) ordering.
type Tier int

const (
	TierLowest  Tier = -1 // Ace of Hearts played ace-low
	TierNormal  Tier = 0
	TierHighest Tier = 1 // Ace of Hearts played normally
)

// Strength is a card's power inside a trick.
type Strength struct {
	Tier Tier
	Suit int
	Rank int
}

// StrengthOf returns the trick strength of c. aceLow only affects Aces: it
// drops the effective rank to 0, and sends the Ace of Hearts to the bottom tier.
func StrengthOf(c Card, aceLow bool) Strength {
	if c.IsAceOfHearts() {
		if aceLow {
			return Strength{Tier: TierLowest}
		}
		return Strength{Tier: TierHighest, Suit: int(c.Suit), Rank: aceHigh}
	}
	rank := c.Rank
	if c.IsAce() {
		rank = aceHigh
		if aceLow {
			rank = 0
		}
	}
	return Strength{Tier: TierNormal, Suit: int(c.Suit), Rank: rank}
}

// Beats reports whether s is strictly stronger than o.
func (s Strength) Beats(o Strength) bool {
	if s.Tier != o.Tier {
		return s.Tier > o.Tier
	}
	if s.Suit != o.Suit {
		return s.Suit > o.Suit
	}
	return s.Rank > o.Rank
}

// CompareSimple orders cards without pile context: the Ace of Hearts is always
// highest, otherwise suit first and rank second with Aces high.
// It returns -1, 0 or 1.
func CompareSimple(a, b Card) int {
	if a == b {
		return 0
	}
	if a.IsAceOfHearts() {
		return 1
	}
	if b.IsAceOfHearts() {
		return -1
	}
	if a.Suit != b.Suit {
		if a.Suit < b.Suit {
			return -1
		}
		return 1
	}
	ra, rb := simpleRank(a), simpleRank(b)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}

func simpleRank(c Card) int {
	if c.IsAce() {
		return aceHigh
	}
	return c.Rank
}
