package domain

import (
	"fmt"
	"math/rand"
	"time"
)

// NewRoom creates a room in the waiting phase. A nil rng gets a time-seeded source.
func NewRoom(id string, rules Rules, rng *rand.Rand) (*Room, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rules.Schedule = append([]int(nil), rules.Schedule...)
	return &Room{
		ID:           id,
		Rules:        rules,
		Phase:        PhaseWaiting,
		Players:      make(map[string]*Player),
		Declarations: make(map[string]int),
		rng:          rng,
	}, nil
}

// AddPlayer seats a new player. Membership only changes while waiting.
func (r *Room) AddPlayer(id, name string) error {
	if r.Phase != PhaseWaiting {
		return ErrWrongPhase
	}
	if _, ok := r.Players[id]; ok {
		return ErrAlreadyJoined
	}
	if len(r.Order) >= r.Rules.MaxPlayers {
		return ErrRoomFull
	}
	r.Players[id] = &Player{ID: id, Name: name}
	r.Order = append(r.Order, id)
	return nil
}

// RemovePlayer unseats a player before the game starts.
func (r *Room) RemovePlayer(id string) error {
	if _, ok := r.Players[id]; !ok {
		return ErrUnknownPlayer
	}
	if r.Phase != PhaseWaiting {
		return ErrWrongPhase
	}
	delete(r.Players, id)
	r.Order = removeID(r.Order, id)
	return nil
}

// Start deals the first round.
func (r *Room) Start() error {
	if r.Phase != PhaseWaiting {
		return ErrWrongPhase
	}
	if len(r.Order) < r.Rules.MinPlayers {
		return fmt.Errorf("%w: %d joined, %d required", ErrNotEnoughPlayers, len(r.Order), r.Rules.MinPlayers)
	}
	active := append([]string(nil), r.Order...)
	n, err := r.Rules.HandSize(r.Round+1, len(active))
	if err != nil {
		return err
	}
	r.Active = active
	r.setupRound(n)
	return nil
}

// NextRound deals the following round after a settled one.
func (r *Room) NextRound() error {
	if r.Phase != PhaseRoundEnd {
		return ErrWrongPhase
	}
	n, err := r.Rules.HandSize(r.Round+1, len(r.Active))
	if err != nil {
		return err
	}
	r.setupRound(n)
	return nil
}

// setupRound assumes n already fits the deck for the current active list.
func (r *Room) setupRound(n int) {
	r.Round++
	r.CardsPerRound = n

	deck := NewDeck()
	ShuffleDeck(deck, r.rng)
	deck = deck[:r.Rules.DeckSize]

	for i, id := range r.Active {
		p := r.Players[id]
		p.Hand = append([]Card(nil), deck[i*n:(i+1)*n]...)
		p.TricksWon = 0
		p.Declared = nil
	}

	r.Declarations = make(map[string]int, len(r.Active))
	r.DeclarerIdx = 0
	r.Trick = 0
	r.Pile = nil
	r.LeaderIdx = r.nextLeader()
	r.TurnIdx = r.LeaderIdx
	r.Phase = PhaseDeclaring
}

// nextLeader seats the previous round's last trick winner as leader, or the
// first survivor after them in join order when they were eliminated.
func (r *Room) nextLeader() int {
	if r.LastTrickWinner == "" {
		return 0
	}
	start := indexOf(r.Order, r.LastTrickWinner)
	if start < 0 {
		return 0
	}
	for k := 0; k < len(r.Order); k++ {
		id := r.Order[(start+k)%len(r.Order)]
		if idx := indexOf(r.Active, id); idx >= 0 {
			return idx
		}
	}
	return 0
}

// Declare records a trick count for the player whose turn it is to declare.
func (r *Room) Declare(id string, n int) error {
	if r.Phase != PhaseDeclaring {
		return ErrWrongPhase
	}
	if r.CurrentDeclarer() != id {
		return ErrNotYourTurn
	}
	if n < 0 || n > r.CardsPerRound {
		return fmt.Errorf("%w: %d outside 0..%d", ErrInvalidDeclaration, n, r.CardsPerRound)
	}
	if r.IsLastDeclarer(id) && r.TotalDeclared()+n == r.CardsPerRound {
		return fmt.Errorf("%w: %d would total %d", ErrForbiddenTotal, n, r.CardsPerRound)
	}

	r.Declarations[id] = n
	declared := n
	r.Players[id].Declared = &declared
	r.DeclarerIdx++
	if r.DeclarerIdx == len(r.Active) {
		r.Phase = PhasePlaying
		r.TurnIdx = r.LeaderIdx
	}
	return nil
}

// Play puts a card from the player's hand on the pile. aceLow is ignored for
// anything but an Ace.
func (r *Room) Play(id string, cardIndex int, aceLow bool) (PlayOutcome, error) {
	if r.Phase != PhasePlaying {
		return PlayOutcome{}, ErrWrongPhase
	}
	if r.CurrentPlayer() != id {
		return PlayOutcome{}, ErrNotYourTurn
	}
	p := r.Players[id]
	if cardIndex < 0 || cardIndex >= len(p.Hand) {
		return PlayOutcome{}, fmt.Errorf("%w: %d with %d cards in hand", ErrInvalidCardIndex, cardIndex, len(p.Hand))
	}

	card := p.Hand[cardIndex]
	p.Hand = append(p.Hand[:cardIndex:cardIndex], p.Hand[cardIndex+1:]...)
	played := PlayedCard{PlayerID: id, Card: card, AceLow: aceLow && card.IsAce()}
	r.Pile = append(r.Pile, played)
	r.TurnIdx = (r.TurnIdx + 1) % len(r.Active)

	out := PlayOutcome{Played: played}
	if len(r.Pile) == len(r.Active) {
		trick := r.resolveTrick()
		out.Trick = &trick
		if r.Trick == r.CardsPerRound {
			summary := r.resolveRound()
			out.Round = &summary
			out.GameOver = r.Phase == PhaseGameOver
			out.WinnerID = r.WinnerID
			return out, nil
		}
	}
	out.NextPlayerID = r.CurrentPlayer()
	return out, nil
}

func (r *Room) resolveTrick() TrickResult {
	best := 0
	bestStrength := StrengthOf(r.Pile[0].Card, r.Pile[0].AceLow)
	for i := 1; i < len(r.Pile); i++ {
		s := StrengthOf(r.Pile[i].Card, r.Pile[i].AceLow)
		if s.Beats(bestStrength) {
			best, bestStrength = i, s
		}
	}
	win := r.Pile[best]
	r.Players[win.PlayerID].TricksWon++
	r.Trick++

	res := TrickResult{
		Number:      r.Trick,
		Pile:        r.Pile,
		WinnerID:    win.PlayerID,
		WinningCard: win.Card,
	}
	r.Pile = nil
	r.LeaderIdx = indexOf(r.Active, win.PlayerID)
	r.TurnIdx = r.LeaderIdx
	r.LastTrickWinner = win.PlayerID
	return res
}

// resolveRound decides every elimination against the pre-elimination active
// set before shrinking it.
func (r *Room) resolveRound() RoundSummary {
	summary := RoundSummary{
		Round:         r.Round,
		CardsPerRound: r.CardsPerRound,
		Results:       make([]PlayerResult, 0, len(r.Active)),
		Eliminated:    []string{},
	}
	out := make(map[string]bool)
	for _, id := range r.Active {
		p := r.Players[id]
		declared := r.Declarations[id]
		miss := p.TricksWon != declared
		summary.Results = append(summary.Results, PlayerResult{
			PlayerID:   id,
			Name:       p.Name,
			Declared:   declared,
			Won:        p.TricksWon,
			Mascarpone: miss,
		})
		if miss {
			out[id] = true
			summary.Eliminated = append(summary.Eliminated, id)
		}
	}

	survivors := make([]string, 0, len(r.Active))
	for _, id := range r.Active {
		if out[id] {
			r.Players[id].Eliminated = true
			continue
		}
		survivors = append(survivors, id)
	}
	r.Active = survivors
	r.History = append(r.History, summary)

	if len(r.Active) <= 1 {
		r.Phase = PhaseGameOver
		if len(r.Active) == 1 {
			r.WinnerID = r.Active[0]
		}
		return summary
	}
	r.Phase = PhaseRoundEnd
	return summary
}

// CurrentDeclarer returns the id expected to declare next, or "" outside declaring.
func (r *Room) CurrentDeclarer() string {
	if r.Phase != PhaseDeclaring || r.DeclarerIdx >= len(r.Active) {
		return ""
	}
	return r.Active[r.DeclarerIdx]
}

// CurrentPlayer returns the id expected to play next, or "" outside playing.
func (r *Room) CurrentPlayer() string {
	if r.Phase != PhasePlaying || len(r.Active) == 0 {
		return ""
	}
	return r.Active[r.TurnIdx]
}

// TotalDeclared sums this round's declarations so far.
func (r *Room) TotalDeclared() int {
	total := 0
	for _, n := range r.Declarations {
		total += n
	}
	return total
}

// IsLastDeclarer reports whether id is the final declarer of the round.
func (r *Room) IsLastDeclarer(id string) bool {
	return r.Phase == PhaseDeclaring &&
		r.DeclarerIdx == len(r.Active)-1 &&
		r.CurrentDeclarer() == id
}

// LegalDeclarations lists the values id may declare right now; empty when it
// is not their turn.
func (r *Room) LegalDeclarations(id string) []int {
	if r.CurrentDeclarer() != id || id == "" {
		return nil
	}
	forbidden := -1
	if r.IsLastDeclarer(id) {
		forbidden = r.CardsPerRound - r.TotalDeclared()
	}
	legal := make([]int, 0, r.CardsPerRound+1)
	for n := 0; n <= r.CardsPerRound; n++ {
		if n != forbidden {
			legal = append(legal, n)
		}
	}
	return legal
}

// IsActive reports whether id is still in the game.
func (r *Room) IsActive(id string) bool {
	return indexOf(r.Active, id) >= 0
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
