package domain

import "fmt"

// DefaultSchedule is the hand size per round: down to two, then back up.
// Rounds past the end reuse the last entry.
var DefaultSchedule = []int{5, 4, 3, 2, 3, 4, 5, 6, 7}

// Rules parameterizes a room.
type Rules struct {
	MinPlayers int
	MaxPlayers int
	Schedule   []int
	DeckSize   int
}

// DefaultRules returns the standard 2–10 player game on a full deck.
func DefaultRules() Rules {
	return Rules{
		MinPlayers: 2,
		MaxPlayers: 10,
		Schedule:   append([]int(nil), DefaultSchedule...),
		DeckSize:   StandardDeckSize,
	}
}

// Validate rejects rule sets that could not deal at least one card to every seat.
func (r Rules) Validate() error {
	if r.MinPlayers < 2 {
		return fmt.Errorf("%w: min players %d below 2", ErrConfiguration, r.MinPlayers)
	}
	if r.MaxPlayers < r.MinPlayers {
		return fmt.Errorf("%w: max players %d below min players %d", ErrConfiguration, r.MaxPlayers, r.MinPlayers)
	}
	if r.DeckSize < 1 || r.DeckSize > StandardDeckSize {
		return fmt.Errorf("%w: deck size %d outside 1..%d", ErrConfiguration, r.DeckSize, StandardDeckSize)
	}
	if r.MaxPlayers > r.DeckSize {
		return fmt.Errorf("%w: %d players cannot each receive a card from %d", ErrConfiguration, r.MaxPlayers, r.DeckSize)
	}
	if len(r.Schedule) == 0 {
		return fmt.Errorf("%w: empty round schedule", ErrConfiguration)
	}
	for i, n := range r.Schedule {
		if n < 1 {
			return fmt.Errorf("%w: schedule entry %d is %d", ErrConfiguration, i, n)
		}
	}
	return nil
}

// HandSize returns how many cards each of active players receives in round
// (1-based). The scheduled size shrinks until the deal fits the deck; reaching
// zero is a configuration error.
func (r Rules) HandSize(round, active int) (int, error) {
	if len(r.Schedule) == 0 {
		return 0, fmt.Errorf("%w: empty round schedule", ErrConfiguration)
	}
	idx := round - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.Schedule) {
		idx = len(r.Schedule) - 1
	}
	n := r.Schedule[idx]
	for n > 0 && active*n > r.DeckSize {
		n--
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: %d players cannot be dealt from a %d-card deck", ErrConfiguration, active, r.DeckSize)
	}
	return n, nil
}
