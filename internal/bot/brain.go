package bot

import "mascarpone/internal/domain"

// Brain is the interface that all bot strategies must implement. Both calls
// receive the bot's own view and must return a legal choice for it.
type Brain interface {
	// Declare picks a trick count for the declaring turn.
	Declare(view domain.PlayerView) int
	// Play picks a hand index and whether an Ace is played low.
	Play(view domain.PlayerView) (cardIndex int, aceLow bool)
}

// legalDeclarations returns the values the room offered, or derives them
// from the viewer's side when the view carries none.
func legalDeclarations(view domain.PlayerView) []int {
	if len(view.Legal) > 0 {
		return append([]int(nil), view.Legal...)
	}
	forbidden, constrained := view.ForbiddenValue()
	legal := make([]int, 0, view.CardsPerRound+1)
	for n := 0; n <= view.CardsPerRound; n++ {
		if constrained && n == forbidden {
			continue
		}
		legal = append(legal, n)
	}
	return legal
}

// steer moves n off the forbidden value while staying in range.
func steer(view domain.PlayerView, n int) int {
	if n < 0 {
		n = 0
	}
	if n > view.CardsPerRound {
		n = view.CardsPerRound
	}
	if forbidden, ok := view.ForbiddenValue(); ok && n == forbidden {
		if n > 0 {
			return n - 1
		}
		return n + 1
	}
	return n
}
