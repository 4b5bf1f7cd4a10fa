package bot

import "mascarpone/internal/domain"

// NaiveBrain declares one trick per heart held, capped by the tricks the
// earlier declarations leave open. It leads low, ducks under the pile's best
// card when it can, and otherwise plays its highest card.
type NaiveBrain struct{}

func (NaiveBrain) Declare(view domain.PlayerView) int {
	hearts := 0
	for _, c := range view.Hand {
		if c.Suit == domain.Hearts {
			hearts++
		}
	}
	remaining := view.CardsPerRound - view.TotalDeclared
	if !view.LastDeclarer {
		return steer(view, min(hearts, max(remaining, 0)))
	}
	switch {
	case remaining <= 0:
		return steer(view, 0)
	case hearts >= remaining:
		return steer(view, remaining-1)
	default:
		return steer(view, hearts)
	}
}

func (NaiveBrain) Play(view domain.PlayerView) (int, bool) {
	hand := view.Hand
	if len(hand) == 0 {
		return 0, false
	}
	if len(view.Pile) == 0 {
		return lowestCard(hand), false
	}

	best := pileBest(view.Pile)
	under := -1
	for i, c := range hand {
		if best.Beats(domain.StrengthOf(c, false)) {
			if under < 0 || domain.CompareSimple(c, hand[under]) > 0 {
				under = i
			}
		}
	}
	if under >= 0 {
		return under, false
	}

	// Every card would take the trick. Shed the Ace of Hearts low rather than
	// win a trick that was not declared.
	declared := 0
	if view.Declared != nil {
		declared = *view.Declared
	}
	if view.TricksWon >= declared {
		for i, c := range hand {
			if c.IsAceOfHearts() {
				return i, true
			}
		}
	}
	return highestCard(hand), false
}

func pileBest(pile []domain.PlayedCard) domain.Strength {
	best := domain.StrengthOf(pile[0].Card, pile[0].AceLow)
	for _, pc := range pile[1:] {
		if s := domain.StrengthOf(pc.Card, pc.AceLow); s.Beats(best) {
			best = s
		}
	}
	return best
}

func lowestCard(hand []domain.Card) int {
	idx := 0
	for i, c := range hand {
		if domain.CompareSimple(c, hand[idx]) < 0 {
			idx = i
		}
	}
	return idx
}

func highestCard(hand []domain.Card) int {
	idx := 0
	for i, c := range hand {
		if domain.CompareSimple(c, hand[idx]) > 0 {
			idx = i
		}
	}
	return idx
}
