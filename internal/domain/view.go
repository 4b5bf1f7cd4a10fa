package domain

// OpponentView is what a player may see about another seat.
type OpponentView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CardCount  int    `json:"card_count"`
	TricksWon  int    `json:"tricks_won"`
	Declared   *int   `json:"declared"`
	Eliminated bool   `json:"eliminated"`
	Active     bool   `json:"active"`
}

// PlayerView is one player's snapshot of a room. Only Hand carries cards
// private to the viewer.
type PlayerView struct {
	RoomID        string         `json:"room_id"`
	PlayerID      string         `json:"player_id"`
	Phase         Phase          `json:"phase"`
	Round         int            `json:"round"`
	CardsPerRound int            `json:"cards_per_round"`
	Trick         int            `json:"trick"`
	Hand          []Card         `json:"hand"`
	TricksWon     int            `json:"tricks_won"`
	Declared      *int           `json:"declared"`
	Eliminated    bool           `json:"eliminated"`
	Players       []OpponentView `json:"players"` // every other joined player, join order
	ActiveIDs     []string       `json:"active_ids"`
	Pile          []PlayedCard   `json:"pile"`
	TotalDeclared int            `json:"total_declared"`
	CurrentTurn   string         `json:"current_turn"`
	YourTurn      bool           `json:"your_turn"`
	LastDeclarer  bool           `json:"last_declarer"`
	Forbidden     *int           `json:"forbidden,omitempty"` // set only for the constrained last declarer
	Legal         []int          `json:"legal_declarations,omitempty"`
	History       []RoundSummary `json:"history"`
	WinnerID      string         `json:"winner_id,omitempty"`
}

// View projects the room for one joined player.
func (r *Room) View(id string) (PlayerView, error) {
	me, ok := r.Players[id]
	if !ok {
		return PlayerView{}, ErrUnknownPlayer
	}

	v := PlayerView{
		RoomID:        r.ID,
		PlayerID:      id,
		Phase:         r.Phase,
		Round:         r.Round,
		CardsPerRound: r.CardsPerRound,
		Trick:         r.Trick,
		Hand:          append([]Card{}, me.Hand...),
		TricksWon:     me.TricksWon,
		Declared:      copyInt(me.Declared),
		Eliminated:    me.Eliminated,
		Players:       make([]OpponentView, 0, len(r.Order)),
		ActiveIDs:     append([]string{}, r.Active...),
		Pile:          append([]PlayedCard{}, r.Pile...),
		TotalDeclared: r.TotalDeclared(),
		History:       copyHistory(r.History),
		WinnerID:      r.WinnerID,
	}

	for _, pid := range r.Order {
		if pid == id {
			continue
		}
		p := r.Players[pid]
		v.Players = append(v.Players, OpponentView{
			ID:         pid,
			Name:       p.Name,
			CardCount:  len(p.Hand),
			TricksWon:  p.TricksWon,
			Declared:   copyInt(p.Declared),
			Eliminated: p.Eliminated,
			Active:     r.IsActive(pid),
		})
	}

	switch r.Phase {
	case PhaseDeclaring:
		v.CurrentTurn = r.CurrentDeclarer()
	case PhasePlaying:
		v.CurrentTurn = r.CurrentPlayer()
	}
	v.YourTurn = v.CurrentTurn == id
	v.Legal = r.LegalDeclarations(id)
	if v.YourTurn && r.IsLastDeclarer(id) {
		v.LastDeclarer = true
		forbidden := r.CardsPerRound - v.TotalDeclared
		if forbidden >= 0 && forbidden <= r.CardsPerRound {
			v.Forbidden = &forbidden
		}
	}
	return v, nil
}

// ForbiddenValue returns the declaration the viewer may not make, if any.
func (v PlayerView) ForbiddenValue() (int, bool) {
	if v.Forbidden == nil {
		return 0, false
	}
	return *v.Forbidden, true
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	n := *p
	return &n
}

func copyHistory(h []RoundSummary) []RoundSummary {
	out := make([]RoundSummary, len(h))
	for i, s := range h {
		out[i] = RoundSummary{
			Round:         s.Round,
			CardsPerRound: s.CardsPerRound,
			Results:       append([]PlayerResult{}, s.Results...),
			Eliminated:    append([]string{}, s.Eliminated...),
		}
	}
	return out
}
