package bot

import "mascarpone/internal/domain"

// ActionKind says which room operation an Action maps to.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionDeclare
	ActionPlay
)

// Action is a bot decision ready to submit to the room.
type Action struct {
	Kind      ActionKind
	Tricks    int
	CardIndex int
	AceLow    bool
}

// Agent represents an autonomous bot player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// Decide returns the agent's move for view, or ActionNone when it is not the
// agent's turn.
func (a *Agent) Decide(view domain.PlayerView) Action {
	if !view.YourTurn {
		return Action{}
	}
	switch view.Phase {
	case domain.PhaseDeclaring:
		return Action{Kind: ActionDeclare, Tricks: a.Strategy.Declare(view)}
	case domain.PhasePlaying:
		idx, aceLow := a.Strategy.Play(view)
		return Action{Kind: ActionPlay, CardIndex: idx, AceLow: aceLow}
	default:
		return Action{}
	}
}
