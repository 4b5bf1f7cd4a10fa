package bot

import (
	"errors"
	"fmt"

	"mascarpone/internal/app"
	"mascarpone/internal/domain"
)

// maxSimulationSteps bounds a simulated game; every round eliminates at least
// one player, so a real game never gets close.
const maxSimulationSteps = 100000

var ErrSimulationStalled = errors.New("simulation did not finish")

// Logf receives human-readable progress lines.
type Logf func(format string, args ...any)

// SimulationResult summarizes a finished simulated game.
type SimulationResult struct {
	WinnerID   string
	WinnerName string
	Rounds     int
	History    []domain.RoundSummary
}

// Simulate plays one full game between agents through the public room
// operations only.
func Simulate(svc *app.Service, agents []*Agent, logf Logf) (SimulationResult, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	room, err := svc.NewRoom("simulation")
	if err != nil {
		return SimulationResult{}, err
	}
	byID := make(map[string]*Agent, len(agents))
	for _, a := range agents {
		if _, err := svc.Join(room, a.ID, a.Name); err != nil {
			return SimulationResult{}, fmt.Errorf("join %s: %w", a.ID, err)
		}
		byID[a.ID] = a
	}

	evs, err := svc.StartGame(room)
	if err != nil {
		return SimulationResult{}, err
	}
	logEvents(room, evs, logf)

	for step := 0; step < maxSimulationSteps; step++ {
		var id string
		switch room.Phase {
		case domain.PhaseGameOver:
			res := SimulationResult{
				WinnerID: room.WinnerID,
				Rounds:   room.Round,
				History:  room.History,
			}
			if a, ok := byID[room.WinnerID]; ok {
				res.WinnerName = a.Name
			}
			return res, nil
		case domain.PhaseRoundEnd:
			evs, err = svc.NextRound(room)
			if err != nil {
				return SimulationResult{}, err
			}
			logEvents(room, evs, logf)
			continue
		case domain.PhaseDeclaring:
			id = room.CurrentDeclarer()
		case domain.PhasePlaying:
			id = room.CurrentPlayer()
		default:
			return SimulationResult{}, fmt.Errorf("unexpected phase %s", room.Phase)
		}

		agent, ok := byID[id]
		if !ok {
			return SimulationResult{}, fmt.Errorf("no agent for player %s", id)
		}
		view, err := room.View(id)
		if err != nil {
			return SimulationResult{}, err
		}
		act := agent.Decide(view)
		switch act.Kind {
		case ActionDeclare:
			evs, err = svc.DeclareTricks(room, id, act.Tricks)
		case ActionPlay:
			evs, err = svc.PlayCard(room, id, act.CardIndex, act.AceLow)
		default:
			err = fmt.Errorf("agent %s had no move on its turn", id)
		}
		if err != nil {
			return SimulationResult{}, fmt.Errorf("%s: %w", id, err)
		}
		logEvents(room, evs, logf)
	}
	return SimulationResult{}, ErrSimulationStalled
}

func logEvents(room *domain.Room, evs []app.Event, logf Logf) {
	name := func(id string) string {
		if p, ok := room.Players[id]; ok {
			return p.Name
		}
		return id
	}
	for _, ev := range evs {
		switch p := ev.Payload.(type) {
		case app.RoundStartedPayload:
			logf("round %d: %d cards each, %d players", p.Round, p.CardsPerRound, len(p.Active))
		case app.HandDealtPayload:
			logf("  %s holds %v", name(p.PlayerID), p.Hand)
		case app.TricksDeclaredPayload:
			logf("  %s declares %d (total %d)", name(p.PlayerID), p.Tricks, p.TotalDeclared)
		case app.CardPlayedPayload:
			if p.AceLow {
				logf("  %s plays %s low", name(p.PlayerID), p.Card)
			} else {
				logf("  %s plays %s", name(p.PlayerID), p.Card)
			}
		case app.TrickCompletedPayload:
			logf("  trick %d goes to %s with %s", p.Trick.Number, name(p.Trick.WinnerID), p.Trick.WinningCard)
		case app.RoundCompletedPayload:
			for _, r := range p.Summary.Results {
				if r.Mascarpone {
					logf("  %s declared %d, won %d: mascarpone!", r.Name, r.Declared, r.Won)
				}
			}
		case app.GameEndedPayload:
			if p.WinnerID == "" {
				logf("game over after %d rounds: nobody survived", p.Rounds)
			} else {
				logf("game over after %d rounds: %s wins", p.Rounds, name(p.WinnerID))
			}
		}
	}
}
