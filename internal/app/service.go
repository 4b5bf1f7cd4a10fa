package app

import (
	"math/rand"
	"time"

	"mascarpone/internal/domain"
)

// Service contains Mascarpone use-cases operating on domain rooms.
type Service struct {
	rng   *rand.Rand
	rules domain.Rules
}

// NewService constructs a Service with provided rng or a time-seeded default.
// Rooms it creates play by rules.
func NewService(rng *rand.Rand, rules domain.Rules) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng, rules: rules}
}

// Rules returns the rule set new rooms are created with.
func (s *Service) Rules() domain.Rules { return s.rules }

// NewRoom creates a waiting room with its own random source.
// A Service is not goroutine-safe; callers serialize room creation.
func (s *Service) NewRoom(id string) (*domain.Room, error) {
	return domain.NewRoom(id, s.rules, rand.New(rand.NewSource(s.rng.Int63())))
}

// Join seats a player in a waiting room.
func (s *Service) Join(room *domain.Room, playerID, name string) ([]Event, error) {
	if err := room.AddPlayer(playerID, name); err != nil {
		return nil, err
	}
	return []Event{{
		Kind: EventPlayerJoined,
		Payload: PlayerJoinedPayload{
			PlayerID: playerID,
			Name:     name,
			Seat:     len(room.Order) - 1,
		},
	}}, nil
}

// Leave unseats a player from a waiting room.
func (s *Service) Leave(room *domain.Room, playerID string) ([]Event, error) {
	if err := room.RemovePlayer(playerID); err != nil {
		return nil, err
	}
	return []Event{{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{PlayerID: playerID}}}, nil
}

// StartGame deals round one.
func (s *Service) StartGame(room *domain.Room) ([]Event, error) {
	if err := room.Start(); err != nil {
		return nil, err
	}
	return roundStartedEvents(room), nil
}

// NextRound deals the round after a settled one.
func (s *Service) NextRound(room *domain.Room) ([]Event, error) {
	if err := room.NextRound(); err != nil {
		return nil, err
	}
	return roundStartedEvents(room), nil
}

// DeclareTricks records a declaration for the current declarer.
func (s *Service) DeclareTricks(room *domain.Room, playerID string, n int) ([]Event, error) {
	if err := room.Declare(playerID, n); err != nil {
		return nil, err
	}
	payload := TricksDeclaredPayload{
		PlayerID:      playerID,
		Tricks:        n,
		TotalDeclared: room.TotalDeclared(),
		NextDeclarer:  room.CurrentDeclarer(),
	}
	if room.Phase == domain.PhasePlaying {
		payload.FirstPlayer = room.CurrentPlayer()
	}
	return []Event{{Kind: EventTricksDeclared, Payload: payload}}, nil
}

// PlayCard plays one card and reports every consequence of it.
func (s *Service) PlayCard(room *domain.Room, playerID string, cardIndex int, aceLow bool) ([]Event, error) {
	out, err := room.Play(playerID, cardIndex, aceLow)
	if err != nil {
		return nil, err
	}

	events := []Event{{
		Kind: EventCardPlayed,
		Payload: CardPlayedPayload{
			PlayerID:   playerID,
			Card:       out.Played.Card,
			AceLow:     out.Played.AceLow,
			NextPlayer: out.NextPlayerID,
		},
	}}
	if out.Trick != nil {
		events = append(events, Event{Kind: EventTrickCompleted, Payload: TrickCompletedPayload{Trick: *out.Trick}})
	}
	if out.Round != nil {
		events = append(events, Event{
			Kind:    EventRoundCompleted,
			Payload: RoundCompletedPayload{Summary: *out.Round, Phase: room.Phase},
		})
	}
	if out.GameOver {
		events = append(events, Event{
			Kind: EventGameEnded,
			Payload: GameEndedPayload{
				WinnerID: out.WinnerID,
				Rounds:   room.Round,
				History:  append([]domain.RoundSummary(nil), room.History...),
			},
		})
	}
	return events, nil
}

func roundStartedEvents(room *domain.Room) []Event {
	events := make([]Event, 0, len(room.Active)+1)
	events = append(events, Event{
		Kind: EventRoundStarted,
		Payload: RoundStartedPayload{
			Round:         room.Round,
			CardsPerRound: room.CardsPerRound,
			Active:        append([]string(nil), room.Active...),
			FirstDeclarer: room.CurrentDeclarer(),
		},
	})
	for _, id := range room.Active {
		events = append(events, Event{
			Kind: EventHandDealt,
			Payload: HandDealtPayload{
				PlayerID: id,
				Hand:     append([]domain.Card(nil), room.Players[id].Hand...),
			},
			Recipients: []string{id},
		})
	}
	return events
}
