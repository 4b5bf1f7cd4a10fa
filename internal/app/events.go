package app

import "mascarpone/internal/domain"

// EventKind identifies emitted room events for transport dispatch.
type EventKind string

const (
	EventPlayerJoined   EventKind = "player_joined"
	EventPlayerLeft     EventKind = "player_left"
	EventRoundStarted   EventKind = "round_started"
	EventHandDealt      EventKind = "hand_dealt"
	EventTricksDeclared EventKind = "tricks_declared"
	EventCardPlayed     EventKind = "card_played"
	EventTrickCompleted EventKind = "trick_completed"
	EventRoundCompleted EventKind = "round_completed"
	EventGameEnded      EventKind = "game_ended"
)

// Event is a room event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // player IDs; empty means broadcast
}

// Broadcast reports whether every member should receive the event.
func (e Event) Broadcast() bool { return len(e.Recipients) == 0 }

// VisibleTo reports whether playerID is an audience of the event.
func (e Event) VisibleTo(playerID string) bool {
	if e.Broadcast() {
		return true
	}
	for _, id := range e.Recipients {
		if id == playerID {
			return true
		}
	}
	return false
}

type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
}

type RoundStartedPayload struct {
	Round         int      `json:"round"`
	CardsPerRound int      `json:"cards_per_round"`
	Active        []string `json:"active"`
	FirstDeclarer string   `json:"first_declarer"`
}

type HandDealtPayload struct {
	PlayerID string        `json:"player_id"`
	Hand     []domain.Card `json:"hand"`
}

type TricksDeclaredPayload struct {
	PlayerID      string `json:"player_id"`
	Tricks        int    `json:"tricks"`
	TotalDeclared int    `json:"total_declared"`
	NextDeclarer  string `json:"next_declarer,omitempty"`
	FirstPlayer   string `json:"first_player,omitempty"` // set once everyone has declared
}

type CardPlayedPayload struct {
	PlayerID   string      `json:"player_id"`
	Card       domain.Card `json:"card"`
	AceLow     bool        `json:"ace_low"`
	NextPlayer string      `json:"next_player,omitempty"`
}

type TrickCompletedPayload struct {
	Trick domain.TrickResult `json:"trick"`
}

type RoundCompletedPayload struct {
	Summary domain.RoundSummary `json:"summary"`
	Phase   domain.Phase        `json:"phase"`
}

type GameEndedPayload struct {
	WinnerID string                `json:"winner_id"` // empty when nobody survived
	Rounds   int                   `json:"rounds"`
	History  []domain.RoundSummary `json:"history"`
}
