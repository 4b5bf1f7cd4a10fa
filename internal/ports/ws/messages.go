package ws

import (
	"errors"

	"mascarpone/internal/app"
	"mascarpone/internal/domain"
)

// Client -> server message types.
const (
	TypeCreateRoom    = "create_room"
	TypeJoinRoom      = "join_room"
	TypeLeaveRoom     = "leave_room"
	TypeStartGame     = "start_game"
	TypeDeclareTricks = "declare_tricks"
	TypePlayCard      = "play_card"
	TypeNextRound     = "next_round"
)

// Server -> client message types.
const (
	TypeRoomCreated = "room_created"
	TypeJoined      = "joined"
	TypeError       = "error"
	TypeGameState   = "game_state"
	TypeTrickResult = "trick_result"
	TypeRoundResult = "round_result"
	TypeGameOver    = "game_over"
)

var errBadRequest = errors.New("bad request")

// ClientMessage is every frame a client may send. RoomID defaults to the
// room the connection last joined.
type ClientMessage struct {
	Type       string `json:"type"`
	RoomID     string `json:"room_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	Tricks     *int   `json:"tricks,omitempty"`
	CardIndex  *int   `json:"card_index,omitempty"`
	AceLow     bool   `json:"ace_low,omitempty"`
}

// ServerMessage wraps every frame the server sends.
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type RoomCreated struct {
	RoomID string `json:"room_id"`
}

type Joined struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TrickResult struct {
	Winner     string             `json:"winner"`
	WinnerName string             `json:"winner_name"`
	Trick      domain.TrickResult `json:"trick"`
}

type RoundResult struct {
	RoundSummary domain.RoundSummary `json:"round_summary"`
	Eliminated   []string            `json:"eliminated"`
}

type GameOver struct {
	Winner     string                `json:"winner"`
	WinnerName string                `json:"winner_name,omitempty"`
	Rounds     int                   `json:"rounds"`
	History    []domain.RoundSummary `json:"history"`
}

// publishedEvent is the Redis payload for one room event.
type publishedEvent struct {
	RoomID  string        `json:"room_id"`
	Kind    app.EventKind `json:"kind"`
	Payload interface{}   `json:"payload"`
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errBadRequest):
		return "bad_request"
	case errors.Is(err, app.ErrUnknownRoom):
		return "unknown_room"
	default:
		return domain.ErrorCode(err)
	}
}
