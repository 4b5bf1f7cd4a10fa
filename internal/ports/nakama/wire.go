package nakama

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"mascarpone/internal/app"
	"mascarpone/internal/domain"
)

var (
	ErrNotOwner   = errors.New("actor is not match owner")
	ErrBadPayload = errors.New("malformed message payload")
	ErrBotsOff    = errors.New("bots are disabled for this match")
)

// DeclareTricksRequest is the OpDeclareTricks payload.
type DeclareTricksRequest struct {
	Tricks int `json:"tricks"`
}

// PlayCardRequest is the OpPlayCard payload. Card may be given instead of
// CardIndex, in text form ("AH", "10D").
type PlayCardRequest struct {
	CardIndex *int   `json:"card_index,omitempty"`
	Card      string `json:"card,omitempty"`
	AceLow    bool   `json:"ace_low"`
}

// ErrorEvent is the OpError payload.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeDeclare(data []byte) (DeclareTricksRequest, error) {
	var req DeclareTricksRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return req, nil
}

// resolveCardIndex turns a play request into a hand index. An unknown card
// maps to -1 so the room reports an invalid index.
func resolveCardIndex(req PlayCardRequest, hand []domain.Card) (int, error) {
	if req.CardIndex != nil {
		return *req.CardIndex, nil
	}
	if req.Card == "" {
		return 0, fmt.Errorf("%w: card_index or card required", ErrBadPayload)
	}
	card, err := domain.ParseCard(req.Card)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	for i, c := range hand {
		if c == card {
			return i, nil
		}
	}
	return -1, nil
}

func decodePlay(data []byte) (PlayCardRequest, error) {
	var req PlayCardRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return req, nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrBadPayload):
		return "bad_request"
	case errors.Is(err, ErrBotsOff):
		return "bots_disabled"
	default:
		return domain.ErrorCode(err)
	}
}

func encodeError(err error) []byte {
	b, _ := json.Marshal(ErrorEvent{Code: errorCode(err), Message: err.Error()})
	return b
}

// eventOpCode maps an app event to its wire op code.
func eventOpCode(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventPlayerJoined:
		return OpPlayerJoined, true
	case app.EventPlayerLeft:
		return OpPlayerLeft, true
	case app.EventRoundStarted:
		return OpRoundStarted, true
	case app.EventHandDealt:
		return OpHandDealt, true
	case app.EventTricksDeclared:
		return OpTricksDeclared, true
	case app.EventCardPlayed:
		return OpCardPlayed, true
	case app.EventTrickCompleted:
		return OpTrickCompleted, true
	case app.EventRoundCompleted:
		return OpRoundCompleted, true
	case app.EventGameEnded:
		return OpGameOver, true
	default:
		return 0, false
	}
}

// MatchLabel is the searchable match description.
type MatchLabel struct {
	Phase   domain.Phase
	Open    bool
	Private bool
	Players int
}

func (l MatchLabel) Marshal() (string, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_Game:    GameLabel,
		MatchLabelKey_Phase:   string(l.Phase),
		MatchLabelKey_Open:    l.Open,
		MatchLabelKey_Private: l.Private,
		MatchLabelKey_Players: l.Players,
	})
	if err != nil {
		return "", err
	}
	b, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func computeLabel(state *MatchState) MatchLabel {
	room := state.Room
	return MatchLabel{
		Phase:   room.Phase,
		Open:    !state.Private && room.Phase == domain.PhaseWaiting && len(room.Order) < room.Rules.MaxPlayers,
		Private: state.Private,
		Players: len(room.Order),
	}
}
