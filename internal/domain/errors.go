package domain

import "errors"

var (
	ErrRoomFull           = errors.New("room full")
	ErrAlreadyJoined      = errors.New("player already joined")
	ErrUnknownPlayer      = errors.New("player not found")
	ErrWrongPhase         = errors.New("operation not allowed in current phase")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidDeclaration = errors.New("invalid declaration")
	ErrForbiddenTotal     = errors.New("declaration would make the total equal the hand size")
	ErrInvalidCardIndex   = errors.New("invalid card index")
	ErrConfiguration      = errors.New("invalid game configuration")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRoomFull, "room_full"},
	{ErrAlreadyJoined, "already_joined"},
	{ErrUnknownPlayer, "unknown_player"},
	{ErrWrongPhase, "wrong_phase"},
	{ErrNotEnoughPlayers, "not_enough_players"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrInvalidDeclaration, "invalid_declaration"},
	{ErrForbiddenTotal, "forbidden_total"},
	{ErrInvalidCardIndex, "invalid_card_index"},
	{ErrConfiguration, "configuration_error"},
}

// ErrorCode maps a failure to a stable wire code. Unrecognised errors map to "internal".
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
