package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a public waiting room.
	RpcQuickMatch = "quick_match"
	// RpcCreateRoom creates a room, optionally private with an invite token.
	RpcCreateRoom = "create_room"

	// MatchNameMascarpone is the authoritative match handler name registered with Nakama.
	MatchNameMascarpone = "mascarpone_match"

	// GameLabel identifies our matches in label queries.
	GameLabel = "mascarpone"

	// MetadataInvite is the join metadata key carrying a private room invite.
	MetadataInvite = "invite"
)

// Match label keys.
const (
	MatchLabelKey_Game    = "game"
	MatchLabelKey_Phase   = "phase"
	MatchLabelKey_Open    = "open"
	MatchLabelKey_Private = "private"
	MatchLabelKey_Players = "players"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame     int64 = 1 // owner only
	OpDeclareTricks int64 = 2
	OpPlayCard      int64 = 3
	OpNextRound     int64 = 4
	OpAddBot        int64 = 5 // owner only, waiting only
	OpNewGame       int64 = 6 // owner only, after game over

	// Server -> Client events
	OpPlayerJoined   int64 = 101
	OpPlayerLeft     int64 = 102
	OpRoundStarted   int64 = 103
	OpTricksDeclared int64 = 104
	OpCardPlayed     int64 = 105
	OpTrickCompleted int64 = 106
	OpRoundCompleted int64 = 107
	OpGameOver       int64 = 108
	OpGameState      int64 = 109 // send privately
	OpError          int64 = 110 // send privately
	OpHandDealt      int64 = 111 // send privately
)

const (
	defaultBotMinDelayTicks = 1
	defaultBotMaxDelayTicks = 3
	tickRate                = 1
)
