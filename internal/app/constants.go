package app

import "time"

const (
	// RoomIDLength is the number of characters of a UUID kept as a room id.
	RoomIDLength = 8

	// maxRoomIDAttempts bounds id generation when short ids collide.
	maxRoomIDAttempts = 16

	// DefaultInviteTTL is how long a private room invite stays valid.
	DefaultInviteTTL = 24 * time.Hour
)
