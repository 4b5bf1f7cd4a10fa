// Package ports declares what the application needs from the outside world.
package ports

import "context"

// AccountPort renames player accounts.
type AccountPort interface {
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}

// EventPublisher fans room events out to observers outside the process.
type EventPublisher interface {
	// Publish sends payload on channel. Delivery is best effort.
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }

// RoomChannel names the channel a room's events are published on.
func RoomChannel(roomID string) string {
	return "mascarpone:room:" + roomID
}
