package events

import (
	"context"

	"github.com/google/uuid"
)

// ChannelAccount carries every account event; consumers filter by user.
const ChannelAccount = "events:account"

// Event types
const (
	EventUserRegistered       = "user.registered"
	EventUserVerified         = "user.verified"
	EventUserUpdated          = "user.updated"
	EventWalletConnected      = "wallet.connected"
	EventWalletDisconnected   = "wallet.disconnected"
	EventWalletPrimaryChanged = "wallet.primary_changed"
	EventUploadCreated        = "upload.created"
	EventUploadDeleted        = "upload.deleted"
)

type Event struct {
	Type    string         `json:"type"`
	UserID  uuid.UUID      `json:"user_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(Event)) error
}

// NopPublisher drops events; used when Redis is not wired in.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
