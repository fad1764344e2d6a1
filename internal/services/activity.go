package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/lifevault/backend/internal/events"
	"github.com/lifevault/backend/internal/models"
	"github.com/lifevault/backend/internal/repositories"
	"go.uber.org/zap"
)

// activity writes the audit trail and publishes account events. Both are
// best effort: a failure is logged and never fails the operation.
type activity struct {
	store     repositories.Store
	publisher events.Publisher
	log       *zap.Logger
}

func newActivity(store repositories.Store, publisher events.Publisher, log *zap.Logger) *activity {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &activity{store: store, publisher: publisher, log: log}
}

type activityEntry struct {
	userID     uuid.UUID
	action     string
	entityType string
	entityID   uuid.UUID
	event      string
	meta       map[string]any
}

func (a *activity) record(ctx context.Context, e activityEntry) {
	actor := e.userID
	entry := models.AuditLog{
		ActorUserID: &actor,
		ActorType:   "user",
		Action:      e.action,
		EntityType:  e.entityType,
		Meta:        e.meta,
	}
	if e.entityID != uuid.Nil {
		id := e.entityID
		entry.EntityID = &id
	}
	if err := a.store.Audit().Log(ctx, entry); err != nil {
		a.log.Warn("failed to write audit log", zap.String("action", e.action), zap.Error(err))
	}

	if e.event == "" {
		return
	}
	payload := map[string]any{}
	for k, v := range e.meta {
		payload[k] = v
	}
	if e.entityID != uuid.Nil {
		payload["id"] = e.entityID.String()
	}
	err := a.publisher.Publish(ctx, events.ChannelAccount, events.Event{
		Type:    e.event,
		UserID:  e.userID,
		Payload: payload,
	})
	if err != nil {
		a.log.Debug("failed to publish event", zap.String("event", e.event), zap.Error(err))
	}
}
