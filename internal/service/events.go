package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/model"
)

// EventPublisher hands store events to the notification pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// Viewer is whoever is acting on an order: a signed-in user, an admin
// session, or an anonymous guest (zero value).
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

// canAccess: admins see everything, guest orders are reachable by id, and
// account orders only by their owner.
func (v Viewer) canAccess(o *model.Order) bool {
	return v.Admin || o.UserID == nil || o.OwnedBy(v.UserID)
}

func (v Viewer) actor() string {
	switch {
	case v.UserID != uuid.Nil:
		return v.UserID.String()
	case v.Admin:
		return "admin-secret"
	default:
		return "customer"
	}
}

func publish(ctx context.Context, pub EventPublisher, log *zap.Logger, event model.Event, payload any) {
	if pub == nil {
		return
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Warn("encode event payload", zap.String("type", event.Type), zap.Error(err))
		} else {
			event.Payload = data
		}
	}
	if err := pub.Publish(ctx, event); err != nil {
		log.Warn("publish event failed",
			zap.String("type", event.Type),
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
