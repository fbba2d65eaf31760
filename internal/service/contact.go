package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/model"
)

// ContactService forwards contact form submissions to the support inbox.
// Nothing is stored; the notification worker picks the event up.
type ContactService struct {
	events EventPublisher
	log    *zap.Logger
}

func NewContactService(events EventPublisher, log *zap.Logger) *ContactService {
	return &ContactService{events: events, log: orNop(log)}
}

func (s *ContactService) Submit(ctx context.Context, req dto.ContactRequest) {
	msg := model.ContactMessage{
		Name:           strings.TrimSpace(req.Name),
		Email:          normalizeEmail(req.Email),
		RobloxUsername: strings.TrimSpace(req.RobloxUsername),
		Message:        strings.TrimSpace(req.Message),
	}
	s.log.Info("contact form submitted",
		zap.String("email", msg.Email),
		zap.String("roblox_username", msg.RobloxUsername),
	)
	publish(ctx, s.events, s.log, model.NewEvent(model.EventContactSubmitted, nil), msg)
}
