package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/metrics"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/repository"
)

var ErrInvalidMessage = errors.New("invalid message")

const maxMessageLength = 2000

// Thread is one order's conversation, as shown in the admin inbox.
type Thread struct {
	Order    *model.Order
	Messages []model.ChatMessage
}

type ChatService struct {
	chatRepo  repository.ChatRepository
	orderRepo repository.OrderRepository
	events    EventPublisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewChatService(chatRepo repository.ChatRepository, orderRepo repository.OrderRepository, events EventPublisher, m *metrics.Metrics, log *zap.Logger) *ChatService {
	return &ChatService{chatRepo: chatRepo, orderRepo: orderRepo, events: events, metrics: m, log: orNop(log)}
}

func (s *ChatService) List(ctx context.Context, orderID uuid.UUID, viewer Viewer) ([]model.ChatMessage, error) {
	if _, err := s.order(ctx, orderID, viewer); err != nil {
		return nil, err
	}
	msgs, err := s.chatRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Post adds a customer message to the order's thread.
func (s *ChatService) Post(ctx context.Context, orderID uuid.UUID, viewer Viewer, text string) (*model.ChatMessage, error) {
	sender := "guest"
	if viewer.UserID != uuid.Nil {
		sender = viewer.UserID.String()
	}
	return s.post(ctx, orderID, viewer, sender, model.SenderRoleCustomer, text)
}

// PostAsAdmin adds a support reply. Callers must already hold admin capability.
func (s *ChatService) PostAsAdmin(ctx context.Context, orderID uuid.UUID, viewer Viewer, text string) (*model.ChatMessage, error) {
	viewer.Admin = true
	sender := "admin"
	if viewer.UserID != uuid.Nil {
		sender = viewer.UserID.String()
	}
	return s.post(ctx, orderID, viewer, sender, model.SenderRoleAdmin, text)
}

func (s *ChatService) post(ctx context.Context, orderID uuid.UUID, viewer Viewer, sender, role, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return nil, fmt.Errorf("%w: message is longer than %d characters", ErrInvalidMessage, maxMessageLength)
	}
	if _, err := s.order(ctx, orderID, viewer); err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{OrderID: orderID, SenderID: sender, SenderRole: role, Message: text}
	if err := s.chatRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.metrics.ChatMessage(role)
	publish(ctx, s.events, s.log, model.NewEvent(model.EventChatMessagePosted, &orderID), map[string]string{
		"senderRole": role,
		"senderId":   sender,
	})
	return msg, nil
}

// Threads groups every message by order, most recent activity first.
// Messages whose order no longer exists are skipped.
func (s *ChatService) Threads(ctx context.Context) ([]Thread, error) {
	msgs, err := s.chatRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}

	index := make(map[uuid.UUID]int)
	var threads []Thread
	for _, m := range msgs {
		order := byID[m.OrderID]
		if order == nil {
			continue
		}
		i, ok := index[m.OrderID]
		if !ok {
			i = len(threads)
			index[m.OrderID] = i
			threads = append(threads, Thread{Order: order})
		}
		threads[i].Messages = append(threads[i].Messages, m)
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return lastActivity(threads[i]).After(lastActivity(threads[j]))
	})
	return threads, nil
}

func lastActivity(t Thread) time.Time {
	return t.Messages[len(t.Messages)-1].CreatedAt
}

func (s *ChatService) order(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !viewer.canAccess(order) {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}
