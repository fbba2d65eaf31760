package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/mm2-store/internal/model"
)

type ChatRepository interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.ChatMessage, error)
	// ListAll returns every message ordered by order, then time.
	ListAll(ctx context.Context) ([]model.ChatMessage, error)
}

type pgChatRepo struct{ pool *pgxpool.Pool }

func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &pgChatRepo{pool: pool}
}

func (r *pgChatRepo) Create(ctx context.Context, msg *model.ChatMessage) error {
	msg.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO chat_messages (id, order_id, sender_id, sender_role, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING created_at`,
		msg.ID, msg.OrderID, msg.SenderID, msg.SenderRole, msg.Message,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *pgChatRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.ChatMessage, error) {
	return r.list(ctx,
		`SELECT id, order_id, sender_id, sender_role, message, created_at
		 FROM chat_messages WHERE order_id = $1 ORDER BY created_at`, orderID)
}

func (r *pgChatRepo) ListAll(ctx context.Context) ([]model.ChatMessage, error) {
	return r.list(ctx,
		`SELECT id, order_id, sender_id, sender_role, message, created_at
		 FROM chat_messages ORDER BY order_id, created_at`)
}

func (r *pgChatRepo) list(ctx context.Context, query string, args ...any) ([]model.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.SenderRole, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
