package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/model"
)

const (
	processedPrefix = "event_processed:"
	processedTTL    = 24 * time.Hour
)

var errMalformedEvent = errors.New("malformed event")

type outcome int

const (
	ack outcome = iota
	retry
	deadLetter
)

// EventWorker consumes store events and turns them into customer and staff
// notifications. Each event is handled at most once per day thanks to a
// Redis marker on its id.
type EventWorker struct {
	channel     *amqp.Channel
	redisClient *redis.Client
	log         *zap.Logger
	done        chan struct{}
}

func NewEventWorker(ch *amqp.Channel, redisClient *redis.Client, log *zap.Logger) *EventWorker {
	return &EventWorker{
		channel:     ch,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

func (w *EventWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(eventQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("event worker started")
	return nil
}

func (w *EventWorker) Stop() { close(w.done) }

func (w *EventWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	switch w.handle(ctx, msg.Body) {
	case ack:
		_ = msg.Ack(false)
	case retry:
		_ = msg.Nack(false, true)
	case deadLetter:
		_ = msg.Nack(false, false)
	}
}

func (w *EventWorker) handle(ctx context.Context, body []byte) outcome {
	var event model.Event
	if err := json.Unmarshal(body, &event); err != nil || event.Type == "" {
		w.log.Error("unmarshal event", zap.Error(errors.Join(errMalformedEvent, err)))
		return deadLetter
	}

	log := w.log.With(zap.String("event_id", event.ID.String()), zap.String("type", event.Type))
	if event.OrderID != nil {
		log = log.With(zap.String("order_id", event.OrderID.String()))
	}

	key := processedPrefix + event.ID.String()
	if w.redisClient != nil {
		exists, err := w.redisClient.Exists(ctx, key).Result()
		if err != nil {
			log.Error("check processed marker", zap.Error(err))
			return retry
		}
		if exists > 0 {
			log.Info("event already processed, skipping")
			return ack
		}
	}

	if err := w.notify(log, event); err != nil {
		log.Error("handle event failed", zap.Error(err))
		return deadLetter
	}

	if w.redisClient != nil {
		if err := w.redisClient.Set(ctx, key, "1", processedTTL).Err(); err != nil {
			log.Error("set processed marker", zap.Error(err))
		}
	}
	return ack
}

// notify emits the notification for one event as a structured log line.
func (w *EventWorker) notify(log *zap.Logger, event model.Event) error {
	var payload map[string]any
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("%w: payload: %v", errMalformedEvent, err)
		}
	}

	switch event.Type {
	case model.EventOrderCreated:
		log.Info("notify staff: new order", zap.Any("email", payload["email"]), zap.Any("total", payload["totalAmount"]))
	case model.EventOrderStatusChanged:
		log.Info("notify customer: order status changed",
			zap.String("status", string(event.Status)),
			zap.Any("from", payload["from"]),
			zap.Any("email", payload["email"]),
		)
	case model.EventOrderReceiptUploaded:
		log.Info("notify staff: payment receipt uploaded", zap.Any("receipt_url", payload["receiptUrl"]))
	case model.EventChatMessagePosted:
		target := "staff"
		if payload["senderRole"] == model.SenderRoleAdmin {
			target = "customer"
		}
		log.Info("notify "+target+": new chat message", zap.Any("sender_id", payload["senderId"]))
	case model.EventContactSubmitted:
		log.Info("notify staff: contact form", zap.Any("email", payload["email"]), zap.Any("message", payload["message"]))
	default:
		log.Warn("ignoring unknown event type")
	}
	return nil
}
