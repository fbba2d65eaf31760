package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flicky/mm2-store/internal/model"
)

func newTestWorker() (*EventWorker, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewEventWorker(nil, nil, zap.New(core)), logs
}

func encode(t *testing.T, event model.Event, payload any) []byte {
	t.Helper()
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		event.Payload = data
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestEventWorker_StatusChanged(t *testing.T) {
	w, logs := newTestWorker()
	orderID := uuid.New()
	event := model.NewEvent(model.EventOrderStatusChanged, &orderID)
	event.Status = model.OrderStatusConfirmed

	out := w.handle(context.Background(), encode(t, event, map[string]string{"from": "payment_uploaded", "email": "a@b.com"}))
	assert.Equal(t, ack, out)

	entries := logs.FilterMessage("notify customer: order status changed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "confirmed", fields["status"])
	assert.Equal(t, orderID.String(), fields["order_id"])
}

func TestEventWorker_ChatTarget(t *testing.T) {
	w, logs := newTestWorker()
	orderID := uuid.New()

	w.handle(context.Background(), encode(t, model.NewEvent(model.EventChatMessagePosted, &orderID), map[string]string{"senderRole": "admin"}))
	w.handle(context.Background(), encode(t, model.NewEvent(model.EventChatMessagePosted, &orderID), map[string]string{"senderRole": "customer"}))

	assert.Equal(t, 1, logs.FilterMessage("notify customer: new chat message").Len())
	assert.Equal(t, 1, logs.FilterMessage("notify staff: new chat message").Len())
}

func TestEventWorker_Malformed(t *testing.T) {
	w, _ := newTestWorker()

	assert.Equal(t, deadLetter, w.handle(context.Background(), []byte("not json")))
	assert.Equal(t, deadLetter, w.handle(context.Background(), []byte(`{"id":"`+uuid.NewString()+`"}`)))

	event := model.NewEvent(model.EventOrderCreated, nil)
	event.Payload = json.RawMessage(`"just a string"`)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Equal(t, deadLetter, w.handle(context.Background(), body))
}

func TestEventWorker_UnknownTypeIsAcked(t *testing.T) {
	w, logs := newTestWorker()
	out := w.handle(context.Background(), encode(t, model.NewEvent("order.teleported", nil), nil))
	assert.Equal(t, ack, out)
	assert.Equal(t, 1, logs.FilterMessage("ignoring unknown event type").Len())
}
