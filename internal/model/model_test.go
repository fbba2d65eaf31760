package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductSlug(t *testing.T) {
	cases := map[string]string{
		"Blue Elite":                  "blue-elite",
		"Santa's Magic":               "santa-s-magic",
		"2015":                        "2015",
		"Box of Ultra Wrapping Paper": "box-of-ultra-wrapping-paper",
		"Eternal  II":                 "eternal-ii",
	}
	for name, want := range cases {
		assert.Equal(t, want, ProductSlug(name), name)
	}
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, CategoryGodly.Valid())
	assert.False(t, Category("Mythic").Valid())
	assert.True(t, RarityChroma.Valid())
	assert.False(t, Rarity("chroma").Valid())
	assert.True(t, PaymentInstapay.Valid())
	assert.False(t, PaymentMethod("paypal").Valid())
	assert.Len(t, Categories, 6)
	assert.Len(t, Rarities, 7)
	assert.Len(t, OrderStatuses, 7)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusPaymentUploaded))
	assert.True(t, CanTransition(OrderStatusPaymentUploaded, OrderStatusPaymentUploaded))
	assert.True(t, CanTransition(OrderStatusPaymentUploaded, OrderStatusConfirmed))
	assert.True(t, CanTransition(OrderStatusConfirmed, OrderStatusProcessing))
	assert.True(t, CanTransition(OrderStatusProcessing, OrderStatusCompleted))

	assert.False(t, CanTransition(OrderStatusPending, OrderStatusCompleted))
	assert.False(t, CanTransition(OrderStatusProcessing, OrderStatusPending))
	assert.False(t, CanTransition(OrderStatusConfirmed, OrderStatusPaymentUploaded))

	for _, s := range OrderStatuses {
		if s.Terminal() {
			for _, to := range OrderStatuses {
				assert.False(t, CanTransition(s, to), "%s -> %s", s, to)
			}
			continue
		}
		assert.True(t, CanTransition(s, OrderStatusCancelled), "%s -> cancelled", s)
	}
}

func TestOrderOwnedBy(t *testing.T) {
	owner := uuid.New()
	order := &Order{UserID: &owner}
	assert.True(t, order.OwnedBy(owner))
	assert.False(t, order.OwnedBy(uuid.New()))

	guest := &Order{}
	assert.False(t, guest.OwnedBy(owner))
	assert.False(t, guest.OwnedBy(uuid.Nil))
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{Price: decimal.NewFromInt(17), Quantity: 2}
	assert.True(t, item.Subtotal().Equal(decimal.NewFromInt(34)))
}
