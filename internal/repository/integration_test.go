package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/mm2-store/internal/model"
)

func newOrder(userID *uuid.UUID, status model.OrderStatus) *model.Order {
	return &model.Order{
		UserID:         userID,
		Email:          "buyer@example.com",
		RobloxUsername: "player1",
		PaymentMethod:  model.PaymentInstapay,
		TotalAmount:    decimal.NewFromInt(34),
		Items: []model.OrderItem{
			{ProductID: "blue-elite", Name: "Blue Elite", Price: decimal.NewFromInt(17), Quantity: 2},
		},
		Status: status,
	}
}

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	resetAll(t)

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := &model.User{
		Email: "test@example.com", Password: "hashed",
		FirstName: "John", LastName: "Doe", Role: model.RoleCustomer,
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	dup := &model.User{Email: "test@example.com", Password: "x", Role: model.RoleCustomer}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)

	found.RobloxUsername = "johnny"
	require.NoError(t, repo.Update(ctx, found))
	found, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "johnny", found.RobloxUsername)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepo_CreateAndGet(t *testing.T) {
	resetAll(t)

	userRepo := NewUserRepository(testPool)
	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	user := &model.User{
		Email: "order@example.com", Password: "h", FirstName: "O", LastName: "U", Role: model.RoleCustomer,
	}
	require.NoError(t, userRepo.Create(ctx, user))

	order := newOrder(&user.ID, model.OrderStatusPending)
	require.NoError(t, orderRepo.Create(ctx, order))
	assert.NotEqual(t, uuid.Nil, order.ID)

	guest := newOrder(nil, model.OrderStatusPending)
	require.NoError(t, orderRepo.Create(ctx, guest))

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, model.OrderStatusPending, found.Status)
	assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(34)))
	require.Len(t, found.Items, 1)
	assert.Equal(t, 2, found.Items[0].Quantity)
	assert.Nil(t, found.ReceiptURL)

	mine, err := orderRepo.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)

	all, err := orderRepo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := orderRepo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepo_ChangeStatus(t *testing.T) {
	resetAll(t)

	repo := NewOrderRepository(testPool)
	ctx := context.Background()

	order := newOrder(nil, model.OrderStatusPending)
	require.NoError(t, repo.Create(ctx, order))

	receipt := "/uploads/receipt.png"
	updated, err := repo.ChangeStatus(ctx, &model.OrderStatusChange{
		OrderID: order.ID, FromStatus: model.OrderStatusPending,
		ToStatus: model.OrderStatusPaymentUploaded, Actor: "customer",
	}, &receipt)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaymentUploaded, updated.Status)
	require.NotNil(t, updated.ReceiptURL)
	assert.Equal(t, receipt, *updated.ReceiptURL)

	// stale from-status
	_, err = repo.ChangeStatus(ctx, &model.OrderStatusChange{
		OrderID: order.ID, FromStatus: model.OrderStatusPending,
		ToStatus: model.OrderStatusCancelled, Actor: "admin",
	}, nil)
	assert.ErrorIs(t, err, ErrConflict)

	updated, err = repo.ChangeStatus(ctx, &model.OrderStatusChange{
		OrderID: order.ID, FromStatus: model.OrderStatusPaymentUploaded,
		ToStatus: model.OrderStatusConfirmed, Actor: "admin-secret",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.ReceiptURL, "receipt survives a status change")

	history, err := repo.History(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.OrderStatusPaymentUploaded, history[0].ToStatus)
	assert.Equal(t, "admin-secret", history[1].Actor)
}

func TestOrderRepo_DeleteCascades(t *testing.T) {
	resetAll(t)

	orderRepo := NewOrderRepository(testPool)
	chatRepo := NewChatRepository(testPool)
	ctx := context.Background()

	done := newOrder(nil, model.OrderStatusCompleted)
	doneReceipt := "/uploads/done.png"
	done.ReceiptURL = &doneReceipt
	cancelled := newOrder(nil, model.OrderStatusCancelled)
	open := newOrder(nil, model.OrderStatusPending)
	for _, o := range []*model.Order{done, cancelled, open} {
		require.NoError(t, orderRepo.Create(ctx, o))
		require.NoError(t, chatRepo.Create(ctx, &model.ChatMessage{
			OrderID: o.ID, SenderID: "guest", SenderRole: model.SenderRoleCustomer, Message: "hi",
		}))
	}

	n, receipts, err := orderRepo.DeleteByStatuses(ctx, []model.OrderStatus{model.OrderStatusCompleted, model.OrderStatusCancelled})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, []string{doneReceipt}, receipts)

	msgs, err := chatRepo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, open.ID, msgs[0].OrderID)

	require.NoError(t, orderRepo.Delete(ctx, open.ID))
	assert.ErrorIs(t, orderRepo.Delete(ctx, open.ID), ErrNotFound)

	msgs, err = chatRepo.ListByOrderID(ctx, open.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestChatRepo_Ordering(t *testing.T) {
	resetAll(t)

	orderRepo := NewOrderRepository(testPool)
	chatRepo := NewChatRepository(testPool)
	ctx := context.Background()

	order := newOrder(nil, model.OrderStatusPending)
	require.NoError(t, orderRepo.Create(ctx, order))

	for _, text := range []string{"first", "second", "third"} {
		msg := &model.ChatMessage{
			OrderID: order.ID, SenderID: "admin", SenderRole: model.SenderRoleAdmin, Message: text,
		}
		require.NoError(t, chatRepo.Create(ctx, msg))
		assert.NotEqual(t, uuid.Nil, msg.ID)
	}

	msgs, err := chatRepo.ListByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "third", msgs[2].Message)
}
