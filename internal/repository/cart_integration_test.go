//go:build integration

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

func TestCartRepository_Integration(t *testing.T) {
	resetAll(t)
	products := NewProductRepository(testPool)
	repo := NewCartRepository(testPool)
	ctx := context.Background()

	require.NoError(t, products.Create(ctx, &model.Product{
		ID: "phoenix", Name: "Phoenix", Price: decimal.NewFromInt(26),
		Category: model.CategoryStandard, Rarity: model.RarityLegendary, InStock: 1,
	}))

	first := &model.CartItem{CartID: "guest:a", ProductID: "phoenix", Quantity: 1}
	require.NoError(t, repo.AddItem(ctx, first))
	merged := &model.CartItem{CartID: "guest:a", ProductID: "phoenix", Quantity: 2}
	require.NoError(t, repo.AddItem(ctx, merged))
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 3, merged.Quantity)

	other := &model.CartItem{CartID: "guest:b", ProductID: "phoenix", Quantity: 1}
	require.NoError(t, repo.AddItem(ctx, other))

	items, err := repo.ListItems(ctx, "guest:a")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)

	updated, err := repo.UpdateQuantity(ctx, "guest:a", first.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	_, err = repo.UpdateQuantity(ctx, "guest:b", first.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.DeleteItem(ctx, "guest:b", first.ID), ErrNotFound)
	require.NoError(t, repo.DeleteItem(ctx, "guest:a", first.ID))
	assert.ErrorIs(t, repo.DeleteItem(ctx, "guest:a", uuid.New()), ErrNotFound)

	require.NoError(t, repo.Clear(ctx, "guest:b"))
	items, err = repo.ListItems(ctx, "guest:b")
	require.NoError(t, err)
	assert.Empty(t, items)

	// removing a product drops it from every cart
	require.NoError(t, repo.AddItem(ctx, &model.CartItem{CartID: "guest:c", ProductID: "phoenix", Quantity: 1}))
	require.NoError(t, products.Delete(ctx, "phoenix"))
	items, err = repo.ListItems(ctx, "guest:c")
	require.NoError(t, err)
	assert.Empty(t, items)
}
