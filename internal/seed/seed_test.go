package seed

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/mm2-store/internal/model"
)

func TestCatalog(t *testing.T) {
	products, err := Catalog()
	require.NoError(t, err)
	require.NotEmpty(t, products)

	ids := make(map[string]bool, len(products))
	categories := make(map[model.Category]int)
	for _, p := range products {
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
		categories[p.Category]++
		assert.True(t, p.Price.GreaterThanOrEqual(decimal.Zero), p.ID)
		assert.GreaterOrEqual(t, p.InStock, 0, p.ID)
	}
	for _, c := range model.Categories {
		assert.Positive(t, categories[c], "no products in %s", c)
	}
}

func TestCatalog_KnownProduct(t *testing.T) {
	products, err := Catalog()
	require.NoError(t, err)

	for _, p := range products {
		if p.ID == "blue-elite" {
			assert.Equal(t, "Blue Elite", p.Name)
			assert.True(t, p.Price.Equal(decimal.NewFromInt(17)))
			assert.Equal(t, model.CategoryBudget, p.Category)
			assert.Equal(t, model.RarityCommon, p.Rarity)
			return
		}
	}
	t.Fatal("blue-elite not in catalog")
}
