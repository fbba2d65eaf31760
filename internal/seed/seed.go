// Package seed carries the default item catalog loaded into an empty store.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/flicky/mm2-store/internal/model"
)

//go:embed catalog.json
var catalogJSON []byte

type catalogEntry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    model.Category  `json:"category"`
	Rarity      model.Rarity    `json:"rarity"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	InStock     int             `json:"inStock"`
}

// Catalog decodes the embedded default catalog.
func Catalog() ([]model.Product, error) {
	var entries []catalogEntry
	if err := json.Unmarshal(catalogJSON, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	products := make([]model.Product, 0, len(entries))
	for _, e := range entries {
		if !e.Category.Valid() || !e.Rarity.Valid() {
			return nil, fmt.Errorf("catalog entry %q: invalid category or rarity", e.ID)
		}
		id := e.ID
		if id == "" {
			id = model.ProductSlug(e.Name)
		}
		products = append(products, model.Product{
			ID:          id,
			Name:        e.Name,
			Price:       e.Price,
			Category:    e.Category,
			Rarity:      e.Rarity,
			Description: e.Description,
			ImageURL:    e.ImageURL,
			InStock:     e.InStock,
		})
	}
	return products, nil
}
