package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var errBadFile = errors.New("bad file")

type fakeFiles struct {
	saved   []string
	removed []string
	fail    bool
}

func (f *fakeFiles) Save(fh *multipart.FileHeader) (string, error) {
	if f.fail {
		return "", errBadFile
	}
	ref := fmt.Sprintf("/uploads/%d-%s", len(f.saved), fh.Filename)
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeFiles) Remove(ref string) error {
	f.removed = append(f.removed, ref)
	return nil
}

func seedProducts(t *testing.T, store *memory.Store) {
	t.Helper()
	products := []model.Product{
		{ID: "blue-elite", Name: "Blue Elite", Price: decimal.NewFromInt(17), Category: model.CategoryBudget, Rarity: model.RarityCommon, InStock: 1},
		{ID: "phoenix", Name: "Phoenix", Price: decimal.NewFromInt(26), Category: model.CategoryStandard, Rarity: model.RarityLegendary, InStock: 1},
		{ID: "sold-out", Name: "Sold Out", Price: decimal.NewFromInt(5), Category: model.CategoryBudget, Rarity: model.RarityCommon, InStock: 0},
	}
	_, err := store.Products().CreateMany(context.Background(), products)
	require.NoError(t, err)
}

func contactReq() dto.ContactRequest {
	return dto.ContactRequest{
		Name: "Ann", Email: "Ann@Example.com", RobloxUsername: "annlee",
		Message: "Do you have any Chroma knives?",
	}
}
