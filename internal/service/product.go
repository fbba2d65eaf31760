package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/repository"
	"github.com/flicky/mm2-store/internal/seed"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product already exists")
	ErrInvalidProduct  = errors.New("invalid product")
)

const (
	productCacheTTL    = 60 * time.Second
	productListKey     = "products:all"
	productCachePrefix = "product:"
)

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
	log         *zap.Logger
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client, log *zap.Logger) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient, log: orNop(log)}
}

// List returns the catalog ordered by category then name, optionally
// narrowed to one category.
func (s *ProductService) List(ctx context.Context, category string) ([]dto.ProductResponse, error) {
	if category != "" && !model.Category(category).Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, category)
	}

	all, ok := s.cachedList(ctx)
	if !ok {
		products, err := s.productRepo.List(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		all = make([]dto.ProductResponse, 0, len(products))
		for i := range products {
			all = append(all, toProductResponse(&products[i]))
		}
		s.cacheSet(ctx, productListKey, all)
	}

	if category == "" {
		return all, nil
	}
	filtered := make([]dto.ProductResponse, 0)
	for _, p := range all {
		if string(p.Category) == category {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	cacheKey := productCachePrefix + id

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)
	s.cacheSet(ctx, cacheKey, resp)
	return &resp, nil
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	product, err := productFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrProductExists
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.invalidateCache(ctx, product.ID)
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Update(ctx context.Context, id string, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Rarity != nil {
		product.Rarity = *req.Rarity
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.InStock != nil {
		product.InStock = *req.InStock
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

// Seed bulk-imports products, skipping ids that already exist. An empty
// list imports the built-in catalog.
func (s *ProductService) Seed(ctx context.Context, reqs []dto.CreateProductRequest) (*dto.SeedProductsResponse, error) {
	var products []model.Product
	if len(reqs) == 0 {
		catalog, err := seed.Catalog()
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		products = catalog
	} else {
		products = make([]model.Product, 0, len(reqs))
		for _, req := range reqs {
			p, err := productFromRequest(req)
			if err != nil {
				return nil, err
			}
			products = append(products, *p)
		}
	}

	inserted, err := s.productRepo.CreateMany(ctx, products)
	if err != nil {
		return nil, fmt.Errorf("seed products: %w", err)
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	s.invalidateCache(ctx, ids...)
	return &dto.SeedProductsResponse{Inserted: inserted, Total: len(products)}, nil
}

// SeedIfEmpty loads the built-in catalog into an empty product table.
func (s *ProductService) SeedIfEmpty(ctx context.Context) (int, error) {
	n, err := s.productRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	resp, err := s.Seed(ctx, nil)
	if err != nil {
		return 0, err
	}
	return resp.Inserted, nil
}

func (s *ProductService) cachedList(ctx context.Context) ([]dto.ProductResponse, bool) {
	if s.redisClient == nil {
		return nil, false
	}
	cached, err := s.redisClient.Get(ctx, productListKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("product cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var list []dto.ProductResponse
	if err := json.Unmarshal([]byte(cached), &list); err != nil {
		return nil, false
	}
	return list, true
}

func (s *ProductService) cacheSet(ctx context.Context, key string, v any) {
	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, data, productCacheTTL).Err(); err != nil {
		s.log.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProductService) invalidateCache(ctx context.Context, ids ...string) {
	if s.redisClient == nil {
		return
	}
	keys := []string{productListKey}
	for _, id := range ids {
		keys = append(keys, productCachePrefix+id)
	}
	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn("product cache invalidation failed", zap.Error(err))
	}
}

func productFromRequest(req dto.CreateProductRequest) (*model.Product, error) {
	p := &model.Product{
		ID:          strings.TrimSpace(req.ID),
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		Rarity:      req.Rarity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		InStock:     1,
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.InStock != nil {
		p.InStock = *req.InStock
	}
	if p.ID == "" {
		p.ID = model.ProductSlug(p.Name)
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	return p, nil
}

func validateProduct(p *model.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.ID == "" || strings.Trim(p.ID, "-") == "":
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	case p.Price.LessThan(decimal.Zero):
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case p.InStock < 0:
		return fmt.Errorf("%w: inStock must not be negative", ErrInvalidProduct)
	case !p.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, p.Category)
	case !p.Rarity.Valid():
		return fmt.Errorf("%w: unknown rarity %q", ErrInvalidProduct, p.Rarity)
	}
	return nil
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.Category,
		Rarity:      p.Rarity,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		InStock:     p.InStock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
