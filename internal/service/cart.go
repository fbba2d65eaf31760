package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/repository"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidCartItem  = errors.New("invalid cart item")
)

// UserCartID is the cart a signed-in user keeps across devices.
func UserCartID(userID uuid.UUID) string { return "user:" + userID.String() }

// GuestCartID is the cart behind a guest cart cookie.
func GuestCartID(token string) string { return "guest:" + token }

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

// GetCart returns the cart lines with their current product details. An
// unknown cart is an empty one.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*dto.CartResponse, error) {
	resp := &dto.CartResponse{Items: []dto.CartItemResponse{}, Total: decimal.Zero}
	if cartID == "" {
		return resp, nil
	}

	items, err := s.cartRepo.ListItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(items) == 0 {
		return resp, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	for _, item := range items {
		product := products[item.ProductID]
		if product == nil {
			continue
		}
		resp.Items = append(resp.Items, toCartItemResponse(item, product))
		resp.Total = resp.Total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return resp, nil
}

// AddItem puts a product in the cart, merging with an existing line for it.
func (s *CartService) AddItem(ctx context.Context, cartID string, req dto.AddCartItemRequest) (*dto.CartItemResponse, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if err := validateCartQuantity(quantity); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.InStock == 0 {
		return nil, fmt.Errorf("%w: %s is out of stock", ErrInvalidCartItem, product.Name)
	}

	items, err := s.cartRepo.ListItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	for _, item := range items {
		if item.ProductID == product.ID {
			if err := validateCartQuantity(item.Quantity + quantity); err != nil {
				return nil, err
			}
		}
	}

	item := &model.CartItem{CartID: cartID, ProductID: product.ID, Quantity: quantity}
	if err := s.cartRepo.AddItem(ctx, item); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	resp := toCartItemResponse(*item, product)
	return &resp, nil
}

func (s *CartService) UpdateItem(ctx context.Context, cartID string, itemID uuid.UUID, quantity int) (*dto.CartItemResponse, error) {
	if err := validateCartQuantity(quantity); err != nil {
		return nil, err
	}

	item, err := s.cartRepo.UpdateQuantity(ctx, cartID, itemID, quantity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	product, err := s.productRepo.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrCartItemNotFound
	}
	resp := toCartItemResponse(*item, product)
	return &resp, nil
}

func (s *CartService) DeleteItem(ctx context.Context, cartID string, itemID uuid.UUID) error {
	if err := s.cartRepo.DeleteItem(ctx, cartID, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, cartID string) error {
	if cartID == "" {
		return nil
	}
	if err := s.cartRepo.Clear(ctx, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func validateCartQuantity(quantity int) error {
	if quantity < 1 || quantity > maxLineQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidCartItem, maxLineQuantity)
	}
	return nil
}

func toCartItemResponse(item model.CartItem, product *model.Product) dto.CartItemResponse {
	return dto.CartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Product:   toProductResponse(product),
		CreatedAt: item.CreatedAt,
	}
}
