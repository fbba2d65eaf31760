package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/mm2-store/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	RobloxUsername string `json:"robloxUsername"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName      *string `json:"firstName" binding:"omitempty,min=1"`
	LastName       *string `json:"lastName" binding:"omitempty,min=1"`
	RobloxUsername *string `json:"robloxUsername"`
}

type AdminVerifyRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the signed session token to the handler, which
// puts it in a cookie and only returns the user.
type AuthResponse struct {
	Token     string
	ExpiresAt time.Time
	User      UserResponse
}

type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	RobloxUsername string    `json:"robloxUsername,omitempty"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

// --- Product ---

type CreateProductRequest struct {
	ID          string           `json:"id"`
	Name        string           `json:"name" binding:"required"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Category    model.Category   `json:"category" binding:"required"`
	Rarity      model.Rarity     `json:"rarity" binding:"required"`
	Description string           `json:"description"`
	ImageURL    string           `json:"imageUrl"`
	InStock     *int             `json:"inStock"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price"`
	Category    *model.Category  `json:"category"`
	Rarity      *model.Rarity    `json:"rarity"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"imageUrl"`
	InStock     *int             `json:"inStock"`
}

type SeedProductsRequest struct {
	Products []CreateProductRequest `json:"products" binding:"dive"`
}

type SeedProductsResponse struct {
	Inserted int `json:"inserted"`
	Total    int `json:"total"`
}

type ListProductsRequest struct {
	Category string `form:"category"`
}

type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    model.Category  `json:"category"`
	Rarity      model.Rarity    `json:"rarity"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	InStock     int             `json:"inStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	// Quantity defaults to one when omitted.
	Quantity int `json:"quantity" binding:"omitempty,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   ProductResponse `json:"product"`
	CreatedAt time.Time       `json:"createdAt"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

// --- Order ---

// LineItems accepts either a JSON array of items or a string holding one,
// which is what the storefront checkout form submits.
type LineItems []model.OrderItem

func (l *LineItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		data = []byte(encoded)
	}
	var items []model.OrderItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	*l = items
	return nil
}

type CreateOrderRequest struct {
	Email            string              `json:"email" binding:"required,email"`
	RobloxUsername   string              `json:"robloxUsername" binding:"required,min=3"`
	PaymentMethod    model.PaymentMethod `json:"paymentMethod" binding:"required,oneof=vodafone_cash instapay"`
	PaymentReference string              `json:"paymentReference"`
	TotalAmount      *decimal.Decimal    `json:"totalAmount" binding:"required"`
	Items            LineItems           `json:"items" binding:"required,min=1"`
	// Status is accepted for compatibility and ignored; orders always start pending.
	Status string `json:"status"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type CleanupRequest struct {
	Statuses []model.OrderStatus `json:"statuses"`
}

type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	UserID           *uuid.UUID          `json:"userId"`
	Email            string              `json:"email"`
	RobloxUsername   string              `json:"robloxUsername"`
	PaymentMethod    model.PaymentMethod `json:"paymentMethod"`
	PaymentReference string              `json:"paymentReference,omitempty"`
	TotalAmount      decimal.Decimal     `json:"totalAmount"`
	Items            []model.OrderItem   `json:"items"`
	Status           model.OrderStatus   `json:"status"`
	ReceiptURL       *string             `json:"receiptUrl"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

type StatusChangeResponse struct {
	ID         uuid.UUID         `json:"id"`
	FromStatus model.OrderStatus `json:"fromStatus"`
	ToStatus   model.OrderStatus `json:"toStatus"`
	Actor      string            `json:"actor"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// --- Chat ---

type PostMessageRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type ChatMessageResponse struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"orderId"`
	SenderID   string    `json:"senderId"`
	SenderRole string    `json:"senderRole"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ChatThreadResponse struct {
	OrderID  uuid.UUID             `json:"orderId"`
	Messages []ChatMessageResponse `json:"messages"`
	Order    *OrderResponse        `json:"order"`
}

// --- Contact ---

type ContactRequest struct {
	Name           string `json:"name" binding:"required,min=2"`
	Email          string `json:"email" binding:"required,email"`
	RobloxUsername string `json:"robloxUsername"`
	Message        string `json:"message" binding:"required,min=10"`
}
