package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID             uuid.UUID
	Email          string
	Password       string
	FirstName      string
	LastName       string
	RobloxUsername string
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

type Category string

const (
	CategoryBudget   Category = "Budget"
	CategoryStandard Category = "Standard"
	CategoryGodly    Category = "Godly"
	CategoryAncient  Category = "Ancient"
	CategoryBundles  Category = "Bundles"
	CategoryRoyal    Category = "Royal"
)

var Categories = []Category{
	CategoryBudget, CategoryStandard, CategoryGodly, CategoryAncient, CategoryBundles, CategoryRoyal,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityUncommon  Rarity = "Uncommon"
	RarityRare      Rarity = "Rare"
	RarityLegendary Rarity = "Legendary"
	RarityGodly     Rarity = "Godly"
	RarityAncient   Rarity = "Ancient"
	RarityChroma    Rarity = "Chroma"
)

var Rarities = []Rarity{
	RarityCommon, RarityUncommon, RarityRare, RarityLegendary, RarityGodly, RarityAncient, RarityChroma,
}

func (r Rarity) Valid() bool {
	for _, v := range Rarities {
		if v == r {
			return true
		}
	}
	return false
}

type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Category    Category
	Rarity      Rarity
	Description string
	ImageURL    string
	InStock     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var slugReplacer = regexp.MustCompile(`[^a-z0-9]`)
var slugDashes = regexp.MustCompile(`-+`)

// ProductSlug derives a product id from its display name.
func ProductSlug(name string) string {
	s := slugReplacer.ReplaceAllString(strings.ToLower(name), "-")
	return slugDashes.ReplaceAllString(s, "-")
}

// CartItem is a product line in a visitor's cart. CartID is the owning
// user for signed-in visitors and the guest cart cookie otherwise.
type CartItem struct {
	ID        uuid.UUID
	CartID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PaymentMethod string

const (
	PaymentVodafoneCash PaymentMethod = "vodafone_cash"
	PaymentInstapay     PaymentMethod = "instapay"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentVodafoneCash || p == PaymentInstapay
}

type Order struct {
	ID               uuid.UUID
	UserID           *uuid.UUID
	Email            string
	RobloxUsername   string
	PaymentMethod    PaymentMethod
	PaymentReference string
	TotalAmount      decimal.Decimal
	Items            []OrderItem
	Status           OrderStatus
	ReceiptURL       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrderItem is a price snapshot taken at checkout, not a live product reference.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OwnedBy reports whether the order belongs to userID. Guest orders belong to nobody.
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && userID != uuid.Nil && *o.UserID == userID
}

type OrderStatusChange struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Actor      string
	CreatedAt  time.Time
}

const (
	SenderRoleCustomer = "customer"
	SenderRoleAdmin    = "admin"
)

type ChatMessage struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	SenderID   string
	SenderRole string
	Message    string
	CreatedAt  time.Time
}

type ContactMessage struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	RobloxUsername string `json:"robloxUsername,omitempty"`
	Message        string `json:"message"`
}
