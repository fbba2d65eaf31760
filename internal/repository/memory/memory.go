// Package memory provides map-backed repositories for tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/repository"
)

// Store holds every table behind one lock so deletes can cascade like the
// foreign keys do in PostgreSQL.
type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*model.User
	products map[string]*model.Product
	orders   map[uuid.UUID]*model.Order
	history  []model.OrderStatusChange
	messages []model.ChatMessage
	cart     []model.CartItem
	revoked  map[string]time.Time
	idem     map[string]uuid.UUID
	now      func() time.Time
	last     time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*model.User),
		products: make(map[string]*model.Product),
		orders:   make(map[uuid.UUID]*model.Order),
		revoked:  make(map[string]time.Time),
		idem:     make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }
func (s *Store) Products() repository.ProductRepository { return (*productRepo)(s) }
func (s *Store) Orders() repository.OrderRepository { return (*orderRepo)(s) }
func (s *Store) Chats() repository.ChatRepository { return (*chatRepo)(s) }
func (s *Store) Carts() repository.CartRepository { return (*cartRepo)(s) }
func (s *Store) Sessions() repository.SessionStore { return (*sessionStore)(s) }
func (s *Store) Idempotency() repository.IdempotencyStore { return (*idemStore)(s) }

// tick returns a strictly increasing timestamp so ordering by time is stable.
func (s *Store) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

// --- users ---

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *model.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = s.tick()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *userRepo) Update(_ context.Context, user *model.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.RobloxUsername = user.RobloxUsername
	existing.Role = user.Role
	existing.UpdatedAt = s.tick()
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

// --- products ---

type productRepo Store

func (r *productRepo) Create(_ context.Context, p *model.Product) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return repository.ErrDuplicate
	}
	p.CreatedAt = s.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (r *productRepo) CreateMany(ctx context.Context, products []model.Product) (int, error) {
	inserted := 0
	for i := range products {
		err := r.Create(ctx, &products[i])
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*model.Product, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *productRepo) GetByIDs(_ context.Context, ids []string) (map[string]*model.Product, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	found := make(map[string]*model.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			found[id] = &cp
		}
	}
	return found, nil
}

func (r *productRepo) List(_ context.Context, category model.Category) ([]model.Product, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Product
	for _, p := range s.products {
		if category == "" || p.Category == category {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *productRepo) Count(_ context.Context) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products), nil
}

func (r *productRepo) Update(_ context.Context, p *model.Product) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.tick()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (r *productRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.products, id)
	kept := s.cart[:0]
	for _, item := range s.cart {
		if item.ProductID != id {
			kept = append(kept, item)
		}
	}
	s.cart = kept
	return nil
}

// --- orders ---

type orderRepo Store

func copyOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	if o.ReceiptURL != nil {
		url := *o.ReceiptURL
		cp.ReceiptURL = &url
	}
	if o.UserID != nil {
		id := *o.UserID
		cp.UserID = &id
	}
	return &cp
}

func (r *orderRepo) Create(_ context.Context, order *model.Order) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = uuid.New()
	order.CreatedAt = s.tick()
	order.UpdatedAt = order.CreatedAt
	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return copyOrder(o), nil
	}
	return nil, nil
}

func (r *orderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(func(o *model.Order) bool { return o.UserID != nil && *o.UserID == userID }), nil
}

func (r *orderRepo) ListAll(_ context.Context) ([]model.Order, error) {
	return r.list(func(*model.Order) bool { return true }), nil
}

func (r *orderRepo) list(keep func(*model.Order) bool) []model.Order {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *orderRepo) ChangeStatus(_ context.Context, change *model.OrderStatusChange, receiptURL *string) (*model.Order, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[change.OrderID]
	if !ok || o.Status != change.FromStatus {
		return nil, repository.ErrConflict
	}
	o.Status = change.ToStatus
	if receiptURL != nil {
		url := *receiptURL
		o.ReceiptURL = &url
	}
	o.UpdatedAt = s.tick()

	change.ID = uuid.New()
	change.CreatedAt = o.UpdatedAt
	s.history = append(s.history, *change)
	return copyOrder(o), nil
}

func (r *orderRepo) History(_ context.Context, orderID uuid.UUID) ([]model.OrderStatusChange, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OrderStatusChange
	for _, c := range s.history {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *orderRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return repository.ErrNotFound
	}
	s.deleteOrderLocked(id)
	return nil
}

func (r *orderRepo) DeleteByStatuses(_ context.Context, statuses []model.OrderStatus) (int64, []string, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		n        int64
		receipts []string
	)
	for id, o := range s.orders {
		for _, st := range statuses {
			if o.Status == st {
				if o.ReceiptURL != nil {
					receipts = append(receipts, *o.ReceiptURL)
				}
				s.deleteOrderLocked(id)
				n++
				break
			}
		}
	}
	return n, receipts, nil
}

func (s *Store) deleteOrderLocked(id uuid.UUID) {
	delete(s.orders, id)

	history := s.history[:0]
	for _, c := range s.history {
		if c.OrderID != id {
			history = append(history, c)
		}
	}
	s.history = history

	msgs := s.messages[:0]
	for _, m := range s.messages {
		if m.OrderID != id {
			msgs = append(msgs, m)
		}
	}
	s.messages = msgs
}

// --- chat ---

type chatRepo Store

func (r *chatRepo) Create(_ context.Context, msg *model.ChatMessage) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uuid.New()
	msg.CreatedAt = s.tick()
	s.messages = append(s.messages, *msg)
	return nil
}

func (r *chatRepo) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]model.ChatMessage, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatMessage
	for _, m := range s.messages {
		if m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *chatRepo) ListAll(_ context.Context) ([]model.ChatMessage, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.ChatMessage(nil), s.messages...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderID.String() < out[j].OrderID.String()
	})
	return out, nil
}

// --- cart ---

type cartRepo Store

func (r *cartRepo) ListItems(_ context.Context, cartID string) ([]model.CartItem, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CartItem
	for _, item := range s.cart {
		if item.CartID == cartID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *cartRepo) AddItem(_ context.Context, item *model.CartItem) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	for i := range s.cart {
		existing := &s.cart[i]
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			existing.UpdatedAt = now
			*item = *existing
			return nil
		}
	}
	item.ID = uuid.New()
	item.CreatedAt, item.UpdatedAt = now, now
	s.cart = append(s.cart, *item)
	return nil
}

func (r *cartRepo) UpdateQuantity(_ context.Context, cartID string, itemID uuid.UUID, quantity int) (*model.CartItem, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart {
		item := &s.cart[i]
		if item.ID == itemID && item.CartID == cartID {
			item.Quantity = quantity
			item.UpdatedAt = s.tick()
			cp := *item
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *cartRepo) DeleteItem(_ context.Context, cartID string, itemID uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.cart {
		if item.ID == itemID && item.CartID == cartID {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *cartRepo) Clear(_ context.Context, cartID string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cart[:0]
	for _, item := range s.cart {
		if item.CartID != cartID {
			kept = append(kept, item)
		}
	}
	s.cart = kept
	return nil
}

// --- sessions ---

type sessionStore Store

func (r *sessionStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = s.now().Add(ttl)
	return nil
}

func (r *sessionStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	return ok && s.now().Before(until), nil
}

// --- idempotency ---

type idemStore Store

func (r *idemStore) Reserve(_ context.Context, key string, _ time.Duration) (uuid.UUID, bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.idem[key]; ok {
		return id, false, nil
	}
	s.idem[key] = uuid.Nil
	return uuid.Nil, true, nil
}

func (r *idemStore) Complete(_ context.Context, key string, orderID uuid.UUID, _ time.Duration) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idem[key] = orderID
	return nil
}

func (r *idemStore) Release(_ context.Context, key string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.idem, key)
	return nil
}
