package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/metrics"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/repository"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAccessDenied  = errors.New("access denied")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrTotalMismatch      = errors.New("total mismatch")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

const idempotencyTTL = 24 * time.Hour

const maxLineQuantity = 100

// maxOrderTotal is the largest amount the orders.total_amount column holds.
var maxOrderTotal = decimal.RequireFromString("9999999999.99")

// FileStore keeps uploaded receipt images.
type FileStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(ref string) error
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	idem        repository.IdempotencyStore
	files       FileStore
	events      EventPublisher
	metrics     *metrics.Metrics
	log         *zap.Logger
}

type OrderServiceDeps struct {
	Orders      repository.OrderRepository
	Products    repository.ProductRepository
	Idempotency repository.IdempotencyStore
	Files       FileStore
	Events      EventPublisher
	Metrics     *metrics.Metrics
	Log         *zap.Logger
}

func NewOrderService(deps OrderServiceDeps) *OrderService {
	return &OrderService{
		orderRepo:   deps.Orders,
		productRepo: deps.Products,
		idem:        deps.Idempotency,
		files:       deps.Files,
		events:      deps.Events,
		metrics:     deps.Metrics,
		log:         orNop(deps.Log),
	}
}

// CreateOrder places a checkout. Line prices are checked against the catalog
// and the total is recomputed server-side. With a non-empty idempotencyKey a
// repeated submission returns the order created by the first one.
func (s *OrderService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest, userID *uuid.UUID, idempotencyKey string) (*model.Order, error) {
	key := ""
	if idempotencyKey != "" && s.idem != nil {
		key = checkoutKey(userID, idempotencyKey)
		existing, reserved, err := s.idem.Reserve(ctx, key, idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("reserve checkout: %w", err)
		}
		if !reserved {
			return s.replayed(ctx, existing, userID)
		}
	}

	order, err := s.createOrder(ctx, req, userID)
	if key != "" {
		if err != nil {
			if rerr := s.idem.Release(ctx, key); rerr != nil {
				s.log.Warn("release idempotency key", zap.Error(rerr))
			}
		} else if cerr := s.idem.Complete(ctx, key, order.ID, idempotencyTTL); cerr != nil {
			s.log.Warn("complete idempotency key", zap.Error(cerr))
		}
	}
	return order, err
}

// checkoutKey scopes a client idempotency key to the account placing the
// order, so two callers never share a key space.
func checkoutKey(userID *uuid.UUID, key string) string {
	if userID == nil || *userID == uuid.Nil {
		return "guest:" + key
	}
	return userID.String() + ":" + key
}

func (s *OrderService) replayed(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*model.Order, error) {
	if orderID == uuid.Nil {
		return nil, ErrCheckoutInProgress
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !sameOwner(order.UserID, userID) {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func sameOwner(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *OrderService) createOrder(ctx context.Context, req dto.CreateOrderRequest, userID *uuid.UUID) (*model.Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidOrder, req.PaymentMethod)
	}
	if len(strings.TrimSpace(req.RobloxUsername)) < 3 {
		return nil, fmt.Errorf("%w: roblox username must be at least 3 characters", ErrInvalidOrder)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	if req.TotalAmount == nil {
		return nil, fmt.Errorf("%w: totalAmount is required", ErrInvalidOrder)
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" {
			return nil, fmt.Errorf("%w: item without productId", ErrInvalidOrder)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for %s must be at least 1", ErrInvalidOrder, item.ProductID)
		}
		if item.Quantity > maxLineQuantity {
			return nil, fmt.Errorf("%w: quantity for %s must be at most %d", ErrInvalidOrder, item.ProductID, maxLineQuantity)
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	var total decimal.Decimal
	items := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		product := products[item.ProductID]
		if product == nil {
			return nil, fmt.Errorf("%w: unknown product %s", ErrInvalidOrder, item.ProductID)
		}
		if product.InStock == 0 {
			return nil, fmt.Errorf("%w: %s is out of stock", ErrInvalidOrder, product.Name)
		}
		if !item.Price.Equal(product.Price) {
			return nil, fmt.Errorf("%w: price for %s is %s", ErrInvalidOrder, product.Name, product.Price)
		}
		line := model.OrderItem{
			ProductID: product.ID, Name: product.Name, Price: product.Price, Quantity: item.Quantity,
		}
		total = total.Add(line.Subtotal())
		items = append(items, line)
	}
	if total.GreaterThan(maxOrderTotal) {
		return nil, fmt.Errorf("%w: total %s is too large", ErrInvalidOrder, total)
	}
	if !total.Equal(*req.TotalAmount) {
		return nil, fmt.Errorf("%w: expected %s", ErrTotalMismatch, total)
	}

	order := &model.Order{
		UserID:           userID,
		Email:            normalizeEmail(req.Email),
		RobloxUsername:   strings.TrimSpace(req.RobloxUsername),
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		TotalAmount:      total,
		Items:            items,
		Status:           model.OrderStatusPending,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.OrderCreated(string(order.PaymentMethod), userID == nil)
	ev := model.NewEvent(model.EventOrderCreated, &order.ID)
	ev.Status = order.Status
	publish(ctx, s.events, s.log, ev, map[string]any{
		"email":          order.Email,
		"robloxUsername": order.RobloxUsername,
		"totalAmount":    order.TotalAmount,
		"paymentMethod":  order.PaymentMethod,
		"items":          len(order.Items),
	})
	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !viewer.canAccess(order) {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListAll(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ChangeStatus moves an order along the lifecycle and records who did it.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uuid.UUID, to model.OrderStatus, viewer Viewer) (*model.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.transition(ctx, order, to, viewer, nil)
}

// AttachReceipt stores a payment screenshot and moves the order to
// payment_uploaded. The file is not kept when the order cannot move.
func (s *OrderService) AttachReceipt(ctx context.Context, orderID uuid.UUID, fh *multipart.FileHeader, viewer Viewer) (*model.Order, error) {
	order, err := s.GetByID(ctx, orderID, viewer)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(order.Status, model.OrderStatusPaymentUploaded) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, model.OrderStatusPaymentUploaded)
	}

	ref, err := s.files.Save(fh)
	if err != nil {
		return nil, err
	}

	previous := order.ReceiptURL
	updated, err := s.transition(ctx, order, model.OrderStatusPaymentUploaded, viewer, &ref)
	if err != nil {
		s.removeFile(ref)
		return nil, err
	}
	if previous != nil && *previous != ref {
		s.removeFile(*previous)
	}

	s.metrics.ReceiptUploaded()
	ev := model.NewEvent(model.EventOrderReceiptUploaded, &updated.ID)
	ev.Status = updated.Status
	publish(ctx, s.events, s.log, ev, map[string]string{"receiptUrl": ref})
	return updated, nil
}

func (s *OrderService) transition(ctx context.Context, order *model.Order, to model.OrderStatus, viewer Viewer, receiptURL *string) (*model.Order, error) {
	from := order.Status
	if !model.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	change := &model.OrderStatusChange{
		OrderID: order.ID, FromStatus: from, ToStatus: to, Actor: viewer.actor(),
	}
	updated, err := s.orderRepo.ChangeStatus(ctx, change, receiptURL)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: order is no longer %s", ErrInvalidTransition, from)
		}
		return nil, fmt.Errorf("change order status: %w", err)
	}

	s.metrics.StatusChanged(string(from), string(to))
	ev := model.NewEvent(model.EventOrderStatusChanged, &updated.ID)
	ev.Status = to
	publish(ctx, s.events, s.log, ev, map[string]string{
		"from":  string(from),
		"to":    string(to),
		"actor": change.Actor,
		"email": updated.Email,
	})
	return updated, nil
}

func (s *OrderService) History(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusChange, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	changes, err := s.orderRepo.History(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order history: %w", err)
	}
	return changes, nil
}

// Delete removes an order together with its chat thread and history.
func (s *OrderService) Delete(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if err := s.orderRepo.Delete(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}
	if order.ReceiptURL != nil {
		s.removeFile(*order.ReceiptURL)
	}
	return nil
}

// Cleanup deletes every order in one of the given terminal statuses,
// completed and cancelled by default.
func (s *OrderService) Cleanup(ctx context.Context, statuses []model.OrderStatus) (int64, error) {
	if len(statuses) == 0 {
		statuses = []model.OrderStatus{model.OrderStatusCompleted, model.OrderStatusCancelled}
	}
	for _, st := range statuses {
		if !st.Valid() || !st.Terminal() {
			return 0, fmt.Errorf("%w: only completed and cancelled orders can be cleaned up, got %q", ErrInvalidStatus, st)
		}
	}

	n, receipts, err := s.orderRepo.DeleteByStatuses(ctx, statuses)
	if err != nil {
		return 0, fmt.Errorf("cleanup orders: %w", err)
	}
	for _, ref := range receipts {
		s.removeFile(ref)
	}
	s.log.Info("orders cleaned up", zap.Int64("deleted", n), zap.Any("statuses", statuses))
	return n, nil
}

func (s *OrderService) removeFile(ref string) {
	if s.files == nil {
		return
	}
	if err := s.files.Remove(ref); err != nil {
		s.log.Warn("remove receipt file", zap.String("ref", ref), zap.Error(err))
	}
}
