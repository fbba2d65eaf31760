package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/middleware"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

type OrderHandler struct {
	orderService   *service.OrderService
	maxUploadBytes int64
}

func NewOrderHandler(orderService *service.OrderService, maxUploadBytes int64) *OrderHandler {
	return &OrderHandler{orderService: orderService, maxUploadBytes: maxUploadBytes}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var userID *uuid.UUID
	if id := middleware.GetUserID(c); id != uuid.Nil {
		userID = &id
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req, userID, c.GetHeader(idempotencyHeader))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), orderID, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	orders, err := h.orderService.ListByUserID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponses(orders))
}

func (h *OrderHandler) UploadReceipt(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	limitBody(c, h.maxUploadBytes)
	fh, err := c.FormFile("receipt")
	if err != nil {
		respondError(c, formFileError(err))
		return
	}

	order, err := h.orderService.AttachReceipt(c.Request.Context(), orderID, fh, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// --- admin ---

func (h *OrderHandler) ListAll(c *gin.Context) {
	orders, err := h.orderService.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponses(orders))
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	order, err := h.orderService.ChangeStatus(c.Request.Context(), orderID, req.Status, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) History(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	changes, err := h.orderService.History(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.StatusChangeResponse, 0, len(changes))
	for _, ch := range changes {
		resp = append(resp, dto.StatusChangeResponse{
			ID: ch.ID, FromStatus: ch.FromStatus, ToStatus: ch.ToStatus,
			Actor: ch.Actor, CreatedAt: ch.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	n, err := h.orderService.Cleanup(c.Request.Context(), req.Statuses)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CleanupResponse{Deleted: n})
}

func toOrderResponses(orders []model.Order) []dto.OrderResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return items
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := order.Items
	if items == nil {
		items = []model.OrderItem{}
	}
	return dto.OrderResponse{
		ID:               order.ID,
		UserID:           order.UserID,
		Email:            order.Email,
		RobloxUsername:   order.RobloxUsername,
		PaymentMethod:    order.PaymentMethod,
		PaymentReference: order.PaymentReference,
		TotalAmount:      order.TotalAmount,
		Items:            items,
		Status:           order.Status,
		ReceiptURL:       order.ReceiptURL,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}
