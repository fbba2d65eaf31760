package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/middleware"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) List(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	msgs, err := h.chatService.List(c.Request.Context(), orderID, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMessageResponses(msgs))
}

func (h *ChatHandler) Post(c *gin.Context) {
	h.post(c, h.chatService.Post)
}

func (h *ChatHandler) AdminPost(c *gin.Context) {
	h.post(c, h.chatService.PostAsAdmin)
}

type postFunc func(ctx context.Context, orderID uuid.UUID, viewer service.Viewer, text string) (*model.ChatMessage, error)

func (h *ChatHandler) post(c *gin.Context, send postFunc) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	msg, err := send(c.Request.Context(), orderID, middleware.Viewer(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// Threads lists every order conversation for the admin inbox.
func (h *ChatHandler) Threads(c *gin.Context) {
	threads, err := h.chatService.Threads(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.ChatThreadResponse, 0, len(threads))
	for _, t := range threads {
		order := toOrderResponse(t.Order)
		resp = append(resp, dto.ChatThreadResponse{
			OrderID:  t.Order.ID,
			Messages: toMessageResponses(t.Messages),
			Order:    &order,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func toMessageResponses(msgs []model.ChatMessage) []dto.ChatMessageResponse {
	resp := make([]dto.ChatMessageResponse, 0, len(msgs))
	for i := range msgs {
		resp = append(resp, toMessageResponse(&msgs[i]))
	}
	return resp
}

func toMessageResponse(m *model.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:         m.ID,
		OrderID:    m.OrderID,
		SenderID:   m.SenderID,
		SenderRole: m.SenderRole,
		Message:    m.Message,
		CreatedAt:  m.CreatedAt,
	}
}
