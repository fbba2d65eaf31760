package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/middleware"
	"github.com/flicky/mm2-store/internal/service"
)

type CartHandler struct {
	cartService *service.CartService
	cookie      middleware.SessionCookie
	ttl         time.Duration
}

// NewCartHandler serves the visitor's cart. Guests are tracked with cookie,
// which lives for ttl after the cart was last written.
func NewCartHandler(cartService *service.CartService, cookie middleware.SessionCookie, ttl time.Duration) *CartHandler {
	return &CartHandler{cartService: cartService, cookie: cookie, ttl: ttl}
}

// cartID resolves the cart for the request. A guest without a cart cookie
// gets one only when create is set.
func (h *CartHandler) cartID(c *gin.Context, create bool) string {
	if id := middleware.GetUserID(c); id != uuid.Nil {
		return service.UserCartID(id)
	}
	token, _ := c.Cookie(h.cookie.Name)
	if _, err := uuid.Parse(token); err != nil {
		if !create {
			return ""
		}
		token = uuid.NewString()
	}
	if create {
		h.cookie.Set(c, token, time.Now().Add(h.ttl))
	}
	return service.GuestCartID(token)
}

func (h *CartHandler) GetCart(c *gin.Context) {
	resp, err := h.cartService.GetCart(c.Request.Context(), h.cartID(c, false))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.cartService.AddItem(c.Request.Context(), h.cartID(c, true), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, ok := cartItemParam(c)
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.cartService.UpdateItem(c.Request.Context(), h.cartID(c, false), itemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) DeleteItem(c *gin.Context) {
	itemID, ok := cartItemParam(c)
	if !ok {
		return
	}
	if err := h.cartService.DeleteItem(c.Request.Context(), h.cartID(c, false), itemID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), h.cartID(c, false)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func cartItemParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrCartItemNotFound.Error()})
		return uuid.Nil, false
	}
	return id, true
}
