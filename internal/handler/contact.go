package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/service"
)

type ContactHandler struct {
	contactService *service.ContactService
}

func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

func (h *ContactHandler) Submit(c *gin.Context) {
	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	h.contactService.Submit(c.Request.Context(), req)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message received"})
}
