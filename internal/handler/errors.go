package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/logger"
	"github.com/flicky/mm2-store/internal/service"
	"github.com/flicky/mm2-store/internal/upload"
)

// respondError maps service errors onto HTTP statuses. Anything unknown is
// logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrTotalMismatch),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidMessage),
		errors.Is(err, service.ErrInvalidCartItem),
		errors.Is(err, upload.ErrUnsupportedType),
		errors.Is(err, upload.ErrEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOrderAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrProductExists),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &maxBytes), errors.Is(err, multipart.ErrMessageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
	default:
		logger.FromGin(c).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func orderIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// ids are uuids, so anything else cannot name an order
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return uuid.Nil, false
	}
	return id, true
}
