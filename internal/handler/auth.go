package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/logger"
	"github.com/flicky/mm2-store/internal/middleware"
	"github.com/flicky/mm2-store/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	cookie      middleware.SessionCookie
}

func NewAuthHandler(authService *service.AuthService, cookie middleware.SessionCookie) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.cookie.Set(c, resp.Token, resp.ExpiresAt)
	c.JSON(http.StatusCreated, resp.User)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.cookie.Set(c, resp.Token, resp.ExpiresAt)
	c.JSON(http.StatusOK, resp.User)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetSession(c)); err != nil {
		// the cookie is cleared regardless
		logger.FromGin(c).Warn("logout", zap.Error(err))
	}
	h.cookie.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	resp, err := h.authService.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyAdmin exchanges the shared admin password for an admin session.
func (h *AuthHandler) VerifyAdmin(c *gin.Context) {
	var req dto.AdminVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, expires, err := h.authService.VerifyAdmin(c.Request.Context(), middleware.GetSession(c), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.cookie.Set(c, token, expires)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
