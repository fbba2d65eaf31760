package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flicky/mm2-store/internal/logger"
	"github.com/flicky/mm2-store/internal/service"
)

const sessionKey = "session"

// SessionCookie describes the cookie that carries the session token.
type SessionCookie struct {
	Name   string
	Secure bool
}

func (sc SessionCookie) Set(c *gin.Context, token string, expires time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (sc SessionCookie) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session decodes the session cookie (or a Bearer token) when present.
// Requests without a valid session continue anonymously.
func Session(auth *service.AuthService, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(cookie.Name)
		if token == "" {
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token = header[7:]
			}
		}
		if token == "" {
			c.Next()
			return
		}

		session, err := auth.ParseSession(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidSession) {
				logger.FromGin(c).Warn("session check failed", zap.Error(err))
			}
			c.Next()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func GetSession(c *gin.Context) *service.Session {
	v, _ := c.Get(sessionKey)
	s, _ := v.(*service.Session)
	return s
}

func GetUserID(c *gin.Context) uuid.UUID {
	if s := GetSession(c); s != nil {
		return s.UserID
	}
	return uuid.Nil
}

func IsAdmin(c *gin.Context) bool {
	s := GetSession(c)
	return s != nil && s.Admin
}

func Viewer(c *gin.Context) service.Viewer {
	return GetSession(c).Viewer()
}
