package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyz_ReportsFailingDependency(t *testing.T) {
	h := NewHealthHandlerWithChecks(map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	router := gin.New()
	router.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"error","postgres":"connected","redis":"unavailable"}`, w.Body.String())
}

func TestNewHealthHandler_SkipsMissingDependencies(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	assert.Empty(t, h.checks)
}
