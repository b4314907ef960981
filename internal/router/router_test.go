package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"newsdesk/internal/auth"
	"newsdesk/internal/handler"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	Register(
		e,
		auth.NewJWTService("test-secret"),
		handler.NewArticleHandler(nil),
		handler.NewTagHandler(nil),
		handler.NewUserHandler(nil),
		handler.NewAuthHandler(nil),
	)
	return e
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthEndpoint_TrailingSlash(t *testing.T) {
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodGet, "/api/health/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
