package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apphttp "acquisition_backend/internal/http"
	"acquisition_backend/platform/logger"
)

type testConfig struct {
	allowAll bool
}

func (c testConfig) GetHTTPAddr() string        { return ":0" }
func (c testConfig) GetCORSAllowAll() bool      { return c.allowAll }
func (c testConfig) GetCORSOrigins() []string   { return []string{"https://app.example.pt"} }
func (c testConfig) GetCORSAllowCreds() bool    { return true }
func (c testConfig) GetJWTAccessSecret() string { return "secret" }

type failingHealth struct{}

func (failingHealth) Ping(context.Context) error { return errors.New("db down") }

type probeModule struct{}

func (probeModule) Name() string { return "probe" }

func (probeModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func TestRouterHealthAndAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  failingHealth{},
		Modules: []apphttp.Module{probeModule{}},
	})

	tests := []struct {
		path string
		want int
	}{
		{path: "/api/health", want: http.StatusOK},
		{path: "/api/ready", want: http.StatusServiceUnavailable},
		{path: "/api/v1/probe", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.path, tt.want, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s: expected a request id header", tt.path)
		}
	}
}
