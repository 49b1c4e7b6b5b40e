package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "territory_backend/internal/http"
	"territory_backend/platform/httpkit"
	"territory_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return "s3cret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(groups *apphttp.RouteGroups) {
	groups.Public.GET("/ping", func(c *gin.Context) { httpkit.OK(c, gin.H{"pong": true}) })
	groups.Agent.GET("/me", func(c *gin.Context) { httpkit.OK(c, gin.H{}) })
	groups.Admin.GET("/stats", func(c *gin.Context) { httpkit.OK(c, gin.H{}) })
}

func newEngine(health apphttp.Pinger) *gin.Engine {
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.NewWithWriter("production", io.Discard),
		Health:  health,
		Modules: []apphttp.Module{echoModule{}},
	})
}

func serve(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(newEngine(pinger{}), "/api/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(newEngine(pinger{err: errors.New("down")}), "/api/health").Code)
}

func TestModuleGroups(t *testing.T) {
	engine := newEngine(pinger{})

	w := serve(engine, "/api/v1/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusUnauthorized, serve(engine, "/api/v1/me").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, "/api/v1/admin/stats").Code)
}
