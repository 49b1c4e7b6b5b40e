package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"territory_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jwtConfig string

func (c jwtConfig) GetJWTAccessSecret() string { return string(c) }

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthRouter(role string) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(jwtConfig("s3cret")), RequireRole(role), func(c *gin.Context) {
		id := MustGetIdentity(c)
		OK(c, gin.H{"id": id.UserID().String(), "admin": id.HasRole(RoleAdmin)})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	agentID := uuid.New()
	valid := jwt.MapClaims{
		"sub":   agentID.String(),
		"type":  "access",
		"roles": []string{RoleAgent},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}

	tests := []struct {
		name   string
		header string
		role   string
		want   int
	}{
		{name: "missing header", header: "", role: RoleAgent, want: http.StatusUnauthorized},
		{name: "bad signature", header: "Bearer " + signToken(t, "other", valid), role: RoleAgent, want: http.StatusUnauthorized},
		{name: "refresh token type", header: "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"sub": agentID.String(), "type": "refresh"}), role: RoleAgent, want: http.StatusUnauthorized},
		{name: "wrong role", header: "Bearer " + signToken(t, "s3cret", valid), role: RoleAdmin, want: http.StatusForbidden},
		{name: "agent ok", header: "Bearer " + signToken(t, "s3cret", valid), role: RoleAgent, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			newAuthRouter(tt.role).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
		wantMsg  string
	}{
		{name: "wrapped invalid state", err: fmt.Errorf("x: %w", apperr.InvalidState("session already completed")), wantCode: http.StatusConflict, wantKind: "invalid_state", wantMsg: "session already completed"},
		{name: "ownership", err: apperr.OwnershipMismatch("territory mismatch"), wantCode: http.StatusForbidden, wantKind: "ownership_mismatch", wantMsg: "territory mismatch"},
		{name: "untyped", err: errors.New("pq: connection refused"), wantCode: http.StatusInternalServerError, wantMsg: "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			require.True(t, HandleError(c, tt.err))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
