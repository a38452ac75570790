package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testUserID = 7

// serve runs one request through a router that registers handler at route
// behind a stub auth step. Only validation paths are exercised, so the
// Handler carries no pool or store.
func serve(t *testing.T, method, route, target, body string, handler func(*Handler) gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	h := &Handler{log: zap.NewNop()}

	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		c.Set("user_id", testUserID)
		c.Set("role", "user")
		c.Next()
	}, handler(h))

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// errorMessage decodes an apiError body.
func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body["error"]
}

func TestHealth(t *testing.T) {
	h := &Handler{log: zap.NewNop()}
	r := gin.New()
	h.registerRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	h := &Handler{log: zap.NewNop()}
	r := gin.New()
	h.registerRoutes(r)

	for _, header := range []string{"", "Token abc", "bearer abc", "Bearer ", "Bearer    "} {
		req := httptest.NewRequest(http.MethodGet, "/api/progress?start=2026-10-01&end=2026-10-02", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Equal(t, "missing or invalid authorization header", errorMessage(t, w))
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer 5f0c-41aa")
	assert.True(t, ok)
	assert.Equal(t, "5f0c-41aa", token)

	token, ok = bearerToken("Bearer  padded ")
	assert.True(t, ok)
	assert.Equal(t, "padded", token)

	for _, bad := range []string{"", "Bearer", "Bearer ", "bearer abc", "Basic YWI6Y2Q="} {
		_, ok := bearerToken(bad)
		assert.False(t, ok, bad)
	}
}

func TestLogin_Validation(t *testing.T) {
	cases := map[string]string{
		"not json":         `{`,
		"missing password": `{"email":"an@example.com"}`,
		"missing email":    `{"password":"secret"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := serve(t, http.MethodPost, "/api/login", "/api/login", body,
				func(h *Handler) gin.HandlerFunc { return h.login })
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok := parseDate("2026-10-20")
	require.True(t, ok)
	assert.Equal(t, day(2026, 10, 20), d)

	for _, bad := range []string{"", "2026-10-32", "20/10/2026", "2026-10-20T00:00:00Z"} {
		_, ok := parseDate(bad)
		assert.False(t, ok, bad)
	}
}
