package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeVerifier(ctx context.Context, token string) (string, error) {
	if token == "good" {
		return "user_1", nil
	}
	return "", errors.New("bad token")
}

func echoClerkID(w http.ResponseWriter, r *http.Request) {
	id, _ := GetClerkID(r.Context())
	w.Write([]byte(id))
}

func TestAuth(t *testing.T) {
	h := Auth(fakeVerifier)(http.HandlerFunc(echoClerkID))

	tests := []struct {
		name   string
		header string
		url    string
		ws     bool
		code   int
		body   string
	}{
		{name: "valid bearer", header: "Bearer good", url: "/", code: http.StatusOK, body: "user_1"},
		{name: "missing header", url: "/", code: http.StatusUnauthorized},
		{name: "no bearer prefix", header: "good", url: "/", code: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer nope", url: "/", code: http.StatusUnauthorized},
		{name: "websocket query token", url: "/ws?token=good", ws: true, code: http.StatusOK, body: "user_1"},
		{name: "query token ignored without upgrade", url: "/ws?token=good", code: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.ws {
				req.Header.Set("Upgrade", "websocket")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestGetClerkIDRejectsEmpty(t *testing.T) {
	_, ok := GetClerkID(context.Background())
	assert.False(t, ok)
	_, ok = GetClerkID(WithClerkID(context.Background(), ""))
	assert.False(t, ok)
	id, ok := GetClerkID(WithClerkID(context.Background(), "user_9"))
	assert.True(t, ok)
	assert.Equal(t, "user_9", id)
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	assert.Equal(t, 2, rl.evict(time.Now().Add(time.Second)))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
}

func TestBasicAuthAndPprofGuard(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	metrics := BasicAuth("prom", "secret")(ok)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	metrics.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.SetBasicAuth("prom", "secret")
	rec = httptest.NewRecorder()
	metrics.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	unset := BasicAuth("", "")(ok)
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("", "")
	rec = httptest.NewRecorder()
	unset.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	pprof := PprofGuard("s3")(ok)
	req = httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rec = httptest.NewRecorder()
	pprof.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set("X-Pprof-Secret", "s3")
	rec = httptest.NewRecorder()
	pprof.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouteLabelUsesTemplate(t *testing.T) {
	var got string
	r := mux.NewRouter()
	r.HandleFunc("/progress/{date}", func(w http.ResponseWriter, req *http.Request) {
		got = routeLabel(req)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/2024-01-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/progress/{date}", got)
}
