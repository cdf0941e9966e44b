package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"prestige/internal/infra"
	"prestige/internal/modules/chat"
)

func TestRoutes_HealthAndAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer(ServerDeps{
		Chat:    chat.NewService(chat.Deps{}, chat.Config{}),
		Decoder: infra.NewJWTDecoder(""),
	})
	h := srv.Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ai/chat", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous chat, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ai/ping", nil))
	if w.Code != http.StatusOK {
		t.Errorf("ping must not require auth, got %d", w.Code)
	}
}
