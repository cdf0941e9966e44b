// README: API gateway; builds the gin engine and registers the assistant routes.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prestige/internal/http/handlers"
	"prestige/internal/http/middleware"
	"prestige/internal/infra"
	"prestige/internal/modules/chat"
)

type ServerDeps struct {
	Chat    *chat.Service
	Decoder infra.TokenDecoder
	// Limiter may be nil to disable rate limiting.
	Limiter *middleware.RateLimiter
	Info    handlers.Info
}

type Server struct {
	chat    *handlers.ChatHandler
	decoder infra.TokenDecoder
	limiter *middleware.RateLimiter
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		chat:    handlers.NewChatHandler(deps.Chat, deps.Info),
		decoder: deps.Decoder,
		limiter: deps.Limiter,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	r.GET("/api/ai/ping", middleware.OptionalAuth(s.decoder), s.chat.Ping)

	api := r.Group("/api/ai", middleware.Auth(s.decoder), middleware.RateLimit(s.limiter))
	api.POST("/chat", s.chat.Chat)
	api.POST("/tts", s.chat.TTS)
	return r
}
