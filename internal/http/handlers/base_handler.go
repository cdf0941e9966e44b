// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"prestige/internal/modules/chat"
	"prestige/internal/modules/usage"
)

type errorResponse struct {
	Error string `json:"error"`
}

// replyResponse carries chat failures in the same field as replies so
// clients can render them inline.
type replyResponse struct {
	Reply string `json:"reply"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotConfigured):
		writeJSON(c, http.StatusInternalServerError, replyResponse{Reply: "AI key not configured."})
	case errors.Is(err, chat.ErrEmptyMessage):
		writeJSON(c, http.StatusBadRequest, replyResponse{Reply: "message is required"})
	case errors.Is(err, chat.ErrCompletionUnavailable):
		writeJSON(c, http.StatusServiceUnavailable, replyResponse{Reply: "AI is unavailable right now."})
	case errors.Is(err, usage.ErrInsufficientTokens):
		writeJSON(c, http.StatusTooManyRequests, replyResponse{Reply: "You have used all of this month's AI answers."})
	default:
		log.Printf("chat turn failed: %v", err)
		writeJSON(c, http.StatusInternalServerError, replyResponse{Reply: "Error contacting AI"})
	}
}
