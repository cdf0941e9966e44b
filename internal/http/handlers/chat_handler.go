// README: Assistant endpoints (chat turn, text-to-speech replay, ping).
package handlers

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"prestige/internal/http/middleware"
	"prestige/internal/modules/chat"
	"prestige/internal/modules/intent"
)

// Info is the static configuration reported by Ping.
type Info struct {
	Provider string
	Model    string
	APIBase  string
}

type ChatHandler struct {
	chat *chat.Service
	info Info
}

func NewChatHandler(svc *chat.Service, info Info) *ChatHandler {
	return &ChatHandler{chat: svc, info: info}
}

type chatReq struct {
	Message string `json:"message"`
}

type chatResp struct {
	Reply       string `json:"reply"`
	Model       string `json:"model"`
	RoleSeen    string `json:"roleSeen"`
	Intent      string `json:"intent,omitempty"`
	AudioBase64 string `json:"audioBase64,omitempty"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// Chat handles POST /api/ai/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic during chat turn: %v\n%s", r, debug.Stack())
			writeChatError(c, fmt.Errorf("chat turn panicked: %v", r))
			c.Abort()
		}
	}()

	// A missing or non-string message is treated as empty.
	var req chatReq
	_ = c.ShouldBindJSON(&req)

	id, _ := middleware.CallerIdentity(c)
	reply, err := h.chat.HandleTurn(c.Request.Context(), id, req.Message)
	if err != nil {
		writeChatError(c, err)
		return
	}

	resp := chatResp{
		Reply:       reply.Text,
		Model:       h.chat.Model(),
		RoleSeen:    id.RoleOrDefault(),
		AudioBase64: h.chat.Audio(c.Request.Context(), reply.Text),
		Degraded:    reply.Degraded,
	}
	if reply.Intent != intent.General {
		resp.Intent = string(reply.Intent)
	}
	writeJSON(c, http.StatusOK, resp)
}

type ttsReq struct {
	Text string `json:"text"`
}

// TTS handles POST /api/ai/tts.
func (h *ChatHandler) TTS(c *gin.Context) {
	if !h.chat.SpeechEnabled() {
		writeError(c, http.StatusInternalServerError, "TTS not configured")
		return
	}
	var req ttsReq
	_ = c.ShouldBindJSON(&req)
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(c, http.StatusBadRequest, "text is required")
		return
	}
	audio, err := h.chat.Speak(c.Request.Context(), text)
	if err != nil || audio == "" {
		writeError(c, http.StatusInternalServerError, "TTS failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"audioBase64": audio})
}

// Ping handles GET /api/ai/ping. It reports configuration only and never
// touches sessions or upstream services.
func (h *ChatHandler) Ping(c *gin.Context) {
	var role any
	if r := middleware.CallerRole(c); r != "" {
		role = r
	}
	writeJSON(c, http.StatusOK, gin.H{
		"ok":            true,
		"model":         h.info.Model,
		"provider":      h.info.Provider,
		"role":          role,
		"apiBase":       h.info.APIBase,
		"ttsConfigured": h.chat.SpeechEnabled(),
	})
}
