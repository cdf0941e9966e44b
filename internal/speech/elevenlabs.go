// README: ElevenLabs text-to-speech client; returns MP3 bytes for a reply.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultModelID = "eleven_multilingual_v2"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("speech: not configured")

// Synthesizer turns reply text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Enabled() bool
}

type Config struct {
	APIKey  string
	VoiceID string
	ModelID string
	// BaseURL overrides the API host (tests).
	BaseURL string
	Timeout time.Duration
}

type ElevenLabs struct {
	cfg  Config
	http *http.Client
}

func NewElevenLabs(cfg Config) *ElevenLabs {
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoiceID
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &ElevenLabs{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (e *ElevenLabs) Enabled() bool {
	return e != nil && e.cfg.APIKey != ""
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !e.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("speech: empty text")
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: e.cfg.ModelID})
	if err != nil {
		return nil, fmt.Errorf("speech: marshal request: %w", err)
	}
	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(e.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech: build request: %w", err)
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("speech: unexpected status %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: read response: %w", err)
	}
	return audio, nil
}
