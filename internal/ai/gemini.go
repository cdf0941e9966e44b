package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel balances latency and cost for short conversational replies.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements Completer using Google's Gemini models.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client, modelName: modelName}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Model() string {
	return p.modelName
}

// Complete replays every message except the last as chat history and sends
// the last one as the new turn.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("gemini: no messages")
	}

	model := p.client.GenerativeModel(p.modelName)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Role:  "system",
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	model.SetTemperature(req.Temperature)
	model.SetTopP(req.TopP)

	last := len(req.Messages) - 1
	cs := model.StartChat()
	cs.History = toContents(req.Messages[:last])

	resp, err := cs.SendMessage(ctx, genai.Text(req.Messages[last].Content))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyReply
	}

	var textParts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		txt, ok := part.(genai.Text)
		if !ok || strings.TrimSpace(string(txt)) == "" {
			continue
		}
		textParts = append(textParts, string(txt))
	}
	if len(textParts) == 0 {
		return "", ErrEmptyReply
	}
	return strings.Join(textParts, "\n"), nil
}

func toContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &genai.Content{
			Role:  string(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return out
}
