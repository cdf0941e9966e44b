package ai

import (
	"context"
	"errors"
)

// ErrEmptyReply is returned when the provider answered without any text.
var ErrEmptyReply = errors.New("ai: empty reply")

// Completer defines the contract for the external completion service.
// This interface allows for swapping Gemini and OpenAI-compatible providers.
type Completer interface {
	// Complete sends the grounded conversation and returns the generated text.
	Complete(ctx context.Context, req Request) (string, error)

	// Model names the model answering requests, reported by the ping surface.
	Model() string
}
