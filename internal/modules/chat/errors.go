package chat

import "errors"

var (
	ErrNotConfigured         = errors.New("completion provider not configured")
	ErrEmptyMessage          = errors.New("message is required")
	ErrCompletionUnavailable = errors.New("completion service unavailable")
)
