package ai

// Role tags a conversation turn. Gemini names the assistant side "model".
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single grounded completion call.
type Request struct {
	// System is the fixed instruction sent out-of-band from the turns.
	System string

	// Temperature and TopP configure sampling.
	Temperature float32
	TopP        float32

	// Messages are ordered oldest first; the last one is the new user turn.
	Messages []Message
}
