package types

// ChatCompletionRequest is an OpenAI-compatible chat completion request.
// Sampling parameters are accepted for client compatibility; the backend has
// a single model and ignores them.
type ChatCompletionRequest struct {
	// Model is informational only.
	Model string `json:"model"`

	// Messages is the conversation history, oldest first.
	Messages []Message `json:"messages" validate:"required,min=1,dive"`

	// Stream selects Server-Sent Events instead of a single JSON body.
	Stream bool `json:"stream,omitempty"`

	Temperature      *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP             *float64 `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	N                *int     `json:"n,omitempty" validate:"omitempty,eq=1"`
	MaxTokens        *int     `json:"max_tokens,omitempty" validate:"omitempty,gte=1"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	User             string   `json:"user,omitempty"`
}

// Message is a single message in a conversation.
type Message struct {
	// Role is "system", "user" or "assistant".
	Role string `json:"role" validate:"required,oneof=system user assistant"`

	// Content is a string or an array of content parts.
	Content interface{} `json:"content" validate:"required"`

	Name string `json:"name,omitempty"`
}

// ContentPart is one element of an array-valued message content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
