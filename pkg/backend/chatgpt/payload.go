package chatgpt

import (
	"encoding/json"

	"github.com/google/uuid"

	"ferryhq/ferry/pkg/backend"
)

// requirementsResponse is the body of the chat-requirements call.
type requirementsResponse struct {
	Token       string       `json:"token"`
	ProofOfWork *proofOfWork `json:"proofofwork"`
}

type proofOfWork struct {
	Required   bool   `json:"required"`
	Seed       string `json:"seed"`
	Difficulty string `json:"difficulty"`
}

type exchangeRequest struct {
	Token       string `json:"token"`
	ProofOfWork string `json:"proofofwork,omitempty"`
}

type exchangeResponse struct {
	Token string `json:"token"`
}

type conversationRequest struct {
	Action                     string           `json:"action"`
	Messages                   []messagePayload `json:"messages"`
	ParentMessageID            string           `json:"parent_message_id"`
	Model                      string           `json:"model"`
	TimezoneOffsetMin          int              `json:"timezone_offset_min"`
	Suggestions                []string         `json:"suggestions"`
	HistoryAndTrainingDisabled bool             `json:"history_and_training_disabled"`
	ConversationMode           conversationMode `json:"conversation_mode"`
	ForceParagen               bool             `json:"force_paragen"`
	ForceParagenModelSlug      string           `json:"force_paragen_model_slug"`
	ForceNulligen              bool             `json:"force_nulligen"`
	ForceRateLimit             bool             `json:"force_rate_limit"`
	WebsocketRequestID         string           `json:"websocket_request_id"`
}

type conversationMode struct {
	Kind string `json:"kind"`
}

type messagePayload struct {
	ID       string         `json:"id"`
	Author   author         `json:"author"`
	Content  contentPayload `json:"content"`
	Metadata struct{}       `json:"metadata"`
}

type author struct {
	Role string `json:"role"`
}

type contentPayload struct {
	ContentType string   `json:"content_type"`
	Parts       []string `json:"parts"`
}

// newConversationRequest builds the "next" action for conv. Every message,
// the parent link and the websocket request get fresh identifiers.
func newConversationRequest(model string, conv backend.Conversation) conversationRequest {
	messages := make([]messagePayload, 0, len(conv.Turns))
	for _, turn := range conv.Turns {
		messages = append(messages, messagePayload{
			ID:     uuid.NewString(),
			Author: author{Role: string(turn.Role)},
			Content: contentPayload{
				ContentType: "text",
				Parts:       []string{turn.Content},
			},
		})
	}

	return conversationRequest{
		Action:                     "next",
		Messages:                   messages,
		ParentMessageID:            uuid.NewString(),
		Model:                      model,
		Suggestions:                []string{},
		HistoryAndTrainingDisabled: true,
		ConversationMode:           conversationMode{Kind: "primary_assistant"},
		WebsocketRequestID:         uuid.NewString(),
	}
}

// frame is one data line of the conversation feed.
type frame struct {
	Message *frameMessage   `json:"message"`
	Type    string          `json:"type"`
	Error   json.RawMessage `json:"error"`
}

type frameMessage struct {
	ID      string `json:"id"`
	Author  author `json:"author"`
	Content struct {
		ContentType string            `json:"content_type"`
		Parts       []json.RawMessage `json:"parts"`
	} `json:"content"`
	Status string `json:"status"`
}

const statusFinished = "finished_successfully"
