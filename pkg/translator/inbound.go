package translator

import (
	"fmt"
	"strings"

	"ferryhq/ferry/pkg/backend"
)

// HistoryMode selects how prior turns reach the backend.
type HistoryMode string

const (
	// HistoryFlatten sends one user turn. With history, user turns are
	// wrapped in [INST]...[/INST] and all turns are joined by newlines.
	HistoryFlatten HistoryMode = "flatten"

	// HistoryMultiTurn sends one backend turn per message, roles preserved.
	HistoryMultiTurn HistoryMode = "multi_turn"
)

// ParseHistoryMode validates a configured mode. Empty means HistoryFlatten.
func ParseHistoryMode(s string) (HistoryMode, error) {
	switch HistoryMode(s) {
	case "", HistoryFlatten:
		return HistoryFlatten, nil
	case HistoryMultiTurn:
		return HistoryMultiTurn, nil
	default:
		return "", fmt.Errorf("unknown history mode %q (valid: flatten, multi_turn)", s)
	}
}

// Message is one inbound message with its content already reduced to text.
type Message struct {
	Role    string
	Content string
}

// InputError describes a message list the backend cannot be given.
type InputError struct {
	// Param is the offending request field, e.g. "messages[2].role".
	Param   string
	Message string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return e.Message
}

// Inbound converts inbound messages into a backend conversation.
type Inbound struct {
	mode HistoryMode
}

// NewInbound returns a translator for mode.
func NewInbound(mode HistoryMode) *Inbound {
	if mode == "" {
		mode = HistoryFlatten
	}
	return &Inbound{mode: mode}
}

// Mode returns the configured history mode.
func (in *Inbound) Mode() HistoryMode {
	return in.mode
}

// Translate builds the conversation for msgs. System messages are joined
// with newlines and folded in front of the first user message; the backend
// has no system role. Consecutive messages of the same role are never merged.
func (in *Inbound) Translate(msgs []Message) (backend.Conversation, error) {
	var (
		system []string
		turns  []backend.Turn
	)

	for i, msg := range msgs {
		if msg.Content == "" {
			return backend.Conversation{}, &InputError{
				Param:   fmt.Sprintf("messages[%d].content", i),
				Message: "message content must not be empty",
			}
		}

		switch backend.Role(msg.Role) {
		case backend.RoleSystem:
			system = append(system, msg.Content)
		case backend.RoleUser, backend.RoleAssistant:
			turns = append(turns, backend.Turn{Role: backend.Role(msg.Role), Content: msg.Content})
		default:
			return backend.Conversation{}, &InputError{
				Param:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unsupported message role %q", msg.Role),
			}
		}
	}

	first := -1
	for i, turn := range turns {
		if turn.Role == backend.RoleUser {
			first = i
			break
		}
	}
	if first < 0 {
		return backend.Conversation{}, &InputError{
			Param:   "messages",
			Message: "messages must contain at least one user message",
		}
	}

	if len(system) > 0 {
		turns[first].Content = strings.Join(system, "\n") + "\n" + turns[first].Content
	}

	if in.mode == HistoryMultiTurn {
		return backend.Conversation{Turns: turns}, nil
	}
	return backend.Conversation{Turns: []backend.Turn{flatten(turns)}}, nil
}

func flatten(turns []backend.Turn) backend.Turn {
	if len(turns) == 1 {
		return backend.Turn{Role: backend.RoleUser, Content: turns[0].Content}
	}

	// Any history gets tags, so a lone [user, assistant] pair is tagged too.
	// The web client only tagged once it saw three or more messages,
	// system messages included.
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		if turn.Role == backend.RoleUser {
			parts = append(parts, "[INST]"+turn.Content+"[/INST]")
		} else {
			parts = append(parts, turn.Content)
		}
	}
	return backend.Turn{Role: backend.RoleUser, Content: strings.Join(parts, "\n")}
}
