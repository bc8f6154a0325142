package backend

import (
	"context"

	"ferryhq/ferry/pkg/challenge"
)

// Role is the author of a backend turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one backend-native message.
type Turn struct {
	Role    Role
	Content string
}

// Conversation is the ordered list of turns submitted as one "next" action.
// The backend links turns server-side, so every request replays its history.
type Conversation struct {
	Turns []Turn
}

// Challenge is the backend's answer to the requirements call.
type Challenge struct {
	// RequirementsToken identifies the challenge to the backend.
	RequirementsToken string

	// ProofRequired is false when the backend did not issue a puzzle.
	ProofRequired bool

	// Puzzle is the proof-of-work seed and difficulty.
	Puzzle challenge.Challenge
}

// Credential authorises a single conversation call.
type Credential struct {
	Token string
}

// Attempt carries everything the conversation call presents to the backend.
type Attempt struct {
	DeviceID   string
	Credential Credential
	ProofToken string
}

// Client performs the backend calls. Implementations must return the error
// types of this package so that callers can classify failures.
type Client interface {
	// FetchChallenge requests a challenge for the device.
	FetchChallenge(ctx context.Context, deviceID string) (*Challenge, error)

	// ExchangeCredential submits the proof token and returns the credential
	// for the conversation call.
	ExchangeCredential(ctx context.Context, deviceID string, ch *Challenge, proofToken string) (*Credential, error)

	// OpenConversation starts the conversation and returns its event feed.
	// The stream must be closed by the caller.
	OpenConversation(ctx context.Context, attempt Attempt, conv Conversation) (EventStream, error)
}

// Solver computes proof-of-work tokens. challenge.Pool implements it.
type Solver interface {
	Solve(ctx context.Context, ch challenge.Challenge) (challenge.Proof, error)
}

// EventType classifies a StreamEvent.
type EventType int

const (
	// EventDelta carries an incremental text fragment.
	EventDelta EventType = iota

	// EventComplete marks the assistant message as finished.
	EventComplete

	// EventError carries a backend-reported error. Its detail is for logs only.
	EventError

	// EventDone is the end-of-feed marker.
	EventDone
)

// String returns the backend-native name of the event type.
func (t EventType) String() string {
	switch t {
	case EventDelta:
		return "message_delta"
	case EventComplete:
		return "message_complete"
	case EventError:
		return "error"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is one unit of the backend's event feed.
type Event struct {
	Type EventType

	// MessageID is the backend message the event belongs to, if any.
	MessageID string

	// Text is the incremental fragment for EventDelta.
	Text string

	// Detail is the backend-provided error text for EventError.
	Detail string
}

// EventStream is the decoded event feed of one conversation.
//
// Next blocks until the next event, returning io.EOF after EventDone or
// after the stream ended cleanly following EventComplete. Any other end of
// the feed is a TruncatedError. Close releases the backend connection and
// may be called at any time, including concurrently with Next.
type EventStream interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}
