package handlers

import (
	"context"
	"time"

	"ferryhq/ferry/pkg/backend"
)

// ConversationOpener runs the backend protocol up to an open event feed.
// *backend.Session implements it.
type ConversationOpener interface {
	Open(ctx context.Context, conv backend.Conversation) (backend.EventStream, error)
}

// DurationObserver records how long a route took to answer. The metrics
// collector implements it.
type DurationObserver interface {
	ObserveRequestDuration(route, mode string, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveRequestDuration(string, string, time.Duration) {}

// Response modes reported to DurationObserver.
const (
	ModeStream   = "stream"
	ModeBuffered = "buffered"
)

// Route labels.
const (
	RouteChatCompletions = "/v1/chat/completions"
	RouteModels          = "/v1/models"
)
