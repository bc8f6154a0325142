package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"ferryhq/ferry/pkg/backend"
	"ferryhq/ferry/pkg/proxy"
	"ferryhq/ferry/pkg/proxy/middleware"
	"ferryhq/ferry/pkg/proxy/types"
	"ferryhq/ferry/pkg/stream"
	"ferryhq/ferry/pkg/telemetry/tracing"
	"ferryhq/ferry/pkg/translator"
)

// ChatConfig wires a ChatHandler.
type ChatConfig struct {
	Opener      ConversationOpener
	Inbound     *translator.Inbound
	Multiplexer *stream.Multiplexer

	// Model is the advertised model name put on every response.
	Model string

	// MaxBodyBytes bounds the request body (default: proxy.DefaultMaxRequestBodySize).
	MaxBodyBytes int64

	Observer DurationObserver
	Tracer   backend.Tracer
	Logger   *slog.Logger

	// Now stamps responses (default: time.Now).
	Now func() time.Time
}

// ChatHandler serves POST /v1/chat/completions. It is safe for concurrent
// use; every request gets its own backend session attempt and Outbound.
type ChatHandler struct {
	opener       ConversationOpener
	inbound      *translator.Inbound
	mux          *stream.Multiplexer
	model        string
	maxBodyBytes int64
	observer     DurationObserver
	tracer       backend.Tracer
	logger       *slog.Logger
	now          func() time.Time
}

// NewChatHandler validates cfg and returns a handler.
func NewChatHandler(cfg ChatConfig) (*ChatHandler, error) {
	if cfg.Opener == nil {
		return nil, errors.New("conversation opener is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("advertised model is empty")
	}
	if cfg.Inbound == nil {
		cfg.Inbound = translator.NewInbound(translator.HistoryFlatten)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Multiplexer == nil {
		cfg.Multiplexer = stream.New(stream.Config{Logger: cfg.Logger})
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("ferry/gateway")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &ChatHandler{
		opener:       cfg.Opener,
		inbound:      cfg.Inbound,
		mux:          cfg.Multiplexer,
		model:        cfg.Model,
		maxBodyBytes: cfg.MaxBodyBytes,
		observer:     cfg.Observer,
		tracer:       cfg.Tracer,
		logger:       cfg.Logger.With("component", "gateway"),
		now:          cfg.Now,
	}, nil
}

// ServeHTTP handles one chat completion.
//
// Streaming requests commit their 200 only once the backend produced its
// first event. Anything that fails before that point is answered with a
// JSON error envelope, so a client never sees an empty event stream.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := middleware.GetRequestID(r.Context())

	ctx, span := h.tracer.Start(r.Context(), "gateway.chat_completion",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	req, err := proxy.ParseChatCompletionRequest(r, h.maxBodyBytes)
	if err != nil {
		h.fail(ctx, w, span, requestID, err)
		return
	}

	mode := ModeBuffered
	if req.Stream {
		mode = ModeStream
	}
	defer func() {
		h.observer.ObserveRequestDuration(RouteChatCompletions, mode, time.Since(start))
	}()

	tracing.SetRequestAttributes(span, requestID, req.Model, req.Stream, len(req.Messages))
	span.SetAttributes(attribute.String(tracing.AttrHistoryMode, string(h.inbound.Mode())))

	msgs, err := proxy.ConversationMessages(req.Messages)
	if err != nil {
		h.fail(ctx, w, span, requestID, err)
		return
	}
	conv, err := h.inbound.Translate(msgs)
	if err != nil {
		h.fail(ctx, w, span, requestID, err)
		return
	}

	h.logger.InfoContext(ctx, "processing chat completion",
		"request_id", requestID,
		"model", req.Model,
		"messages", len(req.Messages),
		"turns", len(conv.Turns),
		"stream", req.Stream,
	)

	es, err := h.opener.Open(ctx, conv)
	if err != nil {
		h.fail(ctx, w, span, requestID, err)
		return
	}

	out := translator.NewOutbound(h.model, h.now())
	if req.Stream {
		h.relay(ctx, w, span, requestID, es, out, start)
		return
	}
	h.collect(ctx, w, span, requestID, es, out, start)
}

func (h *ChatHandler) relay(ctx context.Context, w http.ResponseWriter, span trace.Span, requestID string, es backend.EventStream, out *translator.Outbound, start time.Time) {
	res, err := h.mux.Relay(ctx, w, es, out)
	tracing.SetResultAttributes(span, res.Reason, res.Chunks)
	if err != nil {
		h.fail(ctx, w, span, requestID, err)
		return
	}
	tracing.SetStatus(span, res.Err)

	level := slog.LevelInfo
	if res.Err != nil && res.Reason != stream.ReasonClientGone {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, "chat completion streamed",
		"request_id", requestID,
		"completion_id", out.ID(),
		"reason", res.Reason,
		"chunks", res.Chunks,
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

func (h *ChatHandler) collect(ctx context.Context, w http.ResponseWriter, span trace.Span, requestID string, es backend.EventStream, out *translator.Outbound, start time.Time) {
	res, err := h.mux.Collect(ctx, es, out)
	tracing.SetResultAttributes(span, res.Reason, res.Chunks)
	if err != nil {
		h.fail(ctx, w, span, requestID, err)
		return
	}
	tracing.SetStatus(span, nil)

	h.logger.InfoContext(ctx, "chat completion collected",
		"request_id", requestID,
		"completion_id", out.ID(),
		"reason", res.Reason,
		"content_bytes", len(out.Content()),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	if err := proxy.WriteJSONResponse(w, http.StatusOK, out.Completion()); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response",
			"request_id", requestID,
			"error", err,
		)
	}
}

// fail maps err to an error envelope and writes it, unless the client has
// already gone away.
func (h *ChatHandler) fail(ctx context.Context, w http.ResponseWriter, span trace.Span, requestID string, err error) {
	tracing.SetStatus(span, err)
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		h.logger.DebugContext(ctx, "client went away", "request_id", requestID)
		return
	}

	errResp := proxy.HandleError(err)
	tracing.SetErrorType(span, errResp.Error.Type)

	status := errResp.Error.HTTPStatusCode()
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "chat completion failed",
		"request_id", requestID,
		"status", status,
		"error_type", errResp.Error.Type,
		"error", err,
	)

	if werr := proxy.WriteErrorResponse(w, errResp); werr != nil {
		h.logger.ErrorContext(ctx, "failed to write error response",
			"request_id", requestID,
			"error", werr,
		)
	}
}

// errorResponse writes a routing-level error envelope.
func errorResponse(w http.ResponseWriter, errType, message string) {
	_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(message, errType, "", ""))
}
