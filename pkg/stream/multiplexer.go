package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"ferryhq/ferry/pkg/backend"
	"ferryhq/ferry/pkg/proxy"
	"ferryhq/ferry/pkg/translator"
)

// Termination reasons, recorded once per relayed or collected stream.
const (
	ReasonComplete    = "complete"
	ReasonError       = "error"
	ReasonTruncated   = "truncated"
	ReasonTimeout     = "timeout"
	ReasonTranslation = "translation"
	ReasonClientGone  = "client_gone"
)

// Observer receives stream measurements. The metrics collector implements it.
type Observer interface {
	ObserveChunk()
	ObserveTermination(reason string)
}

type noopObserver struct{}

func (noopObserver) ObserveChunk()             {}
func (noopObserver) ObserveTermination(string) {}

// Config wires a Multiplexer.
type Config struct {
	Observer Observer
	Logger   *slog.Logger
}

// Multiplexer copies backend event feeds to clients. It holds no
// per-stream state and is safe for concurrent use.
type Multiplexer struct {
	observer Observer
	logger   *slog.Logger
}

// New returns a Multiplexer.
func New(cfg Config) *Multiplexer {
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "stream")
	}
	return &Multiplexer{observer: cfg.Observer, logger: cfg.Logger}
}

// Result summarises one stream.
type Result struct {
	// Committed reports whether response headers were written.
	Committed bool

	// Chunks is the number of SSE chunks written.
	Chunks int

	// Reason is the termination reason.
	Reason string

	// Err is the failure that ended the stream, if any.
	Err error
}

// Relay streams es to w as Server-Sent Events, in event order and flushing
// every chunk. The event stream is always closed.
//
// The response is committed only once the first event arrives. If the feed
// fails before that, or the first event is a backend error, Relay writes
// nothing and returns the error so the caller can answer with a JSON error
// envelope. After the commit, every
// failure ends the stream with a terminal stop chunk and [DONE], and the
// returned error is nil; the failure is reported in Result.Err.
//
// A cancelled ctx (client gone) aborts the backend read and nothing further
// is written.
func (m *Multiplexer) Relay(ctx context.Context, w http.ResponseWriter, es backend.EventStream, out *translator.Outbound) (Result, error) {
	defer es.Close()

	ev, err := es.Next(ctx)
	if err != nil {
		err = normalize(err, 0)
		res := Result{Reason: Reason(ctx, err), Err: err}
		m.observer.ObserveTermination(res.Reason)
		return res, err
	}

	if ev.Type == backend.EventError {
		m.logger.WarnContext(ctx, "backend reported an error",
			"message_id", ev.MessageID,
			"detail", ev.Detail,
		)
		err := &backend.RejectedError{Step: backend.StepStream, Reason: "error event"}
		res := Result{Reason: ReasonError, Err: err}
		m.observer.ObserveTermination(res.Reason)
		return res, err
	}

	proxy.SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	res := Result{Committed: true}

	for {
		if ev.Type == backend.EventError {
			m.logger.WarnContext(ctx, "backend reported an error",
				"message_id", ev.MessageID,
				"detail", ev.Detail,
			)
			res.Err = &backend.RejectedError{Step: backend.StepStream, Reason: "error event"}
		}

		if chunk := out.Translate(ev); chunk != nil {
			if werr := proxy.WriteSSEChunk(w, chunk); werr != nil {
				return m.finish(ctx, res, ReasonClientGone, werr), nil
			}
			res.Chunks++
			m.observer.ObserveChunk()
		}

		if out.Finished() {
			reason := ReasonComplete
			if ev.Type == backend.EventError {
				reason = ReasonError
			}
			if werr := proxy.WriteSSEDone(w); werr != nil {
				return m.finish(ctx, res, ReasonClientGone, werr), nil
			}
			return m.finish(ctx, res, reason, res.Err), nil
		}

		ev, err = es.Next(ctx)
		if err != nil {
			break
		}
	}

	err = normalize(err, res.Chunks)
	reason := Reason(ctx, err)
	if reason == ReasonClientGone {
		return m.finish(ctx, res, reason, err), nil
	}

	m.logFailure(ctx, reason, err)
	if chunk := out.Stop(); chunk != nil {
		if werr := proxy.WriteSSEChunk(w, chunk); werr != nil {
			return m.finish(ctx, res, ReasonClientGone, werr), nil
		}
		res.Chunks++
		m.observer.ObserveChunk()
	}
	if werr := proxy.WriteSSEDone(w); werr != nil {
		return m.finish(ctx, res, ReasonClientGone, werr), nil
	}
	return m.finish(ctx, res, reason, err), nil
}

// Collect drains es for a non-streaming response; the caller builds the
// body from out.Completion(). The event stream is always closed.
//
// A truncated feed that produced content is not an error: the partial
// content is returned and the truncation is logged. Any failure with no
// content, and any failure other than truncation, is returned.
func (m *Multiplexer) Collect(ctx context.Context, es backend.EventStream, out *translator.Outbound) (Result, error) {
	defer es.Close()

	var res Result
	for {
		ev, err := es.Next(ctx)
		if err != nil {
			err = normalize(err, res.Chunks)
			reason := Reason(ctx, err)
			res.Reason, res.Err = reason, err
			m.observer.ObserveTermination(reason)

			var truncated *backend.TruncatedError
			if errors.As(err, &truncated) && out.Content() != "" {
				m.logFailure(ctx, reason, err)
				return res, nil
			}
			if reason != ReasonClientGone {
				m.logFailure(ctx, reason, err)
			}
			return res, err
		}

		if ev.Type == backend.EventError {
			m.logger.WarnContext(ctx, "backend reported an error",
				"message_id", ev.MessageID,
				"detail", ev.Detail,
			)
			if out.Content() == "" {
				err := &backend.RejectedError{Step: backend.StepStream, Reason: "error event"}
				res.Reason, res.Err = ReasonError, err
				m.observer.ObserveTermination(ReasonError)
				return res, err
			}
		}

		if chunk := out.Translate(ev); chunk != nil {
			res.Chunks++
		}

		if out.Finished() {
			res.Reason = ReasonComplete
			if ev.Type == backend.EventError {
				res.Reason = ReasonError
			}
			m.observer.ObserveTermination(res.Reason)
			return res, nil
		}
	}
}

func (m *Multiplexer) finish(ctx context.Context, res Result, reason string, err error) Result {
	res.Reason = reason
	res.Err = err
	m.observer.ObserveTermination(reason)
	if reason == ReasonClientGone {
		m.logger.DebugContext(ctx, "client went away during stream", "chunks", res.Chunks)
	}
	return res
}

func (m *Multiplexer) logFailure(ctx context.Context, reason string, err error) {
	var translation *backend.TranslationError
	switch {
	case errors.As(err, &translation):
		m.logger.ErrorContext(ctx, "unexpected backend event",
			"error", err,
			"payload", translation.Payload,
		)
	case reason == ReasonTruncated:
		m.logger.WarnContext(ctx, "backend stream truncated", "error", err)
	default:
		m.logger.WarnContext(ctx, "backend stream failed", "reason", reason, "error", err)
	}
}

// normalize turns an io.EOF seen before any terminal event into a
// TruncatedError. EventStream only returns io.EOF after a terminal event,
// which the translator has already turned into the stop chunk.
func normalize(err error, events int) error {
	if errors.Is(err, io.EOF) {
		return &backend.TruncatedError{Events: events}
	}
	return err
}

// Reason classifies the error that ended a stream.
func Reason(ctx context.Context, err error) string {
	var (
		truncated   *backend.TruncatedError
		timeout     *backend.TimeoutError
		translation *backend.TranslationError
	)
	switch {
	case err == nil:
		return ReasonComplete
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return ReasonClientGone
	case errors.As(err, &truncated):
		return ReasonTruncated
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &translation):
		return ReasonTranslation
	default:
		return ReasonError
	}
}
