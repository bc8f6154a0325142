package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer starts spans. Both trace.Tracer and the telemetry tracer satisfy it.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// Observer receives per-step call measurements. The metrics collector
// implements it.
type Observer interface {
	ObserveBackendCall(step, outcome string, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveBackendCall(string, string, time.Duration) {}

// SessionConfig wires a Session.
type SessionConfig struct {
	Client   Client
	Solver   Solver
	Devices  *DeviceSource
	Retry    RetryConfig
	Observer Observer
	Tracer   Tracer
	Logger   *slog.Logger
}

// Session runs conversation attempts against the backend. It keeps no
// per-request state and is safe for concurrent use.
type Session struct {
	client   Client
	solver   Solver
	devices  *DeviceSource
	retry    RetryConfig
	observer Observer
	tracer   Tracer
	logger   *slog.Logger
}

// NewSession validates cfg and returns a Session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Client == nil {
		return nil, errors.New("backend client is nil")
	}
	if cfg.Solver == nil {
		return nil, errors.New("challenge solver is nil")
	}
	if cfg.Devices == nil {
		cfg.Devices = &DeviceSource{}
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("ferry/backend")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Session{
		client:   cfg.Client,
		solver:   cfg.Solver,
		devices:  cfg.Devices,
		retry:    cfg.Retry.withDefaults(),
		observer: cfg.Observer,
		tracer:   cfg.Tracer,
		logger:   cfg.Logger.With("component", "backend.session"),
	}, nil
}

// Open performs the challenge, solve, exchange and conversation steps and
// returns the conversation's event feed. All steps share ctx: cancelling it
// aborts whichever step is in flight and, once the stream is open, the
// stream itself.
func (s *Session) Open(ctx context.Context, conv Conversation) (EventStream, error) {
	deviceID := s.devices.ID()

	ch, err := observe(ctx, s, StepChallenge, func(ctx context.Context) (*Challenge, error) {
		return retry(ctx, s.retry, StepChallenge, s.logger, func(ctx context.Context) (*Challenge, error) {
			return s.client.FetchChallenge(ctx, deviceID)
		})
	})
	if err != nil {
		return nil, err
	}

	var proofToken string
	if ch.ProofRequired {
		proofToken, err = observe(ctx, s, StepSolve, func(ctx context.Context) (string, error) {
			proof, err := s.solver.Solve(ctx, ch.Puzzle)
			if err != nil {
				return "", err
			}
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Int("challenge.attempts", proof.Attempts),
				attribute.Bool("challenge.fallback", proof.Fallback),
			)
			return proof.Token, nil
		})
		if err != nil {
			return nil, err
		}
	}

	cred, err := observe(ctx, s, StepExchange, func(ctx context.Context) (*Credential, error) {
		return retry(ctx, s.retry, StepExchange, s.logger, func(ctx context.Context) (*Credential, error) {
			return s.client.ExchangeCredential(ctx, deviceID, ch, proofToken)
		})
	})
	if err != nil {
		return nil, err
	}

	return observe(ctx, s, StepConversation, func(ctx context.Context) (EventStream, error) {
		return s.client.OpenConversation(ctx, Attempt{
			DeviceID:   deviceID,
			Credential: *cred,
			ProofToken: proofToken,
		}, conv)
	})
}

// observe wraps one step in a span, a duration measurement and a debug log.
func observe[T any](ctx context.Context, s *Session, step string, fn func(context.Context) (T, error)) (T, error) {
	spanCtx, span := s.tracer.Start(ctx, "backend."+step,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("backend.step", step)),
	)
	defer span.End()

	start := time.Now()
	res, err := fn(spanCtx)
	duration := time.Since(start)
	outcome := Outcome(err)

	s.observer.ObserveBackendCall(step, outcome, duration)
	span.SetAttributes(attribute.String("backend.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.DebugContext(ctx, "backend step failed",
			"step", step,
			"outcome", outcome,
			"duration", duration,
			"error", err,
		)
		return res, err
	}

	span.SetStatus(codes.Ok, "")
	s.logger.DebugContext(ctx, "backend step completed",
		"step", step,
		"duration", duration,
	)
	return res, nil
}
