package challenge

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"
)

// ErrPoolClosed is returned by Solve after Close.
var ErrPoolClosed = errors.New("challenge solver pool closed")

// Result labels reported to the Observer.
const (
	ResultSolved     = "solved"
	ResultFallback   = "fallback"
	ResultUnsolvable = "unsolvable"
	ResultCancelled  = "cancelled"
)

// Observer receives solver measurements. The metrics collector implements it.
type Observer interface {
	ObserveSolve(duration time.Duration, attempts int, result string)
	SetSolverQueueDepth(depth int)
}

type noopObserver struct{}

func (noopObserver) ObserveSolve(time.Duration, int, string) {}
func (noopObserver) SetSolverQueueDepth(int)                 {}

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Workers is the number of solver goroutines (default: runtime.NumCPU()).
	Workers int

	// QueueSize bounds the number of challenges waiting for a worker (default: 64).
	QueueSize int

	// MaxAttempts is the per-challenge attempt ceiling (default: DefaultMaxAttempts).
	MaxAttempts int

	// Fallback returns FallbackToken instead of an UnsolvableError.
	Fallback bool

	// UserAgent is embedded in every fingerprint.
	UserAgent string

	// Cores is the fingerprint core value. Zero picks a random value in
	// [2000, 8000) once for the lifetime of the pool.
	Cores int

	// Clock stamps fingerprints (default: time.Now).
	Clock func() time.Time

	Observer Observer
	Logger   *slog.Logger
}

// Pool runs Solve on a fixed set of worker goroutines so CPU-bound solving
// never runs on a connection-handling goroutine.
type Pool struct {
	jobs        chan job
	closed      chan struct{}
	stopCtx     context.Context
	stop        context.CancelFunc
	closeOnce   sync.Once
	wg          sync.WaitGroup
	maxAttempts int
	fallback    bool
	userAgent   string
	cores       int
	clock       func() time.Time
	observer    Observer
	logger      *slog.Logger
}

type job struct {
	ctx       context.Context
	challenge Challenge
	done      chan outcome
}

type outcome struct {
	proof Proof
	err   error
}

// NewPool starts the workers. Callers must Close the pool.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Cores <= 0 {
		cfg.Cores = 2000 + rand.IntN(6000)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	stopCtx, stop := context.WithCancel(context.Background())
	p := &Pool{
		jobs:        make(chan job, cfg.QueueSize),
		stopCtx:     stopCtx,
		stop:        stop,
		closed:      make(chan struct{}),
		maxAttempts: cfg.MaxAttempts,
		fallback:    cfg.Fallback,
		userAgent:   cfg.UserAgent,
		cores:       cfg.Cores,
		clock:       cfg.Clock,
		observer:    cfg.Observer,
		logger:      cfg.Logger.With("component", "challenge.pool"),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}

	return p
}

// Solve queues ch for a worker and waits for the proof. It returns ctx.Err()
// if ctx is cancelled while queued or while solving.
func (p *Pool) Solve(ctx context.Context, ch Challenge) (Proof, error) {
	j := job{ctx: ctx, challenge: ch, done: make(chan outcome, 1)}

	select {
	case <-p.closed:
		return Proof{}, ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- j:
		p.observer.SetSolverQueueDepth(len(p.jobs))
	case <-ctx.Done():
		return Proof{}, ctx.Err()
	case <-p.closed:
		return Proof{}, ErrPoolClosed
	}

	select {
	case out := <-j.done:
		return out.proof, out.err
	case <-ctx.Done():
		return Proof{}, ctx.Err()
	case <-p.closed:
		return Proof{}, ErrPoolClosed
	}
}

// Close stops the workers, aborts in-flight solves and fails any queued
// challenges.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.stop()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.closed:
			for {
				select {
				case j := <-p.jobs:
					j.done <- outcome{err: ErrPoolClosed}
				default:
					return
				}
			}
		case j := <-p.jobs:
			p.observer.SetSolverQueueDepth(len(p.jobs))
			j.done <- p.run(j)
		}
	}
}

func (p *Pool) run(j job) outcome {
	if err := j.ctx.Err(); err != nil {
		p.observer.ObserveSolve(0, 0, ResultCancelled)
		return outcome{err: err}
	}

	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	defer context.AfterFunc(p.stopCtx, cancel)()

	start := time.Now()
	fp := NewFingerprint(p.cores, p.clock(), p.userAgent)
	proof, err := Solve(ctx, j.challenge, fp, p.maxAttempts)

	var unsolvable *UnsolvableError
	switch {
	case err == nil:
		p.observer.ObserveSolve(time.Since(start), proof.Attempts, ResultSolved)
	case errors.As(err, &unsolvable) && p.fallback:
		p.logger.Warn("challenge not solved, sending fallback token",
			"difficulty", j.challenge.Difficulty,
			"attempts", unsolvable.Attempts,
			"reason", unsolvable.Reason,
		)
		proof = Proof{Token: FallbackToken(j.challenge.Seed), Attempts: unsolvable.Attempts, Fallback: true}
		err = nil
		p.observer.ObserveSolve(time.Since(start), unsolvable.Attempts, ResultFallback)
	case errors.As(err, &unsolvable):
		p.observer.ObserveSolve(time.Since(start), unsolvable.Attempts, ResultUnsolvable)
	default:
		p.observer.ObserveSolve(time.Since(start), 0, ResultCancelled)
	}

	return outcome{proof: proof, err: err}
}
