package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"ferryhq/ferry/pkg/backend"
	"ferryhq/ferry/pkg/challenge"
	"ferryhq/ferry/pkg/cli"
	"ferryhq/ferry/pkg/config"
)

var solveFlags struct {
	seed        string
	difficulty  string
	fallback    bool
	maxAttempts int
	repeat      int
	output      string
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a proof-of-work challenge locally",
	Long: `Solve a proof-of-work challenge with the gateway's solver pool and print
the token. With --repeat the same challenge is solved N times to measure
solver throughput.

Examples:
  ferry solve --seed 0.8134 --difficulty 0fffff
  ferry solve --seed 0.8134 --difficulty 00ffff --repeat 50 --output json`,
	Args: cobra.NoArgs,
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().StringVar(&solveFlags.seed, "seed", "", "challenge seed (required)")
	solveCmd.Flags().StringVar(&solveFlags.difficulty, "difficulty", "", "hex difficulty target (required)")
	solveCmd.Flags().BoolVar(&solveFlags.fallback, "fallback", false, "return the static fallback token instead of failing")
	solveCmd.Flags().IntVar(&solveFlags.maxAttempts, "max-attempts", 0, "nonce ceiling (default: challenge.max_attempts)")
	solveCmd.Flags().IntVar(&solveFlags.repeat, "repeat", 1, "number of solves")
	solveCmd.Flags().StringVarP(&solveFlags.output, "output", "o", "text", "output format (text, json)")
	solveCmd.MarkFlagRequired("seed")
	solveCmd.MarkFlagRequired("difficulty")
}

func runSolve(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(solveFlags.output)
	if err != nil {
		return cli.NewConfigError("output", "invalid output format", err)
	}
	if solveFlags.repeat < 1 {
		return cli.NewConfigError("repeat", "repeat must be at least 1", nil)
	}

	cfg, err := loadConfig(cmd, func(c *config.Config) {
		if solveFlags.maxAttempts > 0 {
			c.Challenge.MaxAttempts = solveFlags.maxAttempts
		}
		if cmd.Flags().Changed("fallback") {
			c.Challenge.FallbackToken = solveFlags.fallback
		}
	})
	if err != nil {
		return err
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	pool := challenge.NewPool(challenge.PoolConfig{
		Workers:     cfg.Challenge.Workers,
		QueueSize:   solveFlags.repeat,
		MaxAttempts: cfg.Challenge.MaxAttempts,
		Fallback:    cfg.Challenge.FallbackToken,
		UserAgent:   cfg.Backend.UserAgent,
	})
	defer pool.Close()

	var progress cli.ProgressReporter
	if solveFlags.repeat > 1 {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "solves")
	}

	report, err := solveRepeated(ctx, pool, challenge.Challenge{
		Seed:       solveFlags.seed,
		Difficulty: solveFlags.difficulty,
	}, solveFlags.repeat, progress)
	if err != nil {
		return cli.NewCommandError("solve", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)
}

// solveReport summarizes one or more solves of the same challenge.
type solveReport struct {
	Seed         string  `json:"seed"`
	Difficulty   string  `json:"difficulty"`
	Token        string  `json:"token"`
	Nonce        int     `json:"nonce"`
	Attempts     int     `json:"attempts"`
	Fallback     bool    `json:"fallback"`
	Verified     bool    `json:"verified"`
	Solves       int     `json:"solves"`
	DurationMS   float64 `json:"duration_ms"`
	SolvesPerSec float64 `json:"solves_per_second"`
}

func (r *solveReport) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Token:      %s\nNonce:      %d\nAttempts:   %d\nFallback:   %t\nVerified:   %t\n",
		r.Token, r.Nonce, r.Attempts, r.Fallback, r.Verified)
	if err != nil {
		return err
	}
	if r.Solves > 1 {
		_, err = fmt.Fprintf(w, "Solves:     %d in %.1fms (%.1f/s)\n", r.Solves, r.DurationMS, r.SolvesPerSec)
	} else {
		_, err = fmt.Fprintf(w, "Duration:   %.1fms\n", r.DurationMS)
	}
	return err
}

// solveRepeated queues n solves at once so every pool worker is busy. The
// first error stops the run.
func solveRepeated(ctx context.Context, solver backend.Solver, ch challenge.Challenge, n int, progress cli.ProgressReporter) (*solveReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if progress != nil {
		progress.Start(int64(n))
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		first    challenge.Proof
		done     atomic.Int64
	)

	start := time.Now()
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			proof, err := solver.Solve(ctx, ch)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			if i == 0 {
				first = proof
			}
			if progress != nil {
				progress.Update(done.Add(1))
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if firstErr != nil {
		if progress != nil {
			progress.Error(firstErr)
		}
		return nil, firstErr
	}
	if progress != nil {
		progress.Finish()
	}

	return &solveReport{
		Seed:         ch.Seed,
		Difficulty:   ch.Difficulty,
		Token:        first.Token,
		Nonce:        first.Nonce,
		Attempts:     first.Attempts,
		Fallback:     first.Fallback,
		Verified:     !first.Fallback && challenge.Verify(ch, first.Token),
		Solves:       n,
		DurationMS:   float64(elapsed.Microseconds()) / 1000,
		SolvesPerSec: float64(n) / elapsed.Seconds(),
	}, nil
}
