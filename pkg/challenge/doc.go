// Package challenge computes the proof-of-work token the backend requires
// before it accepts a conversation.
//
// Solve is a pure function of the challenge, the fingerprint and the attempt
// ceiling. Pool runs it on dedicated worker goroutines:
//
//	pool := challenge.NewPool(challenge.PoolConfig{UserAgent: ua})
//	defer pool.Close()
//
//	proof, err := pool.Solve(ctx, challenge.Challenge{Seed: seed, Difficulty: "0fffff"})
//	if err != nil {
//	    var unsolvable *challenge.UnsolvableError
//	    if errors.As(err, &unsolvable) {
//	        // ceiling exceeded
//	    }
//	}
package challenge
