package challenge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

const (
	// TokenPrefix is prepended to every solved answer.
	TokenPrefix = "gAAAAAB"

	// FallbackPrefix is the static prefix of the token sent when no answer
	// was found within the attempt ceiling and fallback is enabled.
	FallbackPrefix = "gAAAAABwQ8Lk5FbGpA2NcR9dShT6gYjU7VxZ4D"

	// ScreenValue is the constant screen field of the fingerprint.
	ScreenValue int64 = 4294705152

	// TimestampLayout renders the fingerprint timestamp the way a browser
	// running in UTC prints Date.toString().
	TimestampLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (Coordinated Universal Time)"

	// DefaultMaxAttempts is the attempt ceiling used when none is configured.
	DefaultMaxAttempts = 1_000_000

	// maxDifficultyLength bounds the difficulty to the 64-byte SHA3-512 digest.
	maxDifficultyLength = 128

	cancelCheckInterval = 1024
)

// Challenge is a proof-of-work puzzle issued by the backend.
type Challenge struct {
	// Seed is prepended to every candidate answer before hashing.
	Seed string `json:"seed"`

	// Difficulty is a lowercase hex string. A candidate passes when the hex
	// encoding of the first len(Difficulty)/2 digest bytes sorts at or below it.
	Difficulty string `json:"difficulty"`
}

// Fingerprint is the browser description embedded in every candidate answer.
// Holding it fixed makes Solve a pure function of the challenge.
type Fingerprint struct {
	Cores     int
	Timestamp string
	Screen    int64
	UserAgent string
}

// NewFingerprint returns a fingerprint stamped with now in UTC.
func NewFingerprint(cores int, now time.Time, userAgent string) Fingerprint {
	return Fingerprint{
		Cores:     cores,
		Timestamp: now.UTC().Format(TimestampLayout),
		Screen:    ScreenValue,
		UserAgent: userAgent,
	}
}

// parts returns the JSON text before and after the nonce position.
func (f Fingerprint) parts() (prefix, suffix []byte) {
	prefix = fmt.Appendf(nil, "[%d,%s,%d,", f.Cores, quote(f.Timestamp), f.Screen)
	suffix = fmt.Appendf(nil, ",%s]", quote(f.UserAgent))
	return prefix, suffix
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Proof is a solved challenge.
type Proof struct {
	// Token is the value presented to the backend.
	Token string

	// Nonce is the first nonce whose answer satisfied the difficulty.
	Nonce int

	// Attempts is the number of candidates hashed.
	Attempts int

	// Fallback is true when Token is the static fallback rather than a solution.
	Fallback bool
}

// UnsolvableError is returned when no nonce below the ceiling satisfies the
// difficulty, or when the difficulty itself cannot be evaluated.
type UnsolvableError struct {
	Difficulty string
	Attempts   int
	Reason     string
}

// Error implements the error interface.
func (e *UnsolvableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("challenge unsolvable (difficulty %q): %s", e.Difficulty, e.Reason)
	}
	return fmt.Sprintf("challenge unsolvable: difficulty %q not met within %d attempts", e.Difficulty, e.Attempts)
}

// Solve hashes candidates for nonces 0, 1, 2, ... and returns the first one
// that satisfies the difficulty. The same challenge, fingerprint and ceiling
// always produce the same proof.
//
// Solve is CPU bound. It checks ctx every 1024 attempts and returns ctx.Err()
// when cancelled.
func Solve(ctx context.Context, ch Challenge, fp Fingerprint, maxAttempts int) (Proof, error) {
	if err := validateDifficulty(ch.Difficulty); err != nil {
		return Proof{}, &UnsolvableError{Difficulty: ch.Difficulty, Reason: err.Error()}
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	prefix, suffix := fp.parts()
	seed := []byte(ch.Seed)
	target := []byte(ch.Difficulty)
	width := len(ch.Difficulty) / 2

	hasher := sha3.New512()
	digest := make([]byte, 0, hasher.Size())
	hexBuf := make([]byte, width*2)
	candidate := make([]byte, 0, len(prefix)+len(suffix)+20)
	var answer []byte

	for nonce := 0; nonce < maxAttempts; nonce++ {
		if nonce > 0 && nonce%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Proof{}, err
			}
		}

		candidate = append(candidate[:0], prefix...)
		candidate = strconv.AppendInt(candidate, int64(nonce), 10)
		candidate = append(candidate, suffix...)
		answer = base64.StdEncoding.AppendEncode(answer[:0], candidate)

		hasher.Reset()
		hasher.Write(seed)
		hasher.Write(answer)
		digest = hasher.Sum(digest[:0])

		hex.Encode(hexBuf, digest[:width])
		if bytes.Compare(hexBuf, target) <= 0 {
			return Proof{
				Token:    TokenPrefix + string(answer),
				Nonce:    nonce,
				Attempts: nonce + 1,
			}, nil
		}
	}

	return Proof{}, &UnsolvableError{Difficulty: ch.Difficulty, Attempts: maxAttempts}
}

// Verify reports whether token is a solved answer for ch.
func Verify(ch Challenge, token string) bool {
	answer, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok || validateDifficulty(ch.Difficulty) != nil {
		return false
	}

	h := sha3.New512()
	h.Write([]byte(ch.Seed))
	h.Write([]byte(answer))
	digest := h.Sum(nil)

	width := len(ch.Difficulty) / 2
	return hex.EncodeToString(digest[:width]) <= ch.Difficulty
}

// FallbackToken is the static token the backend historically accepted when
// no answer was found.
func FallbackToken(seed string) string {
	return FallbackPrefix + base64.StdEncoding.EncodeToString([]byte(`"`+seed+`"`))
}

func validateDifficulty(d string) error {
	if d == "" {
		return fmt.Errorf("difficulty is empty")
	}
	if len(d) > maxDifficultyLength {
		return fmt.Errorf("difficulty longer than %d characters", maxDifficultyLength)
	}
	for _, c := range d {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return fmt.Errorf("difficulty is not lowercase hex")
		}
	}
	return nil
}
