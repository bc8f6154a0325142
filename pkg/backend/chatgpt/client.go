package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"ferryhq/ferry/pkg/backend"
	"ferryhq/ferry/pkg/challenge"
)

// maxResponseBytes bounds the non-streaming response bodies read into memory.
const maxResponseBytes = 1 << 20

// Config configures the ChatGPT client.
type Config struct {
	// BaseURL is the backend origin, e.g. https://chat.openai.com.
	BaseURL string

	RequirementsPath string

	// ExchangePath is the credential exchange endpoint. Empty means the
	// requirements token is used as the credential without a call.
	ExchangePath string

	ConversationPath string

	UserAgent string

	// Model is the backend model slug sent with each conversation.
	Model string

	ChallengeTimeout time.Duration
	ExchangeTimeout  time.Duration

	// StreamTimeout bounds the conversation call until response headers arrive.
	StreamTimeout time.Duration

	// StreamIdleTimeout bounds the wait between two feed events.
	StreamIdleTimeout time.Duration

	// HTTPClient carries the outbound transport (proxy, dial timeout).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to the ChatGPT backend. It is safe for concurrent use.
type Client struct {
	config  Config
	http    *http.Client
	headers http.Header
	logger  *slog.Logger

	requirementsURL string
	exchangeURL     string
	conversationURL string
}

var _ backend.Client = (*Client)(nil)

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base URL %q: scheme and host are required", cfg.BaseURL)
	}
	if cfg.RequirementsPath == "" || cfg.ConversationPath == "" {
		return nil, errors.New("requirements and conversation paths are required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Model == "" {
		cfg.Model = "text-davinci-002-render-sha"
	}
	if cfg.ChallengeTimeout <= 0 {
		cfg.ChallengeTimeout = 15 * time.Second
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = 15 * time.Second
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	root := strings.TrimRight(base.String(), "/")
	c := &Client{
		config:          cfg,
		http:            cfg.HTTPClient,
		headers:         browserHeaders(base, cfg.UserAgent),
		logger:          cfg.Logger.With("component", "backend.chatgpt"),
		requirementsURL: root + cfg.RequirementsPath,
		conversationURL: root + cfg.ConversationPath,
	}
	if cfg.ExchangePath != "" {
		c.exchangeURL = root + cfg.ExchangePath
	}

	return c, nil
}

// FetchChallenge calls the chat-requirements endpoint.
func (c *Client) FetchChallenge(ctx context.Context, deviceID string) (*backend.Challenge, error) {
	header := http.Header{}
	header.Set(headerDeviceID, deviceID)

	var resp requirementsResponse
	raw, err := c.call(ctx, backend.StepChallenge, c.config.ChallengeTimeout, c.requirementsURL, header, struct{}{}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Token == "" {
		return nil, &backend.TranslationError{
			Step:    backend.StepChallenge,
			Payload: string(raw),
			Cause:   errors.New("requirements token missing"),
		}
	}

	ch := &backend.Challenge{RequirementsToken: resp.Token}
	if pow := resp.ProofOfWork; pow != nil && (pow.Required || pow.Seed != "") {
		if pow.Seed == "" || pow.Difficulty == "" {
			return nil, &backend.TranslationError{
				Step:    backend.StepChallenge,
				Payload: string(raw),
				Cause:   errors.New("proof of work required without seed or difficulty"),
			}
		}
		ch.ProofRequired = true
		ch.Puzzle = challenge.Challenge{Seed: pow.Seed, Difficulty: pow.Difficulty}
	}

	return ch, nil
}

// ExchangeCredential presents the proof token. Without an exchange endpoint
// the requirements token is the credential.
func (c *Client) ExchangeCredential(ctx context.Context, deviceID string, ch *backend.Challenge, proofToken string) (*backend.Credential, error) {
	if c.exchangeURL == "" {
		return &backend.Credential{Token: ch.RequirementsToken}, nil
	}

	header := http.Header{}
	header.Set(headerDeviceID, deviceID)
	if proofToken != "" {
		header.Set(headerProofToken, proofToken)
	}

	var resp exchangeResponse
	raw, err := c.call(ctx, backend.StepExchange, c.config.ExchangeTimeout, c.exchangeURL, header,
		exchangeRequest{Token: ch.RequirementsToken, ProofOfWork: proofToken}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Token == "" {
		return nil, &backend.TranslationError{
			Step:    backend.StepExchange,
			Payload: string(raw),
			Cause:   errors.New("credential token missing"),
		}
	}

	return &backend.Credential{Token: resp.Token}, nil
}

// OpenConversation posts the conversation and returns the decoded feed once
// the backend has answered with an event stream. StreamTimeout applies only
// until the response headers arrive.
func (c *Client) OpenConversation(ctx context.Context, attempt backend.Attempt, conv backend.Conversation) (backend.EventStream, error) {
	body, err := json.Marshal(newConversationRequest(c.config.Model, conv))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.conversationURL, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.applyHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(headerDeviceID, attempt.DeviceID)
	req.Header.Set(headerRequirementsToken, attempt.Credential.Token)
	if attempt.ProofToken != "" {
		req.Header.Set(headerProofToken, attempt.ProofToken)
	}

	var timedOut atomic.Bool
	timer := time.AfterFunc(c.config.StreamTimeout, func() {
		timedOut.Store(true)
		cancel()
	})

	c.logger.DebugContext(ctx, "opening backend conversation",
		"url", c.conversationURL,
		"turns", len(conv.Turns),
	)

	resp, err := c.http.Do(req)
	timer.Stop()
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if timedOut.Load() {
			return nil, &backend.TimeoutError{Step: backend.StepConversation, Timeout: c.config.StreamTimeout}
		}
		return nil, classify(ctx, streamCtx, backend.StepConversation, c.config.StreamTimeout, err)
	}
	if timedOut.Load() {
		resp.Body.Close()
		cancel()
		return nil, &backend.TimeoutError{Step: backend.StepConversation, Timeout: c.config.StreamTimeout}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		cancel()
		return nil, backend.NewRejectedError(backend.StepConversation, resp.StatusCode, excerpt)
	}

	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "text/event-stream" {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		cancel()
		rejected := backend.NewRejectedError(backend.StepConversation, resp.StatusCode, excerpt)
		rejected.Reason = fmt.Sprintf("expected text/event-stream, got %q", resp.Header.Get("Content-Type"))
		return nil, rejected
	}

	return newEventStream(resp.Body, cancel, c.config.StreamIdleTimeout, c.logger), nil
}

// call performs one JSON POST and decodes the response into out. It returns
// the raw body for diagnostics.
func (c *Client) call(ctx context.Context, step string, timeout time.Duration, target string, header http.Header, in, out any) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", step, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.applyHeaders(req)
	for key, values := range header {
		req.Header[key] = values
	}

	c.logger.DebugContext(ctx, "sending request to backend",
		"step", step,
		"url", target,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, callCtx, step, timeout, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify(ctx, callCtx, step, timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, backend.NewRejectedError(step, resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return raw, &backend.TranslationError{Step: step, Payload: string(raw), Cause: err}
	}

	return raw, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}
}

// classify converts a transport failure into the backend taxonomy. A
// cancelled parent is reported as-is so callers can tell a client
// disconnect from a backend problem.
func classify(parent, callCtx context.Context, step string, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &backend.TimeoutError{Step: step, Timeout: timeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &backend.TimeoutError{Step: step, Timeout: timeout}
	}
	return &backend.TransportError{Step: step, Cause: err}
}
