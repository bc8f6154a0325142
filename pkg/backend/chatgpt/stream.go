package chatgpt

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"ferryhq/ferry/pkg/backend"
)

// maxLineBytes bounds one SSE line. Assistant messages are resent in full on
// every line, so long answers need a large buffer.
const maxLineBytes = 4 << 20

const doneMarker = "[DONE]"

// eventStream decodes the conversation feed. A reader goroutine turns the
// body into data lines; Next decodes them so that ctx and the idle timeout
// are honoured while the body is blocked.
type eventStream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	idle   time.Duration
	logger *slog.Logger

	lines   chan string
	stop    chan struct{}
	readErr error

	pending   []backend.Event
	emitted   map[string]string
	events    int
	completed bool
	finished  bool
	err       error

	closeOnce sync.Once
}

func newEventStream(body io.ReadCloser, cancel context.CancelFunc, idle time.Duration, logger *slog.Logger) *eventStream {
	s := &eventStream{
		body:    body,
		cancel:  cancel,
		idle:    idle,
		logger:  logger,
		lines:   make(chan string),
		stop:    make(chan struct{}),
		emitted: make(map[string]string),
	}
	go s.read()
	return s
}

func (s *eventStream) read() {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			// event:, id:, retry: and comment lines
			continue
		}
		data = strings.TrimPrefix(data, " ")
		if data == "" {
			continue
		}

		select {
		case s.lines <- data:
		case <-s.stop:
			return
		}
	}

	s.readErr = scanner.Err()
}

// Next returns the next event. See backend.EventStream.
func (s *eventStream) Next(ctx context.Context) (backend.Event, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			s.events++
			return ev, nil
		}
		if s.err != nil {
			return backend.Event{}, s.err
		}
		if s.finished {
			return backend.Event{}, io.EOF
		}

		data, err := s.nextLine(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.err = err
			}
			return backend.Event{}, err
		}
		if data == "" {
			continue
		}

		if err := s.decode(data); err != nil {
			s.err = err
			return backend.Event{}, err
		}
	}
}

// nextLine waits for one data line. An empty line with a nil error means the
// feed ended cleanly after completion.
func (s *eventStream) nextLine(ctx context.Context) (string, error) {
	var idle <-chan time.Time
	if s.idle > 0 {
		timer := time.NewTimer(s.idle)
		defer timer.Stop()
		idle = timer.C
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-idle:
		return "", &backend.TimeoutError{Step: backend.StepStream, Timeout: s.idle}
	case data, ok := <-s.lines:
		if ok {
			return data, nil
		}
		if s.completed {
			if s.readErr != nil {
				s.logger.Debug("backend stream ended with read error after completion", "error", s.readErr)
			}
			s.finished = true
			return "", nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &backend.TruncatedError{Events: s.events, Cause: s.readErr}
	}
}

// decode turns one data line into zero or more pending events.
func (s *eventStream) decode(data string) error {
	if data == doneMarker {
		s.finished = true
		s.pending = append(s.pending, backend.Event{Type: backend.EventDone})
		return nil
	}

	var f frame
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return &backend.TranslationError{Step: backend.StepStream, Payload: data, Cause: err}
	}

	if len(f.Error) > 0 && string(f.Error) != "null" {
		s.finished = true
		s.pending = append(s.pending, backend.Event{Type: backend.EventError, Detail: string(f.Error)})
		return nil
	}

	msg := f.Message
	if msg == nil || msg.Author.Role != string(backend.RoleAssistant) {
		return nil
	}
	if ct := msg.Content.ContentType; ct != "" && ct != "text" {
		return nil
	}

	if len(msg.Content.Parts) > 0 {
		var text string
		if err := json.Unmarshal(msg.Content.Parts[0], &text); err != nil {
			return &backend.TranslationError{
				Step:    backend.StepStream,
				Payload: data,
				Cause:   errors.New("assistant message part is not a string"),
			}
		}

		if delta := s.delta(msg.ID, text); delta != "" {
			s.pending = append(s.pending, backend.Event{
				Type:      backend.EventDelta,
				MessageID: msg.ID,
				Text:      delta,
			})
		}
	}

	if msg.Status == statusFinished && !s.completed {
		s.completed = true
		s.pending = append(s.pending, backend.Event{Type: backend.EventComplete, MessageID: msg.ID})
	}

	return nil
}

// delta returns the part of the cumulative text beyond what was already
// emitted for the message.
func (s *eventStream) delta(id, text string) string {
	prev := s.emitted[id]
	s.emitted[id] = text

	if strings.HasPrefix(text, prev) {
		return text[len(prev):]
	}

	// The backend rewrote earlier text. Skip as many characters as were
	// already sent.
	skip := utf8.RuneCountInString(prev)
	for i := range text {
		if skip == 0 {
			return text[i:]
		}
		skip--
	}
	return ""
}

// Close releases the backend connection. Safe to call more than once and
// concurrently with Next.
func (s *eventStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		s.cancel()
		err = s.body.Close()
	})
	return err
}
