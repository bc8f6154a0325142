package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name    string
		input   string
		want    string
		leaking string
	}{
		{
			name:    "bearer token",
			input:   "Authorization: Bearer abc.def-ghi",
			want:    "Authorization: Bearer ***",
			leaking: "abc.def",
		},
		{
			name:    "proof token",
			input:   "proof=gAAAAABWzI0MDAsIlR1ZSBKYW4=",
			want:    "proof=gAAAAA***",
			leaking: "WzI0MDAs",
		},
		{
			name:    "api key",
			input:   "key sk-proj-abc123XYZ in use",
			want:    "key sk-*** in use",
			leaking: "abc123XYZ",
		},
		{
			name:    "sentinel header in payload",
			input:   `{"openai-sentinel-chat-requirements-token":"c2VudGluZWw"}`,
			leaking: "c2VudGluZWw",
		},
		{
			name:  "plain text",
			input: "Hello, world",
			want:  "Hello, world",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactString(tt.input)
			if tt.want != "" && got != tt.want {
				t.Errorf("RedactString() = %q, want %q", got, tt.want)
			}
			if tt.leaking != "" && strings.Contains(got, tt.leaking) {
				t.Errorf("RedactString() leaked %q: %q", tt.leaking, got)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor()

	t.Run("sensitive key", func(t *testing.T) {
		a := r.RedactAttr(slog.String("requirements_token", "opaque-value-123"))
		if got := a.Value.String(); got != "opaq***" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("short sensitive value", func(t *testing.T) {
		a := r.RedactAttr(slog.String("auth_token", "abc"))
		if got := a.Value.String(); got != "***" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("error value", func(t *testing.T) {
		a := r.RedactAttr(slog.Any("error", errors.New("rejected Bearer xyz")))
		if got := a.Value.String(); got != "rejected Bearer ***" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("group", func(t *testing.T) {
		a := r.RedactAttr(slog.Group("headers", slog.String("authorization", "Bearer s3cr3t-token")))
		got := a.Value.Group()[0].Value.String()
		if strings.Contains(got, "s3cr3t") {
			t.Errorf("group value leaked: %q", got)
		}
	})

	t.Run("non-string untouched", func(t *testing.T) {
		a := r.RedactAttr(slog.Int("status", 502))
		if a.Value.Int64() != 502 {
			t.Errorf("got %v", a.Value)
		}
	})
}

func TestRedactHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Redact: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Slog().
		With("proof", "gAAAAABsecretanswer").
		Warn("backend rejected sk-live-123", "detail", "Bearer abcdef")

	out := buf.String()
	for _, secret := range []string{"secretanswer", "live-123", "abcdef"} {
		if strings.Contains(out, secret) {
			t.Errorf("output leaked %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "backend rejected") {
		t.Errorf("message lost: %s", out)
	}
}

func TestRedactHandler_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Slog().Info("raw", "detail", "Bearer abcdef")
	if !strings.Contains(buf.String(), "Bearer abcdef") {
		t.Errorf("expected unredacted output: %s", buf.String())
	}
}
