package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks secrets inside log values.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternProofToken  = "proof_token"
	PatternAPIKey      = "api_key"
	PatternHeaderToken = "header_token"
)

// NewRedactor returns a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: []redactPattern{
		{
			name:        PatternBearerToken,
			regex:       regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
			replacement: "Bearer ***",
		},
		{
			// Proof and sentinel tokens share the Fernet-style prefix.
			name:        PatternProofToken,
			regex:       regexp.MustCompile(`gAAAAA[a-zA-Z0-9\-_=+/]*`),
			replacement: "gAAAAA***",
		},
		{
			name:        PatternAPIKey,
			regex:       regexp.MustCompile(`sk-[a-zA-Z0-9\-_]+`),
			replacement: "sk-***",
		},
		{
			name:        PatternHeaderToken,
			regex:       regexp.MustCompile(`(?i)(openai-sentinel-[a-z\-]*token"?\s*[:=]\s*"?)[^\s",}]+`),
			replacement: "${1}***",
		},
	}}
}

// RedactString masks every secret found in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// sensitiveKey reports whether an attribute key names a secret, so the
// whole value is masked regardless of its shape.
func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range []string{"token", "authorization", "secret", "password", "credential", "proof"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactAttr returns a with secrets masked. Groups are walked recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}

	case slog.KindString:
		if sensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))

	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return slog.String(a.Key, r.RedactString(x.Error()))
		case []byte:
			return slog.String(a.Key, r.RedactString(string(x)))
		}
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// maskValue keeps a short prefix of a secret for correlation.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}

// redactHandler wraps a slog.Handler and redacts every attribute before it
// reaches the wrapped handler.
type redactHandler struct {
	next     slog.Handler
	redactor *Redactor
}

func newRedactHandler(next slog.Handler, r *Redactor) slog.Handler {
	return &redactHandler{next: next, redactor: r}
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.RedactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.RedactAttr(a)
	}
	return &redactHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}
