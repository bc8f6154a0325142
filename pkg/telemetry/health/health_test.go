package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestNew_DefaultTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "zero uses default", timeout: 0, want: DefaultCheckTimeout},
		{name: "negative uses default", timeout: -time.Second, want: DefaultCheckTimeout},
		{name: "custom", timeout: 250 * time.Millisecond, want: 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.timeout).checkTimeout; got != tt.want {
				t.Errorf("checkTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegisterCheck_Replaces(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("backend", func(context.Context) error { return errors.New("down") })
	c.RegisterCheck("backend", func(context.Context) error { return nil })
	c.RegisterCheck("config", func(context.Context) error { return nil })

	if got := c.Names(); !reflect.DeepEqual(got, []string{"backend", "config"}) {
		t.Errorf("Names() = %v", got)
	}
	if s := c.CheckReadiness(context.Background()); s.Status != StatusReady {
		t.Errorf("status = %q, want ready", s.Status)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{name: "no checks", want: StatusReady},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"backend": func(context.Context) error { return nil },
			},
			want: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"backend": func(context.Context) error { return errors.New("403 from challenge endpoint") },
				"config":  func(context.Context) error { return nil },
			},
			want: StatusDegraded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}
			s := c.CheckReadiness(context.Background())
			if s.Status != tt.want {
				t.Errorf("status = %q, want %q", s.Status, tt.want)
			}
			if len(s.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(s.Checks), len(tt.checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	s := c.CheckReadiness(context.Background())
	res := s.Checks["slow"]
	if res.Status != StatusUnhealthy {
		t.Fatalf("status = %q, want unhealthy", res.Status)
	}
	if res.Message != ErrCheckTimeout.Error() {
		t.Errorf("message = %q", res.Message)
	}
}

func TestLivenessHandler(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("backend", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != StatusOK || len(body.Checks) != 0 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "ready", wantCode: http.StatusOK},
		{name: "degraded", err: errors.New("probe failed"), wantCode: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			c.RegisterCheck("backend", func(context.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
			var body HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if tt.err != nil && body.Checks["backend"].Message != tt.err.Error() {
				t.Errorf("message = %q", body.Checks["backend"].Message)
			}
		})
	}
}

func TestReadinessHandler_Head(t *testing.T) {
	c := New(time.Second)
	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Error("HEAD response has a body")
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.0", "abc123", "2026-10-01").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("unexpected info %+v", info)
	}
}
