package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports the progress of a fixed number of operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// SimpleProgress renders a single-line progress bar.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int64
	current int64
	started time.Time
	unit    string
	writer  io.Writer
}

// NewProgressReporter returns a reporter writing to w (default os.Stderr).
// unit names what is being counted, as in "solves/s".
func NewProgressReporter(w io.Writer, unit string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if unit == "" {
		unit = "ops"
	}
	return &SimpleProgress{writer: w, unit: unit}
}

func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.current = 0
	p.started = time.Now()
	p.render()
}

func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.render()
}

func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "\nerror: %v\n", err)
}

const progressBarWidth = 30

func (p *SimpleProgress) render() {
	if p.total <= 0 {
		return
	}
	filled := int(progressBarWidth * p.current / p.total)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)

	rate := 0.0
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}
	fmt.Fprintf(p.writer, "\r[%s] %d/%d %.1f %s/s", bar, p.current, p.total, rate, p.unit)
}
