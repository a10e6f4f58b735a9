// Package progress is the reporting surface of long multi-item operations.
package progress

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/gdcard/pkg/errors"
)

// Reporter receives progress of a multi-item operation and may ask it to stop.
type Reporter interface {
	Start(total int, text string)
	Advance()
	SetText(text string)
	// Canceled reports whether the observer asked the operation to stop.
	Canceled() bool
	Done()
}

// Confirmer asks a yes/no question before a destructive step.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, question string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// Always is a Confirmer that always agrees.
var Always = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// Nop discards progress and never cancels.
type Nop struct{}

func (Nop) Start(int, string) {}
func (Nop) Advance()          {}
func (Nop) SetText(string)    {}
func (Nop) Canceled() bool    { return false }
func (Nop) Done()             {}

// LogReporter logs progress through zerolog.
type LogReporter struct {
	mu        sync.Mutex
	logger    *zerolog.Logger
	total     int
	processed int
	text      string
	canceled  bool
}

// NewLogReporter returns a reporter writing to logger.
func NewLogReporter(logger *zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Start begins a run of total items.
func (r *LogReporter) Start(total int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total, r.processed, r.text = total, 0, text
	r.logger.Info().Int("total", total).Msg(text)
}

// Advance marks one more item processed.
func (r *LogReporter) Advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
	r.logger.Debug().Int("processed", r.processed).Int("total", r.total).Msg(r.text)
}

// SetText changes the status text.
func (r *LogReporter) SetText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
}

// Cancel asks the running operation to stop at the next item.
func (r *LogReporter) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = true
}

// Canceled reports whether Cancel was called.
func (r *LogReporter) Canceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// Done ends the run.
func (r *LogReporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debug().Int("processed", r.processed).Int("total", r.total).Msg("done")
}

// Processed returns the number of items processed so far.
func (r *LogReporter) Processed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed
}

// Check returns ErrCanceled when either ctx is done or r was canceled.
func Check(ctx context.Context, r Reporter) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(errors.ErrCanceled, err)
	}
	if r != nil && r.Canceled() {
		return errors.ErrCanceled
	}
	return nil
}
