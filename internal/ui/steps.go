package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StepReporter shows a sequence of steps on w, one line per finished step.
// With animate set, the running step gets a spinner; otherwise only the
// final lines are written, which keeps non-terminal output clean.
type StepReporter struct {
	mu      sync.Mutex
	w       io.Writer
	animate bool

	label   string
	started time.Time
	spinner *Spinner
}

// NewStepReporter creates a reporter writing to w.
func NewStepReporter(w io.Writer, animate bool) *StepReporter {
	return &StepReporter{w: w, animate: animate}
}

// Begin starts a step. A step still running is marked successful first.
func (r *StepReporter) Begin(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishLocked(SpinnerSuccess)
	r.label = label
	r.started = time.Now()
	if r.animate {
		r.spinner = NewSpinner(r.w, label)
		r.spinner.Start()
	}
}

// Succeed marks the running step as done.
func (r *StepReporter) Succeed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked(SpinnerSuccess)
}

// Fail marks the running step as failed.
func (r *StepReporter) Fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked(SpinnerFailed)
}

// Warn prints a warning line below the steps.
func (r *StepReporter) Warn(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s %s\n", WarningStyle().Render(SymbolWarning), fmt.Sprintf(format, args...))
}

func (r *StepReporter) finishLocked(state SpinnerState) {
	if r.label == "" {
		return
	}
	if r.spinner != nil {
		r.spinner.finish(state)
		r.spinner = nil
	} else {
		fmt.Fprintln(r.w, FormatStep(state, r.label, time.Since(r.started)))
	}
	r.label = ""
}
