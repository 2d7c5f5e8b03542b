// Package progress reports the progress of submodule operations.
package progress

import (
	"fmt"
	"io"
	"time"
)

// Tracker interface defines methods for tracking operation progress
type Tracker interface {
	Start(operation string) *Operation
	Update(current, total int64)
	Complete()
	Error(err error)
}

// Status of a tracked operation
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Operation represents a tracked operation
type Operation struct {
	Name        string
	StartTime   time.Time
	Status      string
	LastCurrent int64
	LastTotal   int64
	Err         error
}

// Elapsed returns the time since the operation started
func (o *Operation) Elapsed() time.Duration {
	return time.Since(o.StartTime)
}

// DefaultTracker records progress without output
type DefaultTracker struct {
	CurrentOperation *Operation
}

// Start begins tracking a new operation
func (t *DefaultTracker) Start(operation string) *Operation {
	t.CurrentOperation = &Operation{
		Name:      operation,
		StartTime: time.Now(),
		Status:    StatusInProgress,
	}
	return t.CurrentOperation
}

// Update updates the progress of the current operation
func (t *DefaultTracker) Update(current, total int64) {
	if t.CurrentOperation == nil {
		return
	}
	t.CurrentOperation.LastCurrent = current
	t.CurrentOperation.LastTotal = total
}

// Complete marks the operation as completed
func (t *DefaultTracker) Complete() {
	if t.CurrentOperation != nil {
		t.CurrentOperation.Status = StatusCompleted
	}
}

// Error marks the operation as failed with an error
func (t *DefaultTracker) Error(err error) {
	if t.CurrentOperation != nil {
		t.CurrentOperation.Status = StatusFailed
		t.CurrentOperation.Err = err
	}
}

// ConsoleTracker implements Tracker for terminal output
type ConsoleTracker struct {
	w       io.Writer
	current *Operation
}

// NewConsoleTracker creates a tracker printing to w
func NewConsoleTracker(w io.Writer) *ConsoleTracker {
	return &ConsoleTracker{w: w}
}

// Start begins tracking a new operation
func (t *ConsoleTracker) Start(operation string) *Operation {
	t.current = &Operation{
		Name:      operation,
		StartTime: time.Now(),
		Status:    StatusInProgress,
	}
	fmt.Fprintf(t.w, "Starting: %s\n", operation)
	return t.current
}

// Update prints a step counter for the current operation
func (t *ConsoleTracker) Update(current, total int64) {
	if t.current == nil {
		return
	}
	t.current.LastCurrent = current
	t.current.LastTotal = total
	if total > 0 {
		fmt.Fprintf(t.w, "  [%d/%d] %s\n", current, total, t.current.Name)
	}
}

// Complete marks the current operation as completed
func (t *ConsoleTracker) Complete() {
	if t.current == nil {
		return
	}
	t.current.Status = StatusCompleted
	fmt.Fprintf(t.w, "Completed: %s (took %v)\n", t.current.Name, t.current.Elapsed().Round(time.Millisecond))
	t.current = nil
}

// Error marks the current operation as failed
func (t *ConsoleTracker) Error(err error) {
	if t.current == nil {
		return
	}
	t.current.Status = StatusFailed
	t.current.Err = err
	fmt.Fprintf(t.w, "Error: %s - %v\n", t.current.Name, err)
	t.current = nil
}

// Nop returns a tracker that discards progress
func Nop() Tracker {
	return &DefaultTracker{}
}
