package storage

import (
	"context"
	"errors"
)

// Result is the outcome of a backend save or load. Exactly one of Success,
// Cancelled, or a non-nil Err holds.
type Result struct {
	Success   bool
	Cancelled bool
	Err       error
	// Target is where the project was written or read.
	Target string
}

// LoadResult carries the loaded project on success.
type LoadResult struct {
	Result
	Project *Project
}

// Outcome folds err into a Result. Declined grants and cancelled contexts
// become Cancelled.
func Outcome(target string, err error) Result {
	switch {
	case err == nil:
		return Result{Success: true, Target: target}
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return Result{Cancelled: true, Target: target}
	default:
		return Result{Err: err, Target: target}
	}
}

// Status is a short label for logs and tables.
func (r Result) Status() string {
	switch {
	case r.Success:
		return "ok"
	case r.Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Message returns the failure text, or "" for success and cancellation.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
