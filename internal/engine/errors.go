package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by Convert before EnsureLoaded succeeded.
	ErrNotLoaded = errors.New("engine not loaded")
	// ErrClosed is returned once the handle has been closed.
	ErrClosed = errors.New("engine closed")
	// ErrNoOutput marks a run that exited cleanly without producing the output file.
	ErrNoOutput = errors.New("engine produced no output")
	// ErrInvalidOutput marks an output file the prober could not read as media.
	ErrInvalidOutput = errors.New("engine output has no media streams")
	// ErrInvalidName marks a workspace name that is not a plain file name.
	ErrInvalidName = errors.New("invalid workspace file name")
)

// InitError reports an engine load that never reached StateReady. The next
// EnsureLoaded call starts a fresh attempt.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("engine init failed: %v", e.Err)
	}
	return fmt.Sprintf("engine init failed (%s): %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for logs and metrics.
func (e *InitError) ErrorKind() string { return "engine_init" }

// ConversionErrorKind names the step of a conversion that failed.
type ConversionErrorKind string

const (
	WriteFailed ConversionErrorKind = "write_failed"
	ExecFailed  ConversionErrorKind = "exec_failed"
	ReadFailed  ConversionErrorKind = "read_failed"
)

// ConversionError reports a failed conversion for one file.
type ConversionError struct {
	Kind ConversionErrorKind
	File string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %s: %v", e.File, e.Kind, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for logs and metrics.
func (e *ConversionError) ErrorKind() string { return string(e.Kind) }
