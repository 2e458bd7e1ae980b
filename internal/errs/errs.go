// Package errs defines the error kinds surfaced by the annotation store and
// the pipeline engine.
//
// Every typed error unwraps to one of the sentinels below, so callers can use
// errors.Is to tell a malformed span from a failing stage from a broken
// pipeline configuration. Classify folds that into a single Kind.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for each kind.
var (
	// ErrInvalidSpan indicates malformed or out-of-bounds span offsets.
	ErrInvalidSpan = errors.New("invalid span")
	// ErrUnknownSpan indicates an operation on a span the store does not hold.
	ErrUnknownSpan = errors.New("unknown span")
	// ErrStage indicates a failure inside a stage's Process call.
	ErrStage = errors.New("stage failed")
	// ErrConfiguration indicates an unusable pipeline or stage configuration.
	ErrConfiguration = errors.New("invalid configuration")
)

// InvalidSpanError reports a span rejected at insertion time.
type InvalidSpanError struct {
	Type           string // Span type tag, may be empty
	Begin          int
	End            int
	DocumentLength int
	Reason         string
}

func (e *InvalidSpanError) Error() string {
	label := e.Type
	if label == "" {
		label = "<untyped>"
	}
	return fmt.Sprintf("invalid span %s[%d,%d) in document of length %d: %s",
		label, e.Begin, e.End, e.DocumentLength, e.Reason)
}

func (e *InvalidSpanError) Unwrap() error {
	return ErrInvalidSpan
}

// UnknownSpanError reports an update or removal aimed at a span that was never
// inserted into the store (or no longer lives there).
type UnknownSpanError struct {
	Type  string
	Begin int
	End   int
}

func (e *UnknownSpanError) Error() string {
	return fmt.Sprintf("span %s[%d,%d) is not held by this store", e.Type, e.Begin, e.End)
}

func (e *UnknownSpanError) Unwrap() error {
	return ErrUnknownSpan
}

// StageError wraps a failure raised while a stage processed a document.
type StageError struct {
	Stage string // Instance name of the failing stage
	Index int    // Position of the stage in the pipeline
	Err   error  // Underlying cause
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (#%d): %v", e.Stage, e.Index, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches ErrStage in addition to whatever the cause matches.
func (e *StageError) Is(target error) bool {
	return target == ErrStage
}

// ConfigurationError reports a stage or pipeline that cannot be built as
// declared.
type ConfigurationError struct {
	Stage   string // Stage id or instance name, if known
	Option  string // Offending option key, if any
	Message string
	Err     error // Underlying error, if any
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	switch {
	case e.Stage != "" && e.Option != "":
		return fmt.Sprintf("configuration of %s option %q: %s", e.Stage, e.Option, msg)
	case e.Stage != "":
		return fmt.Sprintf("configuration of %s: %s", e.Stage, msg)
	default:
		return fmt.Sprintf("configuration: %s", msg)
	}
}

func (e *ConfigurationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfiguration
}

// Is matches ErrConfiguration even when a cause is attached.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Configf builds a ConfigurationError for a stage option.
func Configf(stage, option, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Stage: stage, Option: option, Message: fmt.Sprintf(format, args...)}
}

// Kind groups errors by who has to act on them.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindConfiguration Kind = "configuration"
	KindInput         Kind = "input"
	KindStage         Kind = "stage"
)

// Classify reports the kind of err. Configuration problems win over input
// problems, which win over generic stage failures, so a stage that failed
// because it produced a malformed span is reported as bad input.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrInvalidSpan), errors.Is(err, ErrUnknownSpan):
		return KindInput
	case errors.Is(err, ErrStage):
		return KindStage
	default:
		return KindUnknown
	}
}
