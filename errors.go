package diablo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Sentinel errors for common engine error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidConfig indicates the provided configuration is invalid or
	// incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrGenerationUnavailable indicates the external generation collaborator
	// failed, timed out, or was never configured. Operations that can degrade
	// return evidence-only results instead; operations that cannot return
	// this error.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrUngroundedContent indicates generated content failed citation
	// verification after the bounded retry and was rejected. Rejected
	// content is never released.
	ErrUngroundedContent = errors.New("generated content could not be grounded")

	// ErrCorpusUnavailable indicates the corpus source failed to produce a
	// snapshot. The previous snapshot, if any, stays live.
	ErrCorpusUnavailable = errors.New("corpus source unavailable")
)

// Error kinds categorize errors by their type.
const (
	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindRetrieval represents errors raised while querying the corpus.
	KindRetrieval = "retrieval"

	// KindGeneration represents errors from the external generation call.
	KindGeneration = "generation"

	// KindVerification represents citation-verification rejections.
	KindVerification = "verification"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindTimeout represents errors related to operation timeouts.
	KindTimeout = "timeout"

	// KindInternal represents internal engine errors.
	KindInternal = "internal"
)

// EngineError is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of
// error.
//
// EngineError implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
type EngineError struct {
	// Op is the operation that failed (e.g., "Engine.Lesson").
	Op string

	// Kind categorizes the error (e.g., KindGeneration, KindValidation).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *EngineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("diablo: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("diablo: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("diablo: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error matching for EngineError, allowing comparison based
// on the underlying error or the EngineError itself.
func (e *EngineError) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*EngineError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a new EngineError with the provided context added.
func (e *EngineError) WithContext(ctx map[string]any) *EngineError {
	newErr := *e
	if newErr.Context == nil {
		newErr.Context = make(map[string]any)
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewValidationError creates a new EngineError with KindValidation.
func NewValidationError(op string, err error) *EngineError {
	return &EngineError{
		Op:   op,
		Kind: KindValidation,
		Err:  err,
	}
}

// NewRetrievalError creates a new EngineError with KindRetrieval.
func NewRetrievalError(op string, err error) *EngineError {
	return &EngineError{
		Op:   op,
		Kind: KindRetrieval,
		Err:  err,
	}
}

// NewGenerationError creates a new EngineError with KindGeneration.
func NewGenerationError(op string, err error) *EngineError {
	return &EngineError{
		Op:   op,
		Kind: KindGeneration,
		Err:  err,
	}
}

// NewVerificationError creates a new EngineError with KindVerification.
func NewVerificationError(op string, err error) *EngineError {
	return &EngineError{
		Op:   op,
		Kind: KindVerification,
		Err:  err,
	}
}

// NewConfigurationError creates a new EngineError with KindConfiguration.
func NewConfigurationError(op string, err error) *EngineError {
	return &EngineError{
		Op:   op,
		Kind: KindConfiguration,
		Err:  err,
	}
}

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. This is intended for use in defer statements so cleanup
// errors are not silently ignored. If logger is nil, slog.Default() is used.
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
