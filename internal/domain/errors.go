package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	// ErrTransport marks an external collaborator (LLM, search, store) as
	// unreachable or rejecting the call.
	ErrTransport = fmt.Errorf("transport failure")
	// ErrParse marks structured model output that did not match the
	// expected shape. Callers treat it as recoverable and fall back to
	// documented defaults.
	ErrParse = fmt.Errorf("structured output parse failure")
	// ErrNoSpecialist means no registered specialist volunteered for a task.
	ErrNoSpecialist = fmt.Errorf("no specialist can handle task")

	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrRateLimit    = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid  = fmt.Errorf("authentication failed")
	ErrToolFailure  = fmt.Errorf("tool execution failed")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrMemoryStore  = fmt.Errorf("memory store failed")
	ErrKnowledge    = fmt.Errorf("knowledge store operation failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Decomposer.Decompose")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRecoverable reports whether err is one of the faults the orchestration
// core degrades on (documented default instead of aborting the turn).
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrParse) ||
		errors.Is(err, ErrRateLimit)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown      ErrorCode = "UNKNOWN"
	CodeTransport    ErrorCode = "TRANSPORT"
	CodeParse        ErrorCode = "PARSE"
	CodeNoSpecialist ErrorCode = "NO_SPECIALIST"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeRateLimit    ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid  ErrorCode = "AUTH_INVALID"
	CodeToolFailure  ErrorCode = "TOOL_FAILURE"
	CodeConfigLoad   ErrorCode = "CONFIG_LOAD"
	CodeMemoryStore  ErrorCode = "MEMORY_STORE"
	CodeKnowledge    ErrorCode = "KNOWLEDGE"
)

var errorCodeMap = map[error]ErrorCode{
	ErrTransport:    CodeTransport,
	ErrParse:        CodeParse,
	ErrNoSpecialist: CodeNoSpecialist,
	ErrNotFound:     CodeNotFound,
	ErrInvalidInput: CodeInvalidInput,
	ErrRateLimit:    CodeRateLimit,
	ErrAuthInvalid:  CodeAuthInvalid,
	ErrToolFailure:  CodeToolFailure,
	ErrConfigLoad:   CodeConfigLoad,
	ErrMemoryStore:  CodeMemoryStore,
	ErrKnowledge:    CodeKnowledge,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
