// Package errors defines the structured error types used across the
// virtualized list engine. Every fetch-path failure is classified into
// one of a small set of error types so that callers (and the error
// event surface) can react without string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of engine errors.
type ErrorType string

const (
	// ErrorTypeAdapter marks failures raised by the caller-supplied
	// data adapter (network problems, backend rejections).
	ErrorTypeAdapter ErrorType = "adapter"
	// ErrorTypeTimeout marks range fetches that exceeded the configured
	// fetch timeout.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeMalformed marks adapter responses that resolved but
	// lacked a usable item payload for the active strategy.
	ErrorTypeMalformed ErrorType = "malformed_response"
	// ErrorTypeConcurrency marks the soft condition of a request being
	// queued behind the concurrent-request cap. Never user-fatal.
	ErrorTypeConcurrency ErrorType = "concurrency_limit"
	// ErrorTypeConfig marks invalid configuration. The only fatal
	// category: it is raised at construction time, never mid-scroll.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeInternal marks bugs and impossible states.
	ErrorTypeInternal ErrorType = "internal"
)

// EngineError is a structured error with classification and fetch context.
type EngineError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Recoverable bool
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *EngineError) Is(target error) bool {
	var t *EngineError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithRange records the attempted range on the error.
func (e *EngineError) WithRange(start, end int) *EngineError {
	return e.WithContext("range_start", start).WithContext("range_end", end)
}

// WithComponent adds component context.
func (e *EngineError) WithComponent(component string) *EngineError {
	e.Component = component

	return e
}

// Error creation functions

// NewAdapterError wraps a failure from the supplied read function.
func NewAdapterError(message string, cause error) *EngineError {
	return &EngineError{
		Type:        ErrorTypeAdapter,
		Code:        ErrCodeAdapterFailed,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewTimeoutError creates a fetch-timeout error.
func NewTimeoutError(message string, cause error) *EngineError {
	return &EngineError{
		Type:        ErrorTypeTimeout,
		Code:        ErrCodeFetchTimeout,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewMalformedResponseError creates an error for an adapter response
// that resolved without a usable items payload.
func NewMalformedResponseError(message string) *EngineError {
	return &EngineError{
		Type:        ErrorTypeMalformed,
		Code:        ErrCodeMalformedResponse,
		Message:     message,
		Recoverable: true,
	}
}

// NewConcurrencyLimitError creates the soft queued-behind-cap error.
// It is observable through metrics but never surfaced as a failure.
func NewConcurrencyLimitError(queued int) *EngineError {
	return (&EngineError{
		Type:        ErrorTypeConcurrency,
		Code:        ErrCodeRequestQueued,
		Message:     "request queued behind concurrency cap",
		Recoverable: true,
	}).WithContext("queued", queued)
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *EngineError {
	return &EngineError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *EngineError {
	return &EngineError{
		Type:        ErrorTypeInternal,
		Code:        ErrCodeInternal,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Classification predicates

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Recoverable
	}

	return false
}

// IsTimeout checks if an error is a fetch timeout.
func IsTimeout(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Type == ErrorTypeTimeout
	}

	return false
}

// IsAdapterError checks if an error originated in the data adapter.
func IsAdapterError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Type == ErrorTypeAdapter
	}

	return false
}

// IsMalformedResponse checks if an error is a malformed adapter response.
func IsMalformedResponse(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Type == ErrorTypeMalformed
	}

	return false
}

// IsConfigError checks if an error is a construction-time config error.
func IsConfigError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Type == ErrorTypeConfig
	}

	return false
}

// Common error codes.
const (
	ErrCodeAdapterFailed     = "ERR_ADAPTER_FAILED"
	ErrCodeFetchTimeout      = "ERR_FETCH_TIMEOUT"
	ErrCodeMalformedResponse = "ERR_MALFORMED_RESPONSE"
	ErrCodeRequestQueued     = "ERR_REQUEST_QUEUED"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeUnknownStrategy   = "ERR_UNKNOWN_STRATEGY"
	ErrCodeInvalidRange      = "ERR_INVALID_RANGE"
	ErrCodeInternal          = "ERR_INTERNAL"
)
