package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrUsage     = "USAGE"      // Bad command-line input, nothing touched yet
	ErrConfig    = "CONFIG"     // Invalid config file or value
	ErrAuth      = "AUTH"       // Remote host rejected the credential
	ErrHost      = "HOST"       // Host could not be resolved or reached
	ErrHostKey   = "HOST_KEY"   // Host key unknown or mismatched
	ErrKeyExists = "KEY_EXISTS" // Target key files already exist remotely
	ErrRemote    = "REMOTE"     // A remote command could not be executed
	ErrSSH       = "SSH"        // Anything else on the SSH layer
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitRuntime = 2
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// The rendered form is:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Usage creates an ErrUsage error. These are raised before any remote action.
func Usage(message string) *Error {
	return &Error{
		Code:       ErrUsage,
		Message:    message,
		Suggestion: "Usage: gitosis-keygen [options] <user@host> <target host>",
	}
}

// Error implements the error interface with the multi-line format above.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var keyErr *Error
	if errors.As(err, &keyErr) {
		return keyErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost structured Error in the chain,
// or an empty string.
func CodeOf(err error) string {
	var keyErr *Error
	if errors.As(err, &keyErr) {
		return keyErr.Code
	}
	return ""
}

// ExitCode maps an error to the process exit status.
// Input problems exit 1; every failure after argument parsing exits 2.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch CodeOf(err) {
	case ErrUsage, ErrConfig:
		return ExitUsage
	case "":
		// Unstructured errors only come out of flag/argument parsing.
		return ExitUsage
	default:
		return ExitRuntime
	}
}

// Summary renders an error as the one-line diagnostic written to stderr.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var keyErr *Error
	if !errors.As(err, &keyErr) {
		return "✗ " + firstLine(err.Error())
	}
	if keyErr.Cause == nil {
		return "✗ " + keyErr.Message
	}
	cause := keyErr.Cause.Error()
	var inner *Error
	if errors.As(keyErr.Cause, &inner) {
		cause = inner.Message
	}
	return fmt.Sprintf("✗ %s: %s", keyErr.Message, firstLine(cause))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
