// Package errors provides standardized error codes for the remote mouse host.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (server, session, lan, storage)
//   - error: The specific error type within that domain
//
// These codes are stable and can be used by front-ends and remote clients for
// programmatic error handling. Human-readable messages are provided alongside codes.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
// These are stable identifiers that callers can rely on for error handling.
const (
	// Server domain - control-server lifecycle errors
	CodeServerAlreadyRunning    = "server.already_running"    // Start called while server is up
	CodeServerNotRunning        = "server.not_running"        // Stop called with no live server
	CodeServerEntryPointMissing = "server.entrypoint_missing" // Control-server executable not found
	CodeServerStartupFailed     = "server.startup_failed"     // Spawned process exited during grace period

	// LAN domain - network resolution errors
	CodeLanNoFreePort = "lan.no_free_port" // No bindable port in the scanned range

	// Session domain - remote control session errors
	CodeSessionBusy           = "session.busy"            // Another controller holds the session slot
	CodeSessionInvalidMessage = "session.invalid_message" // Malformed or non-JSON control frame

	// Storage domain - state persistence errors
	CodeStorageOpenFailed   = "storage.open_failed"   // Database open failed
	CodeStorageQueryFailed  = "storage.query_failed"  // Database query failed
	CodeStorageStateCorrupt = "storage.state_corrupt" // Persisted server state unreadable (recovered locally)

	// General domain - catch-all errors
	CodeUnknown = "error.unknown" // Unknown error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "session.busy")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// If the error is a CodedError, returns its code.
// Falls back to CodeUnknown for unrecognized errors.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// GetMessage extracts a human-readable message from an error.
// If the error is a CodedError, returns its message.
// Otherwise, returns the error's Error() string.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Message
	}

	return err.Error()
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors for frequently used error types.

// AlreadyRunning creates a "server.already_running" error.
func AlreadyRunning(addr string) *CodedError {
	return New(CodeServerAlreadyRunning, fmt.Sprintf("server is already running on %s", addr))
}

// NotRunning creates a "server.not_running" error.
func NotRunning() *CodedError {
	return New(CodeServerNotRunning, "server is not running")
}

// EntryPointMissing creates a "server.entrypoint_missing" error.
func EntryPointMissing(path string, cause error) *CodedError {
	msg := fmt.Sprintf("control-server executable not found at %s", path)
	return Wrap(CodeServerEntryPointMissing, msg, cause)
}

// StartupFailed creates a "server.startup_failed" error.
// The message points the user at the server log for the actual failure reason.
func StartupFailed(logPath string) *CodedError {
	msg := "server failed to start"
	if logPath != "" {
		msg = fmt.Sprintf("server failed to start (check log: %s)", logPath)
	}
	return New(CodeServerStartupFailed, msg)
}

// NoFreePort creates a "lan.no_free_port" error.
func NoFreePort(start, end int) *CodedError {
	msg := fmt.Sprintf("no free ports available in range [%d, %d)", start, end)
	return New(CodeLanNoFreePort, msg)
}

// SessionBusy creates a "session.busy" error.
func SessionBusy() *CodedError {
	return New(CodeSessionBusy, "another controller is already driving the pointer")
}

// InvalidMessage creates a "session.invalid_message" error.
func InvalidMessage(cause error) *CodedError {
	return Wrap(CodeSessionInvalidMessage, "malformed control message", cause)
}

// StateCorrupt creates a "storage.state_corrupt" error.
// Callers never surface this: a corrupt record is cleared and treated as absence.
func StateCorrupt(reason string) *CodedError {
	return New(CodeStorageStateCorrupt, fmt.Sprintf("persisted server state unreadable: %s", reason))
}
