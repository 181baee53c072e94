package discovery

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of a discovery error
type ErrorType int

const (
	// ErrTypeTransport indicates a network-level failure (socket setup,
	// connection refused, unreachable host)
	ErrTypeTransport ErrorType = iota
	// ErrTypeProtocol indicates a malformed or unparseable device response
	ErrTypeProtocol
	// ErrTypeValidation indicates invalid caller input (bad pairing code,
	// bad address)
	ErrTypeValidation
	// ErrTypeCapability indicates the operation is unsupported on this
	// platform or interface
	ErrTypeCapability
	// ErrTypeTimeout indicates the target was reached but did not answer
	// in time
	ErrTypeTimeout
	// ErrTypeNoResponse indicates no identification method got an answer
	// from the target
	ErrTypeNoResponse
	// ErrTypeUnknown indicates an unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeCapability:
		return "Capability Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeNoResponse:
		return "No Response"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failure in one discovery operation. Transport and
// protocol errors are recoverable and travel the event stream; validation
// errors end the single-shot sessions that take caller input.
type Error struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Addr    string    // Target address (when the error concerns one device)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Addr != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Addr)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a raw network error and wraps it with the
// matching discovery error type. Timeouts are distinguished from refusals
// and unreachable hosts so callers can report "device did not answer"
// separately from "nothing is listening".
func ClassifyNetworkError(err error, addr string) *Error {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &Error{
			Type:    ErrTypeTimeout,
			Message: "target did not respond in time",
			Addr:    addr,
			Err:     err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &Error{
				Type:    ErrTypeNoResponse,
				Message: "connection refused",
				Addr:    addr,
				Err:     err,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) || errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &Error{
				Type:    ErrTypeTransport,
				Message: "host unreachable",
				Addr:    addr,
				Err:     err,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Classify the underlying transport error instead
		return ClassifyNetworkError(urlErr.Err, addr)
	}

	return &Error{
		Type:    ErrTypeTransport,
		Message: "network error",
		Addr:    addr,
		Err:     err,
	}
}

// NewTransportError creates a transport-level error with automatic
// classification of the underlying cause
func NewTransportError(message string, addr string, err error) *Error {
	classified := ClassifyNetworkError(err, addr)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &Error{Type: ErrTypeTransport, Message: message, Addr: addr, Err: err}
}

// NewProtocolError creates an error for malformed device responses
func NewProtocolError(message string, addr string, err error) *Error {
	return &Error{Type: ErrTypeProtocol, Message: message, Addr: addr, Err: err}
}

// NewValidationError creates an error for invalid caller input
func NewValidationError(message string) *Error {
	return &Error{Type: ErrTypeValidation, Message: message}
}

// NewCapabilityError creates an error for operations the platform cannot
// perform
func NewCapabilityError(message string, err error) *Error {
	return &Error{Type: ErrTypeCapability, Message: message, Err: err}
}

// NewNoResponseError creates an error for targets that answered nothing
func NewNoResponseError(addr string) *Error {
	return &Error{
		Type:    ErrTypeNoResponse,
		Message: "no identification method got a response",
		Addr:    addr,
	}
}

// NewTimeoutError creates an error for targets that were reached but never
// answered in time
func NewTimeoutError(addr string) *Error {
	return &Error{
		Type:    ErrTypeTimeout,
		Message: "target did not respond before the deadline",
		Addr:    addr,
	}
}

func typeOf(err error) (ErrorType, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Type, true
	}
	return ErrTypeUnknown, false
}

// IsTransportError checks if an error is a transport error (including
// timeout and no-response)
func IsTransportError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrTypeTransport || t == ErrTypeTimeout || t == ErrTypeNoResponse)
}

// IsProtocolError checks if an error is a protocol error
func IsProtocolError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeProtocol
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeValidation
}

// IsCapabilityError checks if an error is a capability error
func IsCapabilityError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeCapability
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeTimeout
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var de *Error
	if !errors.As(err, &de) {
		return err.Error()
	}

	switch de.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeNoResponse:
		return "No response on any known port"
	case ErrTypeTransport:
		return "Network error - check connection"
	case ErrTypeProtocol:
		return "Device sent an unintelligible response"
	case ErrTypeValidation:
		return de.Message
	case ErrTypeCapability:
		return de.Message
	default:
		return de.Message
	}
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for
// an error
func GetTroubleshootingHint(err error) string {
	var de *Error
	if !errors.As(err, &de) {
		return "An unexpected error occurred. Please try again."
	}

	switch de.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The device did not respond in time.",
			"Troubleshooting:",
			"  • Check that the device is powered on (not just standby)",
			"  • Verify you're on the same network as the device",
			"  • Some TVs disable network services in eco mode",
		}, "\n")

	case ErrTypeNoResponse:
		return strings.Join([]string{
			"No identification method got an answer from this address.",
			"Troubleshooting:",
			"  • Verify the address is correct",
			"  • Enable the device's network remote/control setting",
			"  • Try again while the device screen is on",
		}, "\n")

	case ErrTypeTransport:
		return strings.Join([]string{
			"Network communication failed.",
			"Troubleshooting:",
			"  • Check your network connection",
			"  • Guest Wi-Fi networks often isolate clients from devices",
			"  • Multicast discovery may be blocked on corporate networks",
		}, "\n")

	case ErrTypeValidation:
		return "The input is invalid. Check the error message for details."

	case ErrTypeCapability:
		return "This operation is not supported on this platform or network interface."

	case ErrTypeProtocol:
		return strings.Join([]string{
			"Failed to parse the device's response.",
			"This may indicate unusual firmware.",
			"Troubleshooting:",
			"  • Try scanning again",
			"  • Report the device model if this persists",
		}, "\n")

	default:
		return "An error occurred. Please check the error message for details."
	}
}
