package hcdevice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/hcat/internal/atcmd"
)

// Error types for module configuration operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNoResponse indicates the module sent nothing within the response delay
	ErrTypeNoResponse ErrorType = iota
	// ErrTypeMalformedResponse indicates a reply that does not begin with OK
	ErrTypeMalformedResponse
	// ErrTypeValidation indicates an invalid value, rejected before any I/O
	ErrTypeValidation
	// ErrTypeLinkDesync indicates the module accepted new UART settings but
	// no longer answers at them
	ErrTypeLinkDesync
	// ErrTypePrecondition indicates the session is not in the Detected state
	ErrTypePrecondition
	// ErrTypeLink indicates a local serial port failure (open, write, read)
	ErrTypeLink
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNoResponse:
		return "No Response"
	case ErrTypeMalformedResponse:
		return "Malformed Response"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeLinkDesync:
		return "Link Desync"
	case ErrTypePrecondition:
		return "Precondition Failed"
	case ErrTypeLink:
		return "Link Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred while talking to the module
type DeviceError struct {
	Type      ErrorType         // Category of error
	Message   string            // Human-readable error message
	Command   atcmd.CommandKind // Command that failed (if applicable)
	Response  []byte            // Raw reply (if any)
	Code      *atcmd.ErrorCode  // HC-05 ERROR:(x) code (if present)
	Err       error             // Underlying error (if any)
	Retryable bool              // Whether the error is retryable
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Code != nil {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewNoResponseError creates an error for a command that got no reply
func NewNoResponseError(kind atcmd.CommandKind) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeNoResponse,
		Message:   fmt.Sprintf("no reply to %s", kind),
		Command:   kind,
		Retryable: true,
	}
}

// NewMalformedResponseError creates an error for a reply that is not OK.
// HC-05 error codes in the reply are decoded.
func NewMalformedResponseError(kind atcmd.CommandKind, resp []byte) *DeviceError {
	e := &DeviceError{
		Type:      ErrTypeMalformedResponse,
		Message:   fmt.Sprintf("%s rejected: %q", kind, strings.TrimSpace(string(resp))),
		Command:   kind,
		Response:  append([]byte(nil), resp...),
		Retryable: false,
	}
	if code, ok := atcmd.ParseErrorCode(resp); ok {
		e.Code = &code
	}
	return e
}

// NewValidationError creates a validation error
func NewValidationError(message string) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeValidation,
		Message:   message,
		Retryable: false,
	}
}

// NewLinkDesyncError creates the error returned when the post-change echo fails
func NewLinkDesyncError(kind atcmd.CommandKind, baudRate int, parity atcmd.Parity) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeLinkDesync,
		Message:   fmt.Sprintf("module accepted %s but does not answer at %d baud, parity %s", kind, baudRate, parity),
		Command:   kind,
		Retryable: false,
	}
}

// NewPreconditionError creates an error for an operation attempted in the wrong state
func NewPreconditionError(state State) *DeviceError {
	return &DeviceError{
		Type:      ErrTypePrecondition,
		Message:   fmt.Sprintf("module not detected (session is %s); run detection first", state),
		Retryable: false,
	}
}

// NewLinkError wraps a serial port failure
func NewLinkError(message string, err error) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeLink,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr, true
	}
	return nil, false
}

func isType(err error, t ErrorType) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == t
}

// IsNoResponse checks if an error is a missing reply
func IsNoResponse(err error) bool {
	return isType(err, ErrTypeNoResponse)
}

// IsMalformedResponse checks if an error is a rejected or garbled reply
func IsMalformedResponse(err error) bool {
	return isType(err, ErrTypeMalformedResponse)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation)
}

// IsLinkDesync checks if an error is a failed post-change echo
func IsLinkDesync(err error) bool {
	return isType(err, ErrTypeLinkDesync)
}

// IsPreconditionError checks if an error is a state precondition failure
func IsPreconditionError(err error) bool {
	return isType(err, ErrTypePrecondition)
}

// IsLinkError checks if an error is a local serial port failure
func IsLinkError(err error) bool {
	return isType(err, ErrTypeLink)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeNoResponse:
		return strings.Join([]string{
			"The module did not answer.",
			"Troubleshooting:",
			"  • Check TX/RX are crossed (module TX to adapter RX)",
			"  • HC-05 only answers AT commands with KEY/EN held high",
			"  • Make sure no Bluetooth peer is connected (LED blinking, not solid)",
			"  • Run detection again; the module may have been power cycled",
		}, "\n")

	case ErrTypeMalformedResponse:
		hint := []string{"The module rejected the command."}
		if devErr.Code != nil {
			hint = append(hint, "Module error: "+devErr.Code.String())
		}
		hint = append(hint,
			"Troubleshooting:",
			"  • Check the value is supported by this firmware",
			"  • Some HC-06 firmware does not support role or parity commands",
		)
		return strings.Join(hint, "\n")

	case ErrTypeLinkDesync:
		return strings.Join([]string{
			"The module accepted the new UART settings but stopped answering.",
			"Troubleshooting:",
			"  • Check the USB adapter supports the new baud rate",
			"  • Power cycle the module and run detection again",
			"  • The module keeps the new settings; detection will find them",
		}, "\n")

	case ErrTypePrecondition:
		return "Run 'hcat-cfg detect' first. After a failed UART change the module must be detected again."

	case ErrTypeLink:
		return strings.Join([]string{
			"The serial port failed.",
			"Troubleshooting:",
			"  • Check the adapter is plugged in: hcat-cfg ports",
			"  • Close any other program using the port (screen, minicom, Arduino IDE)",
			"  • On Linux add your user to the dialout group",
		}, "\n")

	case ErrTypeValidation:
		return "The value is invalid for this module. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeNoResponse:
		return "Module not responding"
	case ErrTypeMalformedResponse:
		if devErr.Code != nil {
			return "Module rejected command: " + devErr.Code.String()
		}
		return "Module rejected command"
	case ErrTypeLinkDesync:
		return "Module lost after UART change - detect again"
	case ErrTypePrecondition:
		return "Module not detected"
	case ErrTypeLink:
		return "Serial port error - " + devErr.Message
	case ErrTypeValidation:
		return devErr.Message
	default:
		return devErr.Message
	}
}
