package kasa

import (
	"errors"
	"fmt"
	"net"
)

// ErrConflictingState is returned when both on and off are requested at once.
var ErrConflictingState = errors.New("on and off are mutually exclusive")

// ConnectError means the plug could not be reached at all.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TimeoutError means the plug did not answer within the configured bound.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IOError is a socket failure in the middle of an exchange.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ProtocolError is a malformed frame or a plaintext that is not JSON.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: %s: %v", e.Reason, e.Err)
	}
	return "protocol: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

type ResponseErrorKind int

const (
	// DeviceError means the plug reported a nonzero err_code.
	DeviceError ResponseErrorKind = iota
	MissingField
	MistypedField
	// ScanNotReady means scan results never showed up while polling.
	ScanNotReady
)

func (k ResponseErrorKind) String() string {
	switch k {
	case DeviceError:
		return "device error"
	case MissingField:
		return "missing field"
	case MistypedField:
		return "mistyped field"
	case ScanNotReady:
		return "scan not ready"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ResponseError is a well formed reply that does not carry what was asked for.
type ResponseError struct {
	Kind   ResponseErrorKind
	Module string
	Action string
	Field  string
	Code   int
}

func (e *ResponseError) Error() string {
	switch e.Kind {
	case DeviceError:
		return fmt.Sprintf("%s.%s: smartplug reported the command has failed (err_code = %d)", e.Module, e.Action, e.Code)
	case ScanNotReady:
		return fmt.Sprintf("%s.%s: scan results not ready (err_code = %d)", e.Module, e.Action, e.Code)
	}
	return fmt.Sprintf("%s.%s: %s %q", e.Module, e.Action, e.Kind, e.Field)
}

// err_code values plugs send for a module or method they do not have.
const (
	ErrCodeModuleNotSupported = -1
	ErrCodeMethodNotSupported = -2
)

// Unsupported reports whether err is the plug saying it lacks the module or
// method, like the emeter on an HS100.
func Unsupported(err error) bool {
	var re *ResponseError
	if !errors.As(err, &re) || re.Kind != DeviceError {
		return false
	}
	return re.Code == ErrCodeModuleNotSupported || re.Code == ErrCodeMethodNotSupported
}

// classify turns a raw socket error into one of the typed errors above.
func classify(op string, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}
	return &IOError{Op: op, Err: err}
}
