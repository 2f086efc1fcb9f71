package vtprobe

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Thread-introspection protocol error codes as reported by the host.
const (
	TI_OK                      uint32 = 0
	TI_INVALID_THREAD          uint32 = 10
	TI_THREAD_NOT_SUSPENDED    uint32 = 13
	TI_THREAD_SUSPENDED        uint32 = 14
	TI_THREAD_NOT_ALIVE        uint32 = 15
	TI_OPAQUE_FRAME            uint32 = 32
	TI_NOT_AVAILABLE           uint32 = 98
	TI_MUST_POSSESS_CAPABILITY uint32 = 99
	TI_OUT_OF_MEMORY           uint32 = 110
	TI_INVALID_ENVIRONMENT     uint32 = 116
)

// TIError wraps a raw introspection-protocol error code.
// Code stores the value exactly as returned by the host.
type TIError struct {
	Code    uint32
	message string // Optional custom message for specific errors
}

func (e TIError) Error() string {
	// Use custom message if available
	if e.message != "" {
		return e.message
	}

	if isProductionEnv() {
		return e.sanitizedError()
	}
	return e.detailedError()
}

// detailedError provides full error context for development
func (e TIError) detailedError() string {
	switch e.Code {
	case TI_OK:
		return "ti: ok"
	case TI_INVALID_THREAD:
		return "ti: invalid thread (TI_INVALID_THREAD) - operation not defined for this kind of thread"
	case TI_THREAD_NOT_SUSPENDED:
		return "ti: thread not suspended (TI_THREAD_NOT_SUSPENDED) - target must be suspended first"
	case TI_THREAD_SUSPENDED:
		return "ti: thread already suspended (TI_THREAD_SUSPENDED) - double suspend"
	case TI_THREAD_NOT_ALIVE:
		return "ti: thread not alive (TI_THREAD_NOT_ALIVE) - target has exited or never started"
	case TI_OPAQUE_FRAME:
		return "ti: opaque frame (TI_OPAQUE_FRAME) - no interpretable frame at the requested depth"
	case TI_NOT_AVAILABLE:
		return "ti: not available (TI_NOT_AVAILABLE) - feature unsupported by this host"
	case TI_MUST_POSSESS_CAPABILITY:
		return "ti: missing capability (TI_MUST_POSSESS_CAPABILITY) - capability was not negotiated at attach"
	case TI_OUT_OF_MEMORY:
		return "ti: out of memory (TI_OUT_OF_MEMORY) - host could not allocate"
	case TI_INVALID_ENVIRONMENT:
		return "ti: invalid environment (TI_INVALID_ENVIRONMENT) - introspection environment is detached"
	default:
		return fmt.Sprintf("ti: unknown error code %d - outside the documented protocol set", e.Code)
	}
}

// sanitizedError provides minimal error information for production
func (e TIError) sanitizedError() string {
	switch e.Code {
	case TI_OK:
		return "ti: ok"
	case TI_INVALID_THREAD:
		return "ti: invalid thread"
	case TI_THREAD_NOT_SUSPENDED:
		return "ti: thread not suspended"
	case TI_THREAD_SUSPENDED:
		return "ti: thread already suspended"
	case TI_THREAD_NOT_ALIVE:
		return "ti: thread not alive"
	case TI_OPAQUE_FRAME:
		return "ti: opaque frame"
	case TI_NOT_AVAILABLE:
		return "ti: not available"
	case TI_MUST_POSSESS_CAPABILITY:
		return "ti: missing capability"
	case TI_OUT_OF_MEMORY:
		return "ti: out of memory"
	case TI_INVALID_ENVIRONMENT:
		return "ti: invalid environment"
	default:
		return "ti: introspection error"
	}
}

// isProductionEnv checks if we're running in production environment
func isProductionEnv() bool {
	env := os.Getenv("VTPROBE_ENV")
	if env == "production" || env == "prod" {
		return true
	}

	// Check if debug mode is explicitly disabled
	if debug := os.Getenv("VTPROBE_DEBUG"); debug != "" {
		if val, err := strconv.ParseBool(debug); err == nil && !val {
			return true
		}
	}

	return false
}

// Errf builds a TIError carrying a protocol code with a custom message.
func Errf(code uint32, format string, args ...any) error {
	return TIError{Code: code, message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err carries the given protocol code.
func IsCode(err error, code uint32) bool {
	var te TIError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// Common specific errors for API consumers
var (
	ErrNotVirtual      = TIError{Code: TI_INVALID_THREAD, message: "ti: handle does not name a virtual thread"}
	ErrNoVirtualKind   = TIError{Code: TI_NOT_AVAILABLE, message: "ti: host does not support virtual threads"}
	ErrDetached        = TIError{Code: TI_INVALID_ENVIRONMENT, message: "ti: agent is not attached"}
	ErrNilMountHandler = TIError{Code: TI_INVALID_ENVIRONMENT, message: "ti: mount handler is nil"}
)
