package devio

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured device error with context and errno mapping
type Error struct {
	Op    string        // Operation that failed (e.g., "read", "seek", "dial")
	Dev   string        // Device tag from What() ("" if not applicable)
	Code  ErrorCode     // High-level error category
	Errno syscall.Errno // OS errno (0 if not applicable)
	Msg   string        // Human-readable message
	Inner error         // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	var ctx string
	if e.Op != "" {
		ctx = fmt.Sprintf("op=%s", e.Op)
	}
	if e.Dev != "" {
		if ctx != "" {
			ctx += " "
		}
		ctx += fmt.Sprintf("dev=%s", e.Dev)
	}

	if ctx != "" {
		return fmt.Sprintf("devio: %s (%s)", msg, ctx)
	}
	return fmt.Sprintf("devio: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support by error code
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// ErrorCode represents the high-level, cross-platform error taxonomy
type ErrorCode string

const (
	ErrCodeInvalidArgument  ErrorCode = "invalid argument"
	ErrCodeNoMemory         ErrorCode = "out of memory"
	ErrCodePermissionDenied ErrorCode = "permission denied"
	ErrCodeBrokenPipe       ErrorCode = "broken pipe"
	ErrCodeBadMessage       ErrorCode = "bad message"
	ErrCodeTimedOut         ErrorCode = "timed out"
	ErrCodeNotSupported     ErrorCode = "operation not supported"
	ErrCodeReadFault        ErrorCode = "read fault"
	ErrCodeWriteFault       ErrorCode = "write fault"
	ErrCodeNoBufferSpace    ErrorCode = "no buffer space"
	ErrCodeConnectionReset  ErrorCode = "connection reset"
	ErrCodeAddressInUse     ErrorCode = "address in use"
	ErrCodeNotSeekable      ErrorCode = "seek on non-seekable device"
	ErrCodeInterrupted      ErrorCode = "interrupted"
	ErrCodeProtocol         ErrorCode = "protocol error"
)

// Error constructors

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Code: code,
		Msg:  msg,
	}
}

// NewErrorWithErrno creates a new structured error with errno
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{
		Op:    op,
		Code:  code,
		Errno: errno,
		Msg:   errno.Error(),
	}
}

// NewDeviceError creates a new error tagged with a device name
func NewDeviceError(op, dev string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Dev:  dev,
		Code: code,
		Msg:  msg,
	}
}

// WrapError wraps an existing error with device-layer context
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	// If it's already a structured error, just update the operation
	if de, ok := inner.(*Error); ok {
		return &Error{
			Op:    op,
			Dev:   de.Dev,
			Code:  de.Code,
			Errno: de.Errno,
			Msg:   de.Msg,
			Inner: de.Inner,
		}
	}

	// Map OS errors onto the taxonomy
	var errno syscall.Errno
	if errors.As(inner, &errno) {
		return &Error{
			Op:    op,
			Code:  mapErrnoToCode(errno),
			Errno: errno,
			Msg:   errno.Error(),
			Inner: inner,
		}
	}

	return &Error{
		Op:    op,
		Code:  ErrCodeReadFault,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// mapErrnoToCode maps OS errno to device error codes
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidArgument
	case syscall.ENOMEM:
		return ErrCodeNoMemory
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.EPIPE:
		return ErrCodeBrokenPipe
	case syscall.EBADMSG:
		return ErrCodeBadMessage
	case syscall.ETIMEDOUT:
		return ErrCodeTimedOut
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeNotSupported
	case syscall.ENOBUFS, syscall.ENOSPC:
		return ErrCodeNoBufferSpace
	case syscall.ECONNRESET:
		return ErrCodeConnectionReset
	case syscall.EADDRINUSE:
		return ErrCodeAddressInUse
	case syscall.ESPIPE:
		return ErrCodeNotSeekable
	case syscall.EINTR:
		return ErrCodeInterrupted
	default:
		return ErrCodeReadFault
	}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var devErr *Error
	if errors.As(err, &devErr) {
		return devErr.Code == code
	}
	return false
}

// IsErrno checks if an error matches a specific errno
func IsErrno(err error, errno syscall.Errno) bool {
	var devErr *Error
	if errors.As(err, &devErr) {
		return devErr.Errno == errno
	}
	return false
}
