package devio

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("open", ErrCodeInvalidArgument, "bad mode string")

	if err.Op != "open" {
		t.Errorf("Expected Op=open, got %s", err.Op)
	}
	if err.Code != ErrCodeInvalidArgument {
		t.Errorf("Expected Code=ErrCodeInvalidArgument, got %s", err.Code)
	}

	expected := "devio: bad mode string (op=open)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("write", ErrCodeBrokenPipe, syscall.EPIPE)

	if err.Errno != syscall.EPIPE {
		t.Errorf("Expected Errno=EPIPE, got %v", err.Errno)
	}
	if err.Code != ErrCodeBrokenPipe {
		t.Errorf("Expected Code=ErrCodeBrokenPipe, got %s", err.Code)
	}
}

func TestDeviceError(t *testing.T) {
	err := NewDeviceError("read", "tcp", ErrCodeConnectionReset, "peer went away")

	expected := "devio: peer went away (op=read dev=tcp)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapErrorErrnoMapping(t *testing.T) {
	tests := []struct {
		errno syscall.Errno
		code  ErrorCode
	}{
		{syscall.EINVAL, ErrCodeInvalidArgument},
		{syscall.ENOMEM, ErrCodeNoMemory},
		{syscall.EACCES, ErrCodePermissionDenied},
		{syscall.EPIPE, ErrCodeBrokenPipe},
		{syscall.EBADMSG, ErrCodeBadMessage},
		{syscall.ETIMEDOUT, ErrCodeTimedOut},
		{syscall.EOPNOTSUPP, ErrCodeNotSupported},
		{syscall.ENOBUFS, ErrCodeNoBufferSpace},
		{syscall.ECONNRESET, ErrCodeConnectionReset},
		{syscall.EADDRINUSE, ErrCodeAddressInUse},
		{syscall.ESPIPE, ErrCodeNotSeekable},
		{syscall.EINTR, ErrCodeInterrupted},
	}

	for _, tt := range tests {
		err := WrapError("op", tt.errno)
		if err.Code != tt.code {
			t.Errorf("WrapError(%v).Code = %s, want %s", tt.errno, err.Code, tt.code)
		}
		if !IsErrno(err, tt.errno) {
			t.Errorf("IsErrno(WrapError(%v), %v) = false", tt.errno, tt.errno)
		}
	}
}

func TestWrapErrorKeepsStructure(t *testing.T) {
	inner := NewDeviceError("read", "aes", ErrCodeBadMessage, "truncated cipher block")
	outer := WrapError("copy", inner)

	if outer.Op != "copy" {
		t.Errorf("Expected Op=copy, got %s", outer.Op)
	}
	if outer.Code != ErrCodeBadMessage {
		t.Errorf("Expected inner code preserved, got %s", outer.Code)
	}
	if outer.Dev != "aes" {
		t.Errorf("Expected Dev=aes preserved, got %s", outer.Dev)
	}
}

func TestErrorsIsSupport(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError("seek", ErrCodeNotSeekable, "pipe"))

	if !IsCode(err, ErrCodeNotSeekable) {
		t.Error("IsCode should see through wrapping")
	}
	if IsCode(err, ErrCodeTimedOut) {
		t.Error("IsCode matched the wrong code")
	}

	var de *Error
	if !errors.As(err, &de) {
		t.Error("errors.As should find the structured error")
	}
}
