// Package urs is the root of UtilitaryRS: it re-exports the core's public
// interfaces and types (internal/wire, internal/node, internal/hub) behind
// a single import path, and adds the ambient pieces a standalone module
// needs — a structured Error type, a Metrics surface, and test doubles.
package urs

import (
	"errors"
	"fmt"
)

// Error represents a structured, wrapped configuration or construction
// failure: a bad buffer size, a nil transport, a duplicate UID at
// registration. It is never used for wire-level result codes — those stay
// the wire.Result taxonomy, delivered through Observer/Adapter hooks, not
// as Go errors.
type Error struct {
	Op    string // operation that failed (e.g. "NewHub", "RegisterTelemetry")
	UID   int    // device UID involved, -1 if not applicable
	Code  ErrorCode
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.UID >= 0 {
		parts = append(parts, fmt.Sprintf("uid=%d", e.UID))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("urs: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("urs: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is a high-level category for an Error.
type ErrorCode string

const (
	ErrCodeInvalidConfig   ErrorCode = "invalid configuration"
	ErrCodeDuplicateUID    ErrorCode = "duplicate device UID"
	ErrCodeUnknownDevice   ErrorCode = "unknown device"
	ErrCodeWrongState      ErrorCode = "device not in required state"
	ErrCodeBufferTooSmall  ErrorCode = "buffer too small for frame"
	ErrCodeTransportClosed ErrorCode = "transport closed"
)

// NewError creates a structured Error with no device context.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, UID: -1, Code: code, Msg: msg}
}

// NewDeviceError creates a structured Error scoped to a device UID.
func NewDeviceError(op string, uid uint8, code ErrorCode, msg string) *Error {
	return &Error{Op: op, UID: int(uid), Code: code, Msg: msg}
}

// WrapError wraps inner with urs context, preserving code/UID if inner is
// already a structured Error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ue, ok := inner.(*Error); ok {
		return &Error{Op: op, UID: ue.UID, Code: ue.Code, Msg: ue.Msg, Inner: ue.Inner}
	}
	return &Error{Op: op, UID: -1, Code: ErrCodeInvalidConfig, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
