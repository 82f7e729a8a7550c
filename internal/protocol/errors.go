package protocol

import (
	"errors"
	"fmt"
)

// EngineError is attached to events and returned from Attach when an engine
// misbehaves or cannot be started.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Engine is the configured engine name.
	Engine string

	// Message is a human-readable description.
	Message string

	// Line is the offending protocol line, if any.
	Line string

	// Err is the underlying cause, if any.
	Err error
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeSpawn means the process could not be started.
	ErrCodeSpawn EngineErrorCode = "SPAWN_ERROR"

	// ErrCodeProtocolViolation means the engine sent something it should not
	// have in its current state. Logged, never fatal.
	ErrCodeProtocolViolation EngineErrorCode = "PROTOCOL_VIOLATION"

	// ErrCodeIllegalMove means the engine rejected a move it was sent.
	ErrCodeIllegalMove EngineErrorCode = "ILLEGAL_MOVE"

	// ErrCodeTimeout means a move deadline passed.
	ErrCodeTimeout EngineErrorCode = "TIMEOUT"

	// ErrCodeCrash means the process exited unexpectedly or went silent.
	ErrCodeCrash EngineErrorCode = "CRASH"
)

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s (engine=%s)", e.Code, e.Message, e.Engine)
	if e.Line != "" {
		msg += fmt.Sprintf(" line=%q", e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code EngineErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsSpawnError reports whether err is a start failure.
func IsSpawnError(err error) bool { return hasCode(err, ErrCodeSpawn) }

// IsCrash reports whether err describes a crashed engine.
func IsCrash(err error) bool { return hasCode(err, ErrCodeCrash) }

// IsTimeout reports whether err describes a missed move deadline.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }
