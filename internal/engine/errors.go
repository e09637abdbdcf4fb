package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/dragboard/internal/board"
)

// Code categorizes engine errors and diagnostics.
type Code string

const (
	// CodeUnknownItem indicates an event referenced an id absent from the board.
	CodeUnknownItem Code = "UNKNOWN_ITEM"

	// CodeUnknownContainer indicates a mutation referenced a missing container.
	CodeUnknownContainer Code = "UNKNOWN_CONTAINER"

	// CodeReentrantDragStart indicates drag_start arrived while a session was
	// active. The running session is kept. This is an input adapter bug.
	CodeReentrantDragStart Code = "REENTRANT_DRAG_START"

	// CodeNotActive indicates drag_move, drag_end or drag_cancel arrived while idle.
	CodeNotActive Code = "NOT_ACTIVE"

	// CodeRestoreFailure indicates a cancelled session could not restore its
	// snapshot. The session was force-cleared and the board is corrupt: the
	// host must resynchronize from its source of truth.
	CodeRestoreFailure Code = "RESTORE_FAILURE"

	// CodeBoardCorrupt indicates a drag was refused because the board is
	// still corrupt from an earlier restore failure.
	CodeBoardCorrupt Code = "BOARD_CORRUPT"

	// CodeResyncFailed indicates the board source could not be loaded or
	// applied at drag start.
	CodeResyncFailed Code = "RESYNC_FAILED"

	// CodeUnknownEvent indicates an event type the engine does not handle.
	CodeUnknownEvent Code = "UNKNOWN_EVENT"

	// CodeSessionActive indicates the board was reseeded during a drag.
	CodeSessionActive Code = "SESSION_ACTIVE"
)

// Error is returned by engine operations. It carries the same Code that is
// reported as a Diagnostic.
type Error struct {
	Code    Code
	Message string
	Session string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Session != "" {
		msg = fmt.Sprintf("%s (session=%s)", msg, e.Session)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error, usually a *board.Error.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the engine Code carried by err, or "" for foreign errors.
func CodeOf(err error) Code {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsReentrantDragStart reports whether err rejected a second drag start.
func IsReentrantDragStart(err error) bool {
	return CodeOf(err) == CodeReentrantDragStart
}

// IsNotActive reports whether err rejected an event received while idle.
func IsNotActive(err error) bool {
	return CodeOf(err) == CodeNotActive
}

// IsRestoreFailure reports whether err signals a failed rollback.
// The board may be inconsistent and must be resynchronized.
func IsRestoreFailure(err error) bool {
	return CodeOf(err) == CodeRestoreFailure || board.IsRestoreFailure(err)
}

// codeFromBoard maps an ordering store error to the engine's vocabulary.
func codeFromBoard(err error) Code {
	switch board.CodeOf(err) {
	case board.ErrCodeUnknownItem:
		return CodeUnknownItem
	case board.ErrCodeUnknownContainer:
		return CodeUnknownContainer
	case board.ErrCodeCorrupt:
		return CodeBoardCorrupt
	case board.ErrCodeRestoreFailure:
		return CodeRestoreFailure
	default:
		return CodeResyncFailed
	}
}

// Diagnostic is a non-fatal condition reported to the host. Fatal is set
// only for restore failures, where the board must be resynchronized.
type Diagnostic struct {
	Seq       int64             `json:"seq"`
	Session   string            `json:"session,omitempty"`
	Code      Code              `json:"code"`
	Message   string            `json:"message"`
	Item      string            `json:"item,omitempty"`
	Container board.ContainerID `json:"container,omitempty"`
	Fatal     bool              `json:"fatal,omitempty"`
}
