package board

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes ordering store errors.
type ErrorCode string

const (
	// ErrCodeUnknownItem indicates an item id absent from the referenced container.
	ErrCodeUnknownItem ErrorCode = "UNKNOWN_ITEM"

	// ErrCodeUnknownContainer indicates a container id absent from the board.
	ErrCodeUnknownContainer ErrorCode = "UNKNOWN_CONTAINER"

	// ErrCodeInvalidState indicates a State that violates the board invariants
	// (duplicated or orphaned ids, reserved ids, mismatched column sets).
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeRestoreFailure indicates a snapshot could not be restored.
	// The board is marked corrupt when this is returned.
	ErrCodeRestoreFailure ErrorCode = "RESTORE_FAILURE"

	// ErrCodeCorrupt indicates the board refused a mutation because a previous
	// restore failed. Reset the board from the source of truth.
	ErrCodeCorrupt ErrorCode = "CORRUPT"
)

// Error is returned by every failing Board operation.
// A returned *Error guarantees the board was not mutated.
type Error struct {
	Code      ErrorCode
	Message   string
	Item      ItemID
	Container ContainerID
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Item != "" && e.Container != "":
		return fmt.Sprintf("%s: %s (item=%s, container=%s)", e.Code, e.Message, e.Item, e.Container)
	case e.Item != "":
		return fmt.Sprintf("%s: %s (item=%s)", e.Code, e.Message, e.Item)
	case e.Container != "":
		return fmt.Sprintf("%s: %s (container=%s)", e.Code, e.Message, e.Container)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a board error.
func CodeOf(err error) ErrorCode {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsUnknownItem reports whether err is an unknown-item error.
func IsUnknownItem(err error) bool {
	return CodeOf(err) == ErrCodeUnknownItem
}

// IsUnknownContainer reports whether err is an unknown-container error.
func IsUnknownContainer(err error) bool {
	return CodeOf(err) == ErrCodeUnknownContainer
}

// IsRestoreFailure reports whether err is a restore failure.
func IsRestoreFailure(err error) bool {
	return CodeOf(err) == ErrCodeRestoreFailure
}

// IsCorrupt reports whether err was caused by a corrupt board.
func IsCorrupt(err error) bool {
	return CodeOf(err) == ErrCodeCorrupt
}

func unknownItem(item ItemID, container ContainerID) *Error {
	return &Error{
		Code:      ErrCodeUnknownItem,
		Message:   "item is not in container",
		Item:      item,
		Container: container,
	}
}

func unknownContainer(container ContainerID) *Error {
	return &Error{
		Code:      ErrCodeUnknownContainer,
		Message:   "container does not exist",
		Container: container,
	}
}

func invalidState(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf(format, args...),
	}
}
