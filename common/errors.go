package common

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type GoDBErrorCode int

const (
	// DuplicateObjectError indicates an attempt to create a table, index or hierarchy
	// that already exists in the catalog.
	DuplicateObjectError GoDBErrorCode = iota
	// NoSuchObjectError indicates a request for a table, index, hierarchy or type that does
	// not exist in the catalog.
	NoSuchObjectError
	// KeyTypeMismatchError is a bind-time error: two columns that must compare against each other
	// (join keys, merge keys) have different types.
	KeyTypeMismatchError
	// ColumnOutOfRangeError is a bind-time error: a column map, key pair or ordering refers to a
	// column its input does not have.
	ColumnOutOfRangeError
	// MissingCapabilityError is raised when a node is bound to an algorithm that needs a capability
	// its input does not expose.
	MissingCapabilityError
	// OrderViolationError means an input delivered rows out of the order its header declares.
	OrderViolationError
	// MemoryLimitError is returned when a buffering operator exceeds its configured row budget.
	MemoryLimitError
	// UnboundParameterError means a plan refers to a parameter the execution context does not bind.
	UnboundParameterError
	// InvalidPlanError reports a structurally malformed plan (bad counts, empty sources, ...).
	InvalidPlanError
)

func (ec GoDBErrorCode) String() string {
	switch ec {
	case DuplicateObjectError:
		return "DuplicateObjectError"
	case NoSuchObjectError:
		return "NoSuchObjectError"
	case KeyTypeMismatchError:
		return "KeyTypeMismatchError"
	case ColumnOutOfRangeError:
		return "ColumnOutOfRangeError"
	case MissingCapabilityError:
		return "MissingCapabilityError"
	case OrderViolationError:
		return "OrderViolationError"
	case MemoryLimitError:
		return "MemoryLimitError"
	case UnboundParameterError:
		return "UnboundParameterError"
	case InvalidPlanError:
		return "InvalidPlanError"
	}
	return "unknown"
}

// GoDBError is the custom error type for the execution engine.
// It wraps a specific GoDBErrorCode with a detailed message.
type GoDBError struct {
	Code      GoDBErrorCode
	ErrString string
}

func (e GoDBError) Error() string {
	return fmt.Sprintf("err: %s; msg: %s", e.Code.String(), e.ErrString)
}

// NewError builds a GoDBError carrying a stack trace of the caller.
func NewError(code GoDBErrorCode, format string, args ...any) error {
	return errors.WithStackDepth(GoDBError{Code: code, ErrString: fmt.Sprintf(format, args...)}, 1)
}

// NewInternalError builds a GoDBError that also reports as an assertion failure. It is used for
// conditions that indicate a defect in the engine rather than in the query.
func NewInternalError(code GoDBErrorCode, format string, args ...any) error {
	return errors.WithAssertionFailure(
		errors.WithStackDepth(GoDBError{Code: code, ErrString: fmt.Sprintf(format, args...)}, 1))
}

// ErrorCode extracts the GoDBErrorCode from err, looking through any wrapping.
func ErrorCode(err error) (GoDBErrorCode, bool) {
	var gErr GoDBError
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}
	return 0, false
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code GoDBErrorCode) bool {
	c, ok := ErrorCode(err)
	return ok && c == code
}
