// SPDX-License-Identifier: MPL-2.0

package eval

import (
	"errors"
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
)

var (
	// ErrEvaluation is matched by every *EvalError via errors.Is.
	ErrEvaluation = errors.New("evaluation error")
	// ErrUndefinedVariable is returned when a variable is read before it is set.
	ErrUndefinedVariable = errors.New("variable is not defined")
	// ErrReservedVariable is returned when a script assigns a reserved constant.
	ErrReservedVariable = errors.New("cannot set reserved constant variable")
	// ErrEmptyValue is returned when an absent value is read.
	ErrEmptyValue = errors.New("empty value")
	// ErrNotAllowed is the sentinel wrapped by NotAllowedError.
	ErrNotAllowed = errors.New("instruction is not allowed in this context")
	// ErrPermission is the sentinel wrapped by PermissionError.
	ErrPermission = errors.New("insufficient permissions")
	// ErrFailed is the sentinel wrapped by FailError.
	ErrFailed = errors.New("package failed explicitly")
	// ErrUnsupported is the sentinel wrapped by UnsupportedError.
	ErrUnsupported = errors.New("package is not supported")
	// ErrDuplicateAddon is returned when a package declares an addon id twice.
	ErrDuplicateAddon = errors.New("duplicate addon id")
	// ErrTooManyNotices is returned when a package emits more than MaxNotices notices.
	ErrTooManyNotices = errors.New("too many notices")
	// ErrNoticeTooLong is returned when a notice exceeds MaxNoticeChars characters.
	ErrNoticeTooLong = errors.New("notice is too long")
	// ErrMissingRoutine is returned when a required routine is absent.
	ErrMissingRoutine = errors.New("routine does not exist")
)

type (
	// EvalError locates a failure at a script instruction.
	EvalError struct {
		Instruction string
		Pos         script.Pos
		Err         error
	}

	// NotAllowedError is returned for an instruction used in a routine or
	// level that does not accept it.
	NotAllowedError struct {
		Instruction string
		Level       evalctx.Level
	}

	// PermissionError is returned when an instruction needs more trust than
	// the package was given.
	PermissionError struct {
		Instruction string
		Required    evalctx.Permissions
		Actual      evalctx.Permissions
	}

	// FailError is returned by the fail instruction.
	FailError struct {
		Reason script.FailReason
	}

	// UnsupportedError is returned when a package's supported_* properties
	// exclude the instance.
	UnsupportedError struct {
		Reason script.FailReason
		Value  string
	}
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("in %s instruction at %s: %v", e.Instruction, e.Pos, e.Err)
}

// Unwrap returns the underlying error.
func (e *EvalError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEvaluation.
func (e *EvalError) Is(target error) bool { return target == ErrEvaluation }

// Error implements the error interface.
func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("instruction %q is not allowed at the %s level", e.Instruction, e.Level)
}

// Unwrap returns ErrNotAllowed for errors.Is() compatibility.
func (e *NotAllowedError) Unwrap() error { return ErrNotAllowed }

// Error implements the error interface.
func (e *PermissionError) Error() string {
	return fmt.Sprintf("the %q instruction requires %s permissions (package has %s)", e.Instruction, e.Required, e.Actual)
}

// Unwrap returns ErrPermission for errors.Is() compatibility.
func (e *PermissionError) Unwrap() error { return ErrPermission }

// Error implements the error interface.
func (e *FailError) Error() string {
	if e.Reason == script.FailNone {
		return "package failed"
	}
	return "package failed: " + e.Reason.Description()
}

// Unwrap returns ErrFailed for errors.Is() compatibility.
func (e *FailError) Unwrap() error { return ErrFailed }

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason.Description(), e.Value)
}

// Unwrap returns ErrUnsupported for errors.Is() compatibility.
func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }
