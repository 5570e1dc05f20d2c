// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
)

var (
	// ErrUnknownPackage is returned by a PackageEvaluator that cannot locate
	// a package. The resolver turns it into *UnknownPackageError.
	ErrUnknownPackage = errors.New("unknown package")
	// ErrConflict is the sentinel wrapped by ConflictError.
	ErrConflict = errors.New("package conflict")
	// ErrMissingExplicit is the sentinel wrapped by MissingExplicitError.
	ErrMissingExplicit = errors.New("explicit dependency not configured")
	// ErrExtensionNotFulfilled is the sentinel wrapped by ExtensionError.
	ErrExtensionNotFulfilled = errors.New("extended package not installed")
)

type (
	// ConflictError reports two packages in the plan where at least one
	// declares a conflict with the other. A declared the conflict; Refused
	// is B as refused by A.
	ConflictError struct {
		A       *pkgreq.Request
		B       *pkgreq.Request
		Refused *pkgreq.Request
	}

	// ExtensionError reports a package that extends a package missing from
	// the plan.
	ExtensionError struct {
		Package *pkgreq.Request
		Target  pkgreq.ID
	}

	// MissingExplicitError reports an explicit dependency that the consumer
	// did not configure.
	MissingExplicitError struct {
		Package    *pkgreq.Request
		Dependency pkgreq.ID
	}

	// UnknownPackageError reports a request the evaluator could not locate.
	UnknownPackageError struct {
		Request *pkgreq.Request
	}

	// PackageError wraps an evaluation failure with the provenance chain of
	// the request being evaluated.
	PackageError struct {
		Request *pkgreq.Request
		Level   string
		Err     error
	}
)

// Error implements the error interface.
func (e *ConflictError) Error() string {
	refused := pkgreq.NewChild(e.B.ID, pkgreq.SourceRefused, e.A)
	if e.Refused != nil {
		refused = e.Refused
	}
	return fmt.Sprintf("package %s conflicts with %s: %s, but %s is required by %s",
		e.A.ID, e.B.ID, refused.Chain(), e.B.ID, e.B.Chain())
}

// Unwrap returns ErrConflict for errors.Is() compatibility.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Error implements the error interface.
func (e *ExtensionError) Error() string {
	return fmt.Sprintf("package %s (%s) extends the functionality of %s, which is not installed",
		e.Package.ID, e.Package.Chain(), e.Target)
}

// Unwrap returns ErrExtensionNotFulfilled for errors.Is() compatibility.
func (e *ExtensionError) Unwrap() error { return ErrExtensionNotFulfilled }

// Error implements the error interface.
func (e *MissingExplicitError) Error() string {
	return fmt.Sprintf("package %s (%s) explicitly depends on %s, which must be configured directly",
		e.Package.ID, e.Package.Chain(), e.Dependency)
}

// Unwrap returns ErrMissingExplicit for errors.Is() compatibility.
func (e *MissingExplicitError) Unwrap() error { return ErrMissingExplicit }

// Error implements the error interface.
func (e *UnknownPackageError) Error() string {
	return fmt.Sprintf("unknown package %s (required by %s)", e.Request.ID, e.Request.Chain())
}

// Unwrap returns ErrUnknownPackage for errors.Is() compatibility.
func (e *UnknownPackageError) Unwrap() error { return ErrUnknownPackage }

// Error implements the error interface.
func (e *PackageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Level, e.Request.Chain(), e.Err)
}

// Unwrap returns the underlying evaluation error.
func (e *PackageError) Unwrap() error { return e.Err }
