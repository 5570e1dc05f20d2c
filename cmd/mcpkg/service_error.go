// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/mcvm-launcher/mcvm-sub002/internal/issue"
	"github.com/mcvm-launcher/mcvm-sub002/internal/registry"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/cueutil"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/repo"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/resolve"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
)

// ServiceError is an error that carries the issue catalogue entry the CLI
// renders after the error itself. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err     error
	IssueID issue.Id
}

// newServiceError classifies err against the issue catalogue.
func newServiceError(err error) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: classifyError(err)}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError picks the catalogued issue for err. Issues linked explicitly
// through an ActionableError take precedence over sentinel matching.
func classifyError(err error) issue.Id {
	if is := issue.IssueOf(err); is != nil {
		return is.Id()
	}

	switch {
	case errors.Is(err, registry.ErrMaliciousPackage):
		return issue.MaliciousPackageId
	case errors.Is(err, registry.ErrRemoteUnsupported):
		return issue.RemoteUnsupportedId
	case errors.Is(err, resolve.ErrUnknownPackage):
		return issue.PackageNotFoundId
	case errors.Is(err, resolve.ErrConflict):
		return issue.PackageConflictId
	case errors.Is(err, resolve.ErrMissingExplicit):
		return issue.MissingExplicitId
	case errors.Is(err, resolve.ErrExtensionNotFulfilled):
		return issue.ExtensionNotFulfilledId
	case errors.Is(err, eval.ErrPermission):
		return issue.PermissionDeniedId
	case errors.Is(err, eval.ErrFailed):
		return issue.PackageEvalFailedId
	case errors.Is(err, eval.ErrUnsupported):
		return issue.UnsupportedPackageId
	case errors.Is(err, repo.ErrInvalidIndex):
		return issue.InvalidIndexId
	case errors.Is(err, script.ErrParse), errors.Is(err, cueutil.ErrSchema):
		return issue.PackageParseErrorId
	default:
		return 0
	}
}

// renderServiceError prints the actionable context of svcErr, with its
// suggestions and, when verbose, the cause chain, followed by the
// catalogued issue help.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, verbose bool, logger *log.Logger) {
	if svcErr == nil {
		return
	}

	var ae *issue.ActionableError
	if errors.As(svcErr.Err, &ae) && (ae.HasSuggestions() || verbose) {
		fmt.Fprintln(stderr, ae.Format(verbose))
	}

	if svcErr.IssueID == 0 {
		return
	}
	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render("dark")
		if renderErr != nil {
			logger.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
			return
		}
		fmt.Fprint(stderr, rendered)
	}
}
