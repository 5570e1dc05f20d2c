// SPDX-License-Identifier: MPL-2.0

// Package pkgreq defines package identities, requests with provenance, and
// the relationship sets packages declare towards each other.
package pkgreq

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxIDLength is the longest allowed package id.
const MaxIDLength = 32

const (
	// SourceUserRequire means the consumer configured the package directly.
	SourceUserRequire SourceKind = iota
	// SourceBundled means another package bundles this one.
	SourceBundled
	// SourceDependency means another package depends on this one.
	SourceDependency
	// SourceRefused means another package refused (conflicts with) this one.
	SourceRefused
	// SourceRepository means a repository requested the package by default.
	SourceRepository
)

// ErrInvalidID is the sentinel wrapped by InvalidIDError.
var ErrInvalidID = errors.New("invalid package id")

type (
	// ID identifies a package.
	ID string

	// InvalidIDError is returned when a package id fails validation.
	InvalidIDError struct {
		Value  ID
		Reason string
	}

	// SourceKind is why a package was requested. Lower values are more
	// authoritative explanations.
	SourceKind int

	// Source records why a package was requested. Parent is set for Bundled,
	// Dependency and Refused and points at the requesting package.
	Source struct {
		Kind   SourceKind
		Parent *Request
	}

	// Request is a package wanted for some reason. Requests are immutable
	// once created; two requests are the same package iff their IDs match.
	Request struct {
		ID     ID
		Source Source
		// ContentVersion optionally pins the package's content version
		// (written as "id@version" on input).
		ContentVersion string
	}
)

// String returns the string representation of the ID.
func (id ID) String() string { return string(id) }

// Validate checks the id: non-empty ASCII, lowercase letters, digits and
// '-' only, at most MaxIDLength characters.
func (id ID) Validate() error {
	if id == "" {
		return &InvalidIDError{Value: id, Reason: "must not be empty"}
	}
	if len(id) > MaxIDLength {
		return &InvalidIDError{Value: id, Reason: fmt.Sprintf("longer than %d characters", MaxIDLength)}
	}
	for _, c := range string(id) {
		switch {
		case c > unicode.MaxASCII:
			return &InvalidIDError{Value: id, Reason: "contains non-ASCII characters"}
		case unicode.IsUpper(c):
			return &InvalidIDError{Value: id, Reason: "contains uppercase letters"}
		case unicode.IsSpace(c):
			return &InvalidIDError{Value: id, Reason: "contains whitespace"}
		case c == '-', unicode.IsLower(c), unicode.IsDigit(c):
		default:
			return &InvalidIDError{Value: id, Reason: fmt.Sprintf("contains invalid character %q", c)}
		}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid package id %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidID for errors.Is() compatibility.
func (e *InvalidIDError) Unwrap() error { return ErrInvalidID }

// String returns a short name for the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceUserRequire:
		return "user"
	case SourceBundled:
		return "bundled"
	case SourceDependency:
		return "dependency"
	case SourceRefused:
		return "refused"
	case SourceRepository:
		return "repository"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// NewUserRequest creates a request for a package the consumer configured.
func NewUserRequest(id ID) *Request {
	return &Request{ID: id, Source: Source{Kind: SourceUserRequire}}
}

// NewRepositoryRequest creates a request issued by a repository.
func NewRepositoryRequest(id ID) *Request {
	return &Request{ID: id, Source: Source{Kind: SourceRepository}}
}

// NewChild creates a request for id caused by parent.
func NewChild(id ID, kind SourceKind, parent *Request) *Request {
	return &Request{ID: id, Source: Source{Kind: kind, Parent: parent}}
}

// ParseRequest parses "id" or "id@content_version" into a user request.
func ParseRequest(text string) (*Request, error) {
	id, version, _ := strings.Cut(text, "@")
	req := NewUserRequest(ID(id))
	req.ContentVersion = version
	if err := req.ID.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Same reports whether both requests are for the same package.
func (r *Request) Same(other *Request) bool {
	return r.ID == other.ID
}

// MoreAuthoritative reports whether r's source explains the package better
// than other's, so r should replace other when the two unify.
func (r *Request) MoreAuthoritative(other *Request) bool {
	return r.Source.Kind < other.Source.Kind
}

// IsUserBundled reports whether the package is bundled by a package the
// consumer required directly.
func (r *Request) IsUserBundled() bool {
	return r.Source.Kind == SourceBundled &&
		r.Source.Parent != nil &&
		r.Source.Parent.Source.Kind == SourceUserRequire
}

// Root returns the request at the start of the provenance chain.
func (r *Request) Root() *Request {
	cur := r
	for cur.Source.Parent != nil {
		cur = cur.Source.Parent
	}
	return cur
}

// Chain renders the provenance chain from its root to this request:
// "a -> b" for dependencies, "a => b" for bundles, "a =X=> b" for refusals
// and "Repository -> a" for repository requests.
func (r *Request) Chain() string {
	var sb strings.Builder
	r.writeChain(&sb)
	return sb.String()
}

func (r *Request) writeChain(sb *strings.Builder) {
	if r.Source.Parent != nil {
		r.Source.Parent.writeChain(sb)
		switch r.Source.Kind {
		case SourceBundled:
			sb.WriteString(" => ")
		case SourceRefused:
			sb.WriteString(" =X=> ")
		default:
			sb.WriteString(" -> ")
		}
	} else if r.Source.Kind == SourceRepository {
		sb.WriteString("Repository -> ")
	}
	sb.WriteString(string(r.ID))
}

// String returns the package id, with the content version when pinned.
func (r *Request) String() string {
	if r.ContentVersion != "" {
		return string(r.ID) + "@" + r.ContentVersion
	}
	return string(r.ID)
}
