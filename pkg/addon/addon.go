// SPDX-License-Identifier: MPL-2.0

// Package addon describes the installable files a package contributes and
// validates addon requests before they are accepted into a plan.
package addon

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
)

const (
	KindResourcePack Kind = "resource_pack"
	KindMod          Kind = "mod"
	KindPlugin       Kind = "plugin"
	KindShader       Kind = "shader"
	KindDatapack     Kind = "datapack"
)

const (
	// SHA256HexLength is the hex length of a SHA-256 digest.
	SHA256HexLength = 64
	// SHA512HexLength is the hex length of a SHA-512 digest.
	SHA512HexLength = 128
)

var (
	// ErrInvalidKind is returned when a Kind value is not recognized.
	ErrInvalidKind = errors.New("invalid addon kind")
	// ErrInvalidRequest is the sentinel wrapped by InvalidRequestError.
	ErrInvalidRequest = errors.New("invalid addon request")
	// ErrLocalNotPermitted is returned when a local path is used without
	// elevated permissions.
	ErrLocalNotPermitted = errors.New("insufficient permissions for a local addon")
)

type (
	// Kind is the type of an addon file.
	Kind string

	// Hashes holds optional hex digests of the addon file.
	Hashes struct {
		SHA256 string `json:"sha256,omitempty" toml:"sha256,omitempty" yaml:"sha256,omitempty"`
		SHA512 string `json:"sha512,omitempty" toml:"sha512,omitempty" yaml:"sha512,omitempty"`
	}

	// Data is the unvalidated description of an addon as written by a
	// package, before defaults are applied.
	Data struct {
		ID       string
		Kind     Kind
		FileName string
		URL      string
		Path     string
		Version  string
		Hashes   Hashes
	}

	// Request is a validated addon to fetch. Exactly one of URL and Path is
	// set.
	Request struct {
		ID       string    `json:"id" toml:"id" yaml:"id"`
		Package  pkgreq.ID `json:"package" toml:"package" yaml:"package"`
		Kind     Kind      `json:"kind" toml:"kind" yaml:"kind"`
		FileName string    `json:"file_name" toml:"file_name" yaml:"file_name"`
		URL      string    `json:"url,omitempty" toml:"url,omitempty" yaml:"url,omitempty"`
		Path     string    `json:"path,omitempty" toml:"path,omitempty" yaml:"path,omitempty"`
		Version  string    `json:"version,omitempty" toml:"version,omitempty" yaml:"version,omitempty"`
		Hashes   Hashes    `json:"hashes" toml:"hashes" yaml:"hashes"`
	}

	// InvalidRequestError describes why an addon was rejected.
	InvalidRequestError struct {
		AddonID string
		Reason  string
	}
)

// ParseKind parses an addon kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindResourcePack, KindMod, KindPlugin, KindShader, KindDatapack:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Extension returns the file extension, including the dot, addons of this
// kind must use.
func (k Kind) Extension() string {
	switch k {
	case KindMod, KindPlugin:
		return ".jar"
	default:
		return ".zip"
	}
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid addon %q: %s", e.AddonID, e.Reason)
}

// Unwrap returns ErrInvalidRequest for errors.Is() compatibility.
func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// DefaultFileName returns the file name used when a package does not name
// the addon file itself.
func DefaultFileName(pkg pkgreq.ID, addonID string, kind Kind) string {
	return fmt.Sprintf("mcvm-%s-%s%s", pkg, addonID, kind.Extension())
}

// IsValidID reports whether an addon id is printable ASCII without
// whitespace, using only '_', '-' and '.' as punctuation.
func IsValidID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if c > unicode.MaxASCII || unicode.IsSpace(c) || unicode.IsControl(c) {
			return false
		}
		if unicode.IsPunct(c) || unicode.IsSymbol(c) {
			if c != '_' && c != '-' && c != '.' {
				return false
			}
		}
	}
	return true
}

// IsValidVersion reports whether an addon version is ASCII alphanumeric.
func IsValidVersion(version string) bool {
	for _, c := range version {
		if c > unicode.MaxASCII || !(unicode.IsLetter(c) || unicode.IsDigit(c)) {
			return false
		}
	}
	return true
}

// IsValidFileName reports whether name is usable for an addon of the kind.
func IsValidFileName(kind Kind, name string) bool {
	if strings.ContainsAny(name, `/\`) || platform.IsWindowsReservedName(name) {
		return false
	}
	return len(name) > len(kind.Extension()) && strings.HasSuffix(name, kind.Extension())
}

// NewRequest validates d and returns the addon request for package pkg.
// allowLocal must be true for addons located by a local path.
func NewRequest(d Data, pkg pkgreq.ID, allowLocal bool) (*Request, error) {
	invalid := func(format string, args ...any) error {
		return &InvalidRequestError{AddonID: d.ID, Reason: fmt.Sprintf(format, args...)}
	}

	if !IsValidID(d.ID) {
		return nil, invalid("invalid addon identifier")
	}
	if _, err := ParseKind(string(d.Kind)); err != nil {
		return nil, invalid("%v", err)
	}
	if d.Version != "" && !IsValidVersion(d.Version) {
		return nil, invalid("invalid version identifier %q", d.Version)
	}

	fileName := d.FileName
	if fileName == "" {
		fileName = DefaultFileName(pkg, d.ID, d.Kind)
	}
	if !IsValidFileName(d.Kind, fileName) {
		return nil, invalid("file name %q must end in %s", fileName, d.Kind.Extension())
	}

	if err := checkHash(d.Hashes.SHA256, SHA256HexLength); err != nil {
		return nil, invalid("sha256 hash: %v", err)
	}
	if err := checkHash(d.Hashes.SHA512, SHA512HexLength); err != nil {
		return nil, invalid("sha512 hash: %v", err)
	}

	switch {
	case d.URL != "" && d.Path != "":
		return nil, invalid("both url and path are set; exactly one locator is allowed")
	case d.URL == "" && d.Path == "":
		return nil, invalid("no location (url or path) was specified")
	case d.Path != "" && !allowLocal:
		return nil, fmt.Errorf("addon %q: %w", d.ID, ErrLocalNotPermitted)
	}

	return &Request{
		ID:       d.ID,
		Package:  pkg,
		Kind:     d.Kind,
		FileName: fileName,
		URL:      d.URL,
		Path:     d.Path,
		Version:  d.Version,
		Hashes:   d.Hashes,
	}, nil
}

// IsLocal reports whether the addon is located on the local filesystem.
func (r *Request) IsLocal() bool {
	return r.Path != ""
}

// Location returns the URL or path the addon is fetched from.
func (r *Request) Location() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Path
}

func checkHash(h string, maxLen int) error {
	if h == "" {
		return nil
	}
	if _, err := hex.DecodeString(h); err != nil {
		return fmt.Errorf("not a hex string: %w", err)
	}
	if len(h) > maxLen {
		return fmt.Errorf("longer than %d characters", maxLen)
	}
	return nil
}
