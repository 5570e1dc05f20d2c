// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// GOOS values used for host comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

const (
	OSWindows OSCondition = "windows"
	OSLinux   OSCondition = "linux"
	OSMacOS   OSCondition = "macos"
	// OSUnix matches every Unix-like host: Linux, macOS and the BSDs.
	OSUnix OSCondition = "unix"
	// OSOther matches hosts that are neither Windows, Linux nor macOS.
	OSOther OSCondition = "other"
)

const (
	ArchX86    ArchCondition = "x86"
	ArchX86_64 ArchCondition = "x86_64"
	ArchARM    ArchCondition = "arm"
	ArchARM64  ArchCondition = "arm64"
	// ArchOther matches any architecture not listed above.
	ArchOther ArchCondition = "other"
)

var (
	// ErrInvalidOSCondition is returned when an OSCondition value is not recognized.
	ErrInvalidOSCondition = errors.New("invalid operating system condition")
	// ErrInvalidArchCondition is returned when an ArchCondition value is not recognized.
	ErrInvalidArchCondition = errors.New("invalid architecture condition")
)

type (
	// OSCondition selects one or more host operating systems.
	OSCondition string

	// ArchCondition selects a host CPU architecture.
	ArchCondition string

	// Host is the operating system and architecture conditions are checked
	// against. Values use runtime.GOOS / runtime.GOARCH spelling.
	Host struct {
		OS   string
		Arch string
	}

	// InvalidConditionError is returned when an OS or arch condition value is
	// not recognized. It wraps ErrInvalidOSCondition or ErrInvalidArchCondition.
	InvalidConditionError struct {
		Value string
		kind  error
	}
)

// Current returns the host this process runs on.
func Current() Host {
	return Host{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// ParseOSCondition parses an OS condition name.
func ParseOSCondition(s string) (OSCondition, error) {
	switch c := OSCondition(s); c {
	case OSWindows, OSLinux, OSMacOS, OSUnix, OSOther:
		return c, nil
	default:
		return "", &InvalidConditionError{Value: s, kind: ErrInvalidOSCondition}
	}
}

// ParseArchCondition parses an architecture condition name.
func ParseArchCondition(s string) (ArchCondition, error) {
	switch c := ArchCondition(s); c {
	case ArchX86, ArchX86_64, ArchARM, ArchARM64, ArchOther:
		return c, nil
	default:
		return "", &InvalidConditionError{Value: s, kind: ErrInvalidArchCondition}
	}
}

// Error implements the error interface.
func (e *InvalidConditionError) Error() string {
	return fmt.Sprintf("%v: %q", e.kind, e.Value)
}

// Unwrap returns the sentinel for errors.Is() compatibility.
func (e *InvalidConditionError) Unwrap() error { return e.kind }

// MatchesOS reports whether the host satisfies the OS condition.
func (h Host) MatchesOS(c OSCondition) bool {
	switch c {
	case OSWindows:
		return h.OS == Windows
	case OSLinux:
		return h.OS == Linux
	case OSMacOS:
		return h.OS == Darwin
	case OSUnix:
		switch h.OS {
		case Linux, Darwin, "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos", "aix":
			return true
		}
		return false
	case OSOther:
		return h.OS != Windows && h.OS != Linux && h.OS != Darwin
	default:
		return false
	}
}

// MatchesArch reports whether the host satisfies the architecture condition.
func (h Host) MatchesArch(c ArchCondition) bool {
	switch c {
	case ArchX86:
		return h.Arch == "386"
	case ArchX86_64:
		return h.Arch == "amd64"
	case ArchARM:
		return h.Arch == "arm"
	case ArchARM64:
		return h.Arch == "arm64"
	case ArchOther:
		switch h.Arch {
		case "386", "amd64", "arm", "arm64":
			return false
		}
		return true
	default:
		return false
	}
}
