// SPDX-License-Identifier: MPL-2.0

// Package evalctx defines the read-only context a package is evaluated in:
// the instance constants shared by every package, the per-package
// parameters, the permission level and the evaluation level.
package evalctx

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
)

// Standard is the zero value so unset permissions never restrict a package.
const (
	// Restricted packages may not do anything beyond the defaults.
	Restricted Permissions = iota - 1
	// Standard is the default permission level.
	Standard
	// Elevated packages may run commands and use local addon files.
	Elevated
)

const (
	// LevelMetadata reads the meta routine.
	LevelMetadata Level = iota
	// LevelProperties reads the properties routine.
	LevelProperties
	// LevelResolve walks the install routine collecting relations.
	LevelResolve
	// LevelInstall walks the install routine collecting addons and commands.
	LevelInstall
	// LevelUninstall walks the uninstall routine with install semantics.
	LevelUninstall
)

const (
	// SelectAll installs every matching version of a declarative addon.
	SelectAll AddonSelection = "all"
	// SelectBest installs only the most specific matching version.
	SelectBest AddonSelection = "best"
)

var (
	// ErrInvalidPermissions is returned when a Permissions value is not recognized.
	ErrInvalidPermissions = errors.New("invalid permissions")
	// ErrInvalidAddonSelection is returned when an AddonSelection value is not recognized.
	ErrInvalidAddonSelection = errors.New("invalid addon selection")
)

type (
	// Permissions is how much a package is trusted.
	Permissions int

	// Level selects which pass over a package is performed.
	Level int

	// AddonSelection decides how many matching versions of one declarative
	// addon are installed. The zero value behaves as SelectAll.
	AddonSelection string

	// Constants describe the instance and are shared by every package in a
	// resolution.
	Constants struct {
		// Version is the target game version.
		Version string
		// VersionList is every known game version, oldest first.
		VersionList  []string
		Modloader    loader.Modloader
		PluginLoader loader.PluginLoader
		Language     string
		Host         platform.Host
		Selection    AddonSelection
	}

	// Params are the per-package evaluation parameters.
	Params struct {
		Side           loader.Side
		Features       []string
		Permissions    Permissions
		Stability      pkgdesc.Stability
		ContentVersion string
	}

	// Input is everything an evaluation reads.
	Input struct {
		Constants *Constants
		Params    Params
	}
)

// ParsePermissions parses "restricted", "standard" or "elevated".
func ParsePermissions(s string) (Permissions, error) {
	switch s {
	case "restricted":
		return Restricted, nil
	case "", "standard":
		return Standard, nil
	case "elevated":
		return Elevated, nil
	default:
		return Standard, fmt.Errorf("%w: %q", ErrInvalidPermissions, s)
	}
}

// String returns the lowercase name of the permission level.
func (p Permissions) String() string {
	switch p {
	case Restricted:
		return "restricted"
	case Standard:
		return "standard"
	case Elevated:
		return "elevated"
	default:
		return fmt.Sprintf("Permissions(%d)", int(p))
	}
}

// Allows reports whether p is at least required.
func (p Permissions) Allows(required Permissions) bool {
	return p >= required
}

// MarshalText implements encoding.TextMarshaler.
func (p Permissions) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Permissions) UnmarshalText(text []byte) error {
	v, err := ParsePermissions(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelMetadata:
		return "metadata"
	case LevelProperties:
		return "properties"
	case LevelResolve:
		return "resolve"
	case LevelInstall:
		return "install"
	case LevelUninstall:
		return "uninstall"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseAddonSelection parses "all" or "best". The empty string is "all".
func ParseAddonSelection(s string) (AddonSelection, error) {
	switch a := AddonSelection(s); a {
	case "", SelectAll:
		return SelectAll, nil
	case SelectBest:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAddonSelection, s)
	}
}

// HasFeature reports whether feature is enabled.
func (p *Params) HasFeature(feature string) bool {
	return slices.Contains(p.Features, feature)
}

// Key returns a string identifying the per-package parts of the input.
// Two inputs with equal keys under the same Constants evaluate identically.
func (in *Input) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s|%s",
		in.Params.Side,
		strings.Join(in.Params.Features, ","),
		in.Params.Permissions,
		in.Params.Stability,
		in.Params.ContentVersion,
	)
}
