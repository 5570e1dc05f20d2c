// SPDX-License-Identifier: MPL-2.0

// Package lockfile records a resolved install plan on disk so installs can be
// reproduced and diffed without resolving again.
package lockfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/resolve"
)

// Version is the lockfile schema version written by this package.
const Version = 1

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

var (
	// ErrUnknownFormat is returned for an unsupported lockfile format.
	ErrUnknownFormat = errors.New("unknown lockfile format")
	// ErrUnsupportedVersion is returned when reading a newer lockfile.
	ErrUnsupportedVersion = errors.New("unsupported lockfile version")
)

type (
	// Format is a lockfile encoding.
	Format string

	// Target is the instance a plan was resolved for.
	Target struct {
		GameVersion  string `json:"game_version" toml:"game_version" yaml:"game_version"`
		Modloader    string `json:"modloader" toml:"modloader" yaml:"modloader"`
		PluginLoader string `json:"plugin_loader,omitempty" toml:"plugin_loader,omitempty" yaml:"plugin_loader,omitempty"`
	}

	// Package is one locked package.
	Package struct {
		ID             pkgreq.ID `json:"id" toml:"id" yaml:"id"`
		ContentVersion string    `json:"content_version,omitempty" toml:"content_version,omitempty" yaml:"content_version,omitempty"`
		// Source is why the package was requested: user, bundled, dependency
		// or repository.
		Source string `json:"source" toml:"source" yaml:"source"`
		// Chain is the provenance chain, e.g. "modpack -> sodium".
		Chain    string          `json:"chain" toml:"chain" yaml:"chain"`
		Skipped  bool            `json:"skipped,omitempty" toml:"skipped,omitempty" yaml:"skipped,omitempty"`
		Extends  []pkgreq.ID     `json:"extends,omitempty" toml:"extends,omitempty" yaml:"extends,omitempty"`
		Addons   []addon.Request `json:"addons,omitempty" toml:"addons,omitempty" yaml:"addons,omitempty"`
		Commands [][]string      `json:"commands,omitempty" toml:"commands,omitempty" yaml:"commands,omitempty"`
		Notices  []string        `json:"notices,omitempty" toml:"notices,omitempty" yaml:"notices,omitempty"`
	}

	// Warning is a plan warning as recorded in the lockfile.
	Warning struct {
		Kind    string    `json:"kind" toml:"kind" yaml:"kind"`
		Package pkgreq.ID `json:"package" toml:"package" yaml:"package"`
		Target  string    `json:"target" toml:"target" yaml:"target"`
	}

	// Lockfile is the on-disk form of a resolve.Plan.
	Lockfile struct {
		Version  int       `json:"version" toml:"version" yaml:"version"`
		Target   Target    `json:"target" toml:"target" yaml:"target"`
		Packages []Package `json:"packages" toml:"packages" yaml:"packages"`
		Warnings []Warning `json:"warnings,omitempty" toml:"warnings,omitempty" yaml:"warnings,omitempty"`
	}
)

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// FromPlan builds a lockfile from a resolved plan. consts may be nil.
func FromPlan(plan *resolve.Plan, consts *evalctx.Constants) *Lockfile {
	lf := &Lockfile{
		Version:  Version,
		Packages: make([]Package, 0, len(plan.Entries)),
	}
	if consts != nil {
		lf.Target = Target{
			GameVersion:  consts.Version,
			Modloader:    string(consts.Modloader),
			PluginLoader: string(consts.PluginLoader),
		}
	}

	for _, e := range plan.Entries {
		p := Package{
			ID:             e.Request.ID,
			ContentVersion: e.Request.ContentVersion,
			Source:         e.Request.Source.Kind.String(),
			Chain:          e.Request.Chain(),
			Skipped:        e.Skipped,
			Extends:        e.Extends,
			Commands:       e.Commands,
			Notices:        e.Notices,
		}
		for _, a := range e.Addons {
			p.Addons = append(p.Addons, *a)
		}
		lf.Packages = append(lf.Packages, p)
	}

	for _, w := range plan.Warnings {
		lf.Warnings = append(lf.Warnings, Warning{Kind: string(w.Kind), Package: w.Package, Target: w.Target})
	}
	return lf
}

// Addons returns every locked addon in plan order, skipping skipped packages.
func (lf *Lockfile) Addons() []addon.Request {
	var out []addon.Request
	for _, p := range lf.Packages {
		if p.Skipped {
			continue
		}
		out = append(out, p.Addons...)
	}
	return out
}

// Encode writes the lockfile to w in format f.
func (lf *Lockfile) Encode(w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lf)
	case FormatTOML:
		return toml.NewEncoder(w).Encode(lf)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(lf); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Decode reads a lockfile in format f.
func Decode(r io.Reader, f Format) (*Lockfile, error) {
	var lf Lockfile
	var err error
	switch f {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&lf)
	case FormatTOML:
		err = toml.NewDecoder(r).Decode(&lf)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&lf)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s lockfile: %w", f, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, lf.Version)
	}
	return &lf, nil
}

// WriteFile writes the lockfile to path, choosing the format by extension.
func (lf *Lockfile) WriteFile(path string) error {
	f, err := FormatForPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := lf.Encode(&buf, f); err != nil {
		return fmt.Errorf("encoding lockfile: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing lockfile: %w", err)
	}
	return nil
}

// ReadFile reads a lockfile from path, choosing the format by extension.
func ReadFile(path string) (*Lockfile, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}
	defer file.Close()
	return Decode(file, f)
}
