// SPDX-License-Identifier: MPL-2.0

// Package pkgdesc holds the descriptive records every package produces once:
// its metadata (names, links, authors) and its properties (features and the
// environments it supports).
package pkgdesc

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/versions"
)

const (
	// StabilityStable only allows stable content.
	StabilityStable Stability = "stable"
	// StabilityLatest allows the newest content, stable or not.
	StabilityLatest Stability = "latest"
)

var (
	// ErrInvalidStability is returned when a Stability value is not recognized.
	ErrInvalidStability = errors.New("invalid stability")
	// ErrValidation is the sentinel wrapped by ValidationError.
	ErrValidation = errors.New("package validation failed")
)

type (
	// Stability is a maturity tier. Stable is lower than Latest.
	Stability string

	// Metadata is the human-facing description of a package.
	Metadata struct {
		Name               string   `json:"name,omitempty"`
		Description        string   `json:"description,omitempty"`
		LongDescription    string   `json:"long_description,omitempty"`
		Version            string   `json:"version,omitempty"`
		Authors            []string `json:"authors,omitempty"`
		PackageMaintainers []string `json:"package_maintainers,omitempty"`
		Website            string   `json:"website,omitempty"`
		SupportLink        string   `json:"support_link,omitempty"`
		Documentation      string   `json:"documentation,omitempty"`
		Source             string   `json:"source,omitempty"`
		Issues             string   `json:"issues,omitempty"`
		Community          string   `json:"community,omitempty"`
		Icon               string   `json:"icon,omitempty"`
		Banner             string   `json:"banner,omitempty"`
		License            string   `json:"license,omitempty"`
		Keywords           []string `json:"keywords,omitempty"`
		Categories         []string `json:"categories,omitempty"`
	}

	// Properties describe what a package offers and where it can be used.
	// Empty supported_* lists mean no restriction.
	Properties struct {
		Features                  []string                   `json:"features,omitempty"`
		DefaultFeatures           []string                   `json:"default_features,omitempty"`
		ContentVersions           []string                   `json:"content_versions,omitempty"`
		ModrinthID                string                     `json:"modrinth_id,omitempty"`
		CurseForgeID              string                     `json:"curseforge_id,omitempty"`
		SmithedID                 string                     `json:"smithed_id,omitempty"`
		SupportedVersions         []versions.Pattern         `json:"supported_versions,omitempty"`
		SupportedModloaders       []loader.ModloaderMatch    `json:"supported_modloaders,omitempty"`
		SupportedPluginLoaders    []loader.PluginLoaderMatch `json:"supported_plugin_loaders,omitempty"`
		SupportedSides            []loader.Side              `json:"supported_sides,omitempty"`
		SupportedOperatingSystems []platform.OSCondition     `json:"supported_operating_systems,omitempty"`
		SupportedArchitectures    []platform.ArchCondition   `json:"supported_architectures,omitempty"`
		Tags                      []string                   `json:"tags,omitempty"`
		OpenSource                *bool                      `json:"open_source,omitempty"`
	}

	// ValidationError reports a package that is well-formed but inconsistent.
	ValidationError struct {
		Field  string
		Reason string
	}
)

// ParseStability parses "stable" or "latest".
func ParseStability(s string) (Stability, error) {
	switch st := Stability(s); st {
	case StabilityStable, StabilityLatest:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStability, s)
	}
}

func (s Stability) rank() int {
	if s == StabilityLatest {
		return 1
	}
	return 0
}

// AllowedBy reports whether content of stability s may be used when the
// consumer accepts up to max. The zero value is treated as stable.
func (s Stability) AllowedBy(maxStability Stability) bool {
	return s.rank() <= maxStability.rank()
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrValidation for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate checks that every default feature is also a declared feature.
func (p *Properties) Validate() error {
	for _, f := range p.DefaultFeatures {
		if !slices.Contains(p.Features, f) {
			return &ValidationError{
				Field:  "default_features",
				Reason: fmt.Sprintf("default feature %q is not listed in features", f),
			}
		}
	}
	return nil
}

// EnabledFeatures returns the features in effect for a consumer that
// configured requested and asked for the defaults when useDefaults is set.
// The result keeps first-seen order and has no duplicates.
func (p *Properties) EnabledFeatures(requested []string, useDefaults bool) []string {
	var out []string
	add := func(fs []string) {
		for _, f := range fs {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	if useDefaults {
		add(p.DefaultFeatures)
	}
	add(requested)
	return out
}

// ImproveGeneration fills fields that can be derived from others, such as
// the issue tracker of a package whose source lives on GitHub.
func (m *Metadata) ImproveGeneration() {
	if m.Issues == "" {
		if repo, ok := githubRepo(m.Source); ok {
			m.Issues = repo + "/issues"
		}
	}
}

func githubRepo(link string) (string, bool) {
	rest, ok := strings.CutPrefix(link, "https://github.com/")
	if !ok {
		return "", false
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return "https://github.com/" + parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"), true
}
