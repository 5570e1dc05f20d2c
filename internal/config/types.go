// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/resolve"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultLanguage is the game language used when none is configured.
	DefaultLanguage = "en_us"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrDuplicatePackage is returned when a package is configured twice.
	ErrDuplicatePackage = errors.New("package configured more than once")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidConfigError reports a configuration value that passed the
	// schema but cannot be used.
	InvalidConfigError struct {
		Field string
		Err   error
	}

	// PackageEntry configures one requested package. In the config file a
	// bare "id" or "id@content_version" string is shorthand for an entry
	// with only the id set.
	PackageEntry struct {
		ID                 string   `json:"id" mapstructure:"id"`
		Features           []string `json:"features,omitempty" mapstructure:"features"`
		UseDefaultFeatures *bool    `json:"use_default_features,omitempty" mapstructure:"use_default_features"`
		Permissions        string   `json:"permissions,omitempty" mapstructure:"permissions"`
		Stability          string   `json:"stability,omitempty" mapstructure:"stability"`
		ContentVersion     string   `json:"content_version,omitempty" mapstructure:"content_version"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
	}

	// Config is the consumer configuration.
	Config struct {
		// GameVersion is the target game version.
		GameVersion string `json:"game_version" mapstructure:"game_version"`
		// VersionList is every known game version, oldest first. When empty
		// it defaults to just GameVersion.
		VersionList  []string            `json:"version_list,omitempty" mapstructure:"version_list"`
		Modloader    loader.Modloader    `json:"modloader" mapstructure:"modloader"`
		PluginLoader loader.PluginLoader `json:"plugin_loader,omitempty" mapstructure:"plugin_loader"`
		Side         loader.Side         `json:"side" mapstructure:"side"`
		Language     string              `json:"language" mapstructure:"language"`
		// Permissions is the default trust level for packages.
		Permissions    string `json:"permissions" mapstructure:"permissions"`
		Stability      string `json:"stability" mapstructure:"stability"`
		AddonSelection string `json:"addon_selection" mapstructure:"addon_selection"`
		// Concurrency limits parallel package evaluation. Zero removes the
		// limit.
		Concurrency  int            `json:"concurrency" mapstructure:"concurrency"`
		PackageDirs  []string       `json:"package_dirs,omitempty" mapstructure:"package_dirs"`
		Repositories []string       `json:"repositories,omitempty" mapstructure:"repositories"`
		Packages     []PackageEntry `json:"packages,omitempty" mapstructure:"packages"`
		UI           UIConfig       `json:"ui" mapstructure:"ui"`
	}
)

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config field %s: %v", e.Field, e.Err)
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Modloader:      loader.Vanilla,
		Side:           loader.SideClient,
		Language:       DefaultLanguage,
		Permissions:    evalctx.Standard.String(),
		Stability:      string(pkgdesc.StabilityStable),
		AddonSelection: string(evalctx.SelectAll),
		Concurrency:    resolve.DefaultConcurrency,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// Requests returns the configured packages as user requests, in order.
func (c *Config) Requests() ([]*pkgreq.Request, error) {
	reqs := make([]*pkgreq.Request, 0, len(c.Packages))
	seen := make(map[pkgreq.ID]bool, len(c.Packages))
	for i, p := range c.Packages {
		req, err := pkgreq.ParseRequest(p.ID)
		if err != nil {
			return nil, &InvalidConfigError{Field: fmt.Sprintf("packages[%d].id", i), Err: err}
		}
		if seen[req.ID] {
			return nil, &InvalidConfigError{Field: fmt.Sprintf("packages[%d].id", i), Err: fmt.Errorf("%w: %s", ErrDuplicatePackage, req.ID)}
		}
		seen[req.ID] = true
		if p.ContentVersion != "" {
			req.ContentVersion = p.ContentVersion
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// ResolveConfig converts the configuration into resolver input for host.
func (c *Config) ResolveConfig(host platform.Host) (resolve.Config, error) {
	perms, err := evalctx.ParsePermissions(c.Permissions)
	if err != nil {
		return resolve.Config{}, &InvalidConfigError{Field: "permissions", Err: err}
	}
	stability, err := parseStability(c.Stability)
	if err != nil {
		return resolve.Config{}, &InvalidConfigError{Field: "stability", Err: err}
	}
	selection, err := evalctx.ParseAddonSelection(c.AddonSelection)
	if err != nil {
		return resolve.Config{}, &InvalidConfigError{Field: "addon_selection", Err: err}
	}
	side := c.Side
	if side == "" {
		side = loader.SideClient
	}
	if err := side.Validate(); err != nil {
		return resolve.Config{}, &InvalidConfigError{Field: "side", Err: err}
	}

	versionList := c.VersionList
	if len(versionList) == 0 && c.GameVersion != "" {
		versionList = []string{c.GameVersion}
	}

	out := resolve.Config{
		Constants: &evalctx.Constants{
			Version:      c.GameVersion,
			VersionList:  versionList,
			Modloader:    c.Modloader,
			PluginLoader: c.PluginLoader,
			Language:     c.Language,
			Host:         host,
			Selection:    selection,
		},
		Side:        side,
		Permissions: perms,
		Stability:   stability,
		Packages:    make(map[pkgreq.ID]resolve.PackageConfig, len(c.Packages)),
	}

	reqs, err := c.Requests()
	if err != nil {
		return resolve.Config{}, err
	}
	for i, p := range c.Packages {
		pc := resolve.PackageConfig{
			Features:          p.Features,
			NoDefaultFeatures: p.UseDefaultFeatures != nil && !*p.UseDefaultFeatures,
			ContentVersion:    reqs[i].ContentVersion,
		}
		if p.Permissions != "" {
			perm, err := evalctx.ParsePermissions(p.Permissions)
			if err != nil {
				return resolve.Config{}, &InvalidConfigError{Field: fmt.Sprintf("packages[%d].permissions", i), Err: err}
			}
			pc.Permissions = &perm
		}
		if p.Stability != "" {
			st, err := pkgdesc.ParseStability(p.Stability)
			if err != nil {
				return resolve.Config{}, &InvalidConfigError{Field: fmt.Sprintf("packages[%d].stability", i), Err: err}
			}
			pc.Stability = st
		}
		out.Packages[reqs[i].ID] = pc
	}
	return out, nil
}

func parseStability(s string) (pkgdesc.Stability, error) {
	if s == "" {
		return pkgdesc.StabilityStable, nil
	}
	return pkgdesc.ParseStability(s)
}
