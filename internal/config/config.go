// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/mcvm-launcher/mcvm-sub002/internal/issue"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "mcpkg"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the mcpkg configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading. It returns the
// path of the file that was read, or "" when only defaults apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("modloader", defaults.Modloader)
	v.SetDefault("side", defaults.Side)
	v.SetDefault("language", defaults.Language)
	v.SetDefault("permissions", defaults.Permissions)
	v.SetDefault("stability", defaults.Stability)
	v.SetDefault("addon_selection", defaults.AddonSelection)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'mcpkg config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if fileExists(candidate) {
				resolvedPath = candidate
				break
			}
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'mcpkg config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if _, err := cfg.Requests(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithResource(resolvedPath).
			WithSuggestion("List each package once; put per-package options on that entry").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// This does not use cueutil.ParseAndDecode because the result is merged into
// Viper as a map and the package shorthand has to be expanded first.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}
	expandPackageShorthand(configMap)

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// expandPackageShorthand rewrites bare package strings into {id: ...}
// entries so every element decodes into a PackageEntry.
func expandPackageShorthand(configMap map[string]any) {
	pkgs, ok := configMap["packages"].([]any)
	if !ok {
		return
	}
	for i, p := range pkgs {
		if id, ok := p.(string); ok {
			pkgs[i] = map[string]any{"id": id}
		}
	}
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig creates a default config file if it doesn't exist and
// returns its path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// mcpkg configuration file\n\n")

	if cfg.GameVersion != "" {
		fmt.Fprintf(&sb, "game_version: %q\n", cfg.GameVersion)
	}
	writeStringList(&sb, "", "version_list", cfg.VersionList)
	fmt.Fprintf(&sb, "modloader: %q\n", cfg.Modloader)
	if cfg.PluginLoader != "" {
		fmt.Fprintf(&sb, "plugin_loader: %q\n", cfg.PluginLoader)
	}
	fmt.Fprintf(&sb, "side: %q\n", cfg.Side)
	fmt.Fprintf(&sb, "language: %q\n", cfg.Language)
	fmt.Fprintf(&sb, "permissions: %q\n", cfg.Permissions)
	fmt.Fprintf(&sb, "stability: %q\n", cfg.Stability)
	fmt.Fprintf(&sb, "addon_selection: %q\n", cfg.AddonSelection)
	fmt.Fprintf(&sb, "concurrency: %d\n", cfg.Concurrency)

	writeStringList(&sb, "\n", "package_dirs", cfg.PackageDirs)
	writeStringList(&sb, "\n", "repositories", cfg.Repositories)

	if len(cfg.Packages) > 0 {
		sb.WriteString("\npackages: [\n")
		for _, p := range cfg.Packages {
			if p.isShorthand() {
				fmt.Fprintf(&sb, "\t%q,\n", p.ID)
				continue
			}
			fmt.Fprintf(&sb, "\t{\n\t\tid: %q\n", p.ID)
			if len(p.Features) > 0 {
				fmt.Fprintf(&sb, "\t\tfeatures: [%s]\n", quoteJoin(p.Features))
			}
			if p.UseDefaultFeatures != nil {
				fmt.Fprintf(&sb, "\t\tuse_default_features: %v\n", *p.UseDefaultFeatures)
			}
			if p.Permissions != "" {
				fmt.Fprintf(&sb, "\t\tpermissions: %q\n", p.Permissions)
			}
			if p.Stability != "" {
				fmt.Fprintf(&sb, "\t\tstability: %q\n", p.Stability)
			}
			if p.ContentVersion != "" {
				fmt.Fprintf(&sb, "\t\tcontent_version: %q\n", p.ContentVersion)
			}
			sb.WriteString("\t},\n")
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func (p *PackageEntry) isShorthand() bool {
	return len(p.Features) == 0 && p.UseDefaultFeatures == nil && p.Permissions == "" &&
		p.Stability == "" && p.ContentVersion == ""
}

func writeStringList(sb *strings.Builder, prefix, key string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s%s: [%s]\n", prefix, key, quoteJoin(values))
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
