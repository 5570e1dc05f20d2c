// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcvm-launcher/mcvm-sub002/internal/config"
)

// newConfigCommand creates the `mcpkg config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mcpkg configuration",
		Long: `Manage mcpkg configuration.

Configuration is stored in:
  - Linux: ~/.config/mcpkg/config.cue
  - macOS: ~/Library/Application Support/mcpkg/config.cue
  - Windows: %APPDATA%\mcpkg\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wrapError(showConfig(cmd.Context(), app))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return wrapError(err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	loaded, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if err != nil {
		return err
	}
	cfg := loaded.Config
	w := app.stdout

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if loaded.Path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), loaded.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	show := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(unset)")
		} else {
			value = valueStyle.Render(value)
		}
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), value)
	}
	show("game_version", cfg.GameVersion)
	show("modloader", string(cfg.Modloader))
	show("plugin_loader", string(cfg.PluginLoader))
	show("side", cfg.Side.String())
	show("language", cfg.Language)
	show("permissions", cfg.Permissions)
	show("stability", cfg.Stability)
	show("addon_selection", cfg.AddonSelection)
	show("concurrency", fmt.Sprint(cfg.Concurrency))
	show("package_dirs", strings.Join(cfg.PackageDirs, ", "))
	show("repositories", strings.Join(cfg.Repositories, ", "))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("packages"))
	if len(cfg.Packages) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, p := range cfg.Packages {
		var extra []string
		if len(p.Features) > 0 {
			extra = append(extra, "features: "+strings.Join(p.Features, ", "))
		}
		if p.UseDefaultFeatures != nil && !*p.UseDefaultFeatures {
			extra = append(extra, "no default features")
		}
		if p.Permissions != "" {
			extra = append(extra, "permissions: "+p.Permissions)
		}
		if p.Stability != "" {
			extra = append(extra, "stability: "+p.Stability)
		}
		line := "  - " + valueStyle.Render(p.ID)
		if len(extra) > 0 {
			line += " " + SubtitleStyle.Render("("+strings.Join(extra, "; ")+")")
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))

	return nil
}
