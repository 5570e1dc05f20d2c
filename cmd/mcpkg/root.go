// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for mcpkg.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mcpkg",
		Short: "Resolve game add-on packages into an install plan",
		Long: TitleStyle.Render("mcpkg") + SubtitleStyle.Render(" - Resolve game add-on packages into an install plan") + `

mcpkg reads package scripts and declarative JSON packages, evaluates them
against your instance (game version, modloader, side) and resolves their
dependencies, conflicts and bundles into an ordered plan of addon files.

` + SubtitleStyle.Render("Examples:") + `
  mcpkg resolve                       Resolve the packages in your config
  mcpkg resolve sodium --lock mcpkg.lock.json
  mcpkg eval fabric-api --level install
  mcpkg parse ./packages/modpack.pkg.txt
  mcpkg config show                   Show current configuration`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is $HOME/.config/mcpkg/config.cue)")
	flags.StringArrayVar(&app.flags.packageDirs, "package-dir", nil, "additional package directory (repeatable)")
	flags.StringArrayVar(&app.flags.repositories, "repository", nil, "additional repository index or directory (repeatable)")

	rootCmd.AddCommand(
		newParseCommand(app),
		newEvalCommand(app),
		newInfoCommand(app),
		newListCommand(app),
		newResolveCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if code := handleError(app, err); code != 0 {
		os.Exit(code)
	}
}

// handleError renders err on the app's stderr and returns the exit code.
func handleError(app *App, err error) int {
	if err == nil {
		return 0
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(app.stderr, svcErr, app.flags.verbose, app.logger)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// wrapError classifies a handler error for issue rendering.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return newServiceError(err)
}
