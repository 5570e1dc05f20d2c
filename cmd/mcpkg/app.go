// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mcvm-launcher/mcvm-sub002/internal/config"
	"github.com/mcvm-launcher/mcvm-sub002/internal/registry"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/resolve"
)

type (
	// App wires CLI services and shared dependencies. All Cobra handlers
	// receive an App and reach configuration and packages through it.
	App struct {
		Config config.Provider
		// Fetcher, when set, lets the registry load packages listed by URL.
		Fetcher registry.Fetcher
		Host    platform.Host
		stdout  io.Writer
		stderr  io.Writer
		logger  *log.Logger
		flags   rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  config.Provider
		Fetcher registry.Fetcher
		Host    *platform.Host
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// rootFlags are the persistent flags shared by every command.
	rootFlags struct {
		configPath   string
		verbose      bool
		packageDirs  []string
		repositories []string
	}

	// session is the per-invocation state built from the configuration.
	session struct {
		cfg      *config.Config
		resolve  resolve.Config
		registry *registry.Registry
		// packageDirs are the package directories in use, config first.
		packageDirs []string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	host := platform.Current()
	if deps.Host != nil {
		host = *deps.Host
	}

	return &App{
		Config:  deps.Config,
		Fetcher: deps.Fetcher,
		Host:    host,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		logger: log.NewWithOptions(deps.Stderr, log.Options{
			Prefix: "mcpkg",
			Level:  log.WarnLevel,
		}),
	}
}

// configure applies the verbose flag, or the config's ui.verbose, to the logger.
func (a *App) configure(cfg *config.Config) {
	if a.flags.verbose || (cfg != nil && cfg.UI.Verbose) {
		a.logger.SetLevel(log.DebugLevel)
	}
}

// loadConfig loads configuration honoring --config.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}
	a.configure(cfg)
	return cfg, nil
}

// newSession loads the configuration and builds the package registry from
// its package directories and repositories plus any given on the command line.
func (a *App) newSession(ctx context.Context) (*session, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	opts := []registry.Option{registry.WithLogger(a.logger)}
	if a.Fetcher != nil {
		opts = append(opts, registry.WithFetcher(a.Fetcher))
	}
	reg := registry.New(opts...)

	dirs := append(append([]string{}, cfg.PackageDirs...), a.flags.packageDirs...)
	for _, dir := range dirs {
		if err := reg.AddDirectory(dir); err != nil {
			return nil, fmt.Errorf("package directory %s: %w", dir, err)
		}
	}
	for _, path := range append(append([]string{}, cfg.Repositories...), a.flags.repositories...) {
		if err := reg.AddRepository(path); err != nil {
			return nil, fmt.Errorf("repository %s: %w", path, err)
		}
	}

	rc, err := cfg.ResolveConfig(a.Host)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, resolve: rc, registry: reg, packageDirs: dirs}, nil
}

// resolver returns a resolver over the session registry.
func (s *session) resolver(a *App) *resolve.Resolver {
	return resolve.New(s.registry,
		resolve.WithLogger(a.logger),
		resolve.WithConcurrency(s.cfg.Concurrency),
	)
}
