// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/syntax"

	"github.com/mcvm-launcher/mcvm-sub002/internal/lockfile"
	"github.com/mcvm-launcher/mcvm-sub002/internal/registry"
	"github.com/mcvm-launcher/mcvm-sub002/internal/watch"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/resolve"
)

type resolveOptions struct {
	lockPath string
	format   string
	strict   bool
	watch    bool
}

// newResolveCommand creates `mcpkg resolve`, which resolves the configured
// packages plus any given as arguments into an install plan.
func newResolveCommand(app *App) *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve [id[@content_version]]...",
		Short: "Resolve packages into an ordered install plan",
		Long: `Resolve packages into an ordered install plan.

The packages listed in the config file are always requested. Arguments add
further packages for this run. Each package is printed after the packages it
pulled in, together with the chain that explains why it is installed.

With --watch the plan is resolved again whenever a file in a package
directory changes, until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch {
				return wrapError(watchResolve(cmd.Context(), app, args, opts))
			}
			return wrapError(runResolve(cmd.Context(), app, args, opts))
		},
	}
	cmd.Flags().StringVar(&opts.lockPath, "lock", "", "write the plan to a lockfile (.json, .toml or .yaml)")
	cmd.Flags().StringVar(&opts.format, "format", "", "print the plan as json, toml or yaml instead of text")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with status 2 when the plan has warnings")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "resolve again when package files change")
	cmd.MarkFlagsMutuallyExclusive("watch", "strict")

	return cmd
}

func runResolve(ctx context.Context, app *App, args []string, opts resolveOptions) error {
	sess, err := app.newSession(ctx)
	if err != nil {
		return err
	}

	reqs, err := sess.cfg.Requests()
	if err != nil {
		return err
	}
	reqs, err = appendArgs(reqs, args)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return fmt.Errorf("no packages requested: add them to 'packages' in the config or pass them as arguments")
	}

	plan, err := sess.resolver(app).Resolve(ctx, reqs, sess.resolve)
	if err != nil {
		return err
	}
	lf := lockfile.FromPlan(plan, sess.resolve.Constants)

	if opts.format != "" {
		f, err := lockfile.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		if err := lf.Encode(app.stdout, f); err != nil {
			return err
		}
	} else {
		writePlan(app.stdout, plan)
	}

	if opts.lockPath != "" {
		if err := lf.WriteFile(opts.lockPath); err != nil {
			return err
		}
		app.logger.Info("wrote lockfile", "path", opts.lockPath, "packages", len(lf.Packages))
	}

	if opts.strict && len(plan.Warnings) > 0 {
		return &ExitError{Code: ExitWarnings, Err: fmt.Errorf("plan has %d warning(s)", len(plan.Warnings))}
	}
	return nil
}

// watchResolve resolves once, then again after every batch of package file
// changes. Resolution errors are reported and the watch continues.
func watchResolve(ctx context.Context, app *App, args []string, opts resolveOptions) error {
	sess, err := app.newSession(ctx)
	if err != nil {
		return err
	}

	once := func(ctx context.Context) {
		if err := runResolve(ctx, app, args, opts); err != nil {
			app.logger.Error("resolve failed", "err", err)
			renderServiceError(app.stderr, newServiceError(err), app.flags.verbose, app.logger)
		}
	}

	w, err := watch.New(watch.Config{
		Dirs:     sess.packageDirs,
		Patterns: []string{"**/*" + registry.ScriptExt, "**/*" + registry.DeclarativeExt},
		Logger:   app.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			app.logger.Info("package files changed", "files", len(changed))
			fmt.Fprintln(app.stdout)
			once(ctx)
			return nil
		},
	})
	if err != nil {
		return err
	}

	once(ctx)
	fmt.Fprintln(app.stdout, SubtitleStyle.Render("watching "+strings.Join(w.Roots(), ", ")))
	return w.Run(ctx)
}

// appendArgs adds command line requests, skipping packages already configured.
func appendArgs(reqs []*pkgreq.Request, args []string) ([]*pkgreq.Request, error) {
	for _, arg := range args {
		req, err := pkgreq.ParseRequest(arg)
		if err != nil {
			return nil, err
		}
		dup := false
		for _, r := range reqs {
			if r.Same(req) {
				dup = true
				break
			}
		}
		if !dup {
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

func writePlan(w io.Writer, plan *resolve.Plan) {
	fmt.Fprintln(w, TitleStyle.Render("Install plan"))
	for i, e := range plan.Entries {
		line := fmt.Sprintf("%2d. %s", i+1, e.Request.String())
		if e.Skipped {
			fmt.Fprintf(w, "%s %s\n", skippedStyle.Render(line), SubtitleStyle.Render("(skipped)"))
			continue
		}
		fmt.Fprintf(w, "%s %s\n", line, SubtitleStyle.Render(e.Request.Chain()))
		if len(e.Extends) > 0 {
			fmt.Fprintln(w, indentStyle.Render("extends "+joinIDs(e.Extends)))
		}
		writeDetails(w, e.Addons, e.Commands, e.Notices)
	}

	if len(plan.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warn := range plan.Warnings {
			fmt.Fprintln(w, WarningStyle.Render("warning: ")+warn.String())
		}
	}
}

// writeDetails prints addons, commands and notices indented under a package.
func writeDetails(w io.Writer, addons []*addon.Request, commands [][]string, notices []string) {
	for _, a := range addons {
		src := a.URL
		if src == "" {
			src = a.Path
		}
		fmt.Fprintln(w, indentStyle.Render(fmt.Sprintf("%s %s %s", a.Kind, CmdStyle.Render(a.FileName), SubtitleStyle.Render(src))))
	}
	for _, c := range commands {
		fmt.Fprintln(w, indentStyle.Render("$ "+CmdStyle.Render(shellQuote(c))))
	}
	for _, n := range notices {
		fmt.Fprintln(w, indentStyle.Render(WarningStyle.Render("notice: ")+n))
	}
}

// shellQuote renders a command so it can be pasted into a POSIX shell.
func shellQuote(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			// Strings with NUL bytes cannot be quoted; show them escaped.
			q = fmt.Sprintf("%q", arg)
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " ")
}
