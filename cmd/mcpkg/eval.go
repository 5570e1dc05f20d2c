// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
)

// newEvalCommand creates `mcpkg eval`, which evaluates a single package
// against the configured instance without resolving its relations.
func newEvalCommand(app *App) *cobra.Command {
	var (
		level  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "eval <id>",
		Short: "Evaluate one package against the configured instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := parseLevel(level)
			if err != nil {
				return err
			}
			return wrapError(evalPackage(cmd, app, args[0], lvl, asJSON))
		},
	}
	cmd.Flags().StringVar(&level, "level", "resolve", "evaluation level: resolve, install or uninstall")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func parseLevel(s string) (evalctx.Level, error) {
	for _, l := range []evalctx.Level{evalctx.LevelResolve, evalctx.LevelInstall, evalctx.LevelUninstall} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("invalid level %q: must be resolve, install or uninstall", s)
}

func evalPackage(cmd *cobra.Command, app *App, arg string, level evalctx.Level, asJSON bool) error {
	ctx := cmd.Context()
	sess, err := app.newSession(ctx)
	if err != nil {
		return err
	}

	req, err := pkgreq.ParseRequest(arg)
	if err != nil {
		return err
	}
	props, err := sess.registry.Properties(ctx, req)
	if err != nil {
		return err
	}
	in, err := sess.resolve.Input(req, props)
	if err != nil {
		return err
	}
	res, err := sess.registry.Eval(ctx, req, level, in)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	writeResult(app.stdout, req, in, res)
	return nil
}

func writeResult(w io.Writer, req *pkgreq.Request, in *evalctx.Input, res *eval.Result) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(req.String()), SubtitleStyle.Render("("+res.Level.String()+")"))
	if res.Skipped {
		fmt.Fprintln(w, skippedStyle.Render("skipped: not supported on side "+in.Params.Side.String()))
		return
	}
	writeField(w, "features", strings.Join(in.Params.Features, ", "))

	rel := res.Relations
	for _, group := range rel.Deps {
		members := make([]string, 0, len(group))
		for _, m := range group {
			if m.Explicit {
				members = append(members, "<"+string(m.ID)+">")
			} else {
				members = append(members, string(m.ID))
			}
		}
		writeField(w, "require", strings.Join(members, " | "))
	}
	writeField(w, "bundle", joinIDs(rel.Bundled))
	writeField(w, "refuse", joinIDs(rel.Conflicts))
	writeField(w, "extend", joinIDs(rel.Extensions))
	for _, r := range rel.Recommendations {
		if r.Invert {
			writeField(w, "recommend against", string(r.ID))
		} else {
			writeField(w, "recommend", string(r.ID))
		}
	}
	for _, c := range rel.Compats {
		writeField(w, "compat", fmt.Sprintf("if %s then %s", c.Package, c.With))
	}

	writeDetails(w, res.Addons, res.Commands, res.Notices)
}

func joinIDs(ids []pkgreq.ID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, string(id))
	}
	return strings.Join(parts, ", ")
}
