// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/mcvm-launcher/mcvm-sub002/internal/registry"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/declarative"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
)

// newParseCommand creates `mcpkg parse`, which checks package files
// without evaluating their install routines.
func newParseCommand(app *App) *cobra.Command {
	var tokens bool

	cmd := &cobra.Command{
		Use:   "parse <file>...",
		Short: "Check package files for syntax and schema errors",
		Long: `Check package files for syntax and schema errors.

Files ending in .json are read as declarative packages; everything else is
read as a package script. The package id is taken from the file name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := parseFile(app.stdout, path, tokens); err != nil {
					return wrapError(err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&tokens, "tokens", false, "print the lexer tokens of script packages")

	return cmd
}

// packageFromPath derives the package id and content type from a file name.
func packageFromPath(path string) (pkgreq.ID, eval.ContentType) {
	base := filepath.Base(path)
	if name, ok := strings.CutSuffix(base, registry.DeclarativeExt); ok {
		return pkgreq.ID(name), eval.ContentDeclarative
	}
	if name, ok := strings.CutSuffix(base, registry.ScriptExt); ok {
		return pkgreq.ID(name), eval.ContentScript
	}
	return pkgreq.ID(strings.TrimSuffix(base, filepath.Ext(base))), eval.ContentScript
}

func parseFile(w io.Writer, path string, tokens bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	id, ct := packageFromPath(path)

	pkg, err := eval.Load(id, ct, data)
	if err != nil {
		return err
	}
	meta, err := pkg.Metadata()
	if err != nil {
		return err
	}
	props, err := pkg.Properties()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s %s\n", SuccessStyle.Render("✓"), TitleStyle.Render(string(id)), SubtitleStyle.Render("("+string(ct)+")"))
	writeMetadata(w, meta)
	writeProperties(w, props)

	switch ct {
	case eval.ContentScript:
		if tokens {
			toks, err := script.Lex(string(data))
			if err != nil {
				return err
			}
			fmt.Fprintln(w, CmdStyle.Render("tokens:"))
			for _, t := range toks {
				fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render(t.Pos.String()), t)
			}
		}
		parsed, err := script.LexAndParse(string(data))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, CmdStyle.Render("routines:"))
		names := maps.Keys(parsed.Routines)
		slices.Sort(names)
		for _, name := range names {
			if name == script.RoutineDefault {
				continue
			}
			block, _ := parsed.Routine(name)
			fmt.Fprintf(w, "  @%s (%d instructions)\n", name, len(block.Instructions))
		}
	case eval.ContentDeclarative:
		decl, err := declarative.Parse(data, path)
		if err != nil {
			return err
		}
		addons := maps.Keys(decl.Addons)
		slices.Sort(addons)
		fmt.Fprintf(w, "%s %s\n", CmdStyle.Render("addons:"), strings.Join(addons, ", "))
	}
	return nil
}

func writeMetadata(w io.Writer, meta *pkgdesc.Metadata) {
	writeField(w, "name", meta.Name)
	writeField(w, "description", meta.Description)
	writeField(w, "version", meta.Version)
	writeField(w, "authors", strings.Join(meta.Authors, ", "))
	writeField(w, "license", meta.License)
	writeField(w, "website", meta.Website)
}

func writeProperties(w io.Writer, props *pkgdesc.Properties) {
	writeField(w, "features", strings.Join(props.Features, ", "))
	writeField(w, "default_features", strings.Join(props.DefaultFeatures, ", "))
	writeField(w, "content_versions", strings.Join(props.ContentVersions, ", "))
	versions := make([]string, 0, len(props.SupportedVersions))
	for _, v := range props.SupportedVersions {
		versions = append(versions, v.String())
	}
	writeField(w, "supported_versions", strings.Join(versions, ", "))
	sides := make([]string, 0, len(props.SupportedSides))
	for _, s := range props.SupportedSides {
		sides = append(sides, s.String())
	}
	writeField(w, "supported_sides", strings.Join(sides, ", "))
}

func writeField(w io.Writer, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render(key), value)
}
