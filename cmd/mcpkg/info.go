// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
)

// newInfoCommand creates `mcpkg info`, which shows where a package comes
// from together with its metadata and properties.
func newInfoCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show package metadata and properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := app.newSession(ctx)
			if err != nil {
				return wrapError(err)
			}
			id := pkgreq.ID(args[0])
			loc, err := sess.registry.Locate(id)
			if err != nil {
				return wrapError(err)
			}
			meta, err := sess.registry.Metadata(ctx, id)
			if err != nil {
				return wrapError(err)
			}
			props, err := sess.registry.Properties(ctx, pkgreq.NewUserRequest(id))
			if err != nil {
				return wrapError(err)
			}

			w := app.stdout
			fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(string(id)), SubtitleStyle.Render("("+loc.Source.String()+", "+string(loc.ContentType)+")"))
			writeField(w, "path", loc.Path)
			writeField(w, "url", loc.URL)
			writeField(w, "repository", loc.Repository)
			for _, adv := range sess.registry.Advisories(id) {
				fmt.Fprintln(w, WarningStyle.Render("flagged: ")+adv)
			}
			writeMetadata(w, meta)
			writeProperties(w, props)
			return nil
		},
	}
}

// newListCommand creates `mcpkg list`, which lists every known package id.
func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the packages the configured sources provide",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.newSession(cmd.Context())
			if err != nil {
				return wrapError(err)
			}
			for _, id := range sess.registry.IDs() {
				loc, err := sess.registry.Locate(id)
				if err != nil {
					fmt.Fprintf(app.stdout, "%s %s\n", ErrorStyle.Render(string(id)), SubtitleStyle.Render(err.Error()))
					continue
				}
				fmt.Fprintf(app.stdout, "%s %s\n", string(id), SubtitleStyle.Render(loc.Source.String()))
			}
			return nil
		},
	}
}
