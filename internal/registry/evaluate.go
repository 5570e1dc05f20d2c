// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/repo"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/resolve"
)

var (
	_ resolve.PackageEvaluator = (*Registry)(nil)
	_ resolve.Advisor          = (*Registry)(nil)
)

// Properties returns the properties of the requested package.
func (r *Registry) Properties(ctx context.Context, req *pkgreq.Request) (*pkgdesc.Properties, error) {
	pkg, err := r.Package(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return pkg.Properties()
}

// Metadata returns the metadata of package id.
func (r *Registry) Metadata(ctx context.Context, id pkgreq.ID) (*pkgdesc.Metadata, error) {
	pkg, err := r.Package(ctx, id)
	if err != nil {
		return nil, err
	}
	return pkg.Metadata()
}

// Eval evaluates the requested package at level.
func (r *Registry) Eval(ctx context.Context, req *pkgreq.Request, level evalctx.Level, in *evalctx.Input) (*eval.Result, error) {
	pkg, err := r.Package(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return pkg.Eval(ctx, level, in)
}

// Advisories returns the advisory flags of a repository package.
func (r *Registry) Advisories(id pkgreq.ID) []string {
	loc, err := r.Locate(id)
	if err != nil || loc.Source != SourceRepository {
		return nil
	}
	entry := repo.Entry{Flags: loc.Flags}
	var out []string
	for _, f := range entry.Advisories() {
		out = append(out, string(f))
	}
	return out
}
