// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/repo"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/resolve"
)

// Locate finds where the text of package id lives. It returns an error
// wrapping resolve.ErrUnknownPackage when no source has it, and
// ErrMaliciousPackage for repository entries flagged malicious.
func (r *Registry) Locate(id pkgreq.ID) (Location, error) {
	if err := id.Validate(); err != nil {
		return Location{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.inline[id]; ok {
		return Location{ID: id, Source: SourceInline, ContentType: p.contentType}, nil
	}

	for _, dir := range r.dirs {
		for _, c := range []struct {
			ext string
			ct  eval.ContentType
		}{
			{ScriptExt, eval.ContentScript},
			{DeclarativeExt, eval.ContentDeclarative},
		} {
			path := filepath.Join(dir, string(id)+c.ext)
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			return Location{ID: id, Source: SourceDirectory, ContentType: c.ct, Path: path}, nil
		}
	}

	for _, rp := range r.repos {
		entry, ok := rp.index.Packages[id]
		if !ok {
			continue
		}
		if entry.Has(repo.FlagMalicious) {
			return Location{}, fmt.Errorf("package %s in %s: %w", id, rp.path, ErrMaliciousPackage)
		}
		loc := Location{
			ID:          id,
			Source:      SourceRepository,
			ContentType: entry.ContentType,
			URL:         entry.URL,
			Repository:  rp.path,
			Flags:       slices.Clone(entry.Flags),
		}
		if entry.IsLocal() {
			loc.Path = entry.Path
			if !filepath.IsAbs(loc.Path) {
				loc.Path = filepath.Join(filepath.Dir(rp.path), loc.Path)
			}
		}
		return loc, nil
	}

	return Location{}, fmt.Errorf("%w: %s", resolve.ErrUnknownPackage, id)
}

// read returns the package text at loc.
func (r *Registry) read(ctx context.Context, loc Location) ([]byte, error) {
	switch {
	case loc.Source == SourceInline:
		r.mu.RLock()
		p, ok := r.inline[loc.ID]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", resolve.ErrUnknownPackage, loc.ID)
		}
		return p.data, nil
	case loc.Path != "":
		data, err := os.ReadFile(loc.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (missing file %s)", resolve.ErrUnknownPackage, loc.ID, loc.Path)
		}
		return data, err
	case loc.URL != "":
		if r.fetcher == nil {
			return nil, fmt.Errorf("package %s at %s: %w", loc.ID, loc.URL, ErrRemoteUnsupported)
		}
		return r.fetcher.Fetch(ctx, loc.URL)
	default:
		return nil, fmt.Errorf("%w: %s", resolve.ErrUnknownPackage, loc.ID)
	}
}

// Package returns the loaded package id. Packages are read and parsed once;
// concurrent callers share the load.
func (r *Registry) Package(ctx context.Context, id pkgreq.ID) (*eval.Package, error) {
	r.loadedMu.Lock()
	pkg, ok := r.loaded[id]
	r.loadedMu.Unlock()
	if ok {
		return pkg, nil
	}

	v, err, _ := r.loadGroup.Do(string(id), func() (any, error) {
		loc, err := r.Locate(id)
		if err != nil {
			return nil, err
		}
		data, err := r.read(ctx, loc)
		if err != nil {
			return nil, err
		}
		pkg, err := eval.Load(id, loc.ContentType, data)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("loaded package", "package", id, "source", loc.Source, "content_type", loc.ContentType)

		r.loadedMu.Lock()
		r.loaded[id] = pkg
		r.loadedMu.Unlock()
		return pkg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*eval.Package), nil
}
