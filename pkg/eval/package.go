// SPDX-License-Identifier: MPL-2.0

package eval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/declarative"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
)

const (
	// ContentScript is the instruction-based package format.
	ContentScript ContentType = "script"
	// ContentDeclarative is the JSON package format.
	ContentDeclarative ContentType = "declarative"
)

// ErrInvalidContentType is returned when a ContentType value is not recognized.
var ErrInvalidContentType = errors.New("invalid package content type")

type (
	// ContentType is the format a package is written in.
	ContentType string

	// Package is a loaded package of either format. It is immutable after
	// Load and safe for concurrent evaluation.
	Package struct {
		ID          pkgreq.ID
		ContentType ContentType

		parsed *script.Parsed
		decl   *declarative.Package

		metaOnce  sync.Once
		meta      *pkgdesc.Metadata
		metaErr   error
		propsOnce sync.Once
		props     *pkgdesc.Properties
		propsErr  error
	}
)

// ParseContentType parses "script" or "declarative". The empty string is
// script.
func ParseContentType(s string) (ContentType, error) {
	switch ct := ContentType(s); ct {
	case "", ContentScript:
		return ContentScript, nil
	case ContentDeclarative:
		return ct, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, s)
	}
}

// Load parses package text of the given content type.
func Load(id pkgreq.ID, ct ContentType, data []byte) (*Package, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	pkg := &Package{ID: id, ContentType: ct}

	switch ct {
	case ContentScript:
		parsed, err := script.LexAndParse(string(data))
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", id, err)
		}
		pkg.parsed = parsed
	case ContentDeclarative:
		decl, err := declarative.Parse(data, id.String()+".json")
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", id, err)
		}
		pkg.decl = decl
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentType, ct)
	}
	return pkg, nil
}

// staticInput is used for the meta and properties routines, which cannot
// read the instance.
func staticInput() *evalctx.Input {
	return &evalctx.Input{Constants: &evalctx.Constants{}}
}

// Metadata returns the package metadata, evaluating it once.
func (p *Package) Metadata() (*pkgdesc.Metadata, error) {
	p.metaOnce.Do(func() {
		var m pkgdesc.Metadata
		if p.decl != nil {
			m = p.decl.Meta
		} else {
			res, err := EvalScript(p.parsed, p.ID, evalctx.LevelMetadata, staticInput())
			if err != nil {
				p.metaErr = fmt.Errorf("package %s: %w", p.ID, err)
				return
			}
			m = res.Meta
		}
		m.ImproveGeneration()
		p.meta = &m
	})
	return p.meta, p.metaErr
}

// Properties returns the package properties, evaluating them once.
func (p *Package) Properties() (*pkgdesc.Properties, error) {
	p.propsOnce.Do(func() {
		var props pkgdesc.Properties
		if p.decl != nil {
			props = p.decl.Properties
		} else {
			res, err := EvalScript(p.parsed, p.ID, evalctx.LevelProperties, staticInput())
			if err != nil {
				p.propsErr = fmt.Errorf("package %s: %w", p.ID, err)
				return
			}
			props = res.Properties
		}
		if err := props.Validate(); err != nil {
			p.propsErr = fmt.Errorf("package %s: %w", p.ID, err)
			return
		}
		p.props = &props
	})
	return p.props, p.propsErr
}

// Eval evaluates the package at level. For the resolve, install and
// uninstall levels the supported_* properties are checked first.
func (p *Package) Eval(ctx context.Context, level evalctx.Level, in *evalctx.Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch level {
	case evalctx.LevelMetadata:
		m, err := p.Metadata()
		if err != nil {
			return nil, err
		}
		return &Result{Level: level, Meta: *m}, nil
	case evalctx.LevelProperties:
		props, err := p.Properties()
		if err != nil {
			return nil, err
		}
		return &Result{Level: level, Properties: *props}, nil
	}

	props, err := p.Properties()
	if err != nil {
		return nil, err
	}
	skip, err := CheckProperties(in, props)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", p.ID, err)
	}
	if skip {
		return &Result{Level: level, Skipped: true}, nil
	}

	var res *Result
	if p.decl != nil {
		res, err = p.evalDeclarative(level, in)
	} else {
		res, err = EvalScript(p.parsed, p.ID, level, in)
	}
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", p.ID, err)
	}
	return res, nil
}

func (p *Package) evalDeclarative(level evalctx.Level, in *evalctx.Input) (*Result, error) {
	ev, err := p.decl.Evaluate(in)
	if err != nil {
		return nil, err
	}
	if err := checkNotices(ev.Notices); err != nil {
		return nil, err
	}

	res := &Result{Level: level, Notices: ev.Notices}
	switch level {
	case evalctx.LevelResolve:
		res.Relations = ev.Relations
	case evalctx.LevelInstall:
		for _, sel := range ev.Addons {
			v := sel.Version
			if v.Path != "" && !in.Params.Permissions.Allows(evalctx.Elevated) {
				return nil, &PermissionError{Instruction: "addon", Required: evalctx.Elevated, Actual: in.Params.Permissions}
			}
			req, err := addon.NewRequest(addon.Data{
				ID:       sel.ID,
				Kind:     sel.Kind,
				FileName: v.Filename,
				URL:      v.URL,
				Path:     v.Path,
				Version:  v.Version,
				Hashes:   v.Hashes,
			}, p.ID, true)
			if err != nil {
				return nil, err
			}
			res.Addons = append(res.Addons, req)
		}
	}
	return res, nil
}
