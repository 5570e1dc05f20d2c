// SPDX-License-Identifier: MPL-2.0

// Package repo reads package repository indexes: JSON documents mapping
// package ids to the location of their package text, plus advisory flags.
package repo

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
)

const (
	// FlagOutOfDate marks a package that no longer tracks upstream.
	FlagOutOfDate Flag = "out_of_date"
	// FlagDeprecated marks a package that should be replaced.
	FlagDeprecated Flag = "deprecated"
	// FlagInsecure marks a package with known security problems.
	FlagInsecure Flag = "insecure"
	// FlagMalicious marks a package that must never be installed.
	FlagMalicious Flag = "malicious"
)

const schemaURL = "index.schema.json"

var (
	//go:embed index.schema.json
	schemaBytes []byte

	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error

	// ErrInvalidIndex is returned when an index fails schema validation.
	ErrInvalidIndex = errors.New("invalid repository index")
)

type (
	// Flag is an advisory marker on an index entry.
	Flag string

	// Metadata describes the repository itself.
	Metadata struct {
		Name        string `json:"name,omitempty"`
		Description string `json:"description,omitempty"`
		Version     string `json:"version,omitempty"`
	}

	// Entry locates one package. Exactly one of URL and Path is set; Path is
	// relative to the index file.
	Entry struct {
		URL         string           `json:"url,omitempty"`
		Path        string           `json:"path,omitempty"`
		ContentType eval.ContentType `json:"content_type,omitempty"`
		Flags       []Flag           `json:"flags,omitempty"`
	}

	// Index is a repository index document.
	Index struct {
		Metadata Metadata            `json:"metadata"`
		Packages map[pkgreq.ID]Entry `json:"packages"`
	}
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("internal error: index schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("internal error: index schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Parse validates and decodes an index document.
func Parse(data []byte) (*Index, error) {
	sch, err := schema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	for id, e := range idx.Packages {
		if err := id.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
		}
		if e.ContentType == "" {
			e.ContentType = eval.ContentScript
			idx.Packages[id] = e
		}
	}
	return &idx, nil
}

// Has reports whether the entry carries flag.
func (e *Entry) Has(flag Flag) bool {
	return slices.Contains(e.Flags, flag)
}

// IsLocal reports whether the package text is next to the index.
func (e *Entry) IsLocal() bool {
	return e.Path != ""
}

// Advisories returns the flags that should be surfaced as warnings, in a
// fixed order. Malicious is excluded; callers refuse those entries.
func (e *Entry) Advisories() []Flag {
	var out []Flag
	for _, f := range []Flag{FlagDeprecated, FlagInsecure, FlagOutOfDate} {
		if e.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
