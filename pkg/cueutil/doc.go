// SPDX-License-Identifier: MPL-2.0

// Package cueutil checks documents against embedded CUE schemas.
//
// Two entry points share the same flow (size check, schema compile, data
// compile, unify, validate):
//
//   - ParseAndDecode also decodes the unified value into a Go struct. The
//     CLI configuration and repository index use it.
//   - Validate stops after validation. Declarative packages use it because
//     their JSON carries single-or-list fields that only a custom
//     json.Unmarshaler can decode.
//
// JSON is valid CUE, so both accept JSON input.
//
//	//go:embed package_schema.cue
//	var schema []byte
//
//	if err := cueutil.Validate(schema, data, "#Package", cueutil.WithFilename("pkg.json")); err != nil {
//	    return nil, err // carries the field path of each violation
//	}
package cueutil
