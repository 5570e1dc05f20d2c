// SPDX-License-Identifier: MPL-2.0

// Package registry locates package text and evaluates it for the resolver.
//
// Packages come from three kinds of sources, searched in this order:
//   - inline packages registered in memory (highest precedence)
//   - package directories holding <id>.pkg.txt (script) or <id>.json
//     (declarative) files
//   - repository indexes, whose entries point at files next to the index or
//     at remote URLs served through a Fetcher
//
// File organization:
//   - registry.go: Registry type, options and source registration
//   - locate.go: finding and loading package text
//   - evaluate.go: the resolve.PackageEvaluator and resolve.Advisor methods
package registry
