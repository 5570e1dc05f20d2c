// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors for the mcpkg CLI.
//
// ActionableError carries the failed operation, the package or file involved
// and short suggestions. Longer Markdown guidance lives in the Issue catalogue
// and is rendered with glamour when an error links one.
package issue
