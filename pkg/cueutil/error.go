// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	stderrors "errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// ErrSchema is matched by every *ValidationError via errors.Is.
var ErrSchema = stderrors.New("document does not match schema")

// ValidationError is a document that failed schema validation.
type ValidationError struct {
	// FilePath is the document being validated.
	FilePath string

	// CUEPath is the JSON path to the invalid value (e.g., "addons.sodium.kind").
	// Empty when several fields failed.
	CUEPath string

	// Message is the validation error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.CUEPath != "" {
		return fmt.Sprintf("%s: %s: %s", e.FilePath, e.CUEPath, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns ErrSchema for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error {
	return ErrSchema
}

// FormatError converts a CUE error into a *ValidationError whose message
// prefixes each violation with its JSON path, e.g.
//
//	sodium.json: addons.sodium.kind: 2 errors in empty disjunction
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	// Extract all CUE errors
	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	var lines []string
	var firstPath string
	for i, e := range cueErrors {
		pathStr := formatPath(errors.Path(e))
		msg := e.Error()
		if i == 0 {
			firstPath = pathStr
		}

		// CUE sometimes repeats the path in the message.
		if pathStr != "" && strings.HasPrefix(msg, pathStr) {
			msg = strings.TrimPrefix(msg, pathStr)
			msg = strings.TrimPrefix(msg, ":")
			msg = strings.TrimSpace(msg)
		}

		if pathStr != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", pathStr, msg))
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		msg := strings.TrimPrefix(lines[0], firstPath+": ")
		return &ValidationError{FilePath: filePath, CUEPath: firstPath, Message: msg}
	}
	return &ValidationError{FilePath: filePath, Message: "validation failed:\n  " + strings.Join(lines, "\n  ")}
}

// formatPath converts a CUE error path such as ["addons", "0", "kind"] to
// "addons[0].kind".
func formatPath(path []string) string {
	if len(path) == 0 {
		return ""
	}

	var result strings.Builder
	for i, part := range path {
		isIndex := true
		for _, c := range part {
			if c < '0' || c > '9' {
				isIndex = false
				break
			}
		}

		if isIndex && i > 0 {
			result.WriteString("[")
			result.WriteString(part)
			result.WriteString("]")
		} else {
			if i > 0 {
				result.WriteString(".")
			}
			result.WriteString(part)
		}
	}

	return result.String()
}

// CheckFileSize returns an error if data is larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
