// SPDX-License-Identifier: MPL-2.0

// Package eval evaluates packages of either format against an evaluation
// context. Script packages are interpreted instruction by instruction;
// declarative packages are delegated to the declarative selector. Both
// produce the same Result.
package eval

import (
	"fmt"
	"unicode/utf8"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
)

const (
	// MaxNotices is the most notices one package may emit in one evaluation.
	MaxNotices = 10
	// MaxNoticeChars is the longest notice allowed, in characters.
	MaxNoticeChars = 400
)

// Result is the outcome of evaluating one package at one level. Only the
// fields the level produces are set.
type Result struct {
	Level      evalctx.Level
	Meta       pkgdesc.Metadata
	Properties pkgdesc.Properties
	Relations  pkgreq.Relations
	Addons     []*addon.Request
	Commands   [][]string
	Notices    []string
	// Skipped is set when the package does not support the requested side
	// and evaluation stopped without producing anything.
	Skipped bool
}

func checkNotices(notices []string) error {
	if len(notices) > MaxNotices {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyNotices, len(notices), MaxNotices)
	}
	for _, n := range notices {
		if utf8.RuneCountInString(n) > MaxNoticeChars {
			return fmt.Errorf("%w: %d characters (max %d)", ErrNoticeTooLong, utf8.RuneCountInString(n), MaxNoticeChars)
		}
	}
	return nil
}
