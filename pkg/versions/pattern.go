// SPDX-License-Identifier: MPL-2.0

// Package versions implements version patterns that match game or content
// versions by their position in an ordered version list.
//
// Versions in this domain are not semantic versions: ordering comes only from
// the list supplied by the caller (oldest first), so patterns such as "1.19+"
// are resolved by index rather than by parsing the version string.
package versions

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

const (
	// PatternSingle matches exactly one version.
	PatternSingle PatternKind = iota
	// PatternLatest matches the newest version in the list.
	PatternLatest
	// PatternBefore matches any version at or before the anchor.
	PatternBefore
	// PatternAfter matches any version at or after the anchor.
	PatternAfter
	// PatternRange matches an inclusive range of versions.
	PatternRange
	// PatternAny matches every version present in the list.
	PatternAny
)

type (
	// PatternKind identifies the shape of a Pattern.
	PatternKind int

	// Pattern is a parsed version pattern.
	//
	// Textual forms:
	//   - "1.20.1"        single version
	//   - "latest"        newest version in the list
	//   - "1.19-"         1.19 or anything before it
	//   - "1.19+"         1.19 or anything after it
	//   - "1.18..1.19.4"  inclusive range
	//   - "*"             any listed version
	Pattern struct {
		Kind PatternKind
		// From holds the single version, the anchor for Before/After, or the
		// range start.
		From string
		// To holds the range end.
		To string
	}
)

// Parse parses a version pattern. It never fails: text that does not use any
// pattern syntax is a single version.
func Parse(text string) Pattern {
	switch text {
	case "latest":
		return Pattern{Kind: PatternLatest}
	case "*":
		return Pattern{Kind: PatternAny}
	}

	if text != "" {
		switch text[len(text)-1] {
		case '-':
			return Pattern{Kind: PatternBefore, From: text[:len(text)-1]}
		case '+':
			return Pattern{Kind: PatternAfter, From: text[:len(text)-1]}
		}
	}

	if start, end, ok := strings.Cut(text, ".."); ok && !strings.Contains(end, "..") {
		return Pattern{Kind: PatternRange, From: start, To: end}
	}

	return Pattern{Kind: PatternSingle, From: text}
}

// Single returns a pattern that matches exactly one version.
func Single(version string) Pattern {
	return Pattern{Kind: PatternSingle, From: version}
}

// Matches reports whether version satisfies the pattern, using list as the
// ordered (oldest first) set of known versions. Patterns that depend on
// ordering never match when their anchors are missing from the list.
func (p Pattern) Matches(version string, list []string) bool {
	switch p.Kind {
	case PatternSingle:
		return version == p.From
	case PatternLatest:
		return len(list) > 0 && version == list[len(list)-1]
	case PatternBefore:
		anchor, pos := slices.Index(list, p.From), slices.Index(list, version)
		return anchor >= 0 && pos >= 0 && pos <= anchor
	case PatternAfter:
		anchor, pos := slices.Index(list, p.From), slices.Index(list, version)
		return anchor >= 0 && pos >= 0 && pos >= anchor
	case PatternRange:
		start, end := slices.Index(list, p.From), slices.Index(list, p.To)
		pos := slices.Index(list, version)
		return start >= 0 && end >= 0 && pos >= start && pos <= end
	case PatternAny:
		return slices.Contains(list, version)
	default:
		return false
	}
}

// MatchesAny reports whether any pattern in patterns matches version.
func MatchesAny(patterns []Pattern, version string, list []string) bool {
	return slices.ContainsFunc(patterns, func(p Pattern) bool {
		return p.Matches(version, list)
	})
}

// AllMatches returns every version in list that the pattern matches, in list
// order.
func (p Pattern) AllMatches(list []string) []string {
	var out []string
	for _, v := range list {
		if p.Matches(v, list) {
			out = append(out, v)
		}
	}
	return out
}

// String renders the pattern in its textual form; Parse(p.String()) == p.
func (p Pattern) String() string {
	switch p.Kind {
	case PatternLatest:
		return "latest"
	case PatternBefore:
		return p.From + "-"
	case PatternAfter:
		return p.From + "+"
	case PatternRange:
		return p.From + ".." + p.To
	case PatternAny:
		return "*"
	default:
		return p.From
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pattern) UnmarshalText(text []byte) error {
	*p = Parse(string(text))
	return nil
}

// UnmarshalJSON accepts only JSON strings.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("version pattern must be a string: %w", err)
	}
	*p = Parse(s)
	return nil
}
