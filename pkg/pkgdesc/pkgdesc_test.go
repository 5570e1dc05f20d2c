// SPDX-License-Identifier: MPL-2.0

package pkgdesc

import (
	"errors"
	"slices"
	"testing"
)

func TestProperties_Validate(t *testing.T) {
	t.Parallel()

	ok := Properties{Features: []string{"a", "b"}, DefaultFeatures: []string{"b"}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	bad := Properties{Features: []string{"a"}, DefaultFeatures: []string{"c"}}
	err := bad.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	if verr.Field != "default_features" {
		t.Errorf("Field = %q, want default_features", verr.Field)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("error should wrap ErrValidation")
	}
}

func TestProperties_EnabledFeatures(t *testing.T) {
	t.Parallel()

	p := Properties{Features: []string{"a", "b", "c"}, DefaultFeatures: []string{"a"}}

	if got := p.EnabledFeatures([]string{"b", "a"}, true); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("EnabledFeatures(defaults) = %v", got)
	}
	if got := p.EnabledFeatures([]string{"c"}, false); !slices.Equal(got, []string{"c"}) {
		t.Errorf("EnabledFeatures(no defaults) = %v", got)
	}
}

func TestStability_AllowedBy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s, max Stability
		want   bool
	}{
		{StabilityStable, StabilityStable, true},
		{StabilityStable, StabilityLatest, true},
		{StabilityLatest, StabilityLatest, true},
		{StabilityLatest, StabilityStable, false},
		{"", StabilityStable, true},
		{StabilityLatest, "", false},
	}
	for _, tt := range tests {
		if got := tt.s.AllowedBy(tt.max); got != tt.want {
			t.Errorf("%q.AllowedBy(%q) = %v, want %v", tt.s, tt.max, got, tt.want)
		}
	}

	if _, err := ParseStability("beta"); !errors.Is(err, ErrInvalidStability) {
		t.Errorf("ParseStability(beta) error = %v", err)
	}
}

func TestMetadata_ImproveGeneration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		meta   Metadata
		issues string
	}{
		{"github source", Metadata{Source: "https://github.com/owner/repo"}, "https://github.com/owner/repo/issues"},
		{"github deep link", Metadata{Source: "https://github.com/owner/repo.git/"}, "https://github.com/owner/repo/issues"},
		{"existing issues kept", Metadata{Source: "https://github.com/o/r", Issues: "https://bugs"}, "https://bugs"},
		{"other host", Metadata{Source: "https://gitlab.com/o/r"}, ""},
		{"no source", Metadata{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := tt.meta
			m.ImproveGeneration()
			if m.Issues != tt.issues {
				t.Errorf("Issues = %q, want %q", m.Issues, tt.issues)
			}
		})
	}
}
