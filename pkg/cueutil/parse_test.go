// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Entry: {
	name:     string & !=""
	count:    int & >=0
	enabled?: bool
	tags?:    string | [...string]
}
`

type testEntry struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Enabled bool   `json:"enabled,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid CUE decodes", func(t *testing.T) {
		t.Parallel()

		data := []byte("name: \"sodium\"\ncount: 3\nenabled: true\n")
		result, err := ParseAndDecode[testEntry]([]byte(testSchema), data, "#Entry")
		if err != nil {
			t.Fatalf("ParseAndDecode() error = %v", err)
		}
		if result.Value.Name != "sodium" || result.Value.Count != 3 || !result.Value.Enabled {
			t.Errorf("ParseAndDecode() = %+v", *result.Value)
		}
		if !result.Unified.Exists() {
			t.Error("Unified value should exist")
		}
	})

	t.Run("JSON input decodes", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"name": "lithium", "count": 0}`)
		result, err := ParseAndDecode[testEntry]([]byte(testSchema), data, "#Entry")
		if err != nil {
			t.Fatalf("ParseAndDecode() error = %v", err)
		}
		if result.Value.Name != "lithium" {
			t.Errorf("Name = %q, want %q", result.Value.Name, "lithium")
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testEntry]([]byte(testSchema), []byte(`{"name": "x"}`), "#Entry")
		if err == nil {
			t.Fatal("expected error for missing count")
		}
	})

	t.Run("constraint violation names the field", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testEntry](
			[]byte(testSchema),
			[]byte(`{"name": "x", "count": -1}`),
			"#Entry",
			WithFilename("entry.json"),
		)
		if err == nil {
			t.Fatal("expected error for negative count")
		}
		if !errors.Is(err, ErrSchema) {
			t.Errorf("error should match ErrSchema, got %v", err)
		}
		if !strings.Contains(err.Error(), "entry.json") || !strings.Contains(err.Error(), "count") {
			t.Errorf("error should name file and field, got %v", err)
		}
	})

	t.Run("unknown schema path", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testEntry]([]byte(testSchema), []byte(`{"name": "x", "count": 1}`), "#Missing")
		if err == nil || !strings.Contains(err.Error(), "#Missing") {
			t.Errorf("expected schema lookup error, got %v", err)
		}
	})
}

func TestParseAndDecodeString(t *testing.T) {
	t.Parallel()

	result, err := ParseAndDecodeString[testEntry](testSchema, []byte(`{"name": "x", "count": 1}`), "#Entry")
	if err != nil {
		t.Fatalf("ParseAndDecodeString() error = %v", err)
	}
	if result.Value.Count != 1 {
		t.Errorf("Count = %d, want 1", result.Value.Count)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "single tag", data: `{"name": "a", "count": 1, "tags": "x"}`},
		{name: "tag list", data: `{"name": "a", "count": 1, "tags": ["x", "y"]}`},
		{name: "wrong tag type", data: `{"name": "a", "count": 1, "tags": 4}`, wantErr: true},
		{name: "empty name", data: `{"name": "", "count": 1}`, wantErr: true},
		{name: "syntax error", data: `{"name": `, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate([]byte(testSchema), []byte(tt.data), "#Entry")
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileSizeLimit(t *testing.T) {
	t.Parallel()

	data := []byte(`{"name": "a", "count": 1}`)
	err := Validate([]byte(testSchema), data, "#Entry", WithMaxFileSize(4), WithFilename("big.json"))
	if err == nil {
		t.Fatal("expected size limit error")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWithConcrete(t *testing.T) {
	t.Parallel()

	data := []byte("name: string\ncount: 1\n")
	if err := Validate([]byte(testSchema), data, "#Entry"); err == nil {
		t.Error("non-concrete value should fail by default")
	}
	if err := Validate([]byte(testSchema), data, "#Entry", WithConcrete(false)); err != nil {
		t.Errorf("WithConcrete(false) error = %v", err)
	}
}
