// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsWindowsReservedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		// Reserved names (various cases)
		{"CON lowercase", "con", true},
		{"CON uppercase", "CON", true},
		{"CON mixed case", "Con", true},
		{"PRN", "prn", true},
		{"AUX", "aux", true},
		{"NUL", "nul", true},
		{"COM1", "com1", true},
		{"COM9", "com9", true},
		{"LPT1", "lpt1", true},
		{"LPT9", "lpt9", true},

		// Addon-style file names
		{"CON jar", "con.jar", true},
		{"NUL zip", "NUL.zip", true},
		{"COM1 jar", "com1.jar", true},
		{"regular mod jar", "sodium-0.5.jar", false},

		// Non-reserved names
		{"normal file", "myfile", false},
		{"normal with extension", "pack.zip", false},
		{"contains reserved", "confile", false},
		{"COM10", "com10", false},
		{"LPT10", "lpt10", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := IsWindowsReservedName(tt.input)
			if result != tt.expected {
				t.Errorf("IsWindowsReservedName(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestWindowsReservedNames(t *testing.T) {
	t.Parallel()

	expectedNames := []string{
		"CON", "PRN", "AUX", "NUL",
		"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
		"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
	}

	for _, name := range expectedNames {
		if !WindowsReservedNames[name] {
			t.Errorf("WindowsReservedNames missing %q", name)
		}
	}

	expectedCount := 22
	if len(WindowsReservedNames) != expectedCount {
		t.Errorf("WindowsReservedNames has %d entries, want %d", len(WindowsReservedNames), expectedCount)
	}
}
