// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"testing"
)

// MustSetenv sets key to value and returns a function restoring the
// previous state.
func MustSetenv(t testing.TB, key, value string) func() {
	t.Helper()
	original, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	return restoreEnv(t, key, original, had)
}

// MustUnsetenv unsets key and returns a function restoring the previous state.
func MustUnsetenv(t testing.TB, key string) func() {
	t.Helper()
	original, had := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	return restoreEnv(t, key, original, had)
}

func restoreEnv(t testing.TB, key, original string, had bool) func() {
	return func() {
		var err error
		if had {
			err = os.Setenv(key, original)
		} else {
			err = os.Unsetenv(key)
		}
		if err != nil {
			t.Errorf("failed to restore env %s: %v", key, err)
		}
	}
}
