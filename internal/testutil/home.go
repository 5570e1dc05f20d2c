// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

// SetHomeDir points the platform's home variable (USERPROFILE on Windows,
// HOME elsewhere) at dir and returns a function restoring it.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()
	if runtime.GOOS == "windows" {
		return MustSetenv(t, "USERPROFILE", dir)
	}
	return MustSetenv(t, "HOME", dir)
}

// SetConfigHome isolates the user configuration directory below dir for the
// rest of the test and returns the directory programs will use.
func SetConfigHome(t testing.TB, dir string) string {
	t.Helper()
	t.Cleanup(SetHomeDir(t, dir))

	switch runtime.GOOS {
	case "windows":
		appData := filepath.Join(dir, "AppData", "Roaming")
		t.Cleanup(MustSetenv(t, "APPDATA", appData))
		return appData
	case "darwin":
		return filepath.Join(dir, "Library", "Application Support")
	default:
		configHome := filepath.Join(dir, ".config")
		t.Cleanup(MustSetenv(t, "XDG_CONFIG_HOME", configHome))
		return configHome
	}
}
