// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

var packagePatterns = []string{"**/*.pkg.txt", "**/*.json"}

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

// start runs w in the background and stops it when the test ends.
func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	dir := tempDir(t)
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "no dirs", cfg: Config{}, wantErr: ErrNoDirs},
		{name: "bad pattern", cfg: Config{Dirs: []string{dir}, Patterns: []string{"[a-"}}, wantErr: doublestar.ErrBadPattern},
		{name: "bad ignore", cfg: Config{Dirs: []string{dir}, Ignore: []string{"{a"}}, wantErr: doublestar.ErrBadPattern},
		{name: "missing dir", cfg: Config{Dirs: []string{filepath.Join(dir, "missing")}}, wantErr: os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWatcher_Relevant(t *testing.T) {
	t.Parallel()

	a, b := tempDir(t), tempDir(t)
	w, err := New(Config{Dirs: []string{a, b, a}, Patterns: packagePatterns})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.fsw.Close() })

	if got := w.Roots(); len(got) != 2 {
		t.Errorf("Roots() = %v, want duplicates removed", got)
	}

	tests := []struct {
		path string
		want bool
	}{
		{path: filepath.Join(a, "sodium.json"), want: true},
		{path: filepath.Join(b, "nested", "tools.pkg.txt"), want: true},
		{path: filepath.Join(a, "README.md"), want: false},
		{path: filepath.Join(a, ".git", "index.json"), want: false},
		{path: filepath.Join(a, "sodium.json~"), want: false},
		{path: filepath.Join(filepath.Dir(a), "elsewhere.json"), want: false},
	}
	for _, tt := range tests {
		if got := w.relevant(tt.path); got != tt.want {
			t.Errorf("relevant(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcher_Debounce(t *testing.T) {
	t.Parallel()

	dir := tempDir(t)
	calls := make(chan []string, 10)
	w, err := New(Config{
		Dirs:     []string{dir},
		Patterns: packagePatterns,
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start(t, w)

	for _, name := range []string{"a.pkg.txt", "b.json", "notes.txt"} {
		writeFile(t, filepath.Join(dir, name), "x")
		time.Sleep(10 * time.Millisecond)
	}

	var changed []string
	select {
	case changed = <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	want := []string{filepath.Join(dir, "a.pkg.txt"), filepath.Join(dir, "b.json")}
	if !slices.Equal(changed, want) {
		t.Errorf("changed = %v, want %v", changed, want)
	}

	select {
	case extra := <-calls:
		t.Errorf("unexpected second callback with %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_NewDirectories(t *testing.T) {
	t.Parallel()

	dir := tempDir(t)
	calls := make(chan []string, 10)
	w, err := New(Config{
		Dirs:     []string{dir},
		Patterns: packagePatterns,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start(t, w)

	nested := filepath.Join(dir, "extra")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(nested, "iris.json")

	// The directory is added asynchronously, so keep touching the file.
	deadline := time.After(5 * time.Second)
	for {
		writeFile(t, target, "{}")
		select {
		case changed := <-calls:
			if slices.Contains(changed, target) {
				return
			}
		case <-time.After(250 * time.Millisecond):
		case <-deadline:
			t.Fatal("file in a new directory never reported")
		}
	}
}

func TestWatcher_RunOnce(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Dirs: []string{tempDir(t)}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start(t, w)

	// Give the first Run a chance to claim the watcher.
	time.Sleep(20 * time.Millisecond)
	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}
