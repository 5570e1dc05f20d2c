// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/resolve"
)

func testPlan() *resolve.Plan {
	modpack := &pkgreq.Request{ID: "modpack", ContentVersion: "2.0"}
	sodium := &pkgreq.Request{ID: "sodium", Source: pkgreq.Source{Kind: pkgreq.SourceDependency, Parent: modpack}}
	server := &pkgreq.Request{ID: "server-utils", Source: pkgreq.Source{Kind: pkgreq.SourceBundled, Parent: modpack}}

	return &resolve.Plan{
		Entries: []resolve.Entry{
			{
				Request: sodium,
				Addons: []*addon.Request{{
					ID:       "sodium",
					Package:  "sodium",
					Kind:     addon.KindMod,
					FileName: "sodium.jar",
					URL:      "https://example.com/sodium.jar",
					Version:  "0.5.3",
					Hashes:   addon.Hashes{SHA256: "abc123"},
				}},
				Notices: []string{"Requires a restart"},
			},
			{Request: server, Skipped: true},
			{
				Request:  modpack,
				Extends:  []pkgreq.ID{"sodium"},
				Commands: [][]string{{"echo", "hello world"}},
			},
		},
		Warnings: []resolve.Warning{{Kind: resolve.WarnAdvisory, Package: "sodium", Target: "deprecated"}},
	}
}

func testConstants() *evalctx.Constants {
	return &evalctx.Constants{Version: "1.20.1", Modloader: loader.Fabric}
}

func TestFromPlan(t *testing.T) {
	t.Parallel()

	lf := FromPlan(testPlan(), testConstants())

	if lf.Version != Version {
		t.Errorf("Version = %d", lf.Version)
	}
	if lf.Target != (Target{GameVersion: "1.20.1", Modloader: "fabric"}) {
		t.Errorf("Target = %+v", lf.Target)
	}
	if len(lf.Packages) != 3 {
		t.Fatalf("Packages = %+v", lf.Packages)
	}

	tests := []struct {
		idx    int
		id     pkgreq.ID
		source string
		chain  string
	}{
		{0, "sodium", "dependency", "modpack -> sodium"},
		{1, "server-utils", "bundled", "modpack => server-utils"},
		{2, "modpack", "user", "modpack"},
	}
	for _, tt := range tests {
		p := lf.Packages[tt.idx]
		if p.ID != tt.id || p.Source != tt.source || p.Chain != tt.chain {
			t.Errorf("Packages[%d] = %s/%s/%q, want %s/%s/%q", tt.idx, p.ID, p.Source, p.Chain, tt.id, tt.source, tt.chain)
		}
	}
	if lf.Packages[2].ContentVersion != "2.0" {
		t.Errorf("modpack content version = %q", lf.Packages[2].ContentVersion)
	}
	if len(lf.Warnings) != 1 || lf.Warnings[0].Kind != "advisory" {
		t.Errorf("Warnings = %+v", lf.Warnings)
	}

	addons := lf.Addons()
	if len(addons) != 1 || addons[0].URL != "https://example.com/sodium.jar" {
		t.Errorf("Addons() = %+v", addons)
	}

	if FromPlan(&resolve.Plan{}, nil).Target != (Target{}) {
		t.Error("FromPlan(nil constants) should leave the target empty")
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	want := FromPlan(testPlan(), testConstants())

	tests := []struct {
		format Format
		marker string
	}{
		{FormatJSON, `"chain": "modpack -> sodium"`},
		{FormatTOML, "[[packages]]"},
		{FormatYAML, "source: dependency"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := want.Encode(&buf, tt.format); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.marker) {
				t.Errorf("encoded %s missing %q:\n%s", tt.format, tt.marker, buf.String())
			}

			got, err := Decode(&buf, tt.format)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Decode() mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestFiles(t *testing.T) {
	t.Parallel()

	lf := FromPlan(testPlan(), testConstants())
	dir := t.TempDir()

	for _, name := range []string{"mcpkg.lock.json", "mcpkg.lock.toml", "mcpkg.lock.yml"} {
		path := filepath.Join(dir, name)
		if err := lf.WriteFile(path); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", name, err)
		}
		if !reflect.DeepEqual(got, lf) {
			t.Errorf("ReadFile(%s) mismatch", name)
		}
	}

	if err := lf.WriteFile(filepath.Join(dir, "mcpkg.lock")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("WriteFile(no extension) error = %v", err)
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ReadFile(missing) should fail")
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format Format
		input  string
		target error
	}{
		{name: "newer version", format: FormatJSON, input: `{"version": 99}`, target: ErrUnsupportedVersion},
		{name: "unknown format", format: "xml", input: ``, target: ErrUnknownFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Decode(strings.NewReader(tt.input), tt.format); !errors.Is(err, tt.target) {
				t.Errorf("Decode() error = %v, want %v", err, tt.target)
			}
		})
	}

	if _, err := Decode(strings.NewReader("version = ["), FormatTOML); err == nil {
		t.Error("Decode(bad toml) should fail")
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"json": FormatJSON, "TOML": FormatTOML, "yml": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("ini"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(ini) error = %v", err)
	}
}
