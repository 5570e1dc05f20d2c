// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
)

// fakeRegistry serves script packages from memory and counts evaluations.
type fakeRegistry struct {
	pkgs  map[pkgreq.ID]*eval.Package
	flags map[pkgreq.ID][]string

	mu    sync.Mutex
	evals map[string]int
}

func newFakeRegistry(t *testing.T, scripts map[pkgreq.ID]string) *fakeRegistry {
	t.Helper()

	f := &fakeRegistry{pkgs: make(map[pkgreq.ID]*eval.Package), evals: make(map[string]int)}
	for id, src := range scripts {
		f.add(t, id, eval.ContentScript, src)
	}
	return f
}

func (f *fakeRegistry) add(t *testing.T, id pkgreq.ID, ct eval.ContentType, src string) {
	t.Helper()

	pkg, err := eval.Load(id, ct, []byte(src))
	if err != nil {
		t.Fatalf("Load(%s) error = %v", id, err)
	}
	f.pkgs[id] = pkg
}

func (f *fakeRegistry) lookup(id pkgreq.ID) (*eval.Package, error) {
	pkg, ok := f.pkgs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, id)
	}
	return pkg, nil
}

func (f *fakeRegistry) Properties(_ context.Context, req *pkgreq.Request) (*pkgdesc.Properties, error) {
	pkg, err := f.lookup(req.ID)
	if err != nil {
		return nil, err
	}
	return pkg.Properties()
}

func (f *fakeRegistry) Eval(ctx context.Context, req *pkgreq.Request, level evalctx.Level, in *evalctx.Input) (*eval.Result, error) {
	pkg, err := f.lookup(req.ID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.evals[string(req.ID)+"/"+level.String()]++
	f.mu.Unlock()
	return pkg.Eval(ctx, level, in)
}

func (f *fakeRegistry) Advisories(id pkgreq.ID) []string {
	return f.flags[id]
}

func (f *fakeRegistry) count(id pkgreq.ID, level evalctx.Level) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evals[string(id)+"/"+level.String()]
}

func testConfig() Config {
	return Config{
		Constants: &evalctx.Constants{
			Version:      "1.20.1",
			VersionList:  []string{"1.19.4", "1.20", "1.20.1"},
			Modloader:    loader.Fabric,
			PluginLoader: loader.PluginVanilla,
			Language:     "en_us",
			Host:         platform.Host{OS: platform.Linux, Arch: "amd64"},
		},
		Side:        loader.SideClient,
		Permissions: evalctx.Standard,
		Stability:   pkgdesc.StabilityStable,
	}
}

func resolveIDs(t *testing.T, f *fakeRegistry, ids ...pkgreq.ID) (*Plan, error) {
	t.Helper()
	return Resolve(context.Background(), f, ids, testConfig())
}

func TestResolve_ConvergesOnCycles(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"a": `@install { require "b"; }`,
		"b": `@install { require "a"; require "c"; }`,
		"c": `@install { require "b"; }`,
	})
	plan, err := resolveIDs(t, f, "a")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got, want := plan.IDs(), []pkgreq.ID{"c", "b", "a"}; !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	for _, id := range []pkgreq.ID{"a", "b", "c"} {
		if n := f.count(id, evalctx.LevelResolve); n != 1 {
			t.Errorf("%s evaluated %d times at resolve level", id, n)
		}
	}
}

func TestResolve_OrderFollowsProvenance(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"modpack":    `@install { require "sodium"; require "lithium"; }`,
		"sodium":     `@install { require "fabric-api"; }`,
		"lithium":    `@install {}`,
		"fabric-api": `@install {}`,
	})
	plan, err := resolveIDs(t, f, "modpack")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []pkgreq.ID{"lithium", "fabric-api", "sodium", "modpack"}
	if got := plan.IDs(); !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	entry, _ := plan.Entry("fabric-api")
	if got := entry.Request.Chain(); got != "modpack -> sodium -> fabric-api" {
		t.Errorf("Chain() = %q", got)
	}
}

func TestResolve_OrGroups(t *testing.T) {
	t.Parallel()

	scripts := map[pkgreq.ID]string{
		"pkg": `@install { require "a"; require ("b" "c"); }`,
		"a":   `@install {}`,
		"b":   `@install {}`,
		"c":   `@install {}`,
	}

	tests := []struct {
		name    string
		initial []pkgreq.ID
		want    []pkgreq.ID
	}{
		{name: "first member chosen", initial: []pkgreq.ID{"pkg"}, want: []pkgreq.ID{"a", "b", "pkg"}},
		{name: "configured member satisfies", initial: []pkgreq.ID{"pkg", "c"}, want: []pkgreq.ID{"c", "a", "pkg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan, err := resolveIDs(t, newFakeRegistry(t, scripts), tt.initial...)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			got := plan.IDs()
			slices.Sort(got)
			want := slices.Clone(tt.want)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Errorf("IDs() = %v, want %v", plan.IDs(), tt.want)
			}
		})
	}
}

func TestResolve_ConflictIsSymmetric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		scripts map[pkgreq.ID]string
		initial []pkgreq.ID
	}{
		{
			name:    "mutual",
			scripts: map[pkgreq.ID]string{"p1": `@install { refuse "p2"; }`, "p2": `@install { refuse "p1"; }`},
			initial: []pkgreq.ID{"p1", "p2"},
		},
		{
			name:    "mutual reversed",
			scripts: map[pkgreq.ID]string{"p1": `@install { refuse "p2"; }`, "p2": `@install { refuse "p1"; }`},
			initial: []pkgreq.ID{"p2", "p1"},
		},
		{
			name:    "declared by the later package",
			scripts: map[pkgreq.ID]string{"p1": `@install {}`, "p2": `@install { refuse "p1"; }`},
			initial: []pkgreq.ID{"p1", "p2"},
		},
		{
			name: "through a cycle",
			scripts: map[pkgreq.ID]string{
				"a": `@install { require "b"; }`,
				"b": `@install { require "a"; refuse "c"; }`,
				"c": `@install {}`,
			},
			initial: []pkgreq.ID{"a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolveIDs(t, newFakeRegistry(t, tt.scripts), tt.initial...)
			var conflict *ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("Resolve() error = %v, want *ConflictError", err)
			}
			if !errors.Is(err, ErrConflict) {
				t.Error("error should match ErrConflict")
			}
		})
	}
}

func TestResolve_ConflictNamesChains(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"a": `@install { require "b"; }`,
		"b": `@install { refuse "c"; }`,
		"c": `@install {}`,
	})
	_, err := resolveIDs(t, f, "a", "c")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Resolve() error = %v, want *ConflictError", err)
	}
	if conflict.A.Chain() != "a -> b" || conflict.B.Chain() != "c" {
		t.Errorf("chains = %q / %q", conflict.A.Chain(), conflict.B.Chain())
	}
	if conflict.Refused.Source.Kind != pkgreq.SourceRefused || conflict.Refused.Chain() != "a -> b =X=> c" {
		t.Errorf("Refused = %q (%s)", conflict.Refused.Chain(), conflict.Refused.Source.Kind)
	}
	if want := "package b conflicts with c: a -> b =X=> c, but c is required by c"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestResolve_ExplicitDependencies(t *testing.T) {
	t.Parallel()

	scripts := map[pkgreq.ID]string{
		"shaderpack": `@install { require <"optifine">; }`,
		"other":      `@install { require "optifine"; }`,
		"bundle":     `@install { bundle "optifine"; }`,
		"optifine":   `@install {}`,
	}

	tests := []struct {
		name    string
		initial []pkgreq.ID
		wantErr bool
	}{
		{name: "not configured", initial: []pkgreq.ID{"shaderpack"}, wantErr: true},
		{name: "pulled in by another package", initial: []pkgreq.ID{"shaderpack", "other"}, wantErr: true},
		{name: "configured", initial: []pkgreq.ID{"shaderpack", "optifine"}},
		{name: "bundled by a configured package", initial: []pkgreq.ID{"shaderpack", "bundle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolveIDs(t, newFakeRegistry(t, scripts), tt.initial...)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Resolve() error = %v", err)
				}
				return
			}
			var missing *MissingExplicitError
			if !errors.As(err, &missing) {
				t.Fatalf("Resolve() error = %v, want *MissingExplicitError", err)
			}
			if missing.Package.ID != "shaderpack" || missing.Dependency != "optifine" {
				t.Errorf("MissingExplicitError = %+v", missing)
			}
		})
	}
}

func TestResolve_BundledReplacesProvenance(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"x":    `@install { require "lib"; }`,
		"pack": `@install { bundle "lib"; }`,
		"lib":  `@install { require "x"; }`,
	})
	plan, err := resolveIDs(t, f, "x", "pack")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	entry, ok := plan.Entry("lib")
	if !ok {
		t.Fatal("lib missing from plan")
	}
	if entry.Request.Source.Kind != pkgreq.SourceBundled || entry.Request.Chain() != "pack => lib" {
		t.Errorf("lib request = %s (%s)", entry.Request.Chain(), entry.Request.Source.Kind)
	}
	x, _ := plan.Entry("x")
	if x.Request.Source.Kind != pkgreq.SourceUserRequire {
		t.Errorf("x source = %s, want user", x.Request.Source.Kind)
	}
}

func TestResolve_Compat(t *testing.T) {
	t.Parallel()

	scripts := map[pkgreq.ID]string{
		"iris":        `@install {}`,
		"lib":         `@install { compat "iris" "iris-compat"; }`,
		"iris-compat": `@install {}`,
	}

	plan, err := resolveIDs(t, newFakeRegistry(t, scripts), "lib", "iris")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	entry, ok := plan.Entry("iris-compat")
	if !ok {
		t.Fatalf("iris-compat missing from plan %v", plan.IDs())
	}
	if entry.Request.Chain() != "lib -> iris-compat" {
		t.Errorf("Chain() = %q", entry.Request.Chain())
	}

	plan, err = resolveIDs(t, newFakeRegistry(t, scripts), "lib")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := plan.Entry("iris-compat"); ok {
		t.Error("iris-compat should not be pulled in without iris")
	}
}

func TestResolve_RecommendationWarnings(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"x":        `@install { recommend not "optifine"; recommend "sodium"; recommend "present"; }`,
		"optifine": `@install {}`,
		"present":  `@install {}`,
	})
	f.flags = map[pkgreq.ID][]string{"optifine": {"deprecated"}}

	plan, err := resolveIDs(t, f, "x", "optifine", "present")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []Warning{
		{Kind: WarnRecommendedAgainst, Package: "x", Target: "optifine"},
		{Kind: WarnMissingRecommendation, Package: "x", Target: "sodium"},
		{Kind: WarnAdvisory, Package: "optifine", Target: "deprecated"},
	}
	if !slices.Equal(plan.Warnings, want) {
		t.Errorf("Warnings = %+v, want %+v", plan.Warnings, want)
	}
	if got := plan.Warnings[0].String(); got != "package x recommends against optifine, which is installed" {
		t.Errorf("String() = %q", got)
	}
}

func TestResolve_Extensions(t *testing.T) {
	t.Parallel()

	scripts := map[pkgreq.ID]string{
		"modpack":    `@install { require "addon-pack"; }`,
		"addon-pack": `@install { extend "base"; }`,
		"base":       `@install {}`,
	}

	tests := []struct {
		name    string
		initial []pkgreq.ID
		chain   string
	}{
		{name: "requested directly", initial: []pkgreq.ID{"addon-pack"}, chain: "addon-pack"},
		{name: "pulled in", initial: []pkgreq.ID{"modpack"}, chain: "modpack -> addon-pack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeRegistry(t, scripts)
			_, err := resolveIDs(t, f, tt.initial...)
			var extErr *ExtensionError
			if !errors.As(err, &extErr) {
				t.Fatalf("Resolve() error = %v, want *ExtensionError", err)
			}
			if !errors.Is(err, ErrExtensionNotFulfilled) {
				t.Error("error should match ErrExtensionNotFulfilled")
			}
			if extErr.Target != "base" || extErr.Package.Chain() != tt.chain {
				t.Errorf("ExtensionError = %s / %s", extErr.Package.Chain(), extErr.Target)
			}
			if f.count("base", evalctx.LevelResolve) != 0 {
				t.Error("extension target should never be evaluated")
			}
		})
	}

	plan, err := resolveIDs(t, newFakeRegistry(t, scripts), "addon-pack", "base")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	entry, _ := plan.Entry("addon-pack")
	if !slices.Equal(entry.Extends, []pkgreq.ID{"base"}) {
		t.Errorf("Extends = %v", entry.Extends)
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"a":      `@install { require "ghost"; }`,
		"broken": `@install { fail unsupported_version; }`,
	})

	_, err := resolveIDs(t, f, "a")
	var unknown *UnknownPackageError
	if !errors.As(err, &unknown) || unknown.Request.Chain() != "a -> ghost" {
		t.Errorf("Resolve(a) error = %v, want *UnknownPackageError for a -> ghost", err)
	}

	_, err = resolveIDs(t, f, "broken")
	var pkgErr *PackageError
	if !errors.As(err, &pkgErr) || pkgErr.Request.ID != "broken" {
		t.Fatalf("Resolve(broken) error = %v, want *PackageError", err)
	}
	if !errors.Is(err, eval.ErrFailed) {
		t.Errorf("error should match eval.ErrFailed: %v", err)
	}

	if _, err := resolveIDs(t, f, "Not_Valid"); !errors.Is(err, pkgreq.ErrInvalidID) {
		t.Errorf("Resolve(Not_Valid) error = %v, want ErrInvalidID", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Resolve(ctx, f, []pkgreq.ID{"a"}, testConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled Resolve() error = %v", err)
	}
}

func TestResolve_InstallPass(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"sodium": `@install {
			addon "sodium" (kind: mod, url: "https://example.com/sodium.jar");
			notice "restart the game";
			require "server-tool";
		}`,
		"server-tool": `@properties { supported_sides server; } @install { addon "tool" (kind: mod, url: "https://example.com/tool.jar"); }`,
	})
	plan, err := resolveIDs(t, f, "sodium")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	sodium, _ := plan.Entry("sodium")
	if len(sodium.Addons) != 1 || sodium.Addons[0].ID != "sodium" {
		t.Errorf("sodium addons = %+v", sodium.Addons)
	}
	if !slices.Equal(sodium.Notices, []string{"restart the game"}) {
		t.Errorf("sodium notices = %v", sodium.Notices)
	}

	tool, ok := plan.Entry("server-tool")
	if !ok {
		t.Fatal("skipped packages stay in the plan")
	}
	if !tool.Skipped || len(tool.Addons) != 0 {
		t.Errorf("server-tool entry = %+v, want skipped", tool)
	}
	if n := f.count("server-tool", evalctx.LevelInstall); n != 0 {
		t.Errorf("skipped package evaluated %d times at install level", n)
	}
}

func TestResolve_PackageOverrides(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"pack": `@properties { features "shaders" "extra"; default_features "shaders"; }
		@install {
			if feature "shaders" { require "iris"; }
			if feature "extra" { require "extra-lib"; }
		}`,
		"iris":      `@install {}`,
		"extra-lib": `@install {}`,
		"local":     `@install { addon "jar" (kind: mod, path: "/opt/mods/local.jar"); }`,
	})

	cfg := testConfig()
	elevated := evalctx.Elevated
	cfg.Packages = map[pkgreq.ID]PackageConfig{
		"pack":  {Features: []string{"extra"}, NoDefaultFeatures: true},
		"local": {Permissions: &elevated},
	}
	plan, err := Resolve(context.Background(), f, []pkgreq.ID{"pack", "local"}, cfg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := plan.Entry("extra-lib"); !ok {
		t.Error("extra-lib should be required by the configured feature")
	}
	if _, ok := plan.Entry("iris"); ok {
		t.Error("iris should not be required with default features disabled")
	}

	cfg.Packages = map[pkgreq.ID]PackageConfig{"pack": {Features: []string{"missing"}}}
	_, err = Resolve(context.Background(), f, []pkgreq.ID{"pack"}, cfg)
	var unsupported *eval.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Errorf("unknown feature error = %v, want *eval.UnsupportedError", err)
	}

	_, err = Resolve(context.Background(), f, []pkgreq.ID{"local"}, testConfig())
	if !errors.Is(err, eval.ErrPermission) {
		t.Errorf("local addon without elevation error = %v, want ErrPermission", err)
	}
}

func TestConfig_InputPermissions(t *testing.T) {
	t.Parallel()

	elevated := evalctx.Elevated
	tests := []struct {
		name string
		cfg  Config
		want evalctx.Permissions
	}{
		{name: "zero config", cfg: Config{}, want: evalctx.Standard},
		{name: "restricted", cfg: Config{Permissions: evalctx.Restricted}, want: evalctx.Restricted},
		{
			name: "package override",
			cfg:  Config{Packages: map[pkgreq.ID]PackageConfig{"local": {Permissions: &elevated}}},
			want: evalctx.Elevated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in, err := tt.cfg.Input(pkgreq.NewUserRequest("local"), &pkgdesc.Properties{})
			if err != nil {
				t.Fatalf("Input() error = %v", err)
			}
			if in.Params.Permissions != tt.want {
				t.Errorf("Permissions = %v, want %v", in.Params.Permissions, tt.want)
			}
		})
	}
}

func TestResolve_ContentVersion(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, nil)
	f.add(t, "shaders", eval.ContentDeclarative, `{
		"properties": {"content_versions": ["1.0", "2.0"]},
		"addons": {"pack": {"kind": "shader", "versions": [
			{"content_versions": "1.0", "url": "https://example.com/v1.zip"},
			{"content_versions": "2.0", "url": "https://example.com/v2.zip"}
		]}}
	}`)

	req, err := pkgreq.ParseRequest("shaders@2.0")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	plan, err := New(f).Resolve(context.Background(), []*pkgreq.Request{req}, testConfig())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	entry, _ := plan.Entry("shaders")
	if len(entry.Addons) != 1 || entry.Addons[0].URL != "https://example.com/v2.zip" {
		t.Errorf("addons = %+v", entry.Addons)
	}
}

func TestResolver_Memoizes(t *testing.T) {
	t.Parallel()

	f := newFakeRegistry(t, map[pkgreq.ID]string{
		"a": `@install { require "b"; require "c"; }`,
		"b": `@install { require "d"; }`,
		"c": `@install { require "d"; }`,
		"d": `@install {}`,
	})
	r := New(f, WithConcurrency(2))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), []*pkgreq.Request{pkgreq.NewUserRequest("a")}, testConfig()); err != nil {
				t.Errorf("Resolve() error = %v", err)
			}
		}()
	}
	wg.Wait()

	for _, id := range []pkgreq.ID{"a", "b", "c", "d"} {
		for _, level := range []evalctx.Level{evalctx.LevelResolve, evalctx.LevelInstall} {
			if n := f.count(id, level); n != 1 {
				t.Errorf("%s evaluated %d times at %s level, want 1", id, n, level)
			}
		}
	}
}
