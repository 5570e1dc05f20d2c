// SPDX-License-Identifier: MPL-2.0

package eval

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
)

func evalSrc(t *testing.T, src string, level evalctx.Level, in *evalctx.Input) (*Result, error) {
	t.Helper()

	parsed, err := script.LexAndParse(src)
	if err != nil {
		t.Fatalf("LexAndParse() error = %v", err)
	}
	return EvalScript(parsed, "test-pkg", level, in)
}

func TestEvalScript_Metadata(t *testing.T) {
	t.Parallel()

	res, err := evalSrc(t, `meta { name "Foo" }`, evalctx.LevelMetadata, testInput())
	if err != nil {
		t.Fatalf("EvalScript() error = %v", err)
	}
	if res.Meta.Name != "Foo" {
		t.Errorf("Meta.Name = %q, want Foo", res.Meta.Name)
	}
	res.Meta.Name = ""
	if !reflect.DeepEqual(res.Meta, (&Result{}).Meta) {
		t.Errorf("other metadata fields should be empty, got %+v", res.Meta)
	}
}

func TestEvalScript_Properties(t *testing.T) {
	t.Parallel()

	src := `@properties {
		features "a" "b";
		default_features "a";
		supported_sides client;
		supported_operating_systems linux windows;
		supported_versions "1.19.4+";
		open_source yes;
	}`
	res, err := evalSrc(t, src, evalctx.LevelProperties, testInput())
	if err != nil {
		t.Fatalf("EvalScript() error = %v", err)
	}
	p := res.Properties
	if !slices.Equal(p.Features, []string{"a", "b"}) || !slices.Equal(p.DefaultFeatures, []string{"a"}) {
		t.Errorf("features = %v / %v", p.Features, p.DefaultFeatures)
	}
	if !slices.Equal(p.SupportedSides, []loader.Side{loader.SideClient}) {
		t.Errorf("SupportedSides = %v", p.SupportedSides)
	}
	if len(p.SupportedOperatingSystems) != 2 || len(p.SupportedVersions) != 1 {
		t.Errorf("supported = %+v", p)
	}
	if p.OpenSource == nil || !*p.OpenSource {
		t.Error("OpenSource should be true")
	}
}

func TestEvalScript_RequireGroups(t *testing.T) {
	t.Parallel()

	src := `@install { require "a"; require ("b" "c"); }`
	res, err := evalSrc(t, src, evalctx.LevelResolve, testInput())
	if err != nil {
		t.Fatalf("EvalScript() error = %v", err)
	}

	want := [][]pkgreq.RequiredPackage{
		{{ID: "a"}},
		{{ID: "b"}, {ID: "c"}},
	}
	if !reflect.DeepEqual(res.Relations.Deps, want) {
		t.Errorf("Deps = %+v, want %+v", res.Relations.Deps, want)
	}
}

func TestEvalScript_CmdNeedsElevated(t *testing.T) {
	t.Parallel()

	src := `@install {
		addon "mod" (kind: mod, url: "https://example.com/mod.jar");
		cmd "rm" "-rf" "/";
	}`

	res, err := evalSrc(t, src, evalctx.LevelInstall, testInput())
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("EvalScript() error = %v, want *PermissionError", err)
	}
	if permErr.Required != evalctx.Elevated || permErr.Actual != evalctx.Standard {
		t.Errorf("PermissionError = %+v", permErr)
	}
	if res != nil {
		t.Errorf("EvalScript() returned addons %v alongside the error", res.Addons)
	}

	in := testInput()
	in.Params.Permissions = evalctx.Elevated
	res, err = evalSrc(t, src, evalctx.LevelInstall, in)
	if err != nil {
		t.Fatalf("elevated EvalScript() error = %v", err)
	}
	if len(res.Commands) != 1 || !slices.Equal(res.Commands[0], []string{"rm", "-rf", "/"}) {
		t.Errorf("Commands = %v", res.Commands)
	}
	if len(res.Addons) != 1 {
		t.Errorf("Addons = %v", res.Addons)
	}
}

func TestEvalScript_Levels(t *testing.T) {
	t.Parallel()

	src := `@install {
		require "dep";
		notice "hello";
		addon "mod" (kind: mod, url: "https://example.com/mod.jar");
	}`

	resolve, err := evalSrc(t, src, evalctx.LevelResolve, testInput())
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	if len(resolve.Relations.Deps) != 1 || len(resolve.Addons) != 0 {
		t.Errorf("resolve result = %+v", resolve)
	}

	install, err := evalSrc(t, src, evalctx.LevelInstall, testInput())
	if err != nil {
		t.Fatalf("install error = %v", err)
	}
	if !install.Relations.IsEmpty() || len(install.Addons) != 1 {
		t.Errorf("install result = %+v", install)
	}
	if install.Addons[0].FileName != "mcvm-test-pkg-mod.jar" {
		t.Errorf("default file name = %q", install.Addons[0].FileName)
	}

	for _, res := range []*Result{resolve, install} {
		if !slices.Equal(res.Notices, []string{"hello"}) {
			t.Errorf("%s notices = %v", res.Level, res.Notices)
		}
	}
}

func TestEvalScript_ControlFlow(t *testing.T) {
	t.Parallel()

	src := `@install {
		set loader "fabric";
		if modloader forge {
			require "forge-only";
		} else if value $loader "fabric" {
			require "${loader}-api";
			call extras;
		} else {
			require "never";
		}
		if feature "missing" {
			finish;
		}
		require "after";
		finish;
		require "unreachable";
	}
	@extras {
		if not defined loader { fail; }
		bundle "extra";
	}`

	res, err := evalSrc(t, src, evalctx.LevelResolve, testInput())
	if err != nil {
		t.Fatalf("EvalScript() error = %v", err)
	}

	var ids []pkgreq.ID
	for _, g := range res.Relations.Deps {
		ids = append(ids, g[0].ID)
	}
	if !slices.Equal(ids, []pkgreq.ID{"fabric-api", "after"}) {
		t.Errorf("deps = %v", ids)
	}
	if !slices.Equal(res.Relations.Bundled, []pkgreq.ID{"extra"}) {
		t.Errorf("bundled = %v", res.Relations.Bundled)
	}
}

func TestEvalScript_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		level  evalctx.Level
		target error
	}{
		{name: "fail", src: `@install { fail unsupported_modloader; }`, level: evalctx.LevelResolve, target: ErrFailed},
		{name: "field in install", src: `@install { name "x"; }`, level: evalctx.LevelResolve, target: ErrNotAllowed},
		{name: "relation in meta", src: `@meta { require "x"; }`, level: evalctx.LevelMetadata, target: ErrNotAllowed},
		{name: "property in meta", src: `@meta { features "x"; }`, level: evalctx.LevelMetadata, target: ErrNotAllowed},
		{name: "metadata in properties", src: `@properties { name "x"; }`, level: evalctx.LevelProperties, target: ErrNotAllowed},
		{name: "reserved variable", src: `@install { set MINECRAFT_VERSION "1"; }`, level: evalctx.LevelResolve, target: ErrReservedVariable},
		{name: "undefined variable", src: `@install { require $nope; }`, level: evalctx.LevelResolve, target: ErrUndefinedVariable},
		{name: "missing install", src: `@meta {}`, level: evalctx.LevelInstall, target: ErrMissingRoutine},
		{
			name:   "duplicate addon",
			src:    `@install { addon "a" (kind: mod, url: "u"); addon "a" (kind: mod, url: "v"); }`,
			level:  evalctx.LevelInstall,
			target: ErrDuplicateAddon,
		},
		{name: "local addon", src: `@install { addon "a" (kind: mod, path: "/tmp/a.jar"); }`, level: evalctx.LevelInstall, target: ErrPermission},
		{
			name:   "too many notices",
			src:    "@install {" + strings.Repeat(`notice "n";`, MaxNotices+1) + "}",
			level:  evalctx.LevelResolve,
			target: ErrTooManyNotices,
		},
		{
			name:   "notice too long",
			src:    `@install { notice "` + strings.Repeat("x", MaxNoticeChars+1) + `"; }`,
			level:  evalctx.LevelInstall,
			target: ErrNoticeTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := evalSrc(t, tt.src, tt.level, testInput())
			if !errors.Is(err, tt.target) {
				t.Errorf("EvalScript() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestEvalScript_ErrorLocation(t *testing.T) {
	t.Parallel()

	_, err := evalSrc(t, "@install {\n\trequire \"a\";\n\tfail;\n}", evalctx.LevelResolve, testInput())
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("error = %v, want *EvalError", err)
	}
	if evalErr.Instruction != "fail" || evalErr.Pos.Line != 3 {
		t.Errorf("EvalError = %+v", evalErr)
	}
	if !errors.Is(err, ErrEvaluation) {
		t.Error("error should match ErrEvaluation")
	}
}

func TestEvalScript_MissingOptionalRoutines(t *testing.T) {
	t.Parallel()

	for _, level := range []evalctx.Level{evalctx.LevelMetadata, evalctx.LevelProperties, evalctx.LevelUninstall} {
		res, err := evalSrc(t, `@install {}`, level, testInput())
		if err != nil {
			t.Errorf("%s: error = %v", level, err)
			continue
		}
		if res.Meta.Name != "" || len(res.Commands) != 0 {
			t.Errorf("%s: result = %+v", level, res)
		}
	}
}

func TestEvalScript_ReferentiallyTransparent(t *testing.T) {
	t.Parallel()

	src := `@install {
		if side client { require "client-lib"; } else { require "server-lib"; }
		set v "${MINECRAFT_VERSION}";
		recommend not "optifine";
		compat "iris" "iris-compat";
		notice "for ${v}";
	}`
	parsed, err := script.LexAndParse(src)
	if err != nil {
		t.Fatalf("LexAndParse() error = %v", err)
	}

	first, err := EvalScript(parsed, "test-pkg", evalctx.LevelResolve, testInput())
	if err != nil {
		t.Fatalf("EvalScript() error = %v", err)
	}
	second, err := EvalScript(parsed, "test-pkg", evalctx.LevelResolve, testInput())
	if err != nil {
		t.Fatalf("EvalScript() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("evaluations differ:\n%+v\n%+v", first, second)
	}
	if !slices.Equal(first.Notices, []string{"for 1.20.1"}) {
		t.Errorf("Notices = %v", first.Notices)
	}
	if len(first.Relations.Recommendations) != 1 || !first.Relations.Recommendations[0].Invert {
		t.Errorf("Recommendations = %v", first.Relations.Recommendations)
	}
}
