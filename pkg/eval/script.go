// SPDX-License-Identifier: MPL-2.0

package eval

import (
	"errors"
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/versions"
)

// errFinish unwinds the evaluator when a finish instruction runs.
var errFinish = errors.New("finish")

type (
	handler func(e *evaluator, instr *script.Instruction) error

	evaluator struct {
		parsed *script.Parsed
		pkg    pkgreq.ID
		level  evalctx.Level
		in     *evalctx.Input
		vars   *VarStore
		res    *Result
		addons map[string]struct{}
	}
)

var handlers map[script.InstrKind]handler

func init() {
	handlers = map[script.InstrKind]handler{
		script.InstrSet:       (*evaluator).execSet,
		script.InstrIf:        (*evaluator).execIf,
		script.InstrCall:      (*evaluator).execCall,
		script.InstrFinish:    func(*evaluator, *script.Instruction) error { return errFinish },
		script.InstrFail:      func(_ *evaluator, i *script.Instruction) error { return &FailError{Reason: i.Reason} },
		script.InstrRequire:   (*evaluator).execRequire,
		script.InstrRefuse:    (*evaluator).execRelation,
		script.InstrRecommend: (*evaluator).execRelation,
		script.InstrBundle:    (*evaluator).execRelation,
		script.InstrCompat:    (*evaluator).execRelation,
		script.InstrExtend:    (*evaluator).execRelation,
		script.InstrNotice:    (*evaluator).execNotice,
		script.InstrCmd:       (*evaluator).execCmd,
		script.InstrAddon:     (*evaluator).execAddon,
	}
}

// routineFor returns the routine a level walks.
func routineFor(level evalctx.Level) string {
	switch level {
	case evalctx.LevelMetadata:
		return script.RoutineMeta
	case evalctx.LevelProperties:
		return script.RoutineProperties
	case evalctx.LevelUninstall:
		return script.RoutineUninstall
	default:
		return script.RoutineInstall
	}
}

// allowed reports whether an instruction may appear in the routine walked
// at level. Field instructions only belong to their own routine and nothing
// else belongs there.
func allowed(kind script.InstrKind, level evalctx.Level) bool {
	switch kind.Category() {
	case script.CategoryMetadata:
		return level == evalctx.LevelMetadata
	case script.CategoryProperties:
		return level == evalctx.LevelProperties
	default:
		return level >= evalctx.LevelResolve
	}
}

// takesEffect reports whether an allowed instruction does anything at
// level. Control flow always runs so every pass walks the same path.
func takesEffect(kind script.InstrKind, level evalctx.Level) bool {
	switch kind.Category() {
	case script.CategoryRelation:
		return level == evalctx.LevelResolve
	case script.CategoryOutput:
		switch kind {
		case script.InstrCmd:
			return level == evalctx.LevelInstall || level == evalctx.LevelUninstall
		case script.InstrAddon:
			return level == evalctx.LevelInstall
		}
	}
	return true
}

// EvalScript evaluates a parsed script package at level.
func EvalScript(parsed *script.Parsed, pkg pkgreq.ID, level evalctx.Level, in *evalctx.Input) (*Result, error) {
	e := &evaluator{
		parsed: parsed,
		pkg:    pkg,
		level:  level,
		in:     in,
		vars:   NewVarStore(),
		res:    &Result{Level: level},
		addons: make(map[string]struct{}),
	}
	e.vars.SeedReserved(in.Constants)

	name := routineFor(level)
	block, ok := parsed.Routine(name)
	if !ok {
		if level == evalctx.LevelResolve || level == evalctx.LevelInstall {
			return nil, fmt.Errorf("%w: %s", ErrMissingRoutine, name)
		}
		return e.res, nil
	}

	if err := e.run(block); err != nil && !errors.Is(err, errFinish) {
		return nil, err
	}
	if err := checkNotices(e.res.Notices); err != nil {
		return nil, err
	}
	return e.res, nil
}

func (e *evaluator) run(block *script.Block) error {
	for i := range block.Instructions {
		instr := &block.Instructions[i]
		if err := e.exec(instr); err != nil {
			if errors.Is(err, errFinish) || errors.Is(err, ErrEvaluation) {
				return err
			}
			return &EvalError{Instruction: instr.Kind.String(), Pos: instr.Pos, Err: err}
		}
	}
	return nil
}

func (e *evaluator) exec(instr *script.Instruction) error {
	if !allowed(instr.Kind, e.level) {
		return &NotAllowedError{Instruction: instr.Kind.String(), Level: e.level}
	}
	if !takesEffect(instr.Kind, e.level) {
		return nil
	}
	if instr.Kind.IsField() {
		return e.setField(instr)
	}
	h, ok := handlers[instr.Kind]
	if !ok {
		return fmt.Errorf("no handler for instruction %s", instr.Kind)
	}
	return h(e, instr)
}

func (e *evaluator) execSet(instr *script.Instruction) error {
	v, err := e.vars.Resolve(instr.Args[0])
	if err != nil {
		return err
	}
	return e.vars.Set(instr.Name, v)
}

func (e *evaluator) execIf(instr *script.Instruction) error {
	ok, err := EvalCondition(instr.Cond, e.in, e.vars)
	if err != nil {
		return err
	}
	if ok {
		return e.run(e.parsed.Block(instr.Block))
	}
	for _, branch := range instr.Else {
		if branch.Cond != nil {
			ok, err := EvalCondition(branch.Cond, e.in, e.vars)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		return e.run(e.parsed.Block(branch.Block))
	}
	return nil
}

func (e *evaluator) execCall(instr *script.Instruction) error {
	block, ok := e.parsed.Routine(instr.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingRoutine, instr.Name)
	}
	return e.run(block)
}

func (e *evaluator) execRequire(instr *script.Instruction) error {
	for _, group := range instr.Groups {
		deps := make([]pkgreq.RequiredPackage, 0, len(group))
		for _, member := range group {
			id, err := e.vars.Resolve(member.Value)
			if err != nil {
				return err
			}
			deps = append(deps, pkgreq.RequiredPackage{ID: pkgreq.ID(id), Explicit: member.Explicit})
		}
		e.res.Relations.Deps = append(e.res.Relations.Deps, deps)
	}
	return nil
}

func (e *evaluator) execRelation(instr *script.Instruction) error {
	args, err := e.vars.ResolveAll(instr.Args)
	if err != nil {
		return err
	}
	rel := &e.res.Relations
	id := pkgreq.ID(args[0])

	switch instr.Kind {
	case script.InstrRefuse:
		rel.Conflicts = append(rel.Conflicts, id)
	case script.InstrRecommend:
		rel.Recommendations = append(rel.Recommendations, pkgreq.RecommendedPackage{ID: id, Invert: instr.Invert})
	case script.InstrBundle:
		rel.Bundled = append(rel.Bundled, id)
	case script.InstrCompat:
		rel.Compats = append(rel.Compats, pkgreq.Compat{Package: id, With: pkgreq.ID(args[1])})
	case script.InstrExtend:
		rel.Extensions = append(rel.Extensions, id)
	}
	return nil
}

func (e *evaluator) execNotice(instr *script.Instruction) error {
	msg, err := e.vars.Resolve(instr.Args[0])
	if err != nil {
		return err
	}
	e.res.Notices = append(e.res.Notices, msg)
	return nil
}

func (e *evaluator) execCmd(instr *script.Instruction) error {
	if !e.in.Params.Permissions.Allows(evalctx.Elevated) {
		return &PermissionError{Instruction: "cmd", Required: evalctx.Elevated, Actual: e.in.Params.Permissions}
	}
	argv, err := e.vars.ResolveAll(instr.Args)
	if err != nil {
		return err
	}
	e.res.Commands = append(e.res.Commands, argv)
	return nil
}

func (e *evaluator) execAddon(instr *script.Instruction) error {
	spec := instr.Addon
	var d addon.Data
	fields := []struct {
		v   script.Value
		dst *string
	}{
		{spec.ID, &d.ID},
		{spec.FileName, &d.FileName},
		{spec.URL, &d.URL},
		{spec.Path, &d.Path},
		{spec.Version, &d.Version},
		{spec.HashSHA256, &d.Hashes.SHA256},
		{spec.HashSHA512, &d.Hashes.SHA512},
	}
	for _, f := range fields {
		s, err := e.vars.ResolveOptional(f.v)
		if err != nil {
			return err
		}
		*f.dst = s
	}
	d.Kind = addon.Kind(spec.Kind)

	if d.Path != "" && !e.in.Params.Permissions.Allows(evalctx.Elevated) {
		return &PermissionError{Instruction: "addon", Required: evalctx.Elevated, Actual: e.in.Params.Permissions}
	}
	if _, dup := e.addons[d.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateAddon, d.ID)
	}

	req, err := addon.NewRequest(d, e.pkg, true)
	if err != nil {
		return err
	}
	e.addons[d.ID] = struct{}{}
	e.res.Addons = append(e.res.Addons, req)
	return nil
}

func (e *evaluator) setField(instr *script.Instruction) error {
	args, err := e.vars.ResolveAll(instr.Args)
	if err != nil {
		return err
	}
	m := &e.res.Meta
	p := &e.res.Properties

	switch instr.Kind {
	case script.InstrName:
		m.Name = args[0]
	case script.InstrDescription:
		m.Description = args[0]
	case script.InstrLongDescription:
		m.LongDescription = args[0]
	case script.InstrVersion:
		m.Version = args[0]
	case script.InstrAuthors:
		m.Authors = args
	case script.InstrPackageMaintainers:
		m.PackageMaintainers = args
	case script.InstrWebsite:
		m.Website = args[0]
	case script.InstrSupportLink:
		m.SupportLink = args[0]
	case script.InstrDocumentation:
		m.Documentation = args[0]
	case script.InstrSource:
		m.Source = args[0]
	case script.InstrIssues:
		m.Issues = args[0]
	case script.InstrCommunity:
		m.Community = args[0]
	case script.InstrIcon:
		m.Icon = args[0]
	case script.InstrBanner:
		m.Banner = args[0]
	case script.InstrLicense:
		m.License = args[0]
	case script.InstrKeywords:
		m.Keywords = args
	case script.InstrCategories:
		m.Categories = args

	case script.InstrFeatures:
		p.Features = args
	case script.InstrDefaultFeatures:
		p.DefaultFeatures = args
	case script.InstrContentVersions:
		p.ContentVersions = args
	case script.InstrModrinthID:
		p.ModrinthID = args[0]
	case script.InstrCurseForgeID:
		p.CurseForgeID = args[0]
	case script.InstrSmithedID:
		p.SmithedID = args[0]
	case script.InstrTags:
		p.Tags = args
	case script.InstrSupportedVersions:
		p.SupportedVersions = mapArgs(args, versions.Parse)
	case script.InstrSupportedModloaders:
		p.SupportedModloaders = mapArgs(args, func(s string) loader.ModloaderMatch { return loader.ModloaderMatch(s) })
	case script.InstrSupportedPluginLoaders:
		p.SupportedPluginLoaders = mapArgs(args, func(s string) loader.PluginLoaderMatch { return loader.PluginLoaderMatch(s) })
	case script.InstrSupportedSides:
		sides, err := parseArgs(args, loader.ParseSide)
		if err != nil {
			return err
		}
		p.SupportedSides = sides
	case script.InstrSupportedOperatingSystems:
		oses, err := parseArgs(args, platform.ParseOSCondition)
		if err != nil {
			return err
		}
		p.SupportedOperatingSystems = oses
	case script.InstrSupportedArchitectures:
		arches, err := parseArgs(args, platform.ParseArchCondition)
		if err != nil {
			return err
		}
		p.SupportedArchitectures = arches
	case script.InstrOpenSource:
		v, err := parseBool(args[0])
		if err != nil {
			return err
		}
		p.OpenSource = &v
	}
	return nil
}

func mapArgs[T any](args []string, f func(string) T) []T {
	out := make([]T, 0, len(args))
	for _, a := range args {
		out = append(out, f(a))
	}
	return out
}

func parseArgs[T any](args []string, parse func(string) (T, error)) ([]T, error) {
	out := make([]T, 0, len(args))
	for _, a := range args {
		v, err := parse(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "yes", "true":
		return true, nil
	case "no", "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected yes or no, got %q", s)
	}
}
