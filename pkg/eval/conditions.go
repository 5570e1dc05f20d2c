// SPDX-License-Identifier: MPL-2.0

package eval

import (
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/versions"
)

// EvalCondition evaluates a script condition. It has no side effects.
func EvalCondition(cond *script.Condition, in *evalctx.Input, vars *VarStore) (bool, error) {
	c := in.Constants

	switch cond.Kind {
	case script.CondNot:
		v, err := EvalCondition(cond.Operands[0], in, vars)
		return !v, err
	case script.CondAnd, script.CondOr:
		left, err := EvalCondition(cond.Operands[0], in, vars)
		if err != nil {
			return false, err
		}
		right, err := EvalCondition(cond.Operands[1], in, vars)
		if err != nil {
			return false, err
		}
		if cond.Kind == script.CondAnd {
			return left && right, nil
		}
		return left || right, nil
	case script.CondDefined:
		return vars.Defined(cond.Args[0].Text), nil
	case script.CondSide:
		return in.Params.Side == loader.Side(cond.Args[0].Text), nil
	case script.CondModloader:
		return loader.ModloaderMatch(cond.Args[0].Text).Matches(c.Modloader), nil
	case script.CondPluginLoader:
		return in.Params.Side == loader.SideServer &&
			loader.PluginLoaderMatch(cond.Args[0].Text).Matches(c.PluginLoader), nil
	case script.CondOS:
		return c.Host.MatchesOS(platform.OSCondition(cond.Args[0].Text)), nil
	case script.CondArch:
		return c.Host.MatchesArch(platform.ArchCondition(cond.Args[0].Text)), nil
	case script.CondStability:
		return pkgdesc.Stability(cond.Args[0].Text).AllowedBy(in.Params.Stability), nil
	}

	args, err := vars.ResolveAll(cond.Args)
	if err != nil {
		return false, err
	}

	switch cond.Kind {
	case script.CondVersion:
		return versions.Parse(args[0]).Matches(c.Version, c.VersionList), nil
	case script.CondFeature:
		return in.Params.HasFeature(args[0]), nil
	case script.CondLanguage:
		return c.Language == args[0], nil
	case script.CondValue:
		return args[0] == args[1], nil
	default:
		return false, fmt.Errorf("unknown condition kind %d", cond.Kind)
	}
}
