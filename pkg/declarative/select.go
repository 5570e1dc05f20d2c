// SPDX-License-Identifier: MPL-2.0

package declarative

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/versions"
)

// anyLoader scores an empty loader list, which matches every loader.
const anyLoader = 1 << 10

// ErrNoMatchingVersion is the sentinel wrapped by NoMatchingVersionError.
var ErrNoMatchingVersion = errors.New("no addon version matches")

type (
	// NoMatchingVersionError is returned when a required addon has no
	// version for the instance.
	NoMatchingVersionError struct {
		Addon string
	}

	// SelectedAddon is one chosen addon version.
	SelectedAddon struct {
		ID      string
		Kind    addon.Kind
		Version *AddonVersion
	}

	// Evaluation is what a declarative package contributes for one input.
	Evaluation struct {
		Relations pkgreq.Relations
		Addons    []SelectedAddon
		Notices   []string
	}
)

// Error implements the error interface.
func (e *NoMatchingVersionError) Error() string {
	return fmt.Sprintf("no version of addon %q matches the instance", e.Addon)
}

// Unwrap returns ErrNoMatchingVersion for errors.Is() compatibility.
func (e *NoMatchingVersionError) Unwrap() error { return ErrNoMatchingVersion }

// Matches reports whether every constrained field of the set accepts the
// input.
func (cs *ConditionSet) Matches(in *evalctx.Input, props *pkgdesc.Properties) bool {
	c := in.Constants

	if cs.Stability != "" && !cs.Stability.AllowedBy(in.Params.Stability) {
		return false
	}
	if cs.Side != "" && cs.Side != in.Params.Side {
		return false
	}
	for _, f := range cs.Features {
		if !in.Params.HasFeature(f) {
			return false
		}
	}
	if len(cs.MinecraftVersions) > 0 && !versions.MatchesAny(cs.MinecraftVersions, c.Version, c.VersionList) {
		return false
	}
	if len(cs.Modloaders) > 0 && !loader.AnyModloader(cs.Modloaders, c.Modloader) {
		return false
	}
	if len(cs.PluginLoaders) > 0 && !loader.AnyPluginLoader(cs.PluginLoaders, c.PluginLoader) {
		return false
	}
	if len(cs.OperatingSystems) > 0 && !slices.ContainsFunc(cs.OperatingSystems, c.Host.MatchesOS) {
		return false
	}
	if len(cs.Architectures) > 0 && !slices.ContainsFunc(cs.Architectures, c.Host.MatchesArch) {
		return false
	}
	if len(cs.Languages) > 0 && !slices.Contains(cs.Languages, c.Language) {
		return false
	}
	if in.Params.ContentVersion != "" && len(cs.ContentVersions) > 0 {
		want := versions.Parse(in.Params.ContentVersion)
		if !slices.ContainsFunc(cs.ContentVersions, func(v string) bool {
			return want.Matches(v, props.ContentVersions)
		}) {
			return false
		}
	}
	return true
}

// matchesAll reports whether every set matches. No sets match anything.
func matchesAll(sets []ConditionSet, in *evalctx.Input, props *pkgdesc.Properties) bool {
	for i := range sets {
		if !sets[i].Matches(in, props) {
			return false
		}
	}
	return true
}

// SelectVersions returns the versions of the addon to install. An addon
// whose own conditions fail yields nothing. Every matching version is
// returned unless a requested content version or the SelectBest policy
// narrows the set.
func (p *Package) SelectVersions(id string, in *evalctx.Input) ([]*AddonVersion, error) {
	a, ok := p.Addons[id]
	if !ok || !matchesAll(a.Conditions, in, &p.Properties) {
		return nil, nil
	}

	var matching []*AddonVersion
	for i := range a.Versions {
		if a.Versions[i].Matches(in, &p.Properties) {
			matching = append(matching, &a.Versions[i])
		}
	}

	if in.Params.ContentVersion != "" {
		pinned := slices.DeleteFunc(slices.Clone(matching), func(v *AddonVersion) bool {
			return len(v.ContentVersions) == 0
		})
		if len(pinned) > 0 {
			matching = pinned
		}
	}

	if len(matching) == 0 {
		if a.Optional {
			return nil, nil
		}
		return nil, &NoMatchingVersionError{Addon: id}
	}

	if in.Constants.Selection == evalctx.SelectBest && len(matching) > 1 {
		slices.SortStableFunc(matching, func(x, y *AddonVersion) int {
			return cmp.Or(
				cmp.Compare(loaderScore(x), loaderScore(y)),
				cmp.Compare(contentRank(x, p.Properties.ContentVersions), contentRank(y, p.Properties.ContentVersions)),
			)
		})
		matching = matching[:1]
	}
	return matching, nil
}

// loaderScore counts the loaders a version's conditions cover. Narrower
// versions score lower.
func loaderScore(v *AddonVersion) int {
	score := 0
	if len(v.Modloaders) == 0 {
		score += anyLoader
	}
	for _, m := range v.Modloaders {
		score += m.Specificity()
	}
	if len(v.PluginLoaders) == 0 {
		score += anyLoader
	}
	for _, m := range v.PluginLoaders {
		score += m.Specificity()
	}
	return score
}

// contentRank is the earliest position of any of the version's content
// versions in the package's list. Unlisted versions rank last.
func contentRank(v *AddonVersion, all []string) int {
	rank := len(all)
	for _, cv := range v.ContentVersions {
		if i := slices.Index(all, cv); i >= 0 && i < rank {
			rank = i
		}
	}
	return rank
}

// Evaluate selects addon versions and collects relations and notices for
// one input. Addons are visited in id order. Conditional rules apply, in
// listed order, only when all of their condition sets match.
func (p *Package) Evaluate(in *evalctx.Input) (*Evaluation, error) {
	var rel Relations
	rel.Merge(p.Relations)
	out := &Evaluation{}

	ids := maps.Keys(p.Addons)
	slices.Sort(ids)
	for _, id := range ids {
		selected, err := p.SelectVersions(id, in)
		if err != nil {
			return nil, err
		}
		for _, v := range selected {
			rel.Merge(v.Relations)
			out.Notices = append(out.Notices, v.Notices...)
			out.Addons = append(out.Addons, SelectedAddon{ID: id, Kind: p.Addons[id].Kind, Version: v})
		}
	}

	for _, rule := range p.ConditionalRules {
		if !matchesAll(rule.Conditions, in, &p.Properties) {
			continue
		}
		rel.Merge(rule.Properties.Relations)
		out.Notices = append(out.Notices, rule.Properties.Notices...)
	}

	out.Relations = rel.ToRelations()
	return out, nil
}
