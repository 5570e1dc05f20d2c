// SPDX-License-Identifier: MPL-2.0

// Package declarative implements the JSON package format: a schema-checked
// description of metadata, properties, relations and addons whose versions
// are selected by matching condition sets against the evaluation context.
package declarative

import (
	"bytes"
	"encoding/json"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/versions"
)

type (
	// List is a JSON list that also accepts a single bare element on input.
	// It always encodes as a list.
	List[T any] []T

	// Package is a declarative package document.
	Package struct {
		Meta             pkgdesc.Metadata   `json:"meta"`
		Properties       pkgdesc.Properties `json:"properties"`
		Addons           map[string]Addon   `json:"addons,omitempty"`
		Relations        Relations          `json:"relations"`
		ConditionalRules []Rule             `json:"conditional_rules,omitempty"`
	}

	// Relations lists a package's relationships. Each dependency forms its
	// own group.
	Relations struct {
		Dependencies         List[string]         `json:"dependencies,omitempty"`
		ExplicitDependencies List[string]         `json:"explicit_dependencies,omitempty"`
		Conflicts            List[string]         `json:"conflicts,omitempty"`
		Extensions           List[string]         `json:"extensions,omitempty"`
		Bundled              List[string]         `json:"bundled,omitempty"`
		Compats              List[[2]string]      `json:"compats,omitempty"`
		Recommendations      List[Recommendation] `json:"recommendations,omitempty"`
	}

	// Recommendation is a recommended package; Invert recommends against it.
	Recommendation struct {
		Value  string `json:"value"`
		Invert bool   `json:"invert,omitempty"`
	}

	// ConditionSet restricts where something applies. Every non-empty field
	// must match; an empty field matches anything.
	ConditionSet struct {
		MinecraftVersions List[versions.Pattern]         `json:"minecraft_versions,omitempty"`
		Side              loader.Side                    `json:"side,omitempty"`
		Modloaders        List[loader.ModloaderMatch]    `json:"modloaders,omitempty"`
		PluginLoaders     List[loader.PluginLoaderMatch] `json:"plugin_loaders,omitempty"`
		Stability         pkgdesc.Stability              `json:"stability,omitempty"`
		Features          List[string]                   `json:"features,omitempty"`
		OperatingSystems  List[platform.OSCondition]     `json:"operating_systems,omitempty"`
		Architectures     List[platform.ArchCondition]   `json:"architectures,omitempty"`
		Languages         List[string]                   `json:"languages,omitempty"`
		ContentVersions   List[string]                   `json:"content_versions,omitempty"`
	}

	// Addon is an installable file with one or more candidate versions.
	// Conditions gate whether the addon applies at all.
	Addon struct {
		Kind       addon.Kind     `json:"kind"`
		Versions   []AddonVersion `json:"versions"`
		Conditions []ConditionSet `json:"conditions,omitempty"`
		// Optional addons may have no matching version.
		Optional bool `json:"optional,omitempty"`
	}

	// AddonVersion is one candidate file. Its condition set is written
	// inline with the other fields.
	AddonVersion struct {
		ConditionSet
		Relations Relations    `json:"relations"`
		Notices   List[string] `json:"notices,omitempty"`
		Filename  string       `json:"filename,omitempty"`
		Path      string       `json:"path,omitempty"`
		URL       string       `json:"url,omitempty"`
		Version   string       `json:"version,omitempty"`
		Hashes    addon.Hashes `json:"hashes"`
	}

	// Rule layers extra relations and notices on the package when all of its
	// condition sets match.
	Rule struct {
		Conditions []ConditionSet `json:"conditions"`
		Properties RuleProperties `json:"properties"`
	}

	// RuleProperties is what a Rule adds.
	RuleProperties struct {
		Relations Relations    `json:"relations"`
		Notices   List[string] `json:"notices,omitempty"`
	}
)

// UnmarshalJSON accepts either a list of T or a single T.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var many []T
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}

	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = List[T]{one}
	return nil
}

// Merge appends other's relations. Nothing is ever removed.
func (r *Relations) Merge(other Relations) {
	r.Dependencies = append(r.Dependencies, other.Dependencies...)
	r.ExplicitDependencies = append(r.ExplicitDependencies, other.ExplicitDependencies...)
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
	r.Extensions = append(r.Extensions, other.Extensions...)
	r.Bundled = append(r.Bundled, other.Bundled...)
	r.Compats = append(r.Compats, other.Compats...)
	r.Recommendations = append(r.Recommendations, other.Recommendations...)
}

// ToRelations converts to the format-independent relation set.
func (r *Relations) ToRelations() pkgreq.Relations {
	var out pkgreq.Relations
	for _, d := range r.Dependencies {
		out.Deps = append(out.Deps, []pkgreq.RequiredPackage{{ID: pkgreq.ID(d)}})
	}
	for _, d := range r.ExplicitDependencies {
		out.Deps = append(out.Deps, []pkgreq.RequiredPackage{{ID: pkgreq.ID(d), Explicit: true}})
	}
	for _, c := range r.Conflicts {
		out.Conflicts = append(out.Conflicts, pkgreq.ID(c))
	}
	for _, e := range r.Extensions {
		out.Extensions = append(out.Extensions, pkgreq.ID(e))
	}
	for _, b := range r.Bundled {
		out.Bundled = append(out.Bundled, pkgreq.ID(b))
	}
	for _, c := range r.Compats {
		out.Compats = append(out.Compats, pkgreq.Compat{Package: pkgreq.ID(c[0]), With: pkgreq.ID(c[1])})
	}
	for _, rec := range r.Recommendations {
		out.Recommendations = append(out.Recommendations, pkgreq.RecommendedPackage{ID: pkgreq.ID(rec.Value), Invert: rec.Invert})
	}
	return out
}
