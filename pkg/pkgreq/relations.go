// SPDX-License-Identifier: MPL-2.0

package pkgreq

import "slices"

type (
	// RequiredPackage is one member of a dependency OR-group.
	RequiredPackage struct {
		ID ID `json:"id"`
		// Explicit dependencies must also be configured by the consumer.
		Explicit bool `json:"explicit,omitempty"`
	}

	// RecommendedPackage is a soft suggestion. Invert recommends against
	// installing the package.
	RecommendedPackage struct {
		ID     ID   `json:"id"`
		Invert bool `json:"invert,omitempty"`
	}

	// Compat says: if Package is installed, also install With.
	Compat struct {
		Package ID `json:"package"`
		With    ID `json:"with"`
	}

	// Relations is everything a package says about other packages.
	Relations struct {
		// Deps are OR-groups: any one member satisfies its group.
		Deps            [][]RequiredPackage  `json:"deps,omitempty"`
		Conflicts       []ID                 `json:"conflicts,omitempty"`
		Recommendations []RecommendedPackage `json:"recommendations,omitempty"`
		Bundled         []ID                 `json:"bundled,omitempty"`
		Compats         []Compat             `json:"compats,omitempty"`
		Extensions      []ID                 `json:"extensions,omitempty"`
	}
)

// Require appends a dependency group of non-explicit members.
func (r *Relations) Require(ids ...ID) {
	group := make([]RequiredPackage, 0, len(ids))
	for _, id := range ids {
		group = append(group, RequiredPackage{ID: id})
	}
	r.Deps = append(r.Deps, group)
}

// Merge appends other's relations. Nothing is ever removed.
func (r *Relations) Merge(other Relations) {
	r.Deps = append(r.Deps, other.Deps...)
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
	r.Recommendations = append(r.Recommendations, other.Recommendations...)
	r.Bundled = append(r.Bundled, other.Bundled...)
	r.Compats = append(r.Compats, other.Compats...)
	r.Extensions = append(r.Extensions, other.Extensions...)
}

// ConflictsWith reports whether id is listed as a conflict.
func (r *Relations) ConflictsWith(id ID) bool {
	return slices.Contains(r.Conflicts, id)
}

// IsEmpty reports whether no relation of any kind was declared.
func (r *Relations) IsEmpty() bool {
	return len(r.Deps) == 0 && len(r.Conflicts) == 0 && len(r.Recommendations) == 0 &&
		len(r.Bundled) == 0 && len(r.Compats) == 0 && len(r.Extensions) == 0
}

// Clone returns a deep copy.
func (r Relations) Clone() Relations {
	out := Relations{
		Conflicts:       slices.Clone(r.Conflicts),
		Recommendations: slices.Clone(r.Recommendations),
		Bundled:         slices.Clone(r.Bundled),
		Compats:         slices.Clone(r.Compats),
		Extensions:      slices.Clone(r.Extensions),
	}
	for _, g := range r.Deps {
		out.Deps = append(out.Deps, slices.Clone(g))
	}
	return out
}
