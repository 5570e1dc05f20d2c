// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
)

const (
	// WarnMissingRecommendation is a recommended package that is not in the plan.
	WarnMissingRecommendation WarningKind = "recommendation"
	// WarnRecommendedAgainst is a package in the plan that another recommends against.
	WarnRecommendedAgainst WarningKind = "recommended_against"
	// WarnAdvisory is a repository flag such as deprecated or insecure.
	WarnAdvisory WarningKind = "advisory"
)

type (
	// WarningKind classifies a Warning.
	WarningKind string

	// Warning is advisory output that never fails a resolution.
	Warning struct {
		Kind    WarningKind `json:"kind"`
		Package pkgreq.ID   `json:"package"`
		// Target is the other package of a recommendation, or the flag name
		// of an advisory.
		Target string `json:"target"`
	}

	// Entry is one package of the install plan.
	Entry struct {
		Request *pkgreq.Request
		// Addons are the addon requests collected at the install level.
		Addons   []*addon.Request
		Commands [][]string
		Notices  []string
		// Extends lists the packages in the plan this package extends.
		Extends []pkgreq.ID
		// Skipped is set when the package does not apply to the configured
		// side and contributes nothing.
		Skipped bool
	}

	// Plan is the result of a resolution. Entries are ordered so that each
	// package comes before the package that pulled it in.
	Plan struct {
		Entries  []Entry
		Warnings []Warning
	}
)

// String renders the warning for display.
func (w Warning) String() string {
	switch w.Kind {
	case WarnMissingRecommendation:
		return fmt.Sprintf("package %s recommends %s, which is not installed", w.Package, w.Target)
	case WarnRecommendedAgainst:
		return fmt.Sprintf("package %s recommends against %s, which is installed", w.Package, w.Target)
	case WarnAdvisory:
		return fmt.Sprintf("package %s is flagged %s by its repository", w.Package, w.Target)
	default:
		return fmt.Sprintf("package %s: %s %s", w.Package, w.Kind, w.Target)
	}
}

// IDs returns the package ids of the plan in order.
func (p *Plan) IDs() []pkgreq.ID {
	ids := make([]pkgreq.ID, 0, len(p.Entries))
	for _, e := range p.Entries {
		ids = append(ids, e.Request.ID)
	}
	return ids
}

// Entry returns the entry for id, if present.
func (p *Plan) Entry(id pkgreq.ID) (*Entry, bool) {
	for i := range p.Entries {
		if p.Entries[i].Request.ID == id {
			return &p.Entries[i], true
		}
	}
	return nil, false
}
