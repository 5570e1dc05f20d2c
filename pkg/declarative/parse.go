// SPDX-License-Identifier: MPL-2.0

package declarative

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/cueutil"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
)

//go:embed package_schema.cue
var schemaBytes []byte

// Parse validates a JSON package document against the package schema and
// decodes it. filename only appears in error messages.
func Parse(data []byte, filename string) (*Package, error) {
	if err := cueutil.Validate(schemaBytes, data, "#Package", cueutil.WithFilename(filename)); err != nil {
		return nil, err
	}

	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if len(pkg.Addons) == 0 {
		pkg.Addons = nil
	}

	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &pkg, nil
}

// Validate checks constraints the schema cannot express.
func (p *Package) Validate() error {
	if err := p.Properties.Validate(); err != nil {
		return err
	}

	for id, a := range p.Addons {
		if !addon.IsValidID(id) {
			return &pkgdesc.ValidationError{Field: "addons." + id, Reason: "invalid addon id"}
		}
		for i, v := range a.Versions {
			var reason string
			switch {
			case v.URL != "" && v.Path != "":
				reason = "url and path are mutually exclusive"
			case v.URL == "" && v.Path == "":
				reason = "one of url or path is required"
			default:
				continue
			}
			return &pkgdesc.ValidationError{
				Field:  fmt.Sprintf("addons.%s.versions[%d]", id, i),
				Reason: reason,
			}
		}
	}
	return nil
}
