// SPDX-License-Identifier: MPL-2.0

package script

const (
	// Metadata fields.
	InstrName InstrKind = iota
	InstrDescription
	InstrLongDescription
	InstrVersion
	InstrAuthors
	InstrPackageMaintainers
	InstrWebsite
	InstrSupportLink
	InstrDocumentation
	InstrSource
	InstrIssues
	InstrCommunity
	InstrIcon
	InstrBanner
	InstrLicense
	InstrKeywords
	InstrCategories

	// Property fields.
	InstrFeatures
	InstrDefaultFeatures
	InstrContentVersions
	InstrModrinthID
	InstrCurseForgeID
	InstrSmithedID
	InstrSupportedVersions
	InstrSupportedModloaders
	InstrSupportedPluginLoaders
	InstrSupportedSides
	InstrSupportedOperatingSystems
	InstrSupportedArchitectures
	InstrTags
	InstrOpenSource

	// Control flow.
	InstrSet
	InstrIf
	InstrCall
	InstrFinish
	InstrFail

	// Relations.
	InstrRequire
	InstrRefuse
	InstrRecommend
	InstrBundle
	InstrCompat
	InstrExtend

	// Output.
	InstrNotice
	InstrCmd
	InstrAddon
)

const (
	CategoryMetadata Category = iota
	CategoryProperties
	CategoryControl
	CategoryRelation
	CategoryOutput
)

const unbounded = -1

type (
	// InstrKind identifies an instruction.
	InstrKind int

	// Category groups instructions by what they affect. Evaluators decide
	// per category whether an instruction takes effect at a given level.
	Category int

	// instrSpec describes the surface syntax of an instruction.
	instrSpec struct {
		name     string
		kind     InstrKind
		category Category
		minArgs  int
		maxArgs  int
		// words allows bare identifiers as operands.
		words bool
	}
)

// instrTable lists every instruction with a regular "name args... ;"
// syntax. set, if, call, fail, require, recommend and addon have dedicated
// parse functions but are listed for their category.
var instrTable = []instrSpec{
	{"name", InstrName, CategoryMetadata, 1, 1, false},
	{"description", InstrDescription, CategoryMetadata, 1, 1, false},
	{"long_description", InstrLongDescription, CategoryMetadata, 1, 1, false},
	{"version", InstrVersion, CategoryMetadata, 1, 1, false},
	{"authors", InstrAuthors, CategoryMetadata, 1, unbounded, false},
	{"package_maintainers", InstrPackageMaintainers, CategoryMetadata, 1, unbounded, false},
	{"website", InstrWebsite, CategoryMetadata, 1, 1, false},
	{"support_link", InstrSupportLink, CategoryMetadata, 1, 1, false},
	{"documentation", InstrDocumentation, CategoryMetadata, 1, 1, false},
	{"source", InstrSource, CategoryMetadata, 1, 1, false},
	{"issues", InstrIssues, CategoryMetadata, 1, 1, false},
	{"community", InstrCommunity, CategoryMetadata, 1, 1, false},
	{"icon", InstrIcon, CategoryMetadata, 1, 1, false},
	{"banner", InstrBanner, CategoryMetadata, 1, 1, false},
	{"license", InstrLicense, CategoryMetadata, 1, 1, false},
	{"keywords", InstrKeywords, CategoryMetadata, 1, unbounded, false},
	{"categories", InstrCategories, CategoryMetadata, 1, unbounded, false},

	{"features", InstrFeatures, CategoryProperties, 1, unbounded, false},
	{"default_features", InstrDefaultFeatures, CategoryProperties, 1, unbounded, false},
	{"content_versions", InstrContentVersions, CategoryProperties, 1, unbounded, false},
	{"modrinth_id", InstrModrinthID, CategoryProperties, 1, 1, false},
	{"curseforge_id", InstrCurseForgeID, CategoryProperties, 1, 1, false},
	{"smithed_id", InstrSmithedID, CategoryProperties, 1, 1, false},
	{"supported_versions", InstrSupportedVersions, CategoryProperties, 1, unbounded, false},
	{"supported_modloaders", InstrSupportedModloaders, CategoryProperties, 1, unbounded, true},
	{"supported_plugin_loaders", InstrSupportedPluginLoaders, CategoryProperties, 1, unbounded, true},
	{"supported_sides", InstrSupportedSides, CategoryProperties, 1, unbounded, true},
	{"supported_operating_systems", InstrSupportedOperatingSystems, CategoryProperties, 1, unbounded, true},
	{"supported_architectures", InstrSupportedArchitectures, CategoryProperties, 1, unbounded, true},
	{"tags", InstrTags, CategoryProperties, 1, unbounded, false},
	{"open_source", InstrOpenSource, CategoryProperties, 1, 1, true},

	{"set", InstrSet, CategoryControl, 0, 0, false},
	{"if", InstrIf, CategoryControl, 0, 0, false},
	{"call", InstrCall, CategoryControl, 0, 0, false},
	{"finish", InstrFinish, CategoryControl, 0, 0, false},
	{"fail", InstrFail, CategoryControl, 0, 0, false},

	{"require", InstrRequire, CategoryRelation, 0, 0, false},
	{"refuse", InstrRefuse, CategoryRelation, 1, 1, false},
	{"recommend", InstrRecommend, CategoryRelation, 0, 0, false},
	{"bundle", InstrBundle, CategoryRelation, 1, 1, false},
	{"compat", InstrCompat, CategoryRelation, 2, 2, false},
	{"extend", InstrExtend, CategoryRelation, 1, 1, false},

	{"notice", InstrNotice, CategoryOutput, 1, 1, false},
	{"cmd", InstrCmd, CategoryOutput, 1, unbounded, false},
	{"addon", InstrAddon, CategoryOutput, 0, 0, false},
}

var (
	specsByName = make(map[string]*instrSpec, len(instrTable))
	specsByKind = make(map[InstrKind]*instrSpec, len(instrTable))
)

func init() {
	for i := range instrTable {
		spec := &instrTable[i]
		specsByName[spec.name] = spec
		specsByKind[spec.kind] = spec
	}
}

// String returns the instruction name as written in scripts.
func (k InstrKind) String() string {
	if spec, ok := specsByKind[k]; ok {
		return spec.name
	}
	return "unknown"
}

// Category returns the instruction's category.
func (k InstrKind) Category() Category {
	if spec, ok := specsByKind[k]; ok {
		return spec.category
	}
	return CategoryControl
}

// IsField reports whether the instruction sets a metadata or property field.
func (k InstrKind) IsField() bool {
	c := k.Category()
	return c == CategoryMetadata || c == CategoryProperties
}
