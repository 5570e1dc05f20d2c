// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	PackageNotFoundId
	PackageParseErrorId
	PackageEvalFailedId
	PackageConflictId
	MissingExplicitId
	PermissionDeniedId
	UnsupportedPackageId
	InvalidIndexId
	MaliciousPackageId
	RemoteUnsupportedId
	ExtensionNotFulfilledId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The config file could not be read or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ mcpkg config show
~~~

- Write a fresh default file and compare:
~~~
$ mcpkg config init
~~~

## Example config.cue:
~~~cue
game_version: "1.20.1"
modloader: "fabric"
packages: [
  "sodium",
  {id: "modpack", features: ["shaders"]},
]
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not found!

No registered source provides a package with this id.

## Search order:
1. Packages given on the command line
2. Configured package directories (id.pkg.txt, then id.json)
3. Repository indexes, in the order they are configured

## Things you can try:
- Check the spelling; ids are lowercase letters, digits and '-'
- Add the directory holding the package to 'package_dirs'
- Add the repository that lists it to 'repositories'`,
	}

	packageParseErrorIssue = &Issue{
		id: PackageParseErrorId,
		mdMsg: `
# Failed to parse package!

The package file is not a valid script or declarative package.

## Things you can try:
- Check the reported line and column
- Scripts need a '@meta' and an '@install' routine
- Every instruction ends with ';'
- Declarative packages must be a single JSON object

## Example script:
~~~
@meta {
	name "Example";
}

@install {
	require "fabric-api";
	addon "example" (kind: mod, url: "https://example.com/example.jar");
}
~~~`,
	}

	packageEvalFailedIssue = &Issue{
		id: PackageEvalFailedId,
		mdMsg: `
# Package evaluation failed!

A package stopped the resolution with 'fail'.

## Things you can try:
- Read the reason printed above; it usually names an unsupported modloader or game version
- Switch 'modloader' or 'game_version' in your config
- Remove the package, or the package that depends on it`,
	}

	packageConflictIssue = &Issue{
		id: PackageConflictId,
		mdMsg: `
# Conflicting packages!

Two packages in the install plan refuse to be installed together.

## Things you can try:
- Follow the two chains printed above to the packages you requested
- Remove one side of the conflict from 'packages'
- Disable the feature that pulls the conflicting package in`,
	}

	missingExplicitIssue = &Issue{
		id: MissingExplicitId,
		mdMsg: `
# Explicit dependency not requested!

A package depends on something it will not install on its own.
Explicit dependencies must be requested by you directly.

## Things you can try:
- Add the named package to 'packages' in your config
- Or pass it on the command line together with the package that needs it`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A package tried an operation its trust level does not allow.

## Trust levels:
- restricted: no commands, no local files
- standard: the default
- elevated: local files and custom commands

## Things you can try:
- Raise 'permissions' on that package entry only:
~~~cue
packages: [
  {id: "modpack", permissions: "elevated"},
]
~~~`,
	}

	unsupportedPackageIssue = &Issue{
		id: UnsupportedPackageId,
		mdMsg: `
# Package not supported!

The package does not support this instance, or a feature was enabled that
the package does not declare.

## Things you can try:
- Compare 'game_version', 'modloader' and 'side' with the package properties
- Check the package 'features' property for the names it supports
- Remove the feature from the package entry in your config`,
	}

	invalidIndexIssue = &Issue{
		id: InvalidIndexId,
		mdMsg: `
# Invalid repository index!

The repository index.json could not be read.

## Things you can try:
- Each package entry needs either a 'url' or a 'path'
- 'content_type' must be "script" or "declarative"
- Validate the file against the index schema`,
	}

	maliciousPackageIssue = &Issue{
		id: MaliciousPackageId,
		mdMsg: `
# Package flagged as malicious!

The repository that lists this package marked it as malicious.
It will not be installed.

## Things you can try:
- Remove the package from your config
- Contact the repository maintainers if you believe this is a mistake`,
	}

	remoteUnsupportedIssue = &Issue{
		id: RemoteUnsupportedId,
		mdMsg: `
# Remote package not available!

The package is only available by URL and no fetcher is configured.

## Things you can try:
- Download the package file and put it in a 'package_dirs' directory
- Point 'repositories' at a local mirror`,
	}

	extensionNotFulfilledIssue = &Issue{
		id: ExtensionNotFulfilledId,
		mdMsg: `
# Extended package not installed!

A package adds functionality to another package, but that package is not
part of the plan. Extensions never install the package they extend.

## Things you can try:
- Add the extended package to 'packages' in your config
- Remove the extension if you do not use the package it extends`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		packageNotFoundIssue.Id():          packageNotFoundIssue,
		packageParseErrorIssue.Id():      packageParseErrorIssue,
		packageEvalFailedIssue.Id():      packageEvalFailedIssue,
		packageConflictIssue.Id():          packageConflictIssue,
		missingExplicitIssue.Id():          missingExplicitIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
		unsupportedPackageIssue.Id():    unsupportedPackageIssue,
		invalidIndexIssue.Id():                invalidIndexIssue,
		maliciousPackageIssue.Id():        maliciousPackageIssue,
		remoteUnsupportedIssue.Id():      remoteUnsupportedIssue,
		extensionNotFulfilledIssue.Id(): extensionNotFulfilledIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
