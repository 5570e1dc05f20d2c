// SPDX-License-Identifier: MPL-2.0

package eval

import (
	"slices"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/script"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/versions"
)

// CheckProperties tests the instance against a package's supported_*
// properties. skip is true when only the side is unsupported; the package
// then contributes nothing. Any other mismatch is an *UnsupportedError.
func CheckProperties(in *evalctx.Input, props *pkgdesc.Properties) (skip bool, err error) {
	c := in.Constants

	if len(props.SupportedVersions) > 0 && !versions.MatchesAny(props.SupportedVersions, c.Version, c.VersionList) {
		return false, &UnsupportedError{Reason: script.FailUnsupportedVersion, Value: c.Version}
	}
	if len(props.SupportedModloaders) > 0 && !loader.AnyModloader(props.SupportedModloaders, c.Modloader) {
		return false, &UnsupportedError{Reason: script.FailUnsupportedModloader, Value: string(c.Modloader)}
	}
	if len(props.SupportedPluginLoaders) > 0 && !loader.AnyPluginLoader(props.SupportedPluginLoaders, c.PluginLoader) {
		return false, &UnsupportedError{Reason: script.FailUnsupportedPluginLoader, Value: string(c.PluginLoader)}
	}
	if len(props.SupportedSides) > 0 && !slices.Contains(props.SupportedSides, in.Params.Side) {
		return true, nil
	}
	if len(props.SupportedOperatingSystems) > 0 && !slices.ContainsFunc(props.SupportedOperatingSystems, c.Host.MatchesOS) {
		return false, &UnsupportedError{Reason: script.FailUnsupportedOperatingSystem, Value: c.Host.OS}
	}
	if len(props.SupportedArchitectures) > 0 && !slices.ContainsFunc(props.SupportedArchitectures, c.Host.MatchesArch) {
		return false, &UnsupportedError{Reason: script.FailUnsupportedArchitecture, Value: c.Host.Arch}
	}
	return false, nil
}

// CheckFeatures returns an *UnsupportedError if a requested feature is not
// declared by the package.
func CheckFeatures(requested []string, props *pkgdesc.Properties) error {
	var missing []string
	for _, f := range requested {
		if !slices.Contains(props.Features, f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &UnsupportedError{Reason: script.FailUnsupportedFeatures, Value: strings.Join(missing, ", ")}
	}
	return nil
}
