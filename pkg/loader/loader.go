// SPDX-License-Identifier: MPL-2.0

// Package loader describes the game side and the mod / plugin loaders an
// instance runs, and the match values packages use to target them.
//
// Loader values are open: any string that is not one of the known constants
// is an unknown loader and only matches a match value with the same text.
package loader

import (
	"errors"
	"fmt"
)

const (
	// SideClient is the game client.
	SideClient Side = "client"
	// SideServer is a dedicated server.
	SideServer Side = "server"
)

const (
	Vanilla   Modloader = "vanilla"
	Forge     Modloader = "forge"
	NeoForged Modloader = "neoforged"
	Fabric    Modloader = "fabric"
	Quilt     Modloader = "quilt"
	// LiteLoader is the legacy LiteLoader mod loader.
	LiteLoader Modloader = "liteloader"
	Risugamis  Modloader = "risugamis"
	Rift       Modloader = "rift"
)

const (
	MatchVanilla   ModloaderMatch = "vanilla"
	MatchForge     ModloaderMatch = "forge"
	MatchNeoForged ModloaderMatch = "neoforged"
	// MatchForgeLike matches Forge and NeoForged.
	MatchForgeLike ModloaderMatch = "forgelike"
	MatchFabric    ModloaderMatch = "fabric"
	MatchQuilt     ModloaderMatch = "quilt"
	// MatchFabricLike matches Fabric and Quilt.
	MatchFabricLike  ModloaderMatch = "fabriclike"
	MatchLiteLoader  ModloaderMatch = "liteloader"
	MatchRisugamis   ModloaderMatch = "risugamis"
	MatchRift        ModloaderMatch = "rift"
)

const (
	// PluginNone means the instance runs no plugin-capable server.
	PluginNone        PluginLoader = ""
	PluginVanilla     PluginLoader = "vanilla"
	PluginPaper       PluginLoader = "paper"
	PluginSponge      PluginLoader = "sponge"
	PluginSpongeForge PluginLoader = "spongeforge"
	PluginCraftBukkit PluginLoader = "craftbukkit"
	PluginSpigot      PluginLoader = "spigot"
	PluginGlowstone   PluginLoader = "glowstone"
	PluginPufferfish  PluginLoader = "pufferfish"
	PluginPurpur      PluginLoader = "purpur"
	PluginFolia       PluginLoader = "folia"
)

const (
	PluginMatchVanilla PluginLoaderMatch = "vanilla"
	// PluginMatchBukkit matches every server that loads Bukkit plugins.
	PluginMatchBukkit      PluginLoaderMatch = "bukkit"
	PluginMatchPaper       PluginLoaderMatch = "paper"
	PluginMatchSponge      PluginLoaderMatch = "sponge"
	PluginMatchCraftBukkit PluginLoaderMatch = "craftbukkit"
	PluginMatchSpigot      PluginLoaderMatch = "spigot"
	PluginMatchGlowstone   PluginLoaderMatch = "glowstone"
	PluginMatchPufferfish  PluginLoaderMatch = "pufferfish"
	PluginMatchPurpur      PluginLoaderMatch = "purpur"
	PluginMatchFolia       PluginLoaderMatch = "folia"
)

// ErrInvalidSide is returned when a Side value is not recognized.
var ErrInvalidSide = errors.New("invalid side")

type (
	// Side is the half of the game a package is installed on.
	Side string

	// InvalidSideError is returned when a Side value is not recognized.
	// It wraps ErrInvalidSide for errors.Is() compatibility.
	InvalidSideError struct {
		Value Side
	}

	// Modloader is the mod loader an instance runs.
	Modloader string

	// ModloaderMatch is a package-side selector for one or more modloaders.
	ModloaderMatch string

	// PluginLoader is the plugin-capable server software an instance runs.
	PluginLoader string

	// PluginLoaderMatch is a package-side selector for one or more plugin loaders.
	PluginLoaderMatch string
)

// ParseSide parses "client" or "server".
func ParseSide(s string) (Side, error) {
	side := Side(s)
	if err := side.Validate(); err != nil {
		return "", err
	}
	return side, nil
}

// Validate returns an error if the side is not client or server.
func (s Side) Validate() error {
	switch s {
	case SideClient, SideServer:
		return nil
	default:
		return &InvalidSideError{Value: s}
	}
}

// String returns the string representation of the Side.
func (s Side) String() string { return string(s) }

// Error implements the error interface.
func (e *InvalidSideError) Error() string {
	return fmt.Sprintf("invalid side %q (valid: client, server)", e.Value)
}

// Unwrap returns ErrInvalidSide for errors.Is() compatibility.
func (e *InvalidSideError) Unwrap() error { return ErrInvalidSide }

// Matches reports whether the match value selects the given modloader.
func (m ModloaderMatch) Matches(l Modloader) bool {
	switch m {
	case MatchForgeLike:
		return l == Forge || l == NeoForged
	case MatchFabricLike:
		return l == Fabric || l == Quilt
	default:
		return string(m) == string(l)
	}
}

// Matches reports whether the match value selects the given plugin loader.
func (m PluginLoaderMatch) Matches(l PluginLoader) bool {
	switch m {
	case PluginMatchBukkit:
		switch l {
		case PluginPaper, PluginCraftBukkit, PluginSpigot, PluginGlowstone, PluginPufferfish, PluginPurpur:
			return true
		}
		return false
	case PluginMatchSponge:
		return l == PluginSponge || l == PluginSpongeForge
	default:
		return l != PluginNone && string(m) == string(l)
	}
}

// AnyModloader reports whether any match value selects l.
// An empty match list matches nothing.
func AnyModloader(matches []ModloaderMatch, l Modloader) bool {
	for _, m := range matches {
		if m.Matches(l) {
			return true
		}
	}
	return false
}

// AnyPluginLoader reports whether any match value selects l.
func AnyPluginLoader(matches []PluginLoaderMatch, l PluginLoader) bool {
	for _, m := range matches {
		if m.Matches(l) {
			return true
		}
	}
	return false
}

// Specificity returns how many concrete modloaders a match value covers.
// Broader matches sort after narrower ones when picking the best version.
func (m ModloaderMatch) Specificity() int {
	switch m {
	case MatchForgeLike, MatchFabricLike:
		return 2
	default:
		return 1
	}
}

// Specificity returns how many concrete plugin loaders a match value covers.
func (m PluginLoaderMatch) Specificity() int {
	switch m {
	case PluginMatchBukkit:
		return 6
	case PluginMatchSponge:
		return 2
	default:
		return 1
	}
}
