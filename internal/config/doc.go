// SPDX-License-Identifier: MPL-2.0

// Package config loads the consumer configuration: the target instance
// (game version, loaders, side, language), default trust levels, package
// sources and the requested packages with their per-package overrides.
//
// Configuration files are CUE, validated against the embedded #Config schema
// (config_schema.cue) and merged over defaults with Viper. The file is looked
// up in the platform config directory (for example
// $XDG_CONFIG_HOME/mcpkg/config.cue), then in the working directory.
package config
