// SPDX-License-Identifier: MPL-2.0

// Package platform describes the host a package is installed on.
//
// Packages can target operating systems and CPU architectures through
// condition values (see OSCondition and ArchCondition). This package also
// guards addon file names against names Windows refuses to create.
package platform
