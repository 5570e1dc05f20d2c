// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers for tests that touch process-wide state:
// environment variables and the user's home and config directories. Tests
// using them must not call t.Parallel.
package testutil
