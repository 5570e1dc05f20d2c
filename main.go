// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/mcvm-launcher/mcvm-sub002/cmd/mcpkg"

func main() {
	cmd.Execute()
}
