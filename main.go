// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/docset-builder/docset-builder/cmd/docsetbuilder"

func main() {
	cmd.Execute()
}
