//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Archive resolves the configured workspace and stores the transcriptions in
// the local archive.
func Archive() error {
	mg.Deps(Init)
	return runCLI("archive", "store")
}

// Resolve prints the transcriptions of every window in the configured workspace.
func Resolve() error {
	return runCLI("resolve")
}

func runCLI(args ...string) error {
	return sh.RunV("go", append([]string{"run", "-tags", buildTags, cmdPkg}, args...)...)
}
