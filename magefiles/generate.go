//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Wildcard generates grounded wildcard ideas for concept.
func Wildcard(concept string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "generate", "wildcard", concept)
}

// Opportunity generates grounded strategic opportunities for concept.
func Opportunity(concept string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "generate", "opportunity", concept)
}
