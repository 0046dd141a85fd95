//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Knowledge groups the knowledge base targets.
type Knowledge mg.Namespace

// Index ingests knowledge/sources/ into the SQLite knowledge base.
func (Knowledge) Index() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "knowledge", "store")
}

// Export writes knowledge/index/export.yaml.
func (Knowledge) Export() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "knowledge", "export")
}

// Stats prints document counts per collection.
func (Knowledge) Stats() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "knowledge", "stats")
}
