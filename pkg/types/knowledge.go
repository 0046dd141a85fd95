// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Collection names in the knowledge store, one per source adapter.
const (
	CollectionProject    = "project_documents"
	CollectionCore       = "core_knowledge"
	CollectionLive       = "live_metrics"
	CollectionPredictive = "predictive_trends"
)

// Collections lists every collection name.
var Collections = []string{CollectionProject, CollectionCore, CollectionLive, CollectionPredictive}

// IsCollection reports whether name is a known collection.
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Document is one searchable row in a knowledge store collection.
type Document struct {
	// ID is a stable identifier derived from collection, scope, label and content.
	ID string `json:"id" yaml:"id"`

	// Collection names the target collection (e.g. "core_knowledge").
	Collection string `json:"collection" yaml:"collection"`

	// ScopeID restricts the document to one owner/project. Empty means global.
	ScopeID string `json:"scope_id,omitempty" yaml:"scope_id,omitempty"`

	// Label is the human-readable title used in provenance.
	Label string `json:"label" yaml:"label"`

	// Content is the searchable text.
	Content string `json:"content" yaml:"content"`

	// CapturedAt is when the row was collected. Used by the live window.
	CapturedAt time.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`

	// Embedding is the stored vector. Nil documents are keyword-only.
	Embedding []float32 `json:"-" yaml:"-"`
}

// SourceDocument is one entry in a SourceFile.
type SourceDocument struct {
	Label      string    `json:"label" yaml:"label"`
	Content    string    `json:"content" yaml:"content"`
	CapturedAt time.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
}

// SourceFile is the YAML ingest format under knowledge/sources/<collection>/.
type SourceFile struct {
	// Collection overrides the directory-derived collection when set.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`

	// ScopeID applies to every document in the file.
	ScopeID string `json:"scope_id,omitempty" yaml:"scope_id,omitempty"`

	Documents []SourceDocument `json:"documents" yaml:"documents"`
}
