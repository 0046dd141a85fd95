// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is one document in an export file. Embeddings are omitted.
type ExportEntry struct {
	ID         string `json:"id" yaml:"id"`
	Collection string `json:"collection" yaml:"collection"`
	ScopeID    string `json:"scope_id,omitempty" yaml:"scope_id,omitempty"`
	Label      string `json:"label" yaml:"label"`
	Content    string `json:"content" yaml:"content"`
	CapturedAt string `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
	Embedded   bool   `json:"embedded" yaml:"embedded"`
}

// ExportYAML writes the store to knowledge/index/export.yaml. An empty
// collection exports every collection.
func (s *Store) ExportYAML(ctx context.Context, collection string) error {
	entries, err := s.exportEntries(ctx, collection)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(s.ExportPath("yaml"), data, 0o644)
}

// ExportJSON writes the store to knowledge/index/export.json.
func (s *Store) ExportJSON(ctx context.Context, collection string) error {
	entries, err := s.exportEntries(ctx, collection)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(s.ExportPath("json"), data, 0o644)
}

// ExportPath returns the export file path for format ("yaml" or "json").
func (s *Store) ExportPath(format string) string {
	return filepath.Join(s.knowledgeDir, indexDir, "export."+format)
}

func (s *Store) exportEntries(ctx context.Context, collection string) ([]ExportEntry, error) {
	docs, err := s.Documents(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(docs))
	for i, d := range docs {
		entries[i] = ExportEntry{
			ID:         d.ID,
			Collection: d.Collection,
			ScopeID:    d.ScopeID,
			Label:      d.Label,
			Content:    d.Content,
			CapturedAt: formatTime(d.CapturedAt),
			Embedded:   len(d.Embedding) > 0,
		}
	}
	return entries, nil
}
