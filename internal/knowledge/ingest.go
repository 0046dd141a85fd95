// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// IngestSummary holds counts from one ingest run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of source files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads source files from knowledgeDir/sources/<collection>/ and
// loads them into the store. YAML files hold a SourceFile; Markdown files
// are split on ## and ### headings, one document per section. A file in a
// subdirectory takes the subdirectory name as its scope. Files whose
// modification time matches the last run are skipped; changed files
// replace their previous documents. Progress lines go to w. On any change
// the store is exported to index/export.yaml.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	root := filepath.Join(s.knowledgeDir, sourcesDir)
	if _, err := os.Stat(root); err != nil {
		return IngestSummary{}, fmt.Errorf("reading sources directory %s: %w", root, err)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".md":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return IngestSummary{}, fmt.Errorf("walking sources directory: %w", err)
	}

	var summary IngestSummary
	for _, path := range files {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM ingest_status WHERE source_file = ?`, rel,
		).Scan(&storedModTime)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return summary, fmt.Errorf("reading ingest status: %w", err)
		}
		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", rel)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		docs, err := loadSourceFile(path, rel, info.ModTime())
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
			summary.Failed++
			continue
		}

		s.embedDocuments(ctx, docs)

		if err := s.replaceSource(ctx, rel, modTime, docs); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d documents)\n", rel, len(docs))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d documents)\n", rel, len(docs))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, ""); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) embedDocuments(ctx context.Context, docs []types.Document) {
	if s.embedder == nil {
		return
	}
	var missing int
	for i := range docs {
		docs[i].Embedding = s.embedder.Embed(ctx, docs[i].Label+"\n"+docs[i].Content)
		if docs[i].Embedding == nil {
			missing++
		}
	}
	if missing > 0 {
		s.logger.Warn("documents stored without embeddings",
			zap.Int("missing", missing),
			zap.Int("total", len(docs)))
	}
}

func (s *Store) replaceSource(ctx context.Context, rel, modTime string, docs []types.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE source_file = ?`, rel); err != nil {
		return fmt.Errorf("deleting old documents: %w", err)
	}
	if err := insertDocuments(ctx, tx, rel, docs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ingest_status (source_file, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source_file) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		rel, modTime,
	); err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}
	return tx.Commit()
}

// loadSourceFile parses one file under sources/. rel is the slash path
// relative to sources/: its first element is the collection and a second
// directory level, when present, is the scope.
func loadSourceFile(path, rel string, modTime time.Time) ([]types.Document, error) {
	parts := strings.Split(rel, "/")
	if len(parts) < 2 {
		return nil, fmt.Errorf("file must live under a collection directory")
	}
	collection := parts[0]
	scopeID := ""
	if len(parts) > 2 {
		scopeID = parts[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(strings.ToLower(path), ".md") {
		if !types.IsCollection(collection) {
			return nil, fmt.Errorf("unknown collection %q", collection)
		}
		return markdownDocuments(string(data), collection, scopeID, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), modTime), nil
	}

	var sf types.SourceFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if sf.Collection != "" {
		collection = sf.Collection
	}
	if sf.ScopeID != "" {
		scopeID = sf.ScopeID
	}
	if !types.IsCollection(collection) {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	docs := make([]types.Document, 0, len(sf.Documents))
	for i, sd := range sf.Documents {
		if strings.TrimSpace(sd.Content) == "" {
			return nil, fmt.Errorf("document %d (%q) has no content", i, sd.Label)
		}
		label := sd.Label
		if label == "" {
			label = fmt.Sprintf("%s #%d", filepath.Base(path), i+1)
		}
		docs = append(docs, types.Document{
			ID:         stableID(collection, scopeID, label, sd.Content),
			Collection: collection,
			ScopeID:    scopeID,
			Label:      label,
			Content:    strings.TrimSpace(sd.Content),
			CapturedAt: sd.CapturedAt,
		})
	}
	return docs, nil
}

func markdownDocuments(content, collection, scopeID, title string, modTime time.Time) []types.Document {
	var docs []types.Document
	for _, sec := range chunkByHeadings(content) {
		body := strings.TrimSpace(sec.body)
		if body == "" {
			continue
		}
		label := title
		if sec.heading != "" {
			label = title + " / " + sec.heading
		}
		docs = append(docs, types.Document{
			ID:         stableID(collection, scopeID, label, body),
			Collection: collection,
			ScopeID:    scopeID,
			Label:      label,
			Content:    body,
			CapturedAt: modTime.UTC(),
		})
	}
	return docs
}

type section struct {
	heading string
	body    string
}

// chunkByHeadings splits Markdown into sections at ## and ### headings.
// Text before the first heading forms an untitled section.
func chunkByHeadings(content string) []section {
	var (
		sections  []section
		heading   string
		bodyLines []string
	)

	flush := func() {
		body := strings.Join(bodyLines, "\n")
		if heading != "" || strings.TrimSpace(body) != "" {
			sections = append(sections, section{heading: heading, body: body})
		}
		bodyLines = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "### ") {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	flush()
	return sections
}
