// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/concept-engine/internal/embedding"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// Filter restricts a search to one scope or time window. Zero values apply
// no restriction.
type Filter struct {
	// ScopeID keeps only documents whose scope_id matches exactly.
	ScopeID string

	// Since keeps only documents captured at or after this instant.
	Since time.Time

	// MinSimilarity drops vector matches scoring below it.
	MinSimilarity float64
}

// Match is a vector search hit with its cosine similarity.
type Match struct {
	types.Document
	Score float64 `json:"score" yaml:"score"`
}

const documentColumns = `rowid, id, collection, scope_id, label, content, captured_at, embedding`

// VectorSearch returns up to limit documents in collection ranked by cosine
// similarity to vec, highest first. Documents without a stored embedding,
// or whose embedding has a different dimension, are skipped. Ties keep
// insertion order.
func (s *Store) VectorSearch(ctx context.Context, collection string, vec []float32, limit int, f Filter) ([]Match, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("vector search: empty query embedding")
	}

	where, args := filterClause(collection, f)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE embedding IS NOT NULL`+where+` ORDER BY rowid`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		score, ok := embedding.Cosine(vec, doc.Embedding)
		if !ok || score < f.MinSimilarity {
			continue
		}
		doc.Embedding = nil
		matches = append(matches, Match{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// KeywordSearch returns up to limit documents in collection whose label or
// content contains at least one of terms, ranked by the number of distinct
// terms matched and then by insertion order. No terms yields no results.
func (s *Store) KeywordSearch(ctx context.Context, collection string, terms []string, f Filter, limit int) ([]types.Document, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		hits []string
		args []any
	)
	for _, term := range terms {
		hits = append(hits, `(lower(label || ' ' || content) LIKE ? ESCAPE '\')`)
		args = append(args, "%"+escapeLike(strings.ToLower(term))+"%")
	}

	where, filterArgs := filterClause(collection, f)
	args = append(args, filterArgs...)

	query := `SELECT ` + documentColumns + ` FROM (
			SELECT ` + documentColumns + `, (` + strings.Join(hits, " + ") + `) AS hits
			FROM documents WHERE 1=1` + where + `
		) WHERE hits > 0 ORDER BY hits DESC, rowid`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		doc.Embedding = nil
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	return docs, nil
}

// Documents lists the stored documents in insertion order. An empty
// collection lists every collection.
func (s *Store) Documents(ctx context.Context, collection string) ([]types.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if collection != "" {
		query += ` WHERE collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (types.Document, error) {
	var (
		doc      types.Document
		rowid    int64
		captured string
		blob     []byte
	)
	if err := row.Scan(&rowid, &doc.ID, &doc.Collection, &doc.ScopeID,
		&doc.Label, &doc.Content, &captured, &blob); err != nil {
		return types.Document{}, fmt.Errorf("scanning document: %w", err)
	}
	doc.CapturedAt = parseTime(captured)
	doc.Embedding = decodeVector(blob)
	return doc, nil
}

// filterClause renders the collection and Filter restrictions as
// " AND ..." conditions.
func filterClause(collection string, f Filter) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(` AND collection = ?`)
	args = append(args, collection)

	if f.ScopeID != "" {
		b.WriteString(` AND scope_id = ?`)
		args = append(args, f.ScopeID)
	}
	if !f.Since.IsZero() {
		b.WriteString(` AND captured_at != '' AND captured_at >= ?`)
		args = append(args, formatTime(f.Since))
	}
	return b.String(), args
}

func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}
