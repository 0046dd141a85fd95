// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists the four source collections (project
// documents, core knowledge, live metrics, predictive trends) in SQLite and
// answers vector and keyword searches over them.
package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/concept-engine/internal/embedding"
	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/pkg/types"
)

const (
	sourcesDir    = "sources"
	indexDir      = "index"
	defaultDBFile = "knowledge.db"

	// timeLayout is fixed-width so captured_at compares correctly as text.
	timeLayout = "2006-01-02T15:04:05Z"
)

// Store manages the knowledge store SQLite database.
type Store struct {
	db           *sql.DB
	knowledgeDir string
	embedder     embedding.Embedder
	logger       *zap.Logger
}

// NewStore opens or creates the database at knowledgeDir/index/<db_file>
// and creates the schema if it does not exist. embedder computes document
// vectors at ingest; when nil, ingested documents are keyword-only.
func NewStore(cfg types.KnowledgeBaseConfig, embedder embedding.Embedder, logger *zap.Logger) (*Store, error) {
	dbDir := filepath.Join(cfg.KnowledgeDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	name := cfg.DBFile
	if name == "" {
		name = defaultDBFile
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, name)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:           db,
		knowledgeDir: cfg.KnowledgeDir,
		embedder:     embedder,
		logger:       logging.OrNop(logger).Named("knowledge"),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			collection TEXT NOT NULL,
			scope_id TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL,
			content TEXT NOT NULL,
			captured_at TEXT NOT NULL DEFAULT '',
			source_file TEXT NOT NULL DEFAULT '',
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, scope_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_file)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			source_file TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AddDocuments inserts or replaces docs. Documents without an ID receive a
// stable one derived from collection, scope, label and content.
func (s *Store) AddDocuments(ctx context.Context, docs []types.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertDocuments(ctx, tx, "", docs); err != nil {
		return err
	}
	return tx.Commit()
}

func insertDocuments(ctx context.Context, tx *sql.Tx, sourceFile string, docs []types.Document) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO documents
			(id, collection, scope_id, label, content, captured_at, source_file, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if doc.Collection == "" {
			return fmt.Errorf("document %q has no collection", doc.Label)
		}
		id := doc.ID
		if id == "" {
			id = stableID(doc.Collection, doc.ScopeID, doc.Label, doc.Content)
		}
		var blob []byte
		if len(doc.Embedding) > 0 {
			blob = encodeVector(doc.Embedding)
		}
		if _, err := stmt.ExecContext(ctx,
			id, doc.Collection, doc.ScopeID, doc.Label, doc.Content,
			formatTime(doc.CapturedAt), sourceFile, blob,
		); err != nil {
			return fmt.Errorf("inserting document %s: %w", id, err)
		}
	}
	return nil
}

// Count returns the number of documents per collection.
func (s *Store) Count(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection, count(*) FROM documents GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// stableID is the first 12 hex characters of SHA-256 over the identifying
// fields.
func stableID(collection, scopeID, label, content string) string {
	h := sha256.New()
	for _, part := range []string{collection, scopeID, label, content} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// encodeVector stores v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
