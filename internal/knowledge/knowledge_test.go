package knowledge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// --- test helpers ---

// staticEmbedder maps exact text to a vector; unknown text yields nil.
type staticEmbedder map[string][]float32

func (e staticEmbedder) Embed(_ context.Context, text string) []float32 {
	return e[text]
}

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	return testSetupWithEmbedder(t, nil)
}

func testSetupWithEmbedder(t *testing.T, emb staticEmbedder) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := types.KnowledgeBaseConfig{KnowledgeDir: filepath.Join(tmpDir, "knowledge")}
	var store *Store
	var err error
	if emb == nil {
		store, err = NewStore(cfg, nil, nil)
	} else {
		store, err = NewStore(cfg, emb, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store, tmpDir
}

func writeSource(t *testing.T, tmpDir, rel, content string) string {
	t.Helper()
	path := filepath.Join(tmpDir, "knowledge", sourcesDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeSourceFile(t *testing.T, tmpDir, rel string, sf types.SourceFile) string {
	t.Helper()
	data, err := yaml.Marshal(&sf)
	if err != nil {
		t.Fatal(err)
	}
	return writeSource(t, tmpDir, rel, string(data))
}

func docLabels(docs []types.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Label
	}
	return out
}

func labels(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Label
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testSetup(t)

	for _, table := range []string{"documents", "ingest_status"} {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := types.KnowledgeBaseConfig{KnowledgeDir: filepath.Join(tmpDir, "knowledge"), DBFile: "test.db"}
	store, err := NewStore(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	dbPath := filepath.Join(tmpDir, "knowledge", indexDir, "test.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
}

// --- vector search ---

func TestVectorSearch(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	docs := []types.Document{
		{Collection: types.CollectionCore, Label: "east", Content: "a", Embedding: []float32{1, 0}},
		{Collection: types.CollectionCore, Label: "northeast", Content: "b", Embedding: []float32{1, 1}},
		{Collection: types.CollectionCore, Label: "north", Content: "c", Embedding: []float32{0, 1}},
		{Collection: types.CollectionCore, Label: "unembedded", Content: "d"},
		{Collection: types.CollectionCore, Label: "wrong dimension", Content: "e", Embedding: []float32{1, 0, 0}},
		{Collection: types.CollectionLive, Label: "other collection", Content: "f", Embedding: []float32{1, 0}},
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		limit int
		min   float64
		want  []string
	}{
		{"ranked by similarity", 10, 0, []string{"east", "northeast", "north"}},
		{"limit", 2, 0, []string{"east", "northeast"}},
		{"min similarity", 10, 0.5, []string{"east", "northeast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.VectorSearch(ctx, types.CollectionCore, []float32{1, 0}, tt.limit, Filter{MinSimilarity: tt.min})
			if err != nil {
				t.Fatal(err)
			}
			if !equalStrings(labels(got), tt.want) {
				t.Errorf("labels = %v, want %v", labels(got), tt.want)
			}
		})
	}
}

func TestVectorSearchScores(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	if err := store.AddDocuments(ctx, []types.Document{
		{Collection: types.CollectionCore, Label: "same", Content: "a", Embedding: []float32{0.6, 0.8}},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := store.VectorSearch(ctx, types.CollectionCore, []float32{0.6, 0.8}, 5, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if got[0].Score < 0.9999 {
		t.Errorf("Score = %f, want 1", got[0].Score)
	}
	if got[0].Embedding != nil {
		t.Error("match should not carry the stored embedding")
	}
}

func TestVectorSearchEmptyEmbedding(t *testing.T) {
	store, _ := testSetup(t)
	if _, err := store.VectorSearch(context.Background(), types.CollectionCore, nil, 5, Filter{}); err == nil {
		t.Error("expected error for empty query embedding")
	}
}

func TestSearchFilters(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := []types.Document{
		{Collection: types.CollectionProject, ScopeID: "p1", Label: "p1 dance", Content: "dance notes", Embedding: []float32{1, 0}},
		{Collection: types.CollectionProject, ScopeID: "p2", Label: "p2 dance", Content: "dance notes", Embedding: []float32{1, 0}},
		{Collection: types.CollectionLive, Label: "fresh", Content: "dance trend", CapturedAt: now.Add(-24 * time.Hour), Embedding: []float32{1, 0}},
		{Collection: types.CollectionLive, Label: "stale", Content: "dance trend", CapturedAt: now.Add(-60 * 24 * time.Hour), Embedding: []float32{1, 0}},
		{Collection: types.CollectionLive, Label: "undated", Content: "dance trend", Embedding: []float32{1, 0}},
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatal(err)
	}

	scope := Filter{ScopeID: "p1"}
	window := Filter{Since: now.Add(-30 * 24 * time.Hour)}

	vec, err := store.VectorSearch(ctx, types.CollectionProject, []float32{1, 0}, 10, scope)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"p1 dance"}; !equalStrings(labels(vec), want) {
		t.Errorf("scoped vector labels = %v, want %v", labels(vec), want)
	}

	kw, err := store.KeywordSearch(ctx, types.CollectionProject, []string{"dance"}, scope, 10)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"p1 dance"}; !equalStrings(docLabels(kw), want) {
		t.Errorf("scoped keyword labels = %v, want %v", docLabels(kw), want)
	}

	vec, err = store.VectorSearch(ctx, types.CollectionLive, []float32{1, 0}, 10, window)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"fresh"}; !equalStrings(labels(vec), want) {
		t.Errorf("windowed vector labels = %v, want %v", labels(vec), want)
	}
	if len(vec) == 1 && !vec[0].CapturedAt.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("CapturedAt = %v, want %v", vec[0].CapturedAt, now.Add(-24*time.Hour))
	}

	kw, err = store.KeywordSearch(ctx, types.CollectionLive, []string{"trend"}, window, 10)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"fresh"}; !equalStrings(docLabels(kw), want) {
		t.Errorf("windowed keyword labels = %v, want %v", docLabels(kw), want)
	}
}

// --- keyword search ---

func TestKeywordSearch(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	docs := []types.Document{
		{Collection: types.CollectionCore, Label: "Choreography", Content: "Short dance routines spread fastest."},
		{Collection: types.CollectionCore, Label: "Challenge formats", Content: "A dance challenge invites remixes."},
		{Collection: types.CollectionCore, Label: "Audio", Content: "Trending sounds drive discovery."},
		{Collection: types.CollectionCore, Label: "Wildcards", Content: "Literal 100% match_rate claims."},
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		terms []string
		limit int
		want  []string
	}{
		{"ranked by hits then insertion", []string{"dance", "challenge"}, 10, []string{"Challenge formats", "Choreography"}},
		{"label matches", []string{"audio"}, 10, []string{"Audio"}},
		{"case insensitive", []string{"TRENDING"}, 10, []string{"Audio"}},
		{"limit", []string{"dance"}, 1, []string{"Choreography"}},
		{"no match", []string{"zebra"}, 10, nil},
		{"no terms", nil, 10, nil},
		{"percent is literal", []string{"100%"}, 10, []string{"Wildcards"}},
		{"underscore is literal", []string{"d_n"}, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.KeywordSearch(ctx, types.CollectionCore, tt.terms, Filter{}, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if !equalStrings(docLabels(got), tt.want) {
				t.Errorf("labels = %v, want %v", docLabels(got), tt.want)
			}
		})
	}
}

func TestAddDocumentsStableIDs(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	doc := types.Document{Collection: types.CollectionCore, Label: "x", Content: "same"}
	for i := 0; i < 2; i++ {
		if err := store.AddDocuments(ctx, []types.Document{doc}); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[types.CollectionCore] != 1 {
		t.Errorf("core count = %d, want 1 after re-adding the same document", counts[types.CollectionCore])
	}
}

func TestAddDocumentsRequiresCollection(t *testing.T) {
	store, _ := testSetup(t)
	err := store.AddDocuments(context.Background(), []types.Document{{Label: "orphan", Content: "x"}})
	if err == nil {
		t.Error("expected error for document without collection")
	}
}

func TestStableID(t *testing.T) {
	a := stableID("core_knowledge", "", "label", "content")
	if a != stableID("core_knowledge", "", "label", "content") {
		t.Error("stableID is not deterministic")
	}
	if len(a) != 12 {
		t.Errorf("len = %d, want 12", len(a))
	}
	if a == stableID("core_knowledge", "", "labelc", "ontent") {
		t.Error("field boundaries must affect the id")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3e-7}
	out := decodeVector(encodeVector(in))
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	if decodeVector([]byte{1, 2, 3}) != nil {
		t.Error("truncated blob should decode to nil")
	}
}

// --- ingest ---

func TestIngest(t *testing.T) {
	emb := staticEmbedder{
		"Dance challenges\nShort routines with a hook spread fastest.": {1, 0},
	}
	store, tmpDir := testSetupWithEmbedder(t, emb)

	writeSourceFile(t, tmpDir, "core_knowledge/virality.yaml", types.SourceFile{
		Documents: []types.SourceDocument{
			{Label: "Dance challenges", Content: "Short routines with a hook spread fastest."},
			{Label: "Duets", Content: "Duet prompts lower the barrier to participation."},
		},
	})
	writeSource(t, tmpDir, "project_documents/acme/brief.md",
		"Intro text.\n\n## Audience\nGen Z creators.\n\n### Tone\nPlayful.\n")
	writeSource(t, tmpDir, "core_knowledge/notes.txt", "ignored")

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Indexed != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 2 indexed; output: %s", summary, buf.String())
	}

	core, err := store.Documents(context.Background(), types.CollectionCore)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Dance challenges", "Duets"}; !equalStrings(docLabels(core), want) {
		t.Errorf("core labels = %v, want %v", docLabels(core), want)
	}
	if len(core[0].Embedding) != 2 || core[1].Embedding != nil {
		t.Errorf("embeddings = %v / %v, want only the first embedded", core[0].Embedding, core[1].Embedding)
	}

	project, err := store.Documents(context.Background(), types.CollectionProject)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"brief", "brief / Audience", "brief / Tone"}; !equalStrings(docLabels(project), want) {
		t.Errorf("project labels = %v, want %v", docLabels(project), want)
	}
	for _, d := range project {
		if d.ScopeID != "acme" {
			t.Errorf("ScopeID = %q, want acme", d.ScopeID)
		}
		if d.CapturedAt.IsZero() {
			t.Error("markdown documents take the file mod time as CapturedAt")
		}
	}

	if _, err := os.Stat(store.ExportPath("yaml")); err != nil {
		t.Errorf("export.yaml not written: %v", err)
	}
}

func TestIngestIncremental(t *testing.T) {
	store, tmpDir := testSetup(t)
	ctx := context.Background()

	path := writeSourceFile(t, tmpDir, "live_metrics/week.yaml", types.SourceFile{
		Documents: []types.SourceDocument{{Label: "a", Content: "one"}, {Label: "b", Content: "two"}},
	})

	var buf strings.Builder
	if _, err := store.Ingest(ctx, &buf); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Ingest(ctx, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Total() != 1 {
		t.Errorf("second run summary = %+v, want 1 skipped", summary)
	}

	writeSourceFile(t, tmpDir, "live_metrics/week.yaml", types.SourceFile{
		Documents: []types.SourceDocument{{Label: "c", Content: "three"}},
	})
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	summary, err = store.Ingest(ctx, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("third run summary = %+v, want 1 updated", summary)
	}

	docs, err := store.Documents(ctx, types.CollectionLive)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"c"}; !equalStrings(docLabels(docs), want) {
		t.Errorf("labels after update = %v, want %v", docLabels(docs), want)
	}
}

func TestIngestYAMLOverrides(t *testing.T) {
	store, tmpDir := testSetup(t)

	captured := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	writeSourceFile(t, tmpDir, "misc/override.yaml", types.SourceFile{
		Collection: types.CollectionProject,
		ScopeID:    "p9",
		Documents:  []types.SourceDocument{{Label: "x", Content: "y", CapturedAt: captured}},
	})

	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}

	docs, err := store.Documents(context.Background(), types.CollectionProject)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ScopeID != "p9" || !docs[0].CapturedAt.Equal(captured) {
		t.Errorf("docs = %+v, want one p9 document captured %v", docs, captured)
	}
}

func TestIngestFailures(t *testing.T) {
	store, tmpDir := testSetup(t)

	writeSource(t, tmpDir, "core_knowledge/broken.yaml", "documents: [unclosed")
	writeSource(t, tmpDir, "core_knowledge/empty.yaml", "documents:\n  - label: nothing\n")
	writeSource(t, tmpDir, "stray.yaml", "documents: []")
	writeSource(t, tmpDir, "misc/notes.md", "## A\nbody")

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 4 {
		t.Errorf("Failed = %d, want 4; output: %s", summary.Failed, buf.String())
	}
	if !strings.Contains(buf.String(), `unknown collection "misc"`) {
		t.Errorf("output missing unknown collection failure: %s", buf.String())
	}
}

func TestIngestMissingSourcesDir(t *testing.T) {
	store, _ := testSetup(t)
	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err == nil {
		t.Error("expected error when sources directory is missing")
	}
}

func TestChunkByHeadings(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		headings []string
	}{
		{"no headings", "just text", []string{""}},
		{"preamble and sections", "pre\n## A\na\n### B\nb", []string{"", "A", "B"}},
		{"h1 is not a boundary", "# Title\n## A\na", []string{"", "A"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, s := range chunkByHeadings(tt.content) {
				got = append(got, s.heading)
			}
			if !equalStrings(got, tt.headings) {
				t.Errorf("headings = %q, want %q", got, tt.headings)
			}
		})
	}
}

// --- export ---

func TestExportJSON(t *testing.T) {
	store, _ := testSetup(t)
	ctx := context.Background()

	if err := store.AddDocuments(ctx, []types.Document{
		{Collection: types.CollectionCore, Label: "a", Content: "x", Embedding: []float32{1}},
		{Collection: types.CollectionLive, Label: "b", Content: "y"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.ExportJSON(ctx, types.CollectionCore); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(store.ExportPath("json"))
	if err != nil {
		t.Fatal(err)
	}

	var entries []ExportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Label != "a" || !entries[0].Embedded {
		t.Errorf("entries = %+v, want one embedded core entry", entries)
	}
	if strings.Contains(string(data), "embedding\"") {
		t.Error("export must not contain raw embeddings")
	}
}
