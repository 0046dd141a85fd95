// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources adapts the knowledge store collections into retrieval
// sources. Every adapter tries semantic search first and falls back to
// keyword search when no embedding is available, the vector search fails,
// or it finds nothing.
package sources

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/concept-engine/internal/embedding"
	"github.com/pdiddy/concept-engine/internal/keywords"
	"github.com/pdiddy/concept-engine/internal/knowledge"
	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// Result holds formatted snippets and their provenance labels. Content[i]
// came from Sources[i].
type Result struct {
	Content []string
	Sources []string
}

// Len returns the number of snippets.
func (r Result) Len() int { return len(r.Content) }

// Adapter retrieves evidence for a query from one knowledge source.
// Retrieve must return promptly once ctx is done.
type Adapter interface {
	Retrieve(ctx context.Context, query, scopeID string, limit int) (Result, error)
}

// Searcher is the slice of the knowledge store an adapter needs.
type Searcher interface {
	VectorSearch(ctx context.Context, collection string, vec []float32, limit int, f knowledge.Filter) ([]knowledge.Match, error)
	KeywordSearch(ctx context.Context, collection string, terms []string, f knowledge.Filter, limit int) ([]types.Document, error)
}

// profile captures what differs between the four adapters.
type profile struct {
	bucket      types.Bucket
	collection  string
	displayName string

	// scoped restricts results to the caller's scope id.
	scoped bool

	// windowed restricts results to the live window and dates the labels.
	windowed bool
}

var (
	projectProfile    = profile{bucket: types.BucketProject, collection: types.CollectionProject, displayName: "Project Documents", scoped: true}
	coreProfile       = profile{bucket: types.BucketCore, collection: types.CollectionCore, displayName: "Core Knowledge"}
	liveProfile       = profile{bucket: types.BucketLive, collection: types.CollectionLive, displayName: "Live Metrics", windowed: true}
	predictiveProfile = profile{bucket: types.BucketPredictive, collection: types.CollectionPredictive, displayName: "Predictive Trends"}
)

// CollectionAdapter is an Adapter over one knowledge store collection.
type CollectionAdapter struct {
	profile
	store         Searcher
	embedder      embedding.Embedder
	minSimilarity float64
	liveWindow    time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// NewProjectAdapter searches project documents owned by the caller's scope.
func NewProjectAdapter(store Searcher, emb embedding.Embedder, cfg types.RetrievalConfig, logger *zap.Logger) *CollectionAdapter {
	return newAdapter(projectProfile, store, emb, cfg, logger)
}

// NewCoreAdapter searches the curated core knowledge base.
func NewCoreAdapter(store Searcher, emb embedding.Embedder, cfg types.RetrievalConfig, logger *zap.Logger) *CollectionAdapter {
	return newAdapter(coreProfile, store, emb, cfg, logger)
}

// NewLiveAdapter searches live metrics captured within cfg.LiveWindow.
func NewLiveAdapter(store Searcher, emb embedding.Embedder, cfg types.RetrievalConfig, logger *zap.Logger) *CollectionAdapter {
	return newAdapter(liveProfile, store, emb, cfg, logger)
}

// NewPredictiveAdapter searches predictive trend documents.
func NewPredictiveAdapter(store Searcher, emb embedding.Embedder, cfg types.RetrievalConfig, logger *zap.Logger) *CollectionAdapter {
	return newAdapter(predictiveProfile, store, emb, cfg, logger)
}

// NewAdapters builds all four adapters keyed by bucket.
func NewAdapters(store Searcher, emb embedding.Embedder, cfg types.RetrievalConfig, logger *zap.Logger) map[types.Bucket]Adapter {
	return map[types.Bucket]Adapter{
		types.BucketProject:    NewProjectAdapter(store, emb, cfg, logger),
		types.BucketCore:       NewCoreAdapter(store, emb, cfg, logger),
		types.BucketLive:       NewLiveAdapter(store, emb, cfg, logger),
		types.BucketPredictive: NewPredictiveAdapter(store, emb, cfg, logger),
	}
}

func newAdapter(p profile, store Searcher, emb embedding.Embedder, cfg types.RetrievalConfig, logger *zap.Logger) *CollectionAdapter {
	return &CollectionAdapter{
		profile:       p,
		store:         store,
		embedder:      emb,
		minSimilarity: cfg.MinSimilarity,
		liveWindow:    cfg.LiveWindow,
		now:           time.Now,
		logger:        logging.OrNop(logger).Named("sources").With(zap.String("bucket", string(p.bucket))),
	}
}

// Bucket returns the bucket this adapter fills.
func (a *CollectionAdapter) Bucket() types.Bucket { return a.bucket }

// Retrieve returns up to limit snippets for query. The project adapter
// returns nothing without a scope id. Keyword search errors are returned;
// vector search errors only trigger the keyword fallback.
func (a *CollectionAdapter) Retrieve(ctx context.Context, query, scopeID string, limit int) (Result, error) {
	if a.scoped && scopeID == "" {
		return Result{}, nil
	}

	f := a.filter(scopeID)

	var vec []float32
	if a.embedder != nil {
		vec = a.embedder.Embed(ctx, query)
	}
	if vec == nil {
		return a.keyword(ctx, query, f, limit)
	}

	f.MinSimilarity = a.minSimilarity
	matches, err := a.store.VectorSearch(ctx, a.collection, vec, limit, f)
	if err != nil {
		a.logger.Warn("vector search failed, using keyword search", zap.Error(err))
		return a.keyword(ctx, query, f, limit)
	}
	if len(matches) == 0 {
		return a.keyword(ctx, query, f, limit)
	}

	var res Result
	for _, m := range matches {
		res.Content = append(res.Content, fmt.Sprintf("%s (%d%% match): %s", m.Label, percent(m.Score), m.Content))
		res.Sources = append(res.Sources, a.sourceLabel(m.Document))
	}
	return res, nil
}

func (a *CollectionAdapter) keyword(ctx context.Context, query string, f knowledge.Filter, limit int) (Result, error) {
	terms := keywords.Extract(query)
	docs, err := a.store.KeywordSearch(ctx, a.collection, terms, f, limit)
	if err != nil {
		return Result{}, fmt.Errorf("%s keyword search: %w", a.bucket, err)
	}

	var res Result
	for _, d := range docs {
		res.Content = append(res.Content, fmt.Sprintf("%s [%s keyword match]: %s", d.Label, a.bucket, d.Content))
		res.Sources = append(res.Sources, a.sourceLabel(d))
	}
	return res, nil
}

func (a *CollectionAdapter) filter(scopeID string) knowledge.Filter {
	var f knowledge.Filter
	if a.scoped {
		f.ScopeID = scopeID
	}
	if a.windowed && a.liveWindow > 0 {
		f.Since = a.now().Add(-a.liveWindow)
	}
	return f
}

func (a *CollectionAdapter) sourceLabel(d types.Document) string {
	if a.windowed && !d.CapturedAt.IsZero() {
		return fmt.Sprintf("%s: %s (%s)", a.displayName, d.Label, d.CapturedAt.UTC().Format("2006-01-02"))
	}
	return a.displayName + ": " + d.Label
}

func percent(score float64) int {
	return int(math.Round(score * 100))
}
