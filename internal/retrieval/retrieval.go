// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval fans a query out to the source adapters concurrently
// and flattens their results into one id-addressable context list.
package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/internal/sources"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// ErrEmptyQuery is returned when RetrieveContext receives a blank query.
var ErrEmptyQuery = errors.New("query is empty")

const defaultMaxResults = 10

// Orchestrator runs the enabled adapters for each retrieval call.
type Orchestrator struct {
	adapters map[types.Bucket]sources.Adapter
	timeout  time.Duration
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator over adapters keyed by bucket.
// A bucket without an adapter is treated as disabled. cfg.AdapterTimeout
// bounds each adapter call independently; zero means no per-adapter
// deadline.
func NewOrchestrator(adapters map[types.Bucket]sources.Adapter, cfg types.RetrievalConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		adapters: adapters,
		timeout:  cfg.AdapterTimeout,
		logger:   logging.OrNop(logger).Named("retrieval"),
	}
}

// RetrieveContext queries every enabled adapter and returns their results
// in bucket order (project, core, live, predictive) with ids ctx1..ctxN
// assigned across that order. The project adapter runs only when scopeID
// is set; core runs when opts.IncludeCore; live and predictive run when
// opts.IncludeLive. A failed or timed-out adapter contributes nothing and
// is logged; it never fails the call.
func (o *Orchestrator) RetrieveContext(ctx context.Context, query, scopeID string, opts types.RetrievalOptions) (types.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return types.RetrievalResult{}, ErrEmptyQuery
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	buckets := o.enabled(scopeID, opts)
	results := make([]sources.Result, len(buckets))

	var wg sync.WaitGroup
	for i, b := range buckets {
		wg.Add(1)
		go func(i int, b types.Bucket) {
			defer wg.Done()
			results[i] = o.run(ctx, b, o.adapters[b], query, scopeID, limit)
		}(i, b)
	}
	wg.Wait()

	var out types.RetrievalResult
	for i, b := range buckets {
		res := results[i]
		labels := make([]string, 0, res.Len())
		for j := range res.Content {
			label := res.Sources[j]
			out.Items = append(out.Items, types.ContextItem{
				ID:          types.ContextID(len(out.Items) + 1),
				Text:        res.Content[j],
				SourceLabel: label,
				Bucket:      b,
			})
			labels = append(labels, label)
		}
		out.Sources.Set(b, labels)
	}

	o.logger.Debug("retrieval complete",
		zap.Int("buckets", len(buckets)),
		zap.Int("items", len(out.Items)))

	return out, nil
}

// enabled returns the buckets to query in flattening order.
func (o *Orchestrator) enabled(scopeID string, opts types.RetrievalOptions) []types.Bucket {
	var buckets []types.Bucket
	for _, b := range types.BucketOrder {
		if o.adapters[b] == nil {
			continue
		}
		switch b {
		case types.BucketProject:
			if scopeID == "" {
				continue
			}
		case types.BucketCore:
			if !opts.IncludeCore {
				continue
			}
		case types.BucketLive, types.BucketPredictive:
			if !opts.IncludeLive {
				continue
			}
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// run calls one adapter under its own timeout and normalizes the result.
// Adapters must return once ctx is done; the call is not abandoned.
func (o *Orchestrator) run(ctx context.Context, b types.Bucket, a sources.Adapter, query, scopeID string, limit int) sources.Result {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res, err := a.Retrieve(ctx, query, scopeID, limit)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		o.logger.Warn("adapter failed",
			zap.String("bucket", string(b)),
			zap.Error(err))
		return sources.Result{}
	}

	n := min(len(res.Content), len(res.Sources), limit)
	res.Content = res.Content[:n]
	res.Sources = res.Sources[:n]
	return res
}
