// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package novelty keeps generated artifacts from repeating a baseline.
// Candidates whose embedding is too close to the baseline are dropped; if
// every candidate is too close the caller regenerates once. Any missing or
// incomparable embedding counts as inconclusive and never filters.
package novelty

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/concept-engine/internal/embedding"
	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/pkg/types"
)

const defaultThreshold = 0.8

// Decision is the gate's verdict on one batch of candidates.
type Decision string

const (
	// Skip means no baseline was supplied.
	Skip Decision = "skip"

	// Pass keeps every candidate.
	Pass Decision = "pass"

	// Filter drops the similar candidates and keeps the rest.
	Filter Decision = "filter"

	// Regenerate means every candidate was similar.
	Regenerate Decision = "regenerate"
)

// Check records the comparison. Similarities[i] is nil when candidate i
// could not be compared.
type Check struct {
	Baseline     []float32
	Candidates   [][]float32
	Similarities []*float64
}

// Evaluation is the result of Evaluate.
type Evaluation struct {
	Decision Decision
	Check    Check

	// Similar[i] reports whether candidate i met the threshold.
	Similar []bool
}

// Gate compares candidate summaries with a baseline text.
type Gate struct {
	embedder  embedding.Embedder
	threshold float64
	logger    *zap.Logger
}

// NewGate creates a gate. A non-positive cfg.Threshold uses 0.8.
func NewGate(emb embedding.Embedder, cfg types.NoveltyConfig, logger *zap.Logger) *Gate {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Gate{
		embedder:  emb,
		threshold: threshold,
		logger:    logging.OrNop(logger).Named("novelty"),
	}
}

// Threshold returns the similarity cut-off in use.
func (g *Gate) Threshold() float64 { return g.threshold }

// Evaluate compares each summary with baseline.
func (g *Gate) Evaluate(ctx context.Context, baseline string, summaries []string) Evaluation {
	if strings.TrimSpace(baseline) == "" {
		return Evaluation{Decision: Skip}
	}

	ev := Evaluation{
		Decision: Pass,
		Check: Check{
			Candidates:   make([][]float32, len(summaries)),
			Similarities: make([]*float64, len(summaries)),
		},
		Similar: make([]bool, len(summaries)),
	}
	if len(summaries) == 0 || g.embedder == nil {
		return ev
	}

	ev.Check.Baseline = g.embedder.Embed(ctx, baseline)
	if ev.Check.Baseline == nil {
		g.logger.Warn("baseline embedding unavailable, novelty check inconclusive")
		return ev
	}

	similar := 0
	for i, s := range summaries {
		vec := g.embedder.Embed(ctx, s)
		ev.Check.Candidates[i] = vec
		sim, ok := embedding.Cosine(ev.Check.Baseline, vec)
		if !ok {
			continue
		}
		ev.Check.Similarities[i] = &sim
		if sim >= g.threshold {
			ev.Similar[i] = true
			similar++
		}
	}

	switch {
	case similar == len(summaries):
		ev.Decision = Regenerate
	case similar > 0:
		ev.Decision = Filter
	}
	return ev
}

// Outcome is the terminal state of Run.
type Outcome struct {
	Artifacts   []types.Artifact
	Decision    Decision
	Regenerated bool
}

// Run gates first against baseline. summarize renders an artifact for
// embedding. When every artifact is too similar, regenerate is called
// exactly once and its artifacts are returned without another check. If
// regenerate fails, first is returned unfiltered.
func (g *Gate) Run(
	ctx context.Context,
	baseline string,
	first []types.Artifact,
	summarize func(types.Artifact) string,
	regenerate func(ctx context.Context) ([]types.Artifact, error),
) Outcome {
	summaries := make([]string, len(first))
	for i, a := range first {
		summaries[i] = summarize(a)
	}

	ev := g.Evaluate(ctx, baseline, summaries)
	switch ev.Decision {
	case Filter:
		var kept []types.Artifact
		for i, a := range first {
			if !ev.Similar[i] {
				kept = append(kept, a)
			}
		}
		g.logger.Debug("similar artifacts dropped",
			zap.Int("dropped", len(first)-len(kept)),
			zap.Int("kept", len(kept)))
		return Outcome{Artifacts: kept, Decision: Filter}

	case Regenerate:
		g.logger.Info("all artifacts similar to baseline, regenerating once",
			zap.Int("candidates", len(first)),
			zap.Float64("threshold", g.threshold))
		second, err := regenerate(ctx)
		if err != nil {
			g.logger.Warn("regeneration failed, keeping first pass", zap.Error(err))
			return Outcome{Artifacts: first, Decision: Regenerate}
		}
		return Outcome{Artifacts: second, Decision: Regenerate, Regenerated: true}
	}

	return Outcome{Artifacts: first, Decision: ev.Decision}
}
