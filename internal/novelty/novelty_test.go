// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package novelty

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// mapEmbedder returns the vector registered for a text, nil otherwise.
type mapEmbedder map[string][]float32

func (m mapEmbedder) Embed(_ context.Context, text string) []float32 { return m[text] }

// at returns a unit vector whose cosine with {1, 0} is sim.
func at(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

var baselineVec = []float32{1, 0}

func artifacts(titles ...string) []types.Artifact {
	out := make([]types.Artifact, len(titles))
	for i, t := range titles {
		out[i] = types.Artifact{Kind: types.KindWildcard, Title: t}
	}
	return out
}

func title(a types.Artifact) string { return a.Title }

func titles(as []types.Artifact) []string {
	var out []string
	for _, a := range as {
		out = append(out, a.Title)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	emb := mapEmbedder{
		"baseline": baselineVec,
		"close":    at(0.85),
		"far":      at(0.2),
		"3d":       {1, 0, 0},
	}
	gate := NewGate(emb, types.NoveltyConfig{Threshold: 0.8}, nil)

	tests := []struct {
		name     string
		baseline string
		cands    []string
		want     Decision
		similar  []bool
	}{
		{"no baseline", "", []string{"close"}, Skip, nil},
		{"blank baseline", "  ", []string{"close"}, Skip, nil},
		{"zero candidates", "baseline", nil, Pass, []bool{}},
		{"none similar", "baseline", []string{"far", "far"}, Pass, []bool{false, false}},
		{"some similar", "baseline", []string{"close", "far"}, Filter, []bool{true, false}},
		{"all similar", "baseline", []string{"close", "close"}, Regenerate, []bool{true, true}},
		{"baseline embedding fails", "unknown baseline", []string{"close"}, Pass, []bool{false}},
		{"candidate embedding fails", "baseline", []string{"close", "missing"}, Filter, []bool{true, false}},
		{"dimension mismatch", "baseline", []string{"close", "3d"}, Filter, []bool{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := gate.Evaluate(context.Background(), tt.baseline, tt.cands)
			assert.Equal(t, tt.want, ev.Decision)
			assert.Equal(t, tt.similar, ev.Similar)
		})
	}
}

func TestEvaluate_ThresholdInclusive(t *testing.T) {
	// cos({1,0}, {3,4}) is exactly 0.6.
	gate := NewGate(mapEmbedder{"baseline": baselineVec, "edge": {3, 4}}, types.NoveltyConfig{Threshold: 0.6}, nil)

	ev := gate.Evaluate(context.Background(), "baseline", []string{"edge"})
	assert.Equal(t, Regenerate, ev.Decision)
}

func TestEvaluate_Similarities(t *testing.T) {
	emb := mapEmbedder{"baseline": baselineVec, "close": at(0.85), "3d": {1, 0, 0}}
	gate := NewGate(emb, types.NoveltyConfig{}, nil)

	ev := gate.Evaluate(context.Background(), "baseline", []string{"close", "3d", "missing"})

	require.Len(t, ev.Check.Similarities, 3)
	require.NotNil(t, ev.Check.Similarities[0])
	assert.InDelta(t, 0.85, *ev.Check.Similarities[0], 1e-5)
	assert.Nil(t, ev.Check.Similarities[1])
	assert.Nil(t, ev.Check.Similarities[2])
	assert.Nil(t, ev.Check.Candidates[2])
	assert.Equal(t, 0.8, gate.Threshold())
}

func TestEvaluate_NilEmbedder(t *testing.T) {
	gate := NewGate(nil, types.NoveltyConfig{}, nil)
	ev := gate.Evaluate(context.Background(), "baseline", []string{"a"})
	assert.Equal(t, Pass, ev.Decision)
}

// Two ideas both at 0.85 against the baseline trigger exactly one
// regeneration; the second pass comes back unfiltered even though it is
// just as similar.
func TestRun_RegeneratesOnce(t *testing.T) {
	emb := mapEmbedder{"baseline": baselineVec, "A": at(0.85), "B": at(0.85), "C": at(0.85), "D": at(0.85)}
	gate := NewGate(emb, types.NoveltyConfig{Threshold: 0.8}, nil)

	calls := 0
	out := gate.Run(context.Background(), "baseline", artifacts("A", "B"), title,
		func(context.Context) ([]types.Artifact, error) {
			calls++
			return artifacts("C", "D"), nil
		})

	assert.Equal(t, 1, calls)
	assert.True(t, out.Regenerated)
	assert.Equal(t, Regenerate, out.Decision)
	assert.Equal(t, []string{"C", "D"}, titles(out.Artifacts))
}

func TestRun_RegenerationFailureKeepsFirstPass(t *testing.T) {
	emb := mapEmbedder{"baseline": baselineVec, "A": at(0.9)}
	gate := NewGate(emb, types.NoveltyConfig{}, nil)

	out := gate.Run(context.Background(), "baseline", artifacts("A"), title,
		func(context.Context) ([]types.Artifact, error) {
			return nil, errors.New("rate limited")
		})

	assert.False(t, out.Regenerated)
	assert.Equal(t, []string{"A"}, titles(out.Artifacts))
}

func TestRun_Filter(t *testing.T) {
	emb := mapEmbedder{"baseline": baselineVec, "A": at(0.9), "B": at(0.1), "C": at(0.95)}
	gate := NewGate(emb, types.NoveltyConfig{}, nil)

	out := gate.Run(context.Background(), "baseline", artifacts("A", "B", "C"), title, mustNotRegenerate(t))

	assert.Equal(t, Filter, out.Decision)
	assert.Equal(t, []string{"B"}, titles(out.Artifacts))
}

func TestRun_PassAndSkip(t *testing.T) {
	emb := mapEmbedder{"baseline": baselineVec, "A": at(0.1)}
	gate := NewGate(emb, types.NoveltyConfig{}, nil)

	out := gate.Run(context.Background(), "baseline", artifacts("A"), title, mustNotRegenerate(t))
	assert.Equal(t, Pass, out.Decision)
	assert.Equal(t, []string{"A"}, titles(out.Artifacts))

	out = gate.Run(context.Background(), "", artifacts("A"), title, mustNotRegenerate(t))
	assert.Equal(t, Skip, out.Decision)
	assert.Equal(t, []string{"A"}, titles(out.Artifacts))

	out = gate.Run(context.Background(), "baseline", nil, title, mustNotRegenerate(t))
	assert.Equal(t, Pass, out.Decision)
	assert.Empty(t, out.Artifacts)
}

// Embedding failure anywhere never removes an artifact.
func TestRun_FailOpen(t *testing.T) {
	gate := NewGate(mapEmbedder{}, types.NoveltyConfig{}, nil)

	out := gate.Run(context.Background(), "baseline", artifacts("A", "B"), title, mustNotRegenerate(t))
	assert.Equal(t, []string{"A", "B"}, titles(out.Artifacts))
}

func mustNotRegenerate(t *testing.T) func(context.Context) ([]types.Artifact, error) {
	return func(context.Context) ([]types.Artifact, error) {
		t.Error("regenerate must not be called")
		return nil, nil
	}
}
