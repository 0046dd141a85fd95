// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding computes vector embeddings for semantic retrieval and
// novelty checks. Providers return errors; the Embedder wrapper turns every
// failure into a nil vector so callers can fall back without branching on
// provider errors.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/viterin/vek/vek32"
	"go.uber.org/zap"

	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// Provider generates an embedding for one text using a concrete backend.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// Embedder returns an embedding for text, or nil when none could be
// computed. It never returns an error.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// guarded adapts a Provider to the Embedder contract.
type guarded struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewEmbedder wraps p so that provider errors, empty input, empty vectors
// and timeouts all yield nil. A zero timeout leaves the caller's deadline
// in charge.
func NewEmbedder(p Provider, timeout time.Duration, logger *zap.Logger) Embedder {
	return &guarded{
		provider: p,
		timeout:  timeout,
		logger:   logging.OrNop(logger).Named("embedding"),
	}
}

func (g *guarded) Embed(ctx context.Context, text string) []float32 {
	if g.provider == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vec, err := g.provider.Embed(ctx, text)
	if err != nil {
		g.logger.Warn("embedding failed",
			zap.String("provider", g.provider.Name()),
			zap.Error(err))
		return nil
	}
	if len(vec) == 0 {
		g.logger.Warn("embedding empty", zap.String("provider", g.provider.Name()))
		return nil
	}
	return vec
}

// Cosine returns the cosine similarity of a and b. ok is false when either
// vector is empty, the dimensions differ, or a norm is zero.
func Cosine(a, b []float32) (sim float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	na := vek32.Dot(a, a)
	nb := vek32.Dot(b, b)
	if na == 0 || nb == 0 {
		return 0, false
	}
	sim = float64(vek32.Dot(a, b)) / (math.Sqrt(float64(na)) * math.Sqrt(float64(nb)))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	return sim, true
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg types.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case types.EmbeddingOpenAI, "":
		p, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case types.EmbeddingGenAI:
		p, err := NewGenAIProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case types.EmbeddingOllama:
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: use openai, genai, or ollama", cfg.Provider)
	}
}
