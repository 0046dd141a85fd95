// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate runs the grounded generation pipeline: retrieve context,
// prompt the model, keep only artifacts that cite the retrieved context,
// gate them for novelty against a baseline, and cache the response.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/concept-engine/internal/cache"
	"github.com/pdiddy/concept-engine/internal/grounding"
	"github.com/pdiddy/concept-engine/internal/llm"
	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/internal/novelty"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// ErrMissingInput is returned when a request lacks a concept.
var ErrMissingInput = errors.New("missing required input")

// Retriever assembles the context for one generation call.
type Retriever interface {
	RetrieveContext(ctx context.Context, query, scopeID string, opts types.RetrievalOptions) (types.RetrievalResult, error)
}

// Request describes one generation call. Nil and empty optional fields are
// equivalent.
type Request struct {
	Kind     types.ArtifactKind
	Concept  string
	Persona  *string
	Region   *string
	ScopeID  string
	Baseline *string

	// Retrieval overrides the configured retrieval options when set. It is
	// not part of the cache key.
	Retrieval *types.RetrievalOptions
}

// Response is the grounded output of one generation call.
type Response struct {
	Kind        types.ArtifactKind `json:"kind" yaml:"kind"`
	Artifacts   []types.Artifact   `json:"artifacts" yaml:"artifacts"`
	SourcesUsed []string           `json:"sources_used" yaml:"sources_used"`
	Regenerated bool               `json:"regenerated" yaml:"regenerated"`
	Warnings    []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	RunID       string             `json:"run_id" yaml:"run_id"`
}

// Generator runs the pipeline. It is safe for concurrent use.
type Generator struct {
	retriever Retriever
	completer llm.Completer
	gate      *novelty.Gate
	cache     cache.Cache[string, []byte]
	cfg       types.PipelineConfig
	group     singleflight.Group
	logger    *zap.Logger
}

// NewGenerator wires the pipeline. store may be nil to disable caching.
func NewGenerator(r Retriever, c llm.Completer, gate *novelty.Gate, store cache.Cache[string, []byte], cfg types.PipelineConfig, logger *zap.Logger) *Generator {
	return &Generator{
		retriever: r,
		completer: c,
		gate:      gate,
		cache:     store,
		cfg:       cfg,
		logger:    logging.OrNop(logger).Named("generate"),
	}
}

// CacheKey returns the cache key for req.
func CacheKey(req Request) string {
	return cache.Key(string(req.Kind),
		req.Concept,
		cache.Optional(req.Persona),
		cache.Optional(req.Region),
		req.ScopeID,
		cache.Optional(req.Baseline),
	)
}

// Generate returns grounded artifacts for req. It decodes the payload
// returned by GenerateJSON.
func (g *Generator) Generate(ctx context.Context, req Request) (Response, error) {
	data, err := g.GenerateJSON(ctx, req)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("decoding response: %w", err)
	}
	return resp, nil
}

// GenerateJSON returns the JSON-encoded Response for req. Identical
// requests are served the stored bytes unchanged, and concurrent identical
// requests share one pipeline run. The shared run is detached from the
// cancellation of any single caller and bounded by the configured adapter,
// embedding and generation timeouts; a caller whose ctx ends stops waiting
// with ctx.Err(). A model failure yields an empty response with a warning
// and is not cached.
func (g *Generator) GenerateJSON(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return nil, fmt.Errorf("%w: concept is required", ErrMissingInput)
	}
	spec, ok := grounding.SpecFor(req.Kind, g.cfg.Grounding)
	if !ok {
		return nil, fmt.Errorf("unsupported artifact kind %q: use wildcard or opportunity", req.Kind)
	}

	key := CacheKey(req)
	if data, ok := g.lookup(key); ok {
		return data, nil
	}

	runCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (any, error) {
		if data, ok := g.lookup(key); ok {
			return data, nil
		}
		resp, cacheable, err := g.run(runCtx, spec, req)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("encoding response: %w", err)
		}
		if cacheable && g.cache != nil {
			g.cache.Set(key, data)
		}
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return bytes.Clone(res.Val.([]byte)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Generator) lookup(key string) ([]byte, bool) {
	if g.cache == nil {
		return nil, false
	}
	data, ok := g.cache.Get(key)
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// run executes one uncached pipeline pass. cacheable is false when the
// model could not be reached.
func (g *Generator) run(ctx context.Context, spec grounding.ArtifactSpec, req Request) (Response, bool, error) {
	runID := ulid.Make().String()
	log := g.logger.With(zap.String("run_id", runID), zap.String("kind", string(req.Kind)))

	opts := g.cfg.Retrieval.Options()
	if req.Retrieval != nil {
		opts = *req.Retrieval
	}

	retrieved, err := g.retriever.RetrieveContext(ctx, req.Concept, req.ScopeID, opts)
	if err != nil {
		return Response{}, false, fmt.Errorf("retrieving context: %w", err)
	}
	log.Debug("context retrieved", zap.Int("items", len(retrieved.Items)))

	resp := Response{Kind: req.Kind, RunID: runID, Artifacts: []types.Artifact{}}
	validator := grounding.NewValidator(spec, g.logger)
	vars := NewPromptVars(spec, req, retrieved.Items)

	first, err := g.pass(ctx, validator, vars, retrieved.Items)
	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		resp.Warnings = append(resp.Warnings, "generation failed: "+err.Error())
		return resp, false, nil
	}

	cacheable := true
	artifacts := first
	if g.gate != nil {
		var regenErr error
		out := g.gate.Run(ctx, cache.Optional(req.Baseline), first, spec.Summary,
			func(ctx context.Context) ([]types.Artifact, error) {
				vars.AvoidOverlap = true
				second, err := g.pass(ctx, validator, vars, retrieved.Items)
				regenErr = err
				return second, err
			})
		artifacts = out.Artifacts
		resp.Regenerated = out.Regenerated
		if regenErr != nil {
			resp.Warnings = append(resp.Warnings, "regeneration failed: "+regenErr.Error())
			cacheable = false
		}
		log.Debug("novelty gate", zap.String("decision", string(out.Decision)))
	}

	if artifacts != nil {
		resp.Artifacts = artifacts
	}
	resp.SourcesUsed = grounding.SourcesUsed(resp.Artifacts, retrieved.Items)
	if resp.SourcesUsed == nil {
		resp.SourcesUsed = []string{}
	}

	log.Info("generation complete",
		zap.Int("artifacts", len(resp.Artifacts)),
		zap.Int("sources", len(resp.SourcesUsed)),
		zap.Bool("regenerated", resp.Regenerated))

	return resp, cacheable, nil
}

// pass renders the prompt, calls the model and validates the reply.
func (g *Generator) pass(ctx context.Context, v *grounding.Validator, vars PromptVars, items []types.ContextItem) ([]types.Artifact, error) {
	prompt, err := Render(vars)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := g.completer.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, llm.ModelOptions{})
	if err != nil {
		return nil, err
	}

	res := v.Validate(raw, items)
	if res.Parse == grounding.Unparseable {
		g.logger.Warn("model response was not JSON", zap.Int("bytes", len(raw)))
	}
	return res.Artifacts, nil
}
