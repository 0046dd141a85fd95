// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/concept-engine/internal/cache"
	"github.com/pdiddy/concept-engine/internal/embedding"
	"github.com/pdiddy/concept-engine/internal/generate"
	"github.com/pdiddy/concept-engine/internal/knowledge"
	"github.com/pdiddy/concept-engine/internal/llm"
	"github.com/pdiddy/concept-engine/internal/novelty"
	"github.com/pdiddy/concept-engine/internal/retrieval"
	"github.com/pdiddy/concept-engine/internal/sources"
)

// newEmbedder builds the guarded embedder. A provider that cannot be
// constructed leaves retrieval on keyword search and disables the novelty
// gate instead of failing the command.
func newEmbedder(ctx context.Context) embedding.Embedder {
	p, err := embedding.NewProvider(ctx, cfg.Embedding)
	if err != nil {
		logger.Warn("embeddings disabled", zap.Error(err))
		p = nil
	}
	return embedding.NewEmbedder(p, cfg.Embedding.Timeout, logger)
}

// openStore opens the knowledge store with the given embedder.
func openStore(emb embedding.Embedder) (*knowledge.Store, error) {
	return knowledge.NewStore(cfg.KnowledgeBase, emb, logger)
}

// newOrchestrator wires the four source adapters over store.
func newOrchestrator(store *knowledge.Store, emb embedding.Embedder) *retrieval.Orchestrator {
	adapters := sources.NewAdapters(store, emb, cfg.Retrieval, logger)
	return retrieval.NewOrchestrator(adapters, cfg.Retrieval, logger)
}

// newGenerator wires the full generation pipeline.
func newGenerator(r generate.Retriever, emb embedding.Embedder) (*generate.Generator, error) {
	completer, err := llm.NewClaudeCompleter(cfg.Generation, logger)
	if err != nil {
		return nil, err
	}
	results, err := cache.NewLRU[string, []byte](cfg.Cache)
	if err != nil {
		return nil, err
	}
	gate := novelty.NewGate(emb, cfg.Novelty, logger)
	return generate.NewGenerator(r, completer, gate, results, cfg, logger), nil
}
