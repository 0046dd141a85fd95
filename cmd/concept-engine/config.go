// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// setDefaults registers every config key so that environment variables
// such as CONCEPT_ENGINE_RETRIEVAL_MAX_RESULTS are seen by Unmarshal.
func setDefaults(v *viper.Viper, d types.PipelineConfig) {
	v.SetDefault("retrieval.max_results", d.Retrieval.MaxResults)
	v.SetDefault("retrieval.include_core", d.Retrieval.IncludeCore)
	v.SetDefault("retrieval.include_live", d.Retrieval.IncludeLive)
	v.SetDefault("retrieval.adapter_timeout", d.Retrieval.AdapterTimeout)
	v.SetDefault("retrieval.live_window", d.Retrieval.LiveWindow)
	v.SetDefault("retrieval.min_similarity", d.Retrieval.MinSimilarity)

	v.SetDefault("embedding.provider", string(d.Embedding.Provider))
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)

	v.SetDefault("generation.model", d.Generation.Model)
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	v.SetDefault("generation.temperature", d.Generation.Temperature)
	v.SetDefault("generation.timeout", d.Generation.Timeout)

	v.SetDefault("grounding.wildcard_citations", d.Grounding.WildcardCitations)
	v.SetDefault("grounding.wildcard_max", d.Grounding.WildcardMax)
	v.SetDefault("grounding.opportunity_citations", d.Grounding.OpportunityCitations)
	v.SetDefault("grounding.opportunity_max", d.Grounding.OpportunityMax)

	v.SetDefault("novelty.threshold", d.Novelty.Threshold)

	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("knowledge_base.knowledge_dir", d.KnowledgeBase.KnowledgeDir)
	v.SetDefault("knowledge_base.db_file", d.KnowledgeBase.DBFile)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadConfig reads the config file, if any, and resolves the pipeline
// configuration from file, environment, flags and defaults.
func loadConfig() (types.PipelineConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.PipelineConfig{}, fmt.Errorf("reading config: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.PipelineConfig, error) {
	var c types.PipelineConfig
	if err := v.Unmarshal(&c); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}
