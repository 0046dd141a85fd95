// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RetrievalConfig holds settings for the retrieval orchestrator and its
// source adapters.
type RetrievalConfig struct {
	// MaxResults is the per-adapter result limit (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// IncludeCore controls whether the core knowledge base is queried.
	IncludeCore bool `json:"include_core" yaml:"include_core" mapstructure:"include_core"`

	// IncludeLive controls whether live metrics and predictive trends are queried.
	IncludeLive bool `json:"include_live" yaml:"include_live" mapstructure:"include_live"`

	// AdapterTimeout bounds a single adapter call. A timed-out adapter
	// contributes an empty result (default 8s).
	AdapterTimeout time.Duration `json:"adapter_timeout" yaml:"adapter_timeout" mapstructure:"adapter_timeout"`

	// LiveWindow restricts live metrics to rows captured within the window
	// (default 30 days).
	LiveWindow time.Duration `json:"live_window" yaml:"live_window" mapstructure:"live_window"`

	// MinSimilarity is the lowest cosine similarity a vector hit may have
	// (default 0.25).
	MinSimilarity float64 `json:"min_similarity" yaml:"min_similarity" mapstructure:"min_similarity"`
}

// Options returns the call-boundary options derived from the config.
func (c RetrievalConfig) Options() RetrievalOptions {
	return RetrievalOptions{
		MaxResults:  c.MaxResults,
		IncludeCore: c.IncludeCore,
		IncludeLive: c.IncludeLive,
	}
}

// EmbeddingProvider selects the embedding backend.
type EmbeddingProvider string

const (
	EmbeddingOpenAI EmbeddingProvider = "openai"
	EmbeddingGenAI  EmbeddingProvider = "genai"
	EmbeddingOllama EmbeddingProvider = "ollama"
)

// EmbeddingConfig holds settings for the embedding provider.
type EmbeddingConfig struct {
	// Provider selects the backend: openai, genai, or ollama.
	Provider EmbeddingProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the embedding model identifier (e.g. "text-embedding-3-small").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Endpoint is the base URL for self-hosted providers (Ollama) or an
	// OpenAI-compatible gateway.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// APIKey is the authentication key for hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds a single embedding call (default 10s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// GenerationConfig holds settings for the LLM completion step.
type GenerationConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps the completion length (default 2048).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Temperature is the sampling temperature (default 0.9).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// Timeout bounds a single completion call (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// GroundingConfig holds the citation rules for each artifact kind.
type GroundingConfig struct {
	WildcardCitations    int `json:"wildcard_citations" yaml:"wildcard_citations" mapstructure:"wildcard_citations"`
	WildcardMax          int `json:"wildcard_max" yaml:"wildcard_max" mapstructure:"wildcard_max"`
	OpportunityCitations int `json:"opportunity_citations" yaml:"opportunity_citations" mapstructure:"opportunity_citations"`
	OpportunityMax       int `json:"opportunity_max" yaml:"opportunity_max" mapstructure:"opportunity_max"`
}

// NoveltyConfig holds settings for the novelty gate.
type NoveltyConfig struct {
	// Threshold is the cosine similarity at or above which a candidate is
	// considered too similar to the baseline (default 0.8).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
}

// CacheConfig holds settings for the result cache.
type CacheConfig struct {
	// MaxEntries bounds the number of cached payloads (default 1024).
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`

	// TTL expires entries after the given duration. Zero keeps entries for
	// the process lifetime.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// KnowledgeBaseConfig holds settings for the knowledge store.
type KnowledgeBaseConfig struct {
	// KnowledgeDir is the base directory (contains sources/, index/).
	KnowledgeDir string `json:"knowledge_dir" yaml:"knowledge_dir" mapstructure:"knowledge_dir"`

	// DBFile is the SQLite file name under KnowledgeDir/index (default "knowledge.db").
	DBFile string `json:"db_file" yaml:"db_file" mapstructure:"db_file"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "json" or "console".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Retrieval     RetrievalConfig     `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Embedding     EmbeddingConfig     `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Generation    GenerationConfig    `json:"generation" yaml:"generation" mapstructure:"generation"`
	Grounding     GroundingConfig     `json:"grounding" yaml:"grounding" mapstructure:"grounding"`
	Novelty       NoveltyConfig       `json:"novelty" yaml:"novelty" mapstructure:"novelty"`
	Cache         CacheConfig         `json:"cache" yaml:"cache" mapstructure:"cache"`
	KnowledgeBase KnowledgeBaseConfig `json:"knowledge_base" yaml:"knowledge_base" mapstructure:"knowledge_base"`
	Log           LogConfig           `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultPipelineConfig returns the configuration used when no config file
// or environment override is present.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Retrieval: RetrievalConfig{
			MaxResults:     10,
			IncludeCore:    true,
			IncludeLive:    true,
			AdapterTimeout: 8 * time.Second,
			LiveWindow:     30 * 24 * time.Hour,
			MinSimilarity:  0.25,
		},
		Embedding: EmbeddingConfig{
			Provider: EmbeddingOpenAI,
			Model:    "text-embedding-3-small",
			Timeout:  10 * time.Second,
		},
		Generation: GenerationConfig{
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   2048,
			Temperature: 0.9,
			Timeout:     60 * time.Second,
		},
		Grounding: GroundingConfig{
			WildcardCitations:    3,
			WildcardMax:          3,
			OpportunityCitations: 2,
			OpportunityMax:       5,
		},
		Novelty: NoveltyConfig{Threshold: 0.8},
		Cache:   CacheConfig{MaxEntries: 1024},
		KnowledgeBase: KnowledgeBaseConfig{
			KnowledgeDir: "knowledge",
			DBFile:       "knowledge.db",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}
