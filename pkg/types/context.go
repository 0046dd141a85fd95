// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the concept-engine
// retrieval and grounded generation pipeline.
package types

import "fmt"

// Bucket is the origin category of a context item.
type Bucket string

const (
	// BucketProject holds documents scoped to one project.
	BucketProject Bucket = "project"

	// BucketCore holds the shared core knowledge base.
	BucketCore Bucket = "core"

	// BucketLive holds recently captured live metrics.
	BucketLive Bucket = "live"

	// BucketPredictive holds forward-looking trend reports.
	BucketPredictive Bucket = "predictive"
)

// BucketOrder is the fixed order in which buckets are flattened and
// context ids are assigned.
var BucketOrder = []Bucket{BucketProject, BucketCore, BucketLive, BucketPredictive}

// ContextItem is one retrieved piece of evidence that generation may cite.
type ContextItem struct {
	// ID is unique within one retrieval call (e.g. "ctx7").
	ID string `json:"id" yaml:"id"`

	// Text is the formatted snippet shown to the model.
	Text string `json:"text" yaml:"text"`

	// SourceLabel is the human-readable provenance label.
	SourceLabel string `json:"source_label" yaml:"source_label"`

	// Bucket identifies which adapter produced the item.
	Bucket Bucket `json:"bucket" yaml:"bucket"`
}

// ContextID returns the id assigned to the n-th (1-based) flattened item.
func ContextID(n int) string {
	return fmt.Sprintf("ctx%d", n)
}

// Sources groups provenance labels by bucket. A nil slice means the bucket
// was not queried.
type Sources struct {
	Project    []string `json:"project,omitempty" yaml:"project,omitempty"`
	Core       []string `json:"core,omitempty" yaml:"core,omitempty"`
	Live       []string `json:"live,omitempty" yaml:"live,omitempty"`
	Predictive []string `json:"predictive,omitempty" yaml:"predictive,omitempty"`
}

// For returns the labels recorded for bucket b.
func (s Sources) For(b Bucket) []string {
	switch b {
	case BucketProject:
		return s.Project
	case BucketCore:
		return s.Core
	case BucketLive:
		return s.Live
	case BucketPredictive:
		return s.Predictive
	}
	return nil
}

// Set replaces the labels recorded for bucket b.
func (s *Sources) Set(b Bucket, labels []string) {
	switch b {
	case BucketProject:
		s.Project = labels
	case BucketCore:
		s.Core = labels
	case BucketLive:
		s.Live = labels
	case BucketPredictive:
		s.Predictive = labels
	}
}

// RetrievalResult is the flattened, id-addressable output of one retrieval
// call. It is not mutated after it is returned.
type RetrievalResult struct {
	Items   []ContextItem `json:"items" yaml:"items"`
	Sources Sources       `json:"sources" yaml:"sources"`
}

// IDs returns the set of context ids in the result.
func (r RetrievalResult) IDs() map[string]bool {
	ids := make(map[string]bool, len(r.Items))
	for _, it := range r.Items {
		ids[it.ID] = true
	}
	return ids
}

// RetrievalOptions is the explicit per-call configuration for retrieval.
type RetrievalOptions struct {
	// MaxResults is the per-adapter result limit (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// IncludeCore runs the core knowledge base adapter.
	IncludeCore bool `json:"include_core" yaml:"include_core"`

	// IncludeLive runs the live metrics and predictive trends adapters.
	IncludeLive bool `json:"include_live" yaml:"include_live"`
}

// DefaultRetrievalOptions returns {MaxResults: 10, IncludeCore: true, IncludeLive: true}.
func DefaultRetrievalOptions() RetrievalOptions {
	return RetrievalOptions{MaxResults: 10, IncludeCore: true, IncludeLive: true}
}
