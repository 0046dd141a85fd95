// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ArtifactKind names a generated artifact type.
type ArtifactKind string

const (
	KindWildcard    ArtifactKind = "wildcard"
	KindOpportunity ArtifactKind = "opportunity"
)

// Artifact is one generated idea, opportunity, or insight that survived
// citation grounding.
type Artifact struct {
	// Kind is the artifact type.
	Kind ArtifactKind `json:"kind" yaml:"kind"`

	// Title is the artifact headline.
	Title string `json:"title" yaml:"title"`

	// Fields holds the remaining scalar fields (e.g. upside, first_step).
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Citations lists the context ids the artifact relies on. Every entry is
	// an id from the retrieval result passed to generation.
	Citations []string `json:"citations" yaml:"citations"`
}
