// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grounding validates model output against the retrieved context.
// An artifact survives only if its required fields are present and it
// cites enough context ids from the current retrieval result. Citations
// are matched exactly; unknown ids are dropped, never rewritten.
package grounding

import (
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// ArtifactSpec describes the JSON shape and citation rule of one artifact
// kind.
type ArtifactSpec struct {
	Kind types.ArtifactKind

	// ListField is the top-level array holding the candidates.
	ListField string

	// RequiredFields must be non-empty strings. The first one is the title.
	RequiredFields []string

	// OptionalFields are copied when present as strings.
	OptionalFields []string

	// CitationField is the array of context ids on each candidate.
	CitationField string

	// RequiredCitations is the number of valid, distinct citations an
	// artifact must carry. Extra citations are trimmed.
	RequiredCitations int

	// MaxArtifacts caps the number of accepted artifacts. Zero is no cap.
	MaxArtifacts int
}

// WildcardSpec describes contrarian "wildcard" ideas.
func WildcardSpec(cfg types.GroundingConfig) ArtifactSpec {
	return ArtifactSpec{
		Kind:              types.KindWildcard,
		ListField:         "ideas",
		RequiredFields:    []string{"title", "upside", "first_step"},
		OptionalFields:    []string{"risk"},
		CitationField:     "evidence",
		RequiredCitations: orDefault(cfg.WildcardCitations, 3),
		MaxArtifacts:      orDefault(cfg.WildcardMax, 3),
	}
}

// OpportunitySpec describes strategic opportunities.
func OpportunitySpec(cfg types.GroundingConfig) ArtifactSpec {
	return ArtifactSpec{
		Kind:              types.KindOpportunity,
		ListField:         "opportunities",
		RequiredFields:    []string{"title", "rationale", "action"},
		OptionalFields:    []string{"audience"},
		CitationField:     "evidence",
		RequiredCitations: orDefault(cfg.OpportunityCitations, 2),
		MaxArtifacts:      orDefault(cfg.OpportunityMax, 5),
	}
}

// SpecFor returns the spec for kind.
func SpecFor(kind types.ArtifactKind, cfg types.GroundingConfig) (ArtifactSpec, bool) {
	switch kind {
	case types.KindWildcard:
		return WildcardSpec(cfg), true
	case types.KindOpportunity:
		return OpportunitySpec(cfg), true
	}
	return ArtifactSpec{}, false
}

// Summary renders an artifact as plain text for similarity checks: the
// title followed by the other fields in spec order.
func (s ArtifactSpec) Summary(a types.Artifact) string {
	parts := []string{a.Title}
	if len(s.RequiredFields) > 1 {
		for _, f := range s.RequiredFields[1:] {
			if v := a.Fields[f]; v != "" {
				parts = append(parts, v)
			}
		}
	}
	for _, f := range s.OptionalFields {
		if v := a.Fields[f]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ". ")
}

// Result is the outcome of validating one model response.
type Result struct {
	Artifacts   []types.Artifact
	SourcesUsed []string
	Parse       ParseKind

	// Rejected counts candidates dropped for missing fields or citations.
	Rejected int
}

// Validator applies one ArtifactSpec.
type Validator struct {
	spec   ArtifactSpec
	logger *zap.Logger
}

// NewValidator creates a validator for spec.
func NewValidator(spec ArtifactSpec, logger *zap.Logger) *Validator {
	return &Validator{
		spec:   spec,
		logger: logging.OrNop(logger).Named("grounding"),
	}
}

// Spec returns the validator's artifact spec.
func (v *Validator) Spec() ArtifactSpec { return v.spec }

// Validate parses raw and returns the artifacts that satisfy the spec
// against items. It never fails: unparseable output yields zero artifacts.
func (v *Validator) Validate(raw string, items []types.ContextItem) Result {
	outcome := Parse(raw)
	res := Result{Parse: outcome.Kind}
	if outcome.Kind == Unparseable {
		v.logger.Debug("response not parseable", zap.Int("bytes", len(raw)))
		return res
	}

	list, _ := outcome.Object[v.spec.ListField].([]any)
	valid := make(map[string]bool, len(items))
	for _, it := range items {
		valid[it.ID] = true
	}

	for i, cand := range list {
		if v.spec.MaxArtifacts > 0 && len(res.Artifacts) >= v.spec.MaxArtifacts {
			break
		}
		a, reason := v.artifact(cand, valid)
		if reason != "" {
			res.Rejected++
			v.logger.Debug("artifact rejected",
				zap.String("kind", string(v.spec.Kind)),
				zap.Int("index", i),
				zap.String("reason", reason))
			continue
		}
		res.Artifacts = append(res.Artifacts, a)
	}

	res.SourcesUsed = SourcesUsed(res.Artifacts, items)
	return res
}

// artifact converts one candidate. A non-empty reason means it was
// rejected.
func (v *Validator) artifact(cand any, valid map[string]bool) (types.Artifact, string) {
	obj, ok := cand.(map[string]any)
	if !ok {
		return types.Artifact{}, "not an object"
	}

	a := types.Artifact{Kind: v.spec.Kind, Fields: make(map[string]string)}
	for i, f := range v.spec.RequiredFields {
		s, _ := obj[f].(string)
		s = strings.TrimSpace(s)
		if s == "" {
			return types.Artifact{}, "missing " + f
		}
		if i == 0 {
			a.Title = s
		} else {
			a.Fields[f] = s
		}
	}
	for _, f := range v.spec.OptionalFields {
		if s, _ := obj[f].(string); strings.TrimSpace(s) != "" {
			a.Fields[f] = strings.TrimSpace(s)
		}
	}

	entries, ok := obj[v.spec.CitationField].([]any)
	if !ok {
		return types.Artifact{}, "missing " + v.spec.CitationField
	}
	a.Citations = filterCitations(entries, valid)
	if len(a.Citations) < v.spec.RequiredCitations {
		return types.Artifact{}, "insufficient citations"
	}
	if v.spec.RequiredCitations > 0 {
		a.Citations = a.Citations[:v.spec.RequiredCitations]
	}
	return a, ""
}

// filterCitations keeps string entries that exactly match a valid id,
// without duplicates, in order.
func filterCitations(entries []any, valid map[string]bool) []string {
	seen := make(map[string]bool, len(entries))
	var out []string
	for _, e := range entries {
		id, ok := e.(string)
		if !ok || !valid[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// SourcesUsed maps the citations of artifacts to source labels through
// items, deduplicated in first-seen order.
func SourcesUsed(artifacts []types.Artifact, items []types.ContextItem) []string {
	labels := make(map[string]string, len(items))
	for _, it := range items {
		labels[it.ID] = it.SourceLabel
	}

	seen := make(map[string]bool)
	var out []string
	for _, a := range artifacts {
		for _, c := range a.Citations {
			label, ok := labels[c]
			if !ok || label == "" || seen[label] {
				continue
			}
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
