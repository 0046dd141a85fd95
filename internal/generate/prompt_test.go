// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/internal/grounding"
	"github.com/pdiddy/concept-engine/pkg/types"
)

func TestRender_Wildcard(t *testing.T) {
	spec := grounding.WildcardSpec(types.GroundingConfig{})
	vars := NewPromptVars(spec, Request{
		Kind:    types.KindWildcard,
		Concept: "neighborhood bakery",
		Persona: ptr("night-shift nurses"),
	}, evidence().Items)

	out, err := Render(vars)
	require.NoError(t, err)

	assert.Contains(t, out, `contrarian "wildcard" ideas`)
	assert.Contains(t, out, "Concept: neighborhood bakery")
	assert.Contains(t, out, "Target persona: night-shift nurses")
	assert.NotContains(t, out, "Region:")
	assert.NotContains(t, out, "Earlier output")
	assert.Contains(t, out, "[ctx1] Oat milk grew")
	assert.Contains(t, out, `"ideas" array of at most 3 items`)
	assert.Contains(t, out, `"title", "upside", "first_step", "risk"`)
	assert.Contains(t, out, `"evidence" array of exactly 3 distinct evidence ids`)
}

func TestRender_OpportunityWithBaseline(t *testing.T) {
	spec := grounding.OpportunitySpec(types.GroundingConfig{OpportunityCitations: 1, OpportunityMax: 2})
	vars := NewPromptVars(spec, Request{
		Kind:     types.KindOpportunity,
		Concept:  "bakery",
		Region:   ptr("Lisbon"),
		Baseline: ptr("Sourdough subscriptions"),
	}, nil)
	vars.AvoidOverlap = true

	out, err := Render(vars)
	require.NoError(t, err)

	assert.Contains(t, out, "strategic opportunities")
	assert.Contains(t, out, "Region: Lisbon")
	assert.Contains(t, out, "(no evidence was retrieved)")
	assert.Contains(t, out, "Do not repeat it:\nSourdough subscriptions")
	assert.Contains(t, out, "clearly different angle")
	assert.Contains(t, out, `"opportunities" array of at most 2 items`)
	assert.Contains(t, out, "exactly 1 distinct")
	assert.False(t, strings.Contains(out, "{{"), "template fully rendered")
}
