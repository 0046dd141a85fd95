// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/concept-engine/internal/cache"
	"github.com/pdiddy/concept-engine/internal/grounding"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// PromptVars holds every value the generation prompt reads.
type PromptVars struct {
	Kind     types.ArtifactKind
	Concept  string
	Persona  string
	Region   string
	Baseline string
	Items    []types.ContextItem

	ListField         string
	Fields            []string
	CitationField     string
	RequiredCitations int
	MaxArtifacts      int

	// AvoidOverlap asks for a clearly different angle from Baseline.
	AvoidOverlap bool
}

// NewPromptVars fills the structural fields from spec.
func NewPromptVars(spec grounding.ArtifactSpec, req Request, items []types.ContextItem) PromptVars {
	fields := append([]string{}, spec.RequiredFields...)
	fields = append(fields, spec.OptionalFields...)
	return PromptVars{
		Kind:              spec.Kind,
		Concept:           req.Concept,
		Persona:           cache.Optional(req.Persona),
		Region:            cache.Optional(req.Region),
		Baseline:          cache.Optional(req.Baseline),
		Items:             items,
		ListField:         spec.ListField,
		Fields:            fields,
		CitationField:     spec.CitationField,
		RequiredCitations: spec.RequiredCitations,
		MaxArtifacts:      spec.MaxArtifacts,
	}
}

var generationPromptTmpl = template.Must(template.New("generation").Parse(`You are a creative strategist. Generate {{if eq .Kind "wildcard"}}contrarian "wildcard" ideas that break category conventions{{else}}strategic opportunities{{end}} for the concept below, grounded only in the numbered evidence.

Concept: {{.Concept}}
{{- if .Persona}}
Target persona: {{.Persona}}
{{- end}}
{{- if .Region}}
Region: {{.Region}}
{{- end}}

Evidence:
{{- range .Items}}
[{{.ID}}] {{.Text}}
{{- else}}
(no evidence was retrieved)
{{- end}}
{{- if .Baseline}}

Earlier output for this concept. Do not repeat it:
{{.Baseline}}
{{- end}}
{{- if .AvoidOverlap}}

Your previous answer overlapped too much with the earlier output. Take a clearly different angle and avoid its themes, framing, and examples.
{{- end}}

Respond with a JSON object containing a "{{.ListField}}" array of at most {{.MaxArtifacts}} items. Each item has the string fields {{range $i, $f := .Fields}}{{if $i}}, {{end}}"{{$f}}"{{end}} and a "{{.CitationField}}" array of exactly {{.RequiredCitations}} distinct evidence ids (for example "ctx1"). Use only ids from the evidence list. Do not include any text outside the JSON object.
`))

// Render executes the generation prompt.
func Render(v PromptVars) (string, error) {
	var buf bytes.Buffer
	if err := generationPromptTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
