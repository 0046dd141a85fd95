// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grounding

import (
	"encoding/json"
	"strings"
)

// ParseKind tells how a model response was turned into JSON.
type ParseKind int

const (
	// Unparseable means no JSON object could be recovered.
	Unparseable ParseKind = iota

	// Parsed means the whole response was a JSON object.
	Parsed

	// ExtractedFromProse means the first balanced {...} block inside
	// surrounding text was parsed.
	ExtractedFromProse
)

func (k ParseKind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case ExtractedFromProse:
		return "extracted_from_prose"
	default:
		return "unparseable"
	}
}

// ParseOutcome is the result of Parse. Object is nil when Kind is
// Unparseable.
type ParseOutcome struct {
	Kind   ParseKind
	Object map[string]any
}

// Parse decodes raw as a JSON object. If that fails it parses the first
// balanced {...} block found in raw, honoring string literals and escapes.
func Parse(raw string) ParseOutcome {
	trimmed := strings.TrimSpace(raw)
	if obj, ok := decodeObject(trimmed); ok {
		return ParseOutcome{Kind: Parsed, Object: obj}
	}

	block, ok := firstBalancedObject(trimmed)
	if !ok {
		return ParseOutcome{Kind: Unparseable}
	}
	if obj, ok := decodeObject(block); ok {
		return ParseOutcome{Kind: ExtractedFromProse, Object: obj}
	}
	return ParseOutcome{Kind: Unparseable}
}

func decodeObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// firstBalancedObject returns the substring from the first '{' to its
// matching '}'. Braces inside JSON strings are ignored.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
