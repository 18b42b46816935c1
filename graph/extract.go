package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lcv-dev/graphweave/llm"
)

// extractionPrompt asks the model for entities and relations about the
// focus entity in one JSON object. Entity names in relations must match the
// entity list so the engine can resolve endpoints.
const extractionPrompt = `You are a knowledge-graph extraction engine.
Given source text about a focus entity, extract the entities and the relations between them.

FOCUS ENTITY: %s

ENTITY TYPES (use exactly these values):
- person       : a named individual
- organization : a company, institution, government body, or group
- location     : a geographic place
- technology   : a technical system, product, method, or field
- concept      : an abstract idea, principle, or topic
- event        : a dated occurrence (launch, conference, disaster, election)
- time         : a date, year, or period

Return a JSON object with exactly two keys:
  "entities"  : array of {"name": string, "type": string, "description": string}
  "relations" : array of {"source": string, "target": string, "relation": string}

Rules:
- Relation endpoints must be entity names from the "entities" array.
- Every event entity should, where the text supports it, have a relation to a time entity.
- Prefer relations that touch the focus entity or chain back to it.
- Only include facts clearly supported by the text.
- If there is nothing to extract, return empty arrays.
- Do NOT include any text outside the JSON object.

EXAMPLES:

Input focus: "quantum computing"
Input text: "In 2019 Google announced quantum supremacy using the Sycamore processor, a 53-qubit machine developed in Santa Barbara."
Output:
{"entities": [{"name": "quantum computing", "type": "technology", "description": "Computation using quantum-mechanical effects"}, {"name": "google", "type": "organization", "description": "Technology company"}, {"name": "quantum supremacy announcement", "type": "event", "description": "Google's 2019 claim of quantum supremacy"}, {"name": "2019", "type": "time", "description": "Year of the announcement"}, {"name": "sycamore", "type": "technology", "description": "53-qubit quantum processor"}, {"name": "santa barbara", "type": "location", "description": "City where Sycamore was developed"}], "relations": [{"source": "google", "target": "quantum supremacy announcement", "relation": "announced"}, {"source": "quantum supremacy announcement", "target": "2019", "relation": "occurred_in"}, {"source": "quantum supremacy announcement", "target": "sycamore", "relation": "achieved_with"}, {"source": "sycamore", "target": "santa barbara", "relation": "developed_in"}, {"source": "sycamore", "target": "quantum computing", "relation": "instance_of"}]}

TEXT:
%s`

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON attempts to find a valid JSON object in the LLM response
// text. It handles common LLM quirks: markdown code blocks, prose before
// or after the JSON.
func extractJSON(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}

	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}

// LLMExtractor implements Extractor over an llm.Provider.
type LLMExtractor struct {
	chat llm.Provider
}

// NewLLMExtractor creates an extractor backed by the given chat provider.
func NewLLMExtractor(chat llm.Provider) *LLMExtractor {
	return &LLMExtractor{chat: chat}
}

// Extract sends one JSON-mode chat request and parses the result. Malformed
// entries (blank names or endpoints) are discarded here so the engine only
// sees well-formed candidates.
func (x *LLMExtractor) Extract(ctx context.Context, focusEntity, sourceText string) (ExtractionResult, error) {
	if strings.TrimSpace(sourceText) == "" {
		return ExtractionResult{}, nil
	}

	prompt := fmt.Sprintf(extractionPrompt, focusEntity, sourceText)

	resp, err := x.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
		Temperature:    0.0,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("extraction llm chat: %w", err)
	}

	jsonStr, err := extractJSON(resp.Content)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("parsing extraction result: %w", err)
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return ExtractionResult{}, fmt.Errorf("unmarshalling extraction result: %w", err)
	}

	return sanitize(result), nil
}

// sanitize drops entries an extractor returned malformed: entities without
// names, relations missing an endpoint or label.
func sanitize(in ExtractionResult) ExtractionResult {
	var out ExtractionResult
	for _, e := range in.Entities {
		e.Name = strings.TrimSpace(e.Name)
		e.Type = strings.TrimSpace(strings.ToLower(e.Type))
		if e.Name == "" {
			continue
		}
		if e.Type == "" {
			e.Type = EntityConcept
		}
		out.Entities = append(out.Entities, e)
	}
	for _, r := range in.Relations {
		r.Source = strings.TrimSpace(r.Source)
		r.Target = strings.TrimSpace(r.Target)
		r.Label = strings.TrimSpace(r.Label)
		if r.Source == "" || r.Target == "" || r.Label == "" {
			continue
		}
		out.Relations = append(out.Relations, r)
	}
	return out
}
