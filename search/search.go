// Package search supplies the raw text that entity expansion feeds to the
// extractor. Two providers are available: a Tavily web client and a local
// document corpus. Both sit behind the same Searcher interface, and Source
// adapts either into the text feed the graph engine consumes.
package search

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Result is one search hit with its extracted content.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher finds text relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Contents below this length carry too little signal to extract from.
const minContentLen = 50

// Source turns a Searcher into the per-entity text feed used during graph
// expansion: it queries for the entity name, keeps substantive result
// contents, joins them, and truncates to MaxTextLen.
type Source struct {
	Searcher   Searcher
	Limit      int // results per query
	MaxTextLen int
}

// SourceText implements the graph engine's text source contract. A query
// with no usable results returns empty text and no error; the engine
// treats that as an empty round, not a failure.
func (s *Source) SourceText(ctx context.Context, entityName string) (string, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = 5
	}
	results, err := s.Searcher.Search(ctx, entityName, limit)
	if err != nil {
		return "", err
	}

	var texts []string
	for _, r := range results {
		content := strings.TrimSpace(r.Content)
		if len(content) > minContentLen {
			texts = append(texts, content)
		}
	}
	text := strings.Join(texts, "\n\n")
	if s.MaxTextLen > 0 && len(text) > s.MaxTextLen {
		// Back up to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := s.MaxTextLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	slog.Debug("search: sourced text", "entity", entityName,
		"results", len(results), "kept", len(texts), "chars", len(text))
	return text, nil
}
