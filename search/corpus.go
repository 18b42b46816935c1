package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Corpus is an offline Searcher over a directory of local documents.
// Supported formats are plain text (.txt, .md), PDF, and XLSX. Documents
// are loaded once at construction; ranking is occurrence counting of the
// query inside the document text, which is enough for the air-gapped and
// test setups this serves.
type Corpus struct {
	docs []corpusDoc
}

type corpusDoc struct {
	path string
	text string
	low  string // lowercased text for matching
}

// NewCorpus loads every supported document under dir. Files that fail to
// parse are skipped with a warning rather than failing the whole corpus.
func NewCorpus(dir string) (*Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("search: read corpus dir: %w", err)
	}

	c := &Corpus{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		text, err := loadDocument(path)
		if err != nil {
			slog.Warn("search: skipping corpus document", "path", path, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		c.docs = append(c.docs, corpusDoc{path: path, text: text, low: strings.ToLower(text)})
	}
	slog.Info("search: corpus loaded", "dir", dir, "documents", len(c.docs))
	return c, nil
}

// Search ranks documents by how often the query occurs in them and
// returns the top matches. Unmatched queries return no results.
func (c *Corpus) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	type scored struct {
		doc  corpusDoc
		hits int
	}
	var matches []scored
	for _, d := range c.docs {
		if n := strings.Count(d.low, needle); n > 0 {
			matches = append(matches, scored{doc: d, hits: n})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].hits > matches[j].hits })
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Title:   filepath.Base(m.doc.path),
			URL:     m.doc.path,
			Content: m.doc.text,
			Score:   float64(m.hits),
		})
	}
	return results, nil
}

func loadDocument(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".pdf":
		return loadPDF(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return "", fmt.Errorf("unsupported format %q", filepath.Ext(path))
	}
}

func loadPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func loadXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " | "))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
