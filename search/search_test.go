package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

type fakeSearcher struct {
	results []Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func TestSourceTextJoinsAndTruncates(t *testing.T) {
	long := strings.Repeat("a", 120)
	fake := &fakeSearcher{results: []Result{
		{Content: long},
		{Content: "short"}, // below the signal threshold, dropped
		{Content: strings.Repeat("b", 120)},
	}}
	src := &Source{Searcher: fake, Limit: 5, MaxTextLen: 150}

	text, err := src.SourceText(context.Background(), "quantum computing")
	if err != nil {
		t.Fatalf("SourceText: %v", err)
	}
	if len(text) != 150 {
		t.Fatalf("got %d chars, want truncation to 150", len(text))
	}
	if !strings.HasPrefix(text, long) {
		t.Fatal("first result content missing from joined text")
	}
	if strings.Contains(text, "short") {
		t.Fatal("sub-threshold content was not dropped")
	}
	if len(fake.queries) != 1 || fake.queries[0] != "quantum computing" {
		t.Fatalf("queries = %v", fake.queries)
	}
}

func TestSourceTextTruncatesAtRuneBoundary(t *testing.T) {
	// 量 is three bytes in UTF-8; a limit of 61 lands mid-rune.
	content := strings.Repeat("x", 59) + "量子計算"
	fake := &fakeSearcher{results: []Result{{Content: content}}}
	src := &Source{Searcher: fake, Limit: 5, MaxTextLen: 61}

	text, err := src.SourceText(context.Background(), "量子計算")
	if err != nil {
		t.Fatalf("SourceText: %v", err)
	}
	if !utf8.ValidString(text) {
		t.Fatalf("truncated text is not valid UTF-8: %q", text)
	}
	if len(text) > 61 {
		t.Fatalf("got %d bytes, want at most 61", len(text))
	}
	if want := strings.Repeat("x", 59); text != want {
		t.Fatalf("text = %q, want the split rune dropped entirely", text)
	}
}

func TestSourceTextEmptyResultsIsNotAnError(t *testing.T) {
	src := &Source{Searcher: &fakeSearcher{}, Limit: 5, MaxTextLen: 2000}
	text, err := src.SourceText(context.Background(), "nothing known")
	if err != nil {
		t.Fatalf("SourceText: %v", err)
	}
	if text != "" {
		t.Fatalf("text = %q, want empty", text)
	}
}

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		var req tavilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Query != "graph theory" || req.MaxResults != 3 {
			t.Errorf("request = %+v", req)
		}
		if !req.IncludeRawContent {
			t.Error("raw content not requested")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"title": "A", "url": "http://a", "content": "summary", "raw_content": "full text", "score": 0.9},
				{"title": "B", "url": "http://b", "content": "only summary", "score": 0.5},
			},
		})
	}))
	defer srv.Close()

	client := NewTavily("key", srv.URL)
	results, err := client.Search(context.Background(), "graph theory", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Content != "full text" {
		t.Errorf("raw content not preferred: %q", results[0].Content)
	}
	if results[1].Content != "only summary" {
		t.Errorf("content fallback broken: %q", results[1].Content)
	}
}

func TestTavilyRequiresAPIKey(t *testing.T) {
	client := NewTavily("", "")
	if _, err := client.Search(context.Background(), "anything", 1); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestTavilyNonRetryableStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewTavily("key", srv.URL)
	if _, err := client.Search(context.Background(), "q", 1); err == nil {
		t.Fatal("expected error on 400")
	}
	if calls != 1 {
		t.Fatalf("got %d calls, want no retries on 400", calls)
	}
}

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCorpusSearchRanksbyOccurrence(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "dense.txt", strings.Repeat("graph theory is the study of graphs. ", 3))
	writeCorpusFile(t, dir, "sparse.md", "One mention of graph theory among other topics.")
	writeCorpusFile(t, dir, "unrelated.txt", "Nothing relevant in this document at all.")
	writeCorpusFile(t, dir, "binary.bin", "ignored format")

	corpus, err := NewCorpus(dir)
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}
	results, err := corpus.Search(context.Background(), "Graph Theory", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "dense.txt" {
		t.Errorf("top result = %q, want dense.txt", results[0].Title)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v, %v", results[0].Score, results[1].Score)
	}
}

func TestCorpusSearchLimit(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeCorpusFile(t, dir, name, "all three documents mention entropy somewhere")
	}
	corpus, err := NewCorpus(dir)
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}
	results, err := corpus.Search(context.Background(), "entropy", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want limit of 2", len(results))
	}
}
