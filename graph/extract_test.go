package graph

import (
	"context"
	"testing"

	"github.com/lcv-dev/graphweave/llm"
)

type fakeChat struct {
	content string
	lastReq llm.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.lastReq = req
	return &llm.ChatResponse{Content: f.content}, nil
}

func (f *fakeChat) Embed(context.Context, []string) ([][]float32, error) {
	return nil, nil
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare object", raw: `{"entities": []}`, want: `{"entities": []}`},
		{name: "leading whitespace", raw: "\n  {\"a\": 1}", want: `{"a": 1}`},
		{
			name: "fenced",
			raw:  "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "fence without language",
			raw:  "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "prose around object",
			raw:  "Here is the result: {\"a\": 1} Hope that helps!",
			want: `{"a": 1}`,
		},
		{name: "no object", raw: "I could not extract anything.", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("extractJSON(%q) = %q, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractJSON(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	in := ExtractionResult{
		Entities: []ExtractedEntity{
			{Name: "  Tesla  ", Type: " Organization "},
			{Name: "", Type: "person"},
			{Name: "Austin", Type: ""},
		},
		Relations: []ExtractedRelation{
			{Source: " Tesla ", Target: " Austin ", Label: " based in "},
			{Source: "Tesla", Target: "", Label: "founded"},
			{Source: "Tesla", Target: "Austin", Label: ""},
		},
	}

	out := sanitize(in)
	if len(out.Entities) != 2 {
		t.Fatalf("kept %d entities, want 2", len(out.Entities))
	}
	if out.Entities[0].Name != "Tesla" || out.Entities[0].Type != "organization" {
		t.Errorf("first entity = %+v, want trimmed name and lowercased type", out.Entities[0])
	}
	if out.Entities[1].Type != EntityConcept {
		t.Errorf("missing type defaulted to %q, want concept", out.Entities[1].Type)
	}
	if len(out.Relations) != 1 {
		t.Fatalf("kept %d relations, want 1", len(out.Relations))
	}
	r := out.Relations[0]
	if r.Source != "Tesla" || r.Target != "Austin" || r.Label != "based in" {
		t.Errorf("relation = %+v, want trimmed fields", r)
	}
}

func TestLLMExtractorRequestShape(t *testing.T) {
	chat := &fakeChat{content: `{"entities": [{"name": "go", "type": "technology", "description": "language"}], "relations": []}`}
	x := NewLLMExtractor(chat)

	res, err := x.Extract(context.Background(), "go", "Go is a programming language.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Entities) != 1 || res.Entities[0].Name != "go" {
		t.Fatalf("entities = %+v", res.Entities)
	}

	req := chat.lastReq
	if req.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", req.Temperature)
	}
	if req.ResponseFormat != "json_object" {
		t.Errorf("response format = %q, want json_object", req.ResponseFormat)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want a single user message", req.Messages)
	}
}

func TestLLMExtractorBlankSourceSkipsChat(t *testing.T) {
	chat := &fakeChat{content: "should not be called"}
	x := NewLLMExtractor(chat)

	res, err := x.Extract(context.Background(), "go", "   \n  ")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Empty() {
		t.Errorf("result = %+v, want empty", res)
	}
	if chat.lastReq.Messages != nil {
		t.Error("chat provider was called for blank source text")
	}
}

func TestLLMExtractorGarbageResponse(t *testing.T) {
	chat := &fakeChat{content: "sorry, no entities here"}
	x := NewLLMExtractor(chat)

	if _, err := x.Extract(context.Background(), "go", "some text"); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}
