package brief

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nextstage/discovery/internal/anthropic"
	"github.com/nextstage/discovery/internal/extractor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sarahFields = map[extractor.Field]string{
	extractor.FieldName:     "Sarah",
	extractor.FieldProject:  "a scheduling app",
	extractor.FieldAudience: "therapists",
	extractor.FieldProblem:  "no-shows",
}

func TestGenerate_UsesModelOutput(t *testing.T) {
	const want = "# Strategic Brief\n\nSarah is building a scheduling app."
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": want}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model", 5*time.Second)
	llm.SetTestTransport(server.URL)
	g := New(llm, discardLogger())

	got := g.Generate(context.Background(), sarahFields, nil)
	if got != want {
		t.Errorf("expected model output, got %q", got)
	}
}

func TestGenerate_FallsBackToTemplateWhenUpstreamFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model", 5*time.Second)
	llm.SetTestTransport(server.URL)
	g := New(llm, discardLogger())

	got := g.Generate(context.Background(), sarahFields, nil)

	if !strings.HasPrefix(got, "# Strategic Brief") {
		t.Errorf("expected template brief, got %q", got)
	}
	for _, want := range []string{"Sarah", "a scheduling app", "therapists", "no-shows"} {
		if !strings.Contains(got, want) {
			t.Errorf("template brief missing %q:\n%s", want, got)
		}
	}
}

func TestRenderTemplate_HandlesMissingFields(t *testing.T) {
	got := renderTemplate(map[extractor.Field]string{})

	for _, section := range []string{"## The Project", "## Who It Serves", "## The Problem", "## Recommended Next Steps"} {
		if !strings.Contains(got, section) {
			t.Errorf("template missing section %q", section)
		}
	}
}

func TestBuildBriefPrompt_Deterministic(t *testing.T) {
	history := []extractor.UserResponse{
		{QuestionIndex: 0, Question: "What should I call you?", Answer: "Sarah"},
	}

	first := buildBriefPrompt(sarahFields, history)
	for i := 0; i < 10; i++ {
		if got := buildBriefPrompt(sarahFields, history); got != first {
			t.Fatal("brief prompt is not deterministic")
		}
	}
	if !strings.Contains(first, "name: Sarah") {
		t.Errorf("prompt missing field line:\n%s", first)
	}
	if !strings.Contains(first, "Q0: What should I call you?") {
		t.Errorf("prompt missing history line:\n%s", first)
	}
}
