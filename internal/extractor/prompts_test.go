package extractor

import (
	"strings"
	"testing"
)

func TestBuildStatePrompt_Deterministic(t *testing.T) {
	known := map[Field]string{
		FieldProblem:  "no-shows",
		FieldName:     "Sarah",
		FieldAudience: "therapists",
	}

	first := buildStatePrompt(known, 3)
	for i := 0; i < 10; i++ {
		if got := buildStatePrompt(known, 3); got != first {
			t.Fatal("state prompt is not deterministic for identical inputs")
		}
	}

	// Schema order, not map order.
	if strings.Index(first, "name:") > strings.Index(first, "problem:") {
		t.Error("fields must render in schema order")
	}
	if !strings.Contains(first, "Still needed: project") {
		t.Errorf("expected missing required field listed, got:\n%s", first)
	}
}

func TestBuildStatePrompt_NothingKnown(t *testing.T) {
	out := buildStatePrompt(map[Field]string{}, 0)

	if !strings.Contains(out, "nothing known yet") {
		t.Errorf("expected empty-state marker, got:\n%s", out)
	}
	if !strings.Contains(out, "name, project, audience, problem") {
		t.Errorf("expected all required fields needed, got:\n%s", out)
	}
}

func TestBuildStatePrompt_AllRequiredKnown(t *testing.T) {
	known := map[Field]string{
		FieldName:     "Sarah",
		FieldProject:  "a scheduling app",
		FieldAudience: "therapists",
		FieldProblem:  "no-shows",
	}

	out := buildStatePrompt(known, 4)

	if !strings.Contains(out, "All required fields are known.") {
		t.Errorf("expected required-complete marker, got:\n%s", out)
	}
}

func TestBuildMessages_EmptyHistory(t *testing.T) {
	msgs := buildMessages(nil)

	if len(msgs) != 1 {
		t.Fatalf("expected 1 opening message, got %d", len(msgs))
	}
	if msgs[0].Role != "user" {
		t.Errorf("expected user role, got %q", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, questions[0].Question) {
		t.Errorf("opening instruction must carry the first question, got %q", msgs[0].Content)
	}
}

func TestBuildMessages_AlternatesRoles(t *testing.T) {
	history := []UserResponse{
		{QuestionIndex: 0, Question: "What should I call you?", Answer: "Sarah"},
		{QuestionIndex: 1, Question: "What are you building?", Answer: "a scheduling app"},
	}

	msgs := buildMessages(history)

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	wantRoles := []string{"assistant", "user", "assistant", "user"}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("message %d: role %q, want %q", i, msgs[i].Role, want)
		}
	}
	if msgs[3].Content != "a scheduling app" {
		t.Errorf("last message should be the latest answer, got %q", msgs[3].Content)
	}
}

func TestSystemPrompt_NamesSchemaKeys(t *testing.T) {
	for _, key := range []string{"reply", "extracted", "nextQuestion", "completionStatus", "isReady"} {
		if !strings.Contains(systemPrompt, key) {
			t.Errorf("system prompt missing schema key %q", key)
		}
	}
	for _, f := range AllFields() {
		if !strings.Contains(systemPrompt, string(f)) {
			t.Errorf("system prompt missing field %q", f)
		}
	}
}
