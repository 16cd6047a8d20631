package extractor

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
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func llmServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": reply},
			},
			"stop_reason": "end_turn",
		})
	}))
}

func TestExtractTurn_Success(t *testing.T) {
	server := llmServer(t, `{
		"reply": "Nice to meet you, Sarah!",
		"extracted": {"name": "Sarah"},
		"nextQuestion": "What are you building?",
		"completionStatus": {"fieldsComplete": ["name"], "fieldsNeeded": ["project", "audience", "problem"], "isReady": false}
	}`)
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model", 5*time.Second)
	llm.SetTestTransport(server.URL)
	ext := New(llm, discardLogger())

	history := []UserResponse{
		{QuestionIndex: 0, Question: questions[0].Question, Answer: "Hi, I'm Sarah"},
	}
	update, err := ext.ExtractTurn(context.Background(), history, map[Field]string{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.Fallback {
		t.Error("expected strict parse")
	}
	if update.Extracted[FieldName] != "Sarah" {
		t.Errorf("expected name Sarah, got %q", update.Extracted[FieldName])
	}
}

func TestExtractTurn_MalformedReplyUsesFallback(t *testing.T) {
	server := llmServer(t, "Sure! Here's what I understood: Sarah is building something.")
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model", 5*time.Second)
	llm.SetTestTransport(server.URL)
	ext := New(llm, discardLogger())

	history := []UserResponse{
		{QuestionIndex: 0, Question: questions[0].Question, Answer: "Hi, I'm Sarah. I'm building a scheduling app for therapists"},
	}
	update, err := ext.ExtractTurn(context.Background(), history, map[Field]string{}, 1)
	if err != nil {
		t.Fatalf("fallback must absorb parse failures, got error: %v", err)
	}
	if !update.Fallback {
		t.Fatal("expected fallback extraction")
	}
	if update.Extracted[FieldName] != "Sarah" {
		t.Errorf("expected fallback to find name Sarah, got %q", update.Extracted[FieldName])
	}
	if update.Completion.IsReady {
		t.Error("fallback must not report ready")
	}
}

func TestExtractTurn_UpstreamErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model", 5*time.Second)
	llm.SetTestTransport(server.URL)
	ext := New(llm, discardLogger())

	_, err := ext.ExtractTurn(context.Background(), nil, map[Field]string{}, 0)
	if err == nil {
		t.Fatal("expected error when upstream call fails")
	}
}

func TestExtractTurn_SendsStateInSystemPrompt(t *testing.T) {
	var gotSystem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			System string `json:"system"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		gotSystem = req.System

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "{}"}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model", 5*time.Second)
	llm.SetTestTransport(server.URL)
	ext := New(llm, discardLogger())

	known := map[Field]string{FieldName: "Sarah"}
	history := []UserResponse{
		{QuestionIndex: 0, Question: questions[0].Question, Answer: "Hi, I'm Sarah"},
	}
	if _, err := ext.ExtractTurn(context.Background(), history, known, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gotSystem, "name: Sarah") {
		t.Errorf("system prompt missing known state, got:\n%s", gotSystem)
	}
	if !strings.Contains(gotSystem, "question 1 of") {
		t.Errorf("system prompt missing progress, got:\n%s", gotSystem)
	}
}
