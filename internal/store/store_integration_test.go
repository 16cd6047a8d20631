//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/nextstage/discovery/internal/extractor"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_TurnAndCompletion(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sessionRef := "integration-test-" + uuid.New().String()[:8]

	err := s.RecordTurn(ctx, sessionRef, extractor.UserResponse{
		QuestionIndex: 0,
		Question:      "Before we dive in — what should I call you?",
		Answer:        "I'm Sarah",
	})
	if err != nil {
		t.Fatalf("record turn: %v", err)
	}

	fields := map[extractor.Field]string{
		extractor.FieldName:     "Sarah",
		extractor.FieldProject:  "a scheduling app",
		extractor.FieldAudience: "therapists",
		extractor.FieldProblem:  "no-shows",
	}
	id, err := s.RecordCompletion(ctx, sessionRef, fields)
	if err != nil {
		t.Fatalf("record completion: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected a session id")
	}

	// Upsert path: completing the same session again must not error.
	if _, err := s.RecordCompletion(ctx, sessionRef, fields); err != nil {
		t.Fatalf("re-record completion: %v", err)
	}

	if err := s.SaveBrief(ctx, sessionRef, "# Strategic Brief\n\ntest"); err != nil {
		t.Fatalf("save brief: %v", err)
	}
}

func TestIntegration_SaveBriefUnknownSession(t *testing.T) {
	s := setupTestStore(t)

	err := s.SaveBrief(context.Background(), "no-such-session-"+uuid.New().String()[:8], "brief")
	if err == nil {
		t.Fatal("expected error for unknown session ref")
	}
}
