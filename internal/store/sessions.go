package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextstage/discovery/internal/extractor"
)

// RecordTurn appends one answered question to the discovery_turns table.
// Callers treat this as fire-and-forget; a failed write costs an audit row,
// not the conversation.
func (s *Store) RecordTurn(ctx context.Context, sessionRef string, r extractor.UserResponse) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO discovery_turns (id, session_ref, question_index, question, answer, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.New(), sessionRef, r.QuestionIndex, r.Question, r.Answer,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// RecordCompletion upserts the completed session with its extracted fields.
// Re-running a completed session (post-reset) overwrites the previous row.
func (s *Store) RecordCompletion(ctx context.Context, sessionRef string, fields map[extractor.Field]string) (uuid.UUID, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal fields: %w", err)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO discovery_sessions (id, session_ref, fields, completed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_ref) DO UPDATE
		SET fields = EXCLUDED.fields, completed_at = now()`,
		id, sessionRef, payload,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// SaveBrief attaches the generated strategic brief to the session row.
func (s *Store) SaveBrief(ctx context.Context, sessionRef, brief string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE discovery_sessions SET brief = $2, brief_generated_at = now()
		WHERE session_ref = $1`,
		sessionRef, brief,
	)
	if err != nil {
		return fmt.Errorf("update brief: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no session row for %q", sessionRef)
	}
	return nil
}
