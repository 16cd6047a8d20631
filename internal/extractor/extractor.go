package extractor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nextstage/discovery/internal/anthropic"
)

const maxReplyTokens = 1024

// Extractor runs one discovery turn against the model: prompt in, parsed
// TurnUpdate out. Parsing failures are absorbed by the fallback path; only a
// failed upstream call surfaces as an error.
type Extractor struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func New(llm *anthropic.Client, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// ExtractTurn sends the conversation so far and returns the structured
// update for the latest answer. history must already include that answer.
func (e *Extractor) ExtractTurn(ctx context.Context, history []UserResponse, known map[Field]string, questionIndex int) (*TurnUpdate, error) {
	system := systemPrompt + "\n\n" + buildStatePrompt(known, questionIndex)
	messages := buildMessages(history)

	raw, err := e.llm.Complete(ctx, system, messages, maxReplyTokens)
	if err != nil {
		return nil, fmt.Errorf("discovery turn: %w", err)
	}

	lastAnswer := ""
	if len(history) > 0 {
		lastAnswer = history[len(history)-1].Answer
	}

	update := ParseTurn(raw, lastAnswer)
	if update.Fallback {
		e.logger.Warn("model reply failed schema, used fallback extraction",
			"question_index", questionIndex,
			"raw_len", len(raw),
		)
	} else {
		e.logger.Info("discovery turn extracted",
			"question_index", questionIndex,
			"fields", len(update.Extracted),
			"model_ready", update.Completion.IsReady,
		)
	}
	return update, nil
}
