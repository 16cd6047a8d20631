package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/nextstage/discovery/internal/extractor"
)

// ErrEmptyMessage is returned when an answer is blank after trimming.
// The conversation is not mutated and no upstream call is made.
var ErrEmptyMessage = errors.New("empty message")

// technicalFallbackReply is what the user sees when the upstream model call
// fails outright. The turn still completes and the conversation continues.
const technicalFallbackReply = "Sorry — I hit a technical snag on my end. Let's keep going."

// TurnExtractor produces the structured update for one discovery turn.
// *extractor.Extractor satisfies it.
type TurnExtractor interface {
	ExtractTurn(ctx context.Context, history []extractor.UserResponse, known map[extractor.Field]string, questionIndex int) (*extractor.TurnUpdate, error)
}

// Progress is a read-only projection of how far the conversation has come.
type Progress struct {
	CurrentQuestionIndex int `json:"currentQuestionIndex"`
	TotalQuestions       int `json:"totalQuestions"`
}

// TurnResult is what one SubmitAnswer call hands back: either the next
// question or a completion payload carrying the full extraction and history.
type TurnResult struct {
	Complete      bool
	JustCompleted bool
	Reply         string
	NextQuestion  *extractor.Question
	Fields        map[extractor.Field]string
	Responses     []extractor.UserResponse
	Progress      Progress

	// Turn is the response recorded by this call; nil when the conversation
	// was already complete and nothing was appended.
	Turn *extractor.UserResponse
}

// Snapshot is a point-in-time read of the conversation, for status queries.
type Snapshot struct {
	Complete bool
	Fields   map[extractor.Field]string
	Progress Progress
}

// Conversation is the state machine for one discovery session. All methods
// are safe for concurrent use; SubmitAnswer holds the lock for the whole
// turn, including the upstream call, so turns on one session serialize.
type Conversation struct {
	mu        sync.Mutex
	extractor TurnExtractor
	logger    *slog.Logger

	responses []extractor.UserResponse
	fields    map[extractor.Field]string
	index     int
	complete  bool
	brief     string
}

func NewConversation(ext TurnExtractor, logger *slog.Logger) *Conversation {
	return &Conversation{
		extractor: ext,
		logger:    logger,
		fields:    make(map[extractor.Field]string),
	}
}

// SubmitAnswer records one answer, runs extraction, and returns the next
// question or the completion payload. Blank input is rejected with
// ErrEmptyMessage before any state changes.
func (c *Conversation) SubmitAnswer(ctx context.Context, rawAnswer string) (*TurnResult, error) {
	answer := strings.TrimSpace(rawAnswer)
	if answer == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.complete {
		// Terminal state: acknowledge without mutating history.
		return c.resultLocked("We've already covered everything I need — your brief is ready.", nil), nil
	}

	// Not complete implies the question list has not run out: asking every
	// question is itself a completion condition.
	recorded := extractor.UserResponse{
		QuestionIndex: c.index,
		Question:      questionList[c.index].Question,
		Answer:        answer,
	}
	c.responses = append(c.responses, recorded)
	c.index++

	update, err := c.extractor.ExtractTurn(ctx, c.responses, c.copyFieldsLocked(), c.index)
	if err != nil {
		// Upstream is down or timed out. No extraction for this turn; the
		// answer stays in history and the conversation continues.
		c.logger.Warn("upstream extraction failed", "question_index", c.index-1, "error", err)
		wasComplete := c.complete
		c.complete = c.complete || c.completionHoldsLocked()
		res := c.resultLocked(technicalFallbackReply, nil)
		res.JustCompleted = c.complete && !wasComplete
		res.Turn = &recorded
		return res, nil
	}

	// Last-write-wins per field; ParseTurn already dropped nulls and blanks
	// so a non-answer can never clear a known value.
	for f, v := range update.Extracted {
		c.fields[f] = v
	}

	// The model's completionStatus.isReady is advisory only.
	wasComplete := c.complete
	c.complete = c.complete || c.completionHoldsLocked()

	res := c.resultLocked(update.Reply, update)
	res.JustCompleted = c.complete && !wasComplete
	res.Turn = &recorded
	return res, nil
}

// Reset returns the conversation to a fresh collecting state. Idempotent.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = nil
	c.fields = make(map[extractor.Field]string)
	c.index = 0
	c.complete = false
	c.brief = ""
}

// Progress reports (current question index, total questions) without mutating.
func (c *Conversation) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

// Snapshot returns a consistent read of completion, fields, and progress.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Complete: c.complete,
		Fields:   c.copyFieldsLocked(),
		Progress: c.progressLocked(),
	}
}

// CacheBrief stores a generated strategic brief on the conversation.
func (c *Conversation) CacheBrief(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brief = text
}

// Brief returns the cached strategic brief, if one has been generated.
func (c *Conversation) Brief() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brief, c.brief != ""
}

// History returns a copy of the answered questions so far.
func (c *Conversation) History() []extractor.UserResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyResponsesLocked()
}

// completionHoldsLocked checks the completion invariant: every required
// field holds a non-empty value, or every question has been asked.
func (c *Conversation) completionHoldsLocked() bool {
	if c.index >= len(questionList) {
		return true
	}
	for _, f := range extractor.RequiredFields() {
		if c.fields[f] == "" {
			return false
		}
	}
	return true
}

// resultLocked assembles the TurnResult for the current state. The next
// question comes from the fixed local list; when the model suggested its own
// phrasing, that phrasing replaces the text but the local type, options, and
// placeholder stand.
func (c *Conversation) resultLocked(reply string, update *extractor.TurnUpdate) *TurnResult {
	res := &TurnResult{
		Complete: c.complete,
		Reply:    reply,
		Fields:   c.copyFieldsLocked(),
		Progress: c.progressLocked(),
	}
	if c.complete {
		res.Responses = c.copyResponsesLocked()
		return res
	}

	q := questionList[c.index]
	if update != nil && update.NextQuestion != "" {
		q.Question = update.NextQuestion
	}
	res.NextQuestion = &q
	return res
}

func (c *Conversation) progressLocked() Progress {
	return Progress{CurrentQuestionIndex: c.index, TotalQuestions: len(questionList)}
}

func (c *Conversation) copyFieldsLocked() map[extractor.Field]string {
	out := make(map[extractor.Field]string, len(c.fields))
	for f, v := range c.fields {
		out[f] = v
	}
	return out
}

func (c *Conversation) copyResponsesLocked() []extractor.UserResponse {
	out := make([]extractor.UserResponse, len(c.responses))
	copy(out, c.responses)
	return out
}

// questionList is resolved once; the fixed list never changes at runtime.
var questionList = extractor.Questions()
