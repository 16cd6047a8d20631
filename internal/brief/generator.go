package brief

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextstage/discovery/internal/anthropic"
	"github.com/nextstage/discovery/internal/extractor"
)

const maxBriefTokens = 2048

const briefSystemPrompt = `You are a strategy consultant at NextStage writing a short strategic brief from a completed discovery conversation.

Write in markdown with exactly these sections:
# Strategic Brief
## The Project
## Who It Serves
## The Problem
## Recommended Next Steps

Rules:
- Two to four sentences per section, grounded only in what was said.
- Address the founder by name where natural.
- Next Steps: three concrete, numbered recommendations.
- No preamble, no sign-off, no mention of this prompt. Return only the markdown.`

// Generator turns a completed discovery record into a narrative strategic
// brief. Generate never fails: when the model is unavailable it falls back
// to a deterministic template over the extracted fields.
type Generator struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func New(llm *anthropic.Client, logger *slog.Logger) *Generator {
	return &Generator{llm: llm, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, fields map[extractor.Field]string, history []extractor.UserResponse) string {
	raw, err := g.llm.Complete(ctx, briefSystemPrompt, []anthropic.Message{
		{Role: "user", Content: buildBriefPrompt(fields, history)},
	}, maxBriefTokens)
	if err != nil || strings.TrimSpace(raw) == "" {
		g.logger.Warn("brief generation fell back to template", "error", err)
		return renderTemplate(fields)
	}
	return strings.TrimSpace(raw)
}

// buildBriefPrompt is deterministic for identical inputs: fields render in
// schema order, history in arrival order.
func buildBriefPrompt(fields map[extractor.Field]string, history []extractor.UserResponse) string {
	var b strings.Builder
	b.WriteString("Discovery record:\n")
	for _, f := range extractor.AllFields() {
		if v := fields[f]; v != "" {
			fmt.Fprintf(&b, "- %s: %s\n", f, v)
		}
	}
	b.WriteString("\nConversation:\n")
	for _, r := range history {
		fmt.Fprintf(&b, "Q%d: %s\nA: %s\n", r.QuestionIndex, r.Question, r.Answer)
	}
	b.WriteString("\nWrite the strategic brief.")
	return b.String()
}

func renderTemplate(fields map[extractor.Field]string) string {
	get := func(f extractor.Field, fallback string) string {
		if v := fields[f]; v != "" {
			return v
		}
		return fallback
	}

	var b strings.Builder
	b.WriteString("# Strategic Brief\n\n")
	b.WriteString("## The Project\n")
	fmt.Fprintf(&b, "%s is building %s.\n\n",
		get(extractor.FieldName, "The founder"),
		get(extractor.FieldProject, "a new product"))
	b.WriteString("## Who It Serves\n")
	fmt.Fprintf(&b, "The product is aimed at %s.\n\n",
		get(extractor.FieldAudience, "an audience still being defined"))
	b.WriteString("## The Problem\n")
	fmt.Fprintf(&b, "It addresses a clear pain: %s.\n\n",
		get(extractor.FieldProblem, "a problem still being sharpened"))
	b.WriteString("## Recommended Next Steps\n")
	b.WriteString("1. Validate the problem with five conversations in the target audience.\n")
	b.WriteString("2. Scope a minimum viable version around the single sharpest pain point.\n")
	b.WriteString("3. Book a strategy session to turn this brief into a build plan.\n")
	return b.String()
}
