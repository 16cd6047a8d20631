package extractor

import (
	"fmt"
	"strings"

	"github.com/nextstage/discovery/internal/anthropic"
)

const systemPrompt = `You are Nova, NextStage's strategy discovery guide. You run a short, warm, consultative conversation that turns a founder's free-text answers into a structured discovery record.

## Persona
- Warm and direct. One or two sentences per reply, never a lecture.
- Acknowledge what they just told you before moving on.
- Ask exactly one question at a time.
- Never mention that you are extracting fields or following a script.

## Extraction schema
Required fields (discovery is complete once all four are known):
- name: what to call the person
- project: what they are building
- audience: who it is for
- problem: the pain it solves

Nice-to-have fields (capture when volunteered, never chase):
- timeline: when they need it live
- budget: their budget range
- industry: the sector they operate in
- stage: idea, prototype, launched, scaling
- founderType: solo founder, team, agency, corporate

Rules:
- Extract from what the user actually said. Do not invent values.
- A single answer can fill several fields at once.
- Use null for anything this answer did not reveal. Never overwrite a known value with null.

## Reply format
Respond with a single JSON object and nothing else — no markdown fences, no commentary:
{
  "reply": "your conversational reply, ending with the next question",
  "extracted": {
    "name": "string or null",
    "project": "string or null",
    "audience": "string or null",
    "problem": "string or null",
    "timeline": "string or null",
    "budget": "string or null",
    "industry": "string or null",
    "stage": "string or null",
    "founderType": "string or null"
  },
  "nextQuestion": "the next question to ask, or null if discovery feels complete",
  "completionStatus": {
    "fieldsComplete": ["field names you now know"],
    "fieldsNeeded": ["required field names still missing"],
    "isReady": true or false
  }
}`

// buildStatePrompt renders the current extraction state for the model.
// Deterministic for identical inputs: fields are emitted in schema order.
func buildStatePrompt(known map[Field]string, questionIndex int) string {
	var b strings.Builder
	b.WriteString("Current discovery state:\n")
	fmt.Fprintf(&b, "- question %d of %d\n", questionIndex, len(questions))

	any := false
	for _, f := range allFields {
		if v, ok := known[f]; ok && v != "" {
			fmt.Fprintf(&b, "- %s: %s\n", f, v)
			any = true
		}
	}
	if !any {
		b.WriteString("- nothing known yet\n")
	}

	var needed []string
	for _, f := range requiredFields {
		if known[f] == "" {
			needed = append(needed, string(f))
		}
	}
	if len(needed) > 0 {
		fmt.Fprintf(&b, "Still needed: %s\n", strings.Join(needed, ", "))
	} else {
		b.WriteString("All required fields are known.\n")
	}
	return b.String()
}

// buildMessages converts the conversation history into the message list sent
// upstream. Each answered question becomes an assistant/user pair. An empty
// history still yields a valid opening instruction.
func buildMessages(history []UserResponse) []anthropic.Message {
	if len(history) == 0 {
		return []anthropic.Message{
			{Role: "user", Content: "Open the conversation by asking the first discovery question: " + questions[0].Question},
		}
	}

	msgs := make([]anthropic.Message, 0, len(history)*2)
	for _, r := range history {
		msgs = append(msgs,
			anthropic.Message{Role: "assistant", Content: r.Question},
			anthropic.Message{Role: "user", Content: r.Answer},
		)
	}
	return msgs
}
