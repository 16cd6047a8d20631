package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// fallbackReply is used when the model's output is unusable. It keeps the
// conversation moving and claims nothing the model did not say.
const fallbackReply = "Got it, thanks for sharing that."

// fallbackQuestion is the generic continuation asked on the fallback path.
const fallbackQuestion = "Could you tell me a bit more about what you're working on?"

// ParseTurn converts the model's raw reply into a TurnUpdate. It never fails:
// strict JSON first, then a repair pass for fenced or slightly malformed
// output, and finally the deterministic regex fallback over the user's own
// answer. All upstream text is untrusted input.
func ParseTurn(raw, userAnswer string) *TurnUpdate {
	if update, err := parseStrict(raw); err == nil {
		return update
	}

	if repaired, err := jsonrepair.RepairJSON(raw); err == nil {
		if update, err := parseStrict(repaired); err == nil {
			return update
		}
	}

	return fallbackExtract(userAnswer)
}

// wireCompletion mirrors CompletionStatus with raw presence checks.
type wireCompletion struct {
	FieldsComplete []string `json:"fieldsComplete"`
	FieldsNeeded   []string `json:"fieldsNeeded"`
	IsReady        bool     `json:"isReady"`
}

// parseStrict accepts only a well-formed reply: exactly the four expected
// top-level keys, no unknown field names, values string or null. Anything
// else is a schema violation and the caller falls back.
func parseStrict(raw string) (*TurnUpdate, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &top); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}

	for _, key := range []string{"reply", "extracted", "nextQuestion", "completionStatus"} {
		if _, ok := top[key]; !ok {
			return nil, fmt.Errorf("reply missing key %q", key)
		}
	}
	if len(top) != 4 {
		return nil, fmt.Errorf("reply has %d top-level keys, want 4", len(top))
	}

	var reply string
	if err := json.Unmarshal(top["reply"], &reply); err != nil {
		return nil, fmt.Errorf("reply field: %w", err)
	}

	var rawExtracted map[string]*string
	if err := json.Unmarshal(top["extracted"], &rawExtracted); err != nil {
		return nil, fmt.Errorf("extracted field: %w", err)
	}
	extracted := make(map[Field]string)
	for name, val := range rawExtracted {
		if !KnownField(name) {
			return nil, fmt.Errorf("extracted has unknown field %q", name)
		}
		if val != nil && strings.TrimSpace(*val) != "" {
			extracted[Field(name)] = strings.TrimSpace(*val)
		}
	}

	var nextQuestion *string
	if err := json.Unmarshal(top["nextQuestion"], &nextQuestion); err != nil {
		return nil, fmt.Errorf("nextQuestion field: %w", err)
	}

	var wc wireCompletion
	if err := json.Unmarshal(top["completionStatus"], &wc); err != nil {
		return nil, fmt.Errorf("completionStatus field: %w", err)
	}

	update := &TurnUpdate{
		Reply:     reply,
		Extracted: extracted,
		Completion: CompletionStatus{
			FieldsComplete: toFields(wc.FieldsComplete),
			FieldsNeeded:   toFields(wc.FieldsNeeded),
			IsReady:        wc.IsReady,
		},
	}
	if nextQuestion != nil {
		update.NextQuestion = strings.TrimSpace(*nextQuestion)
	}
	return update, nil
}

func toFields(names []string) []Field {
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		if KnownField(n) {
			fields = append(fields, Field(n))
		}
	}
	return fields
}

// Fallback patterns match common phrasings in the user's answer. The name
// capture is deliberately case-sensitive so "I'm building" does not read
// "building" as a name.
var fallbackPatterns = []struct {
	field Field
	re    *regexp.Regexp
}{
	{FieldName, regexp.MustCompile(`\b(?:[Ii]'?m|[Ii] am|[Mm]y name(?:'s| is)|[Tt]his is|[Cc]all me)\s+([A-Z][a-zA-Z'-]+)`)},
	{FieldProject, regexp.MustCompile(`(?i)\b(?:building|creating|developing|making|launching|working on)\s+(.+?)(?:\s+(?:for|to|that|because|which|so)\b|[.,!?;]|$)`)},
	{FieldAudience, regexp.MustCompile(`(?i)\bfor\s+(.+?)(?:\s+(?:because|who|that|since|when)\b|[.,!?;]|$)`)},
	{FieldProblem, regexp.MustCompile(`(?i)\b(?:because|struggl(?:e|es|ing) with|problem is|pain point is|frustrated (?:by|with))\s+(.+?)(?:[.!?;]|$)`)},
	{FieldTimeline, regexp.MustCompile(`(?i)\b(asap|(?:in|within|by)\s+(?:the\s+)?(?:next\s+)?\d*\s*(?:days?|weeks?|months?|quarters?|years?|the end of \w+))\b`)},
	{FieldBudget, regexp.MustCompile(`(?i)(\$\s?\d[\d,]*\s?(?:k|m)?(?:\s*(?:-|to)\s*\$?\s?\d[\d,]*\s?(?:k|m)?)?)`)},
}

// fallbackExtract is the deterministic non-LLM path. It never fails; fields
// without a pattern match simply stay unset, and the result always reports
// not-ready with a generic continuation question.
func fallbackExtract(userAnswer string) *TurnUpdate {
	extracted := make(map[Field]string)
	for _, p := range fallbackPatterns {
		m := p.re.FindStringSubmatch(userAnswer)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			extracted[p.field] = v
		}
	}

	return &TurnUpdate{
		Reply:        fallbackReply,
		Extracted:    extracted,
		NextQuestion: fallbackQuestion,
		Completion:   CompletionStatus{IsReady: false},
		Fallback:     true,
	}
}
