package extractor

// Field names one slot of the discovery schema.
type Field string

const (
	FieldName        Field = "name"
	FieldProject     Field = "project"
	FieldAudience    Field = "audience"
	FieldProblem     Field = "problem"
	FieldTimeline    Field = "timeline"
	FieldBudget      Field = "budget"
	FieldIndustry    Field = "industry"
	FieldStage       Field = "stage"
	FieldFounderType Field = "founderType"
)

// allFields is the canonical ordering, used for deterministic prompt output.
var allFields = []Field{
	FieldName, FieldProject, FieldAudience, FieldProblem,
	FieldTimeline, FieldBudget, FieldIndustry, FieldStage, FieldFounderType,
}

// requiredFields is the minimum-viable set: once all four hold non-empty
// values the discovery conversation is considered complete.
var requiredFields = []Field{FieldName, FieldProject, FieldAudience, FieldProblem}

func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

func RequiredFields() []Field {
	out := make([]Field, len(requiredFields))
	copy(out, requiredFields)
	return out
}

// KnownField reports whether name is part of the discovery schema.
func KnownField(name string) bool {
	for _, f := range allFields {
		if string(f) == name {
			return true
		}
	}
	return false
}

// Question is one entry of the fixed discovery question list.
type Question struct {
	Field       Field    `json:"field"`
	Question    string   `json:"question"`
	Type        string   `json:"type"` // "text" or "choice"
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Reasoning   string   `json:"reasoning,omitempty"`
}

var questions = []Question{
	{
		Field:       FieldName,
		Question:    "Before we dive in — what should I call you?",
		Type:        "text",
		Placeholder: "Your first name is fine",
		Reasoning:   "Keeps the conversation personal and gives the brief an owner.",
	},
	{
		Field:       FieldProject,
		Question:    "What are you building?",
		Type:        "text",
		Placeholder: "e.g. a scheduling app for clinics",
		Reasoning:   "The project is the anchor every other answer hangs off.",
	},
	{
		Field:       FieldAudience,
		Question:    "Who is it for?",
		Type:        "text",
		Placeholder: "The people who will actually use it",
		Reasoning:   "Audience shapes positioning, pricing, and scope.",
	},
	{
		Field:       FieldProblem,
		Question:    "What problem does it solve for them?",
		Type:        "text",
		Placeholder: "The pain that makes them reach for it",
		Reasoning:   "A sharp problem statement is the core of the strategic brief.",
	},
	{
		Field:     FieldTimeline,
		Question:  "When do you need this live?",
		Type:      "choice",
		Options:   []string{"ASAP", "1-3 months", "3-6 months", "Flexible"},
		Reasoning: "Timeline determines how aggressive the recommendation can be.",
	},
	{
		Field:     FieldBudget,
		Question:  "Do you have a budget range in mind?",
		Type:      "choice",
		Options:   []string{"Under $10k", "$10k-$25k", "$25k-$50k", "$50k+", "Not sure yet"},
		Reasoning: "Budget keeps the brief grounded in what is actually buildable.",
	},
}

// Questions returns the fixed ordered discovery question list.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

// TotalQuestions is the length of the fixed question list.
func TotalQuestions() int {
	return len(questions)
}
