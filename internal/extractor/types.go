package extractor

// UserResponse is one answered question. Appended per turn, never mutated;
// QuestionIndex values are strictly increasing within a conversation.
type UserResponse struct {
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
}

// CompletionStatus is the model's self-assessment of discovery progress.
// It is advisory only — the conversation state machine recomputes completion
// locally and never trusts IsReady.
type CompletionStatus struct {
	FieldsComplete []Field `json:"fieldsComplete"`
	FieldsNeeded   []Field `json:"fieldsNeeded"`
	IsReady        bool    `json:"isReady"`
}

// TurnUpdate is the structured result of one discovery turn. Extracted only
// carries non-empty values — nulls and blanks from the model are dropped so
// a merge can never clear a previously known field.
type TurnUpdate struct {
	Reply        string
	Extracted    map[Field]string
	NextQuestion string // "" when the model suggested none
	Completion   CompletionStatus
	Fallback     bool // true when produced by the deterministic fallback path
}
