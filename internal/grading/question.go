package grading

import "strconv"

// QuestionKind identifies how a question is answered and scored.
type QuestionKind string

const (
	// KindText is a free-form answer that always needs a human score.
	KindText QuestionKind = "text"
	// KindMultipleChoice is scored against the option flagged correct.
	KindMultipleChoice QuestionKind = "multiple-choice"
	// KindMatching pairs left items with right items sharing an identifier.
	KindMatching QuestionKind = "matching"
)

// Option is a multiple-choice option.
type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// MatchItem is one side of a matching pair. Left and right items that belong
// together share the same ID.
type MatchItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the grading view of an assignment question.
type Question struct {
	Kind       QuestionKind
	Points     float64
	Options    []Option
	LeftItems  []MatchItem
	RightItems []MatchItem
}

// AutoGradable reports whether the question can be scored without a teacher.
func (q Question) AutoGradable() bool {
	return q.Kind == KindMultipleChoice || q.Kind == KindMatching
}

// AssignmentKey is the assignment data the merge engine needs.
type AssignmentKey struct {
	Questions           []Question
	UseIndividualGrades bool
}

// QuestionKey returns the answer/grade map key for the question at index.
func QuestionKey(index int) string {
	return strconv.Itoa(index)
}
