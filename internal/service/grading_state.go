package service

import (
	"math"
	"strconv"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-gradebook/internal/grading"
	"github.com/noah-isme/gema-gradebook/internal/models"
)

func assignmentKey(assignment models.Assignment) *grading.AssignmentKey {
	questions := make([]grading.Question, 0, len(assignment.Questions))
	for _, question := range assignment.Questions {
		options := make([]grading.Option, 0, len(question.Options))
		for _, option := range question.Options {
			options = append(options, grading.Option{Text: option.Text, Correct: option.Correct})
		}
		questions = append(questions, grading.Question{
			Kind:       grading.QuestionKind(question.Kind),
			Points:     question.Points,
			Options:    options,
			LeftItems:  matchItems(question.LeftItems),
			RightItems: matchItems(question.RightItems),
		})
	}

	return &grading.AssignmentKey{
		Questions:           questions,
		UseIndividualGrades: assignment.UseIndividualGrades,
	}
}

func matchItems(items []models.MatchItem) []grading.MatchItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]grading.MatchItem, 0, len(items))
	for _, item := range items {
		out = append(out, grading.MatchItem{ID: item.ID, Text: item.Text})
	}
	return out
}

func submissionState(submission models.Submission) grading.SubmissionState {
	return grading.SubmissionState{
		Answers:            submission.Answers.Data(),
		IsGroup:            submission.IsGroup(),
		AutoGraded:         submission.AutoGraded,
		AutoGrade:          submission.AutoGrade,
		AutoQuestionGrades: submission.AutoQuestionGrades.Data(),
		QuestionGrades:     submission.QuestionGrades.Data(),
		Grade:              submission.Grade,
		FinalGrade:         submission.FinalGrade,
		TeacherApproved:    submission.TeacherApproved,
		MemberGrades:       submission.MemberGrades.Data(),
	}
}

func applySubmissionState(submission *models.Submission, state grading.SubmissionState) {
	submission.AutoGraded = state.AutoGraded
	submission.AutoGrade = state.AutoGrade
	submission.AutoQuestionGrades = datatypes.NewJSONType(state.AutoQuestionGrades)
	submission.QuestionGrades = datatypes.NewJSONType(state.QuestionGrades)
	submission.Grade = state.Grade
	submission.FinalGrade = state.FinalGrade
	submission.TeacherApproved = state.TeacherApproved
	submission.MemberGrades = datatypes.NewJSONType(state.MemberGrades)
}

// sameGrading reports whether two states would persist the same grades.
func sameGrading(a, b grading.SubmissionState) bool {
	return a.TeacherApproved == b.TeacherApproved &&
		sameFloatPtr(a.FinalGrade, b.FinalGrade) &&
		sameFloatPtr(a.Grade, b.Grade) &&
		sameGradeMap(a.QuestionGrades, b.QuestionGrades) &&
		sameGradeMap(a.MemberGrades, b.MemberGrades) &&
		sameGradeMap(a.AutoQuestionGrades, b.AutoQuestionGrades)
}

func sameFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return math.Abs(*a-*b) < 1e-9
}

func sameGradeMap(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		other, ok := b[key]
		if !ok || math.Abs(value-other) >= 1e-9 {
			return false
		}
	}
	return true
}

// rawGrade renders a decoded JSON grade value as the string the merge engine
// validates. Values of unsupported types render as an unparseable string.
func rawGrade(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return "invalid"
	}
}

func rawGrades(values map[string]interface{}) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = rawGrade(value)
	}
	return out
}
