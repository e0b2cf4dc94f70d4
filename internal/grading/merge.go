package grading

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrGradeRequired indicates the teacher input carries nothing that can be graded.
var ErrGradeRequired = errors.New("grade is required")

// MergeMode names the path the merge engine took.
type MergeMode string

const (
	ModeApprove    MergeMode = "approve"
	ModeManual     MergeMode = "manual"
	ModeDirect     MergeMode = "direct"
	ModeIndividual MergeMode = "individual"
	ModeFallback   MergeMode = "fallback"
)

// SubmissionState holds the answer and grading fields of a submission. All
// grade-bearing fields are earned points.
type SubmissionState struct {
	Answers            map[string]string
	IsGroup            bool
	AutoGraded         bool
	AutoGrade          float64
	AutoQuestionGrades map[string]float64
	QuestionGrades     map[string]float64
	Grade              *float64
	FinalGrade         *float64
	TeacherApproved    bool
	MemberGrades       map[string]float64
}

// TeacherInput is one grading request. Grade and MemberGrades are raw strings
// so malformed values can be rejected before anything changes.
type TeacherInput struct {
	ApproveGrade   bool
	QuestionGrades map[string]float64
	Grade          *string
	MemberGrades   map[string]string
}

// MergeResult is the updated submission plus what happened on the way.
type MergeResult struct {
	Submission SubmissionState
	Mode       MergeMode
	Anomalies  []string
}

// Merge combines automatic scores, stored manual overrides and the teacher's
// current input into a new grading state. The input state is not modified.
// A nil assignment means the assignment reference could not be resolved; the
// stored auto-grade is then used without recomputation.
func Merge(state SubmissionState, assignment *AssignmentKey, input TeacherInput) (MergeResult, error) {
	var direct *float64
	if input.Grade != nil {
		value, err := ParseGrade(*input.Grade)
		if err != nil {
			return MergeResult{}, fmt.Errorf("grade %q: %w", *input.Grade, err)
		}
		direct = &value
	}

	members := make(map[string]float64, len(input.MemberGrades))
	for member, raw := range input.MemberGrades {
		value, err := ParseGrade(raw)
		if err != nil {
			return MergeResult{}, fmt.Errorf("member %s grade %q: %w", member, raw, err)
		}
		members[member] = value
	}

	result := MergeResult{Submission: state.clone()}
	teacher := make(map[string]float64, len(input.QuestionGrades))
	for key, value := range input.QuestionGrades {
		if !finite(value) || value < 0 {
			result.Anomalies = append(result.Anomalies, fmt.Sprintf("question %s: rejected grade %v", key, value))
			continue
		}
		teacher[key] = value
	}

	if assignment == nil {
		if direct != nil && !state.AutoGraded {
			result.applyDirect(*direct)
			return result, nil
		}
		result.Anomalies = append(result.Anomalies, "assignment missing: using stored auto-grade without recomputation")
		result.applyFallback(state, teacher)
		return result, nil
	}

	if state.IsGroup && assignment.UseIndividualGrades {
		if err := result.applyIndividual(state, members); err != nil {
			return MergeResult{}, err
		}
		return result, nil
	}

	if hasAutoGradable(assignment.Questions) {
		if direct != nil {
			result.Anomalies = append(result.Anomalies, "total grade ignored for auto-graded submission")
		}
		if input.ApproveGrade {
			result.applyApprove(state, assignment.Questions, teacher)
			return result, nil
		}
		result.applyManual(state, assignment.Questions, teacher)
		return result, nil
	}

	if direct != nil {
		result.applyDirect(*direct)
		return result, nil
	}

	if len(teacher) > 0 && len(assignment.Questions) > 0 {
		result.applyManual(state, assignment.Questions, teacher)
		return result, nil
	}

	return MergeResult{}, ErrGradeRequired
}

func (r *MergeResult) applyDirect(value float64) {
	r.Mode = ModeDirect
	r.Submission.setTotal(value)
}

func (r *MergeResult) applyIndividual(state SubmissionState, members map[string]float64) error {
	merged := make(map[string]float64, len(state.MemberGrades)+len(members))
	for member, value := range state.MemberGrades {
		merged[member] = value
	}
	for member, value := range members {
		merged[member] = value
	}
	if len(merged) == 0 {
		return ErrGradeRequired
	}

	keys := sortedKeys(merged)
	var total float64
	for _, key := range keys {
		total += merged[key]
	}

	r.Mode = ModeIndividual
	r.Submission.MemberGrades = merged
	r.Submission.setTotal(safeRatio(total, float64(len(merged))))
	return nil
}

func (r *MergeResult) applyApprove(state SubmissionState, questions []Question, teacher map[string]float64) {
	auto := state.AutoQuestionGrades
	if len(auto) == 0 {
		recomputed := AutoGrade(questions, state.Answers)
		r.Submission.setAuto(recomputed)
		auto = recomputed.AutoQuestionGrades
	}

	resolved := make(map[string]float64, len(questions))
	for key, value := range state.QuestionGrades {
		if _, isAuto := auto[key]; !isAuto && finite(value) {
			resolved[key] = value
		}
	}
	for key, value := range auto {
		resolved[key] = value
	}
	for key, value := range teacher {
		resolved[key] = value
	}

	r.Mode = ModeApprove
	r.Submission.QuestionGrades = resolved
	r.Submission.TeacherApproved = true
	r.Submission.setTotal(sumGrades(resolved))
}

func (r *MergeResult) applyManual(state SubmissionState, questions []Question, teacher map[string]float64) {
	recomputed := AutoGrade(questions, state.Answers)
	previousAuto := state.AutoQuestionGrades

	resolved := make(map[string]float64, len(questions))
	var total float64
	for index, question := range questions {
		key := QuestionKey(index)
		auto := recomputed.AutoQuestionGrades[key]

		value, note := resolveQuestion(key, question.AutoGradable(), auto, teacher, state.QuestionGrades, previousAuto)
		if note != "" {
			r.Anomalies = append(r.Anomalies, note)
		}
		resolved[key] = value
		total += value
	}

	for key := range teacher {
		if _, known := resolved[key]; !known {
			r.Anomalies = append(r.Anomalies, fmt.Sprintf("question %s: no such question, grade ignored", key))
		}
	}

	r.Mode = ModeManual
	r.Submission.setAuto(recomputed)
	r.Submission.QuestionGrades = resolved
	r.Submission.setTotal(total)
}

// resolveQuestion picks the point value for one question: the teacher's current
// value, then a stored override, then the automatic value.
func resolveQuestion(key string, gradable bool, auto float64, teacher, stored, previousAuto map[string]float64) (float64, string) {
	if value, ok := teacher[key]; ok {
		if !gradable || differs(value, auto) {
			return value, ""
		}
	}

	if value, ok := stored[key]; ok && finite(value) && differs(value, auto) {
		if value == 0 && auto > 0 {
			return fallbackValue(gradable, auto), fmt.Sprintf("question %s: discarded stored 0 against auto-grade %.2f", key, auto)
		}
		if !gradable || !isPreviousAuto(key, value, previousAuto) {
			return value, ""
		}
	}

	return fallbackValue(gradable, auto), ""
}

func fallbackValue(gradable bool, auto float64) float64 {
	if gradable {
		return auto
	}
	return 0
}

// isPreviousAuto reports whether a stored value is only the automatic score
// persisted by an earlier merge rather than a teacher override.
func isPreviousAuto(key string, value float64, previousAuto map[string]float64) bool {
	previous, ok := previousAuto[key]
	return ok && !differs(value, previous)
}

// RetainOverrides keeps the stored question grades a teacher actually set: text
// question grades and auto-gradable grades that differ from the auto score they
// were stored next to. Call it before replacing auto scores on resubmission.
func RetainOverrides(questions []Question, stored, previousAuto map[string]float64) map[string]float64 {
	if len(stored) == 0 {
		return nil
	}

	kept := make(map[string]float64, len(stored))
	for key, value := range stored {
		index, err := strconv.Atoi(key)
		gradable := err == nil && index >= 0 && index < len(questions) && questions[index].AutoGradable()
		if gradable && isPreviousAuto(key, value, previousAuto) {
			continue
		}
		kept[key] = value
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func (r *MergeResult) applyFallback(state SubmissionState, teacher map[string]float64) {
	r.Mode = ModeFallback

	keys := make(map[string]struct{})
	for key := range state.AutoQuestionGrades {
		keys[key] = struct{}{}
	}
	for key := range state.QuestionGrades {
		keys[key] = struct{}{}
	}
	for key := range teacher {
		keys[key] = struct{}{}
	}

	if len(keys) == 0 {
		r.Submission.setTotal(state.AutoGrade)
		return
	}

	resolved := make(map[string]float64, len(keys))
	for key := range keys {
		auto := state.AutoQuestionGrades[key]
		if value, ok := teacher[key]; ok {
			resolved[key] = value
			continue
		}
		if value, ok := state.QuestionGrades[key]; ok && finite(value) && differs(value, auto) && !(value == 0 && auto > 0) {
			resolved[key] = value
			continue
		}
		resolved[key] = auto
	}

	r.Submission.QuestionGrades = resolved
	r.Submission.setTotal(sumGrades(resolved))
}

func (s *SubmissionState) setTotal(total float64) {
	grade := total
	final := total
	s.Grade = &grade
	s.FinalGrade = &final
}

func (s *SubmissionState) setAuto(result AutoGradeResult) {
	s.AutoGraded = result.AutoGraded
	s.AutoGrade = result.AutoGrade
	s.AutoQuestionGrades = cloneGrades(result.AutoQuestionGrades)
}

func (s SubmissionState) clone() SubmissionState {
	out := s
	if s.Answers != nil {
		out.Answers = make(map[string]string, len(s.Answers))
		for key, value := range s.Answers {
			out.Answers[key] = value
		}
	}
	out.AutoQuestionGrades = cloneGrades(s.AutoQuestionGrades)
	out.QuestionGrades = cloneGrades(s.QuestionGrades)
	out.MemberGrades = cloneGrades(s.MemberGrades)
	if s.Grade != nil {
		grade := *s.Grade
		out.Grade = &grade
	}
	if s.FinalGrade != nil {
		final := *s.FinalGrade
		out.FinalGrade = &final
	}
	return out
}

func hasAutoGradable(questions []Question) bool {
	for _, question := range questions {
		if question.AutoGradable() {
			return true
		}
	}
	return false
}

func cloneGrades(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func sortedKeys(in map[string]float64) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// sumGrades adds values in key order so repeated merges produce identical totals.
func sumGrades(in map[string]float64) float64 {
	var total float64
	for _, key := range sortedKeys(in) {
		total += in[key]
	}
	return total
}
