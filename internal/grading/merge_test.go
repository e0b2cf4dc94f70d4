package grading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func quizKey() *AssignmentKey {
	return &AssignmentKey{Questions: []Question{
		mcQuestion(10, "B"),
		matchingQuestion(10),
		{Kind: KindText, Points: 5},
	}}
}

func quizState() SubmissionState {
	answers := map[string]string{
		"0": "B",
		"1": `{"0":"Pike","1":"Hoare","2":"Guido","3":"Hoare"}`,
		"2": "an essay",
	}
	auto := AutoGrade(quizKey().Questions, answers)
	return SubmissionState{
		Answers:            answers,
		AutoGraded:         auto.AutoGraded,
		AutoGrade:          auto.AutoGrade,
		AutoQuestionGrades: auto.AutoQuestionGrades,
	}
}

func TestMergeManualUsesAutoAndTeacherText(t *testing.T) {
	result, err := Merge(quizState(), quizKey(), TeacherInput{
		QuestionGrades: map[string]float64{"2": 4},
	})
	require.NoError(t, err)
	require.Equal(t, ModeManual, result.Mode)
	require.Equal(t, map[string]float64{"0": 10, "1": 7.5, "2": 4}, result.Submission.QuestionGrades)
	require.Equal(t, 21.5, *result.Submission.FinalGrade)
	require.Equal(t, 21.5, *result.Submission.Grade)
	require.Equal(t, 17.5, result.Submission.AutoGrade)
}

func TestMergeManualIsIdempotent(t *testing.T) {
	input := TeacherInput{QuestionGrades: map[string]float64{"0": 6, "2": 3}}

	first, err := Merge(quizState(), quizKey(), input)
	require.NoError(t, err)

	second, err := Merge(first.Submission, quizKey(), input)
	require.NoError(t, err)

	require.Equal(t, *first.Submission.FinalGrade, *second.Submission.FinalGrade)
	require.Equal(t, first.Submission.QuestionGrades, second.Submission.QuestionGrades)
	require.Equal(t, 16.5, *second.Submission.FinalGrade)
}

func TestMergeManualPreservesPriorOverride(t *testing.T) {
	first, err := Merge(quizState(), quizKey(), TeacherInput{
		QuestionGrades: map[string]float64{"0": 6, "2": 5},
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, first.Submission.QuestionGrades["0"])

	second, err := Merge(first.Submission, quizKey(), TeacherInput{
		QuestionGrades: map[string]float64{"2": 5},
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, second.Submission.QuestionGrades["0"])
	require.Equal(t, 18.5, *second.Submission.FinalGrade)
}

func TestMergeManualIgnoresTeacherValueEqualToAuto(t *testing.T) {
	state := quizState()
	state.QuestionGrades = map[string]float64{"0": 6}

	result, err := Merge(state, quizKey(), TeacherInput{
		QuestionGrades: map[string]float64{"0": 10.005},
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, result.Submission.QuestionGrades["0"])
}

func TestMergeManualDiscardsCorruptStoredZero(t *testing.T) {
	state := quizState()
	state.QuestionGrades = map[string]float64{"0": 0, "1": 0}

	result, err := Merge(state, quizKey(), TeacherInput{})
	require.NoError(t, err)
	require.Equal(t, 10.0, result.Submission.QuestionGrades["0"])
	require.Equal(t, 7.5, result.Submission.QuestionGrades["1"])
	require.Equal(t, 17.5, *result.Submission.FinalGrade)
	require.Len(t, result.Anomalies, 2)
}

func TestMergeManualRecomputesMissingAutoGrades(t *testing.T) {
	state := quizState()
	state.AutoGraded = false
	state.AutoGrade = 0
	state.AutoQuestionGrades = nil

	result, err := Merge(state, quizKey(), TeacherInput{QuestionGrades: map[string]float64{"2": 2}})
	require.NoError(t, err)
	require.True(t, result.Submission.AutoGraded)
	require.Equal(t, 17.5, result.Submission.AutoGrade)
	require.Equal(t, 19.5, *result.Submission.FinalGrade)
}

func TestMergeManualFollowsAnswerKeyChange(t *testing.T) {
	first, err := Merge(quizState(), quizKey(), TeacherInput{})
	require.NoError(t, err)
	require.Equal(t, 10.0, first.Submission.QuestionGrades["0"])

	key := quizKey()
	key.Questions[0] = mcQuestion(10, "C")

	second, err := Merge(first.Submission, key, TeacherInput{})
	require.NoError(t, err)
	require.Equal(t, 0.0, second.Submission.QuestionGrades["0"])
	require.Equal(t, 7.5, *second.Submission.FinalGrade)
}

func TestMergeApproveAcceptsAutoWithTeacherOverlay(t *testing.T) {
	state := quizState()
	state.QuestionGrades = map[string]float64{"0": 3, "2": 4}

	result, err := Merge(state, quizKey(), TeacherInput{
		ApproveGrade:   true,
		QuestionGrades: map[string]float64{"1": 9},
	})
	require.NoError(t, err)
	require.Equal(t, ModeApprove, result.Mode)
	require.True(t, result.Submission.TeacherApproved)
	require.Equal(t, map[string]float64{"0": 10, "1": 9, "2": 4}, result.Submission.QuestionGrades)
	require.Equal(t, 23.0, *result.Submission.FinalGrade)
}

func TestMergeRejectsMalformedGradeWithoutMutation(t *testing.T) {
	state := SubmissionState{Answers: map[string]string{"0": "essay"}}
	original := state.clone()

	for _, raw := range []string{"abc", "", "NaN", "Inf", "-1"} {
		_, err := Merge(state, &AssignmentKey{Questions: []Question{{Kind: KindText, Points: 10}}}, TeacherInput{Grade: strPtr(raw)})
		require.ErrorIs(t, err, ErrInvalidGrade, raw)
	}
	require.Equal(t, original, state)
}

func TestMergeDirectGradeForTextAssignment(t *testing.T) {
	result, err := Merge(SubmissionState{}, &AssignmentKey{Questions: []Question{{Kind: KindText, Points: 10}}}, TeacherInput{Grade: strPtr(" 8.5 ")})
	require.NoError(t, err)
	require.Equal(t, ModeDirect, result.Mode)
	require.Equal(t, 8.5, *result.Submission.Grade)
	require.Equal(t, 8.5, *result.Submission.FinalGrade)
}

func TestMergeTextQuestionGradesWithoutTotal(t *testing.T) {
	key := &AssignmentKey{Questions: []Question{{Kind: KindText, Points: 5}, {Kind: KindText, Points: 5}}}
	result, err := Merge(SubmissionState{}, key, TeacherInput{QuestionGrades: map[string]float64{"0": 4}})
	require.NoError(t, err)
	require.Equal(t, ModeManual, result.Mode)
	require.Equal(t, 4.0, *result.Submission.FinalGrade)
}

func TestMergeRequiresSomething(t *testing.T) {
	_, err := Merge(SubmissionState{}, &AssignmentKey{}, TeacherInput{})
	require.ErrorIs(t, err, ErrGradeRequired)
}

func TestMergeIndividualGroupGradesAverageSuppliedMembers(t *testing.T) {
	state := SubmissionState{IsGroup: true}
	key := &AssignmentKey{UseIndividualGrades: true}

	result, err := Merge(state, key, TeacherInput{MemberGrades: map[string]string{"11": "80", "12": "90"}})
	require.NoError(t, err)
	require.Equal(t, ModeIndividual, result.Mode)
	require.Equal(t, 85.0, *result.Submission.Grade)

	result, err = Merge(result.Submission, key, TeacherInput{MemberGrades: map[string]string{"13": "70"}})
	require.NoError(t, err)
	require.Equal(t, 80.0, *result.Submission.Grade)
	require.Len(t, result.Submission.MemberGrades, 3)

	_, err = Merge(result.Submission, key, TeacherInput{MemberGrades: map[string]string{"11": "x"}})
	require.ErrorIs(t, err, ErrInvalidGrade)
}

func TestMergeFallbackWhenAssignmentMissing(t *testing.T) {
	state := SubmissionState{
		AutoGraded: true,
		AutoGrade:  12,
	}

	result, err := Merge(state, nil, TeacherInput{})
	require.NoError(t, err)
	require.Equal(t, ModeFallback, result.Mode)
	require.Equal(t, 12.0, *result.Submission.FinalGrade)
	require.NotEmpty(t, result.Anomalies)

	state.AutoQuestionGrades = map[string]float64{"0": 10, "1": 2}
	state.QuestionGrades = map[string]float64{"1": 5}
	result, err = Merge(state, nil, TeacherInput{QuestionGrades: map[string]float64{"2": 3}})
	require.NoError(t, err)
	require.Equal(t, 18.0, *result.Submission.FinalGrade)
	require.Equal(t, 12.0, result.Submission.AutoGrade)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	state := quizState()
	state.QuestionGrades = map[string]float64{"2": 1}
	before := state.clone()

	_, err := Merge(state, quizKey(), TeacherInput{QuestionGrades: map[string]float64{"2": 5}})
	require.NoError(t, err)
	require.Equal(t, before, state)
}

func TestParseQuestionGrades(t *testing.T) {
	parsed, rejected := ParseQuestionGrades(map[string]interface{}{
		"0": 4.5,
		"1": "3",
		"2": "three",
		"3": nil,
		"4": -2.0,
	})
	require.Equal(t, map[string]float64{"0": 4.5, "1": 3}, parsed)
	require.ElementsMatch(t, []string{"2", "3", "4"}, rejected)
}

func TestRetainOverridesDropsPersistedAutoScores(t *testing.T) {
	questions := quizKey().Questions
	stored := map[string]float64{"0": 10, "1": 4, "2": 3, "9": 1}
	previousAuto := map[string]float64{"0": 10, "1": 7.5}

	kept := RetainOverrides(questions, stored, previousAuto)
	require.Equal(t, map[string]float64{"1": 4, "2": 3, "9": 1}, kept)

	require.Nil(t, RetainOverrides(questions, map[string]float64{"0": 10.004}, previousAuto))
	require.Nil(t, RetainOverrides(questions, nil, previousAuto))
}

func TestMergeAfterResubmissionUsesFreshAutoScores(t *testing.T) {
	graded, err := Merge(quizState(), quizKey(), TeacherInput{QuestionGrades: map[string]float64{"2": 4}})
	require.NoError(t, err)
	require.Equal(t, 21.5, *graded.Submission.FinalGrade)

	resubmitted := graded.Submission.clone()
	resubmitted.QuestionGrades = RetainOverrides(quizKey().Questions, resubmitted.QuestionGrades, resubmitted.AutoQuestionGrades)
	resubmitted.Answers = map[string]string{"0": "A", "1": `{"0":"Guido","1":"Pike","2":"Matz","3":"Pike"}`, "2": "an essay"}
	auto := AutoGrade(quizKey().Questions, resubmitted.Answers)
	resubmitted.AutoGrade = auto.AutoGrade
	resubmitted.AutoQuestionGrades = auto.AutoQuestionGrades

	regraded, err := Merge(resubmitted, quizKey(), TeacherInput{QuestionGrades: map[string]float64{"2": 4}})
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"0": 0, "1": 0, "2": 4}, regraded.Submission.QuestionGrades)
	require.Equal(t, 4.0, *regraded.Submission.FinalGrade)
}
