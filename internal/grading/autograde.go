package grading

import (
	"encoding/json"
	"math"
	"strconv"
)

// AutoGradeResult is the outcome of scoring a submission without human input.
// AutoGrade is always earned points.
type AutoGradeResult struct {
	AutoGraded         bool
	AutoGrade          float64
	AutoQuestionGrades map[string]float64
	AllMultipleChoice  bool
	PossiblePoints     float64
}

// Percent derives a display percentage from the auto-graded points. It must not
// be stored in place of AutoGrade.
func (r AutoGradeResult) Percent() float64 {
	return safeRatio(r.AutoGrade, r.PossiblePoints) * 100
}

// Scorer scores a single question answer.
type Scorer interface {
	Score(q Question, answer string) float64
}

type multipleChoiceScorer struct{}

func (multipleChoiceScorer) Score(q Question, answer string) float64 {
	for _, option := range q.Options {
		if option.Correct {
			if answer == option.Text {
				return q.Points
			}
			return 0
		}
	}
	return 0
}

type matchingScorer struct{}

func (matchingScorer) Score(q Question, answer string) float64 {
	total := len(q.LeftItems)
	if total == 0 {
		return 0
	}

	chosen := parseMatchingAnswer(answer)
	right := make(map[string]string, len(q.RightItems))
	for _, item := range q.RightItems {
		if _, exists := right[item.ID]; !exists {
			right[item.ID] = item.Text
		}
	}

	correct := 0
	for ordinal, left := range q.LeftItems {
		want, ok := right[left.ID]
		if !ok {
			continue
		}
		got, answered := chosen[strconv.Itoa(ordinal)]
		if answered && got == want {
			correct++
		}
	}

	return matchingCredit(q.Points, correct, total)
}

// matchingCredit truncates proportional credit to cents. The small epsilon keeps
// values such as 0.7*10 from truncating one cent low.
func matchingCredit(points float64, correct, total int) float64 {
	if correct <= 0 || total <= 0 {
		return 0
	}
	if correct >= total {
		return points
	}
	raw := points * float64(correct) / float64(total)
	return math.Floor(raw*100+1e-9) / 100
}

// parseMatchingAnswer decodes a left ordinal -> right text object. Anything that
// does not decode yields an empty mapping.
func parseMatchingAnswer(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return map[string]string{}
	}

	result := make(map[string]string, len(decoded))
	for key, value := range decoded {
		if text, ok := value.(string); ok {
			result[key] = text
		}
	}
	return result
}

var scorers = map[QuestionKind]Scorer{
	KindMultipleChoice: multipleChoiceScorer{},
	KindMatching:       matchingScorer{},
}

// AutoGrade scores answers against the question bank in declared order.
// Questions without a scorer contribute nothing and need a human score.
func AutoGrade(questions []Question, answers map[string]string) AutoGradeResult {
	result := AutoGradeResult{
		AutoQuestionGrades: make(map[string]float64),
	}

	gradable := 0
	for index, question := range questions {
		if finite(question.Points) && question.Points > 0 {
			result.PossiblePoints += question.Points
		}

		scorer, ok := scorers[question.Kind]
		if !ok {
			continue
		}

		gradable++
		points := scorer.Score(question, answers[QuestionKey(index)])
		if !finite(points) {
			points = 0
		}
		result.AutoQuestionGrades[QuestionKey(index)] = points
		result.AutoGrade += points
	}

	result.AutoGraded = gradable > 0
	result.AllMultipleChoice = gradable > 0 && gradable == len(questions)
	return result
}
