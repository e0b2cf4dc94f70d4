package dto

import (
	"time"

	"github.com/noah-isme/gema-gradebook/internal/models"
)

// SubmissionAnswerRequest carries a student's answers keyed by question index.
type SubmissionAnswerRequest struct {
	AssignmentID uint              `json:"assignment_id" validate:"required,gt=0"`
	Answers      map[string]string `json:"answers" validate:"required,dive,keys,numeric,endkeys,max=20000"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                 uint                             `json:"id"`
	AssignmentID       uint                             `json:"assignment_id"`
	StudentID          *uint                            `json:"student_id"`
	GroupID            *uint                            `json:"group_id"`
	Answers            map[string]string                `json:"answers"`
	Status             string                           `json:"status"`
	AutoGraded         bool                             `json:"auto_graded"`
	AutoGrade          float64                          `json:"auto_grade"`
	AutoQuestionGrades map[string]float64               `json:"auto_question_grades"`
	QuestionGrades     map[string]float64               `json:"question_grades"`
	Grade              *float64                         `json:"grade"`
	FinalGrade         *float64                         `json:"final_grade"`
	TeacherApproved    bool                             `json:"teacher_approved"`
	MemberGrades       map[string]float64               `json:"member_grades,omitempty"`
	Feedback           string                           `json:"feedback"`
	GradedBy           *uint                            `json:"graded_by"`
	GradedAt           *time.Time                       `json:"graded_at"`
	Version            uint                             `json:"version"`
	Anomalies          []string                         `json:"anomalies,omitempty"`
	History            []SubmissionGradeHistoryResponse `json:"history,omitempty"`
	CreatedAt          time.Time                        `json:"created_at"`
	UpdatedAt          time.Time                        `json:"updated_at"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Mode     string    `json:"mode"`
	Score    float64   `json:"score"`
	Feedback string    `json:"feedback"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:                 model.ID,
		AssignmentID:       model.AssignmentID,
		StudentID:          model.StudentID,
		GroupID:            model.GroupID,
		Answers:            model.Answers.Data(),
		Status:             model.Status,
		AutoGraded:         model.AutoGraded,
		AutoGrade:          model.AutoGrade,
		AutoQuestionGrades: model.AutoQuestionGrades.Data(),
		QuestionGrades:     model.QuestionGrades.Data(),
		Grade:              model.Grade,
		FinalGrade:         model.FinalGrade,
		TeacherApproved:    model.TeacherApproved,
		MemberGrades:       model.MemberGrades.Data(),
		Feedback:           model.Feedback,
		GradedBy:           model.GradedBy,
		GradedAt:           model.GradedAt,
		Version:            model.Version,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}

	if len(model.History) > 0 {
		history := make([]SubmissionGradeHistoryResponse, 0, len(model.History))
		for _, entry := range model.History {
			history = append(history, SubmissionGradeHistoryResponse{
				Mode:     entry.Mode,
				Score:    entry.Score,
				Feedback: entry.Feedback,
				GradedBy: entry.GradedBy,
				GradedAt: entry.GradedAt,
			})
		}
		response.History = history
	}

	return response
}
