package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission holds one student's or group's answers to an assignment along
// with its automatic and manual grading state. Exactly one of StudentID and
// GroupID is set.
type Submission struct {
	ID                 uint                                   `gorm:"primaryKey" json:"id"`
	AssignmentID       uint                                   `gorm:"index;not null" json:"assignment_id"`
	StudentID          *uint                                  `gorm:"index" json:"student_id"`
	GroupID            *uint                                  `gorm:"index" json:"group_id"`
	Answers            datatypes.JSONType[map[string]string]  `json:"answers"`
	Status             string                                 `gorm:"size:32;not null" json:"status"`
	AutoGraded         bool                                   `gorm:"not null;default:false" json:"auto_graded"`
	AutoGrade          float64                                `gorm:"not null;default:0" json:"auto_grade"`
	AutoQuestionGrades datatypes.JSONType[map[string]float64] `json:"auto_question_grades"`
	QuestionGrades     datatypes.JSONType[map[string]float64] `json:"question_grades"`
	Grade              *float64                               `json:"grade"`
	FinalGrade         *float64                               `json:"final_grade"`
	TeacherApproved    bool                                   `gorm:"not null;default:false" json:"teacher_approved"`
	MemberGrades       datatypes.JSONType[map[string]float64] `json:"member_grades"`
	Feedback           string                                 `gorm:"type:text" json:"feedback"`
	GradedBy           *uint                                  `json:"graded_by"`
	GradedAt           *time.Time                             `json:"graded_at"`
	Version            uint                                   `gorm:"not null;default:1" json:"version"`
	CreatedAt          time.Time                              `json:"created_at"`
	UpdatedAt          time.Time                              `json:"updated_at"`
	History            []SubmissionGradeHistory               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"history,omitempty"`
}

const (
	// SubmissionStatusSubmitted indicates the submission is waiting for a grade.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates the submission has a final grade.
	SubmissionStatusGraded = "graded"
)

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// IsGroup reports whether the submission belongs to a student group.
func (s Submission) IsGroup() bool {
	return s.GroupID != nil
}

// EffectiveGrade returns the final grade, falling back to the stored grade.
func (s Submission) EffectiveGrade() *float64 {
	if s.FinalGrade != nil {
		return s.FinalGrade
	}
	return s.Grade
}

// SubmissionGradeHistory records every grading decision for auditing.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"index;not null" json:"submission_id"`
	Mode         string    `gorm:"size:32;not null" json:"mode"`
	Score        float64   `gorm:"not null" json:"score"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
