package dto

import (
	"time"

	"github.com/noah-isme/gema-gradebook/internal/grading"
)

// CourseGradeResponse is a student's overall course grade.
type CourseGradeResponse struct {
	CourseID   uint                  `json:"course_id"`
	StudentID  uint                  `json:"student_id"`
	Policy     string                `json:"policy"`
	Percent    float64               `json:"percent"`
	Letter     string                `json:"letter"`
	Groups     []grading.GroupResult `json:"groups"`
	Other      grading.GroupResult   `json:"other"`
	ComputedAt time.Time             `json:"computed_at"`
}

// NewCourseGradeResponse converts an aggregation result into a DTO.
func NewCourseGradeResponse(courseID, studentID uint, grade grading.CourseGrade, computedAt time.Time) CourseGradeResponse {
	groups := grade.Groups
	if groups == nil {
		groups = []grading.GroupResult{}
	}
	return CourseGradeResponse{
		CourseID:   courseID,
		StudentID:  studentID,
		Policy:     grade.Policy,
		Percent:    grade.Percent,
		Letter:     grade.Letter,
		Groups:     groups,
		Other:      grade.Other,
		ComputedAt: computedAt.UTC(),
	}
}

// GradeScaleRowRequest is one letter band of a grade scale.
type GradeScaleRowRequest struct {
	Letter string  `json:"letter" validate:"required,max=8"`
	Min    float64 `json:"min" validate:"gte=0,lte=100"`
	Max    float64 `json:"max" validate:"gte=0,lte=100"`
}

// GradeScaleRequest replaces a course's grade scale.
type GradeScaleRequest struct {
	Rows []GradeScaleRowRequest `json:"rows" validate:"required,min=1,dive"`
}

// GradeScaleRowResponse is a stored letter band.
type GradeScaleRowResponse struct {
	Letter string `json:"letter"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
}

// GradeScaleResponse is the course's current grade scale.
type GradeScaleResponse struct {
	CourseID uint                    `json:"course_id"`
	Rows     []GradeScaleRowResponse `json:"rows"`
}
