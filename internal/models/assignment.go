package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment is a gradable course item made of ordered questions.
type Assignment struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	CourseID            uint       `gorm:"index;not null" json:"course_id"`
	Title               string     `gorm:"size:255;not null" json:"title"`
	Description         string     `gorm:"type:text" json:"description"`
	GroupName           string     `gorm:"size:128" json:"group_name"`
	TotalPoints         float64    `gorm:"not null;default:0" json:"total_points"`
	DueDate             *time.Time `json:"due_date"`
	Published           bool       `gorm:"not null;default:false" json:"published"`
	IsGroupAssignment   bool       `gorm:"not null;default:false" json:"is_group_assignment"`
	GroupSetID          *uint      `gorm:"index" json:"group_set_id"`
	UseIndividualGrades bool       `gorm:"not null;default:false" json:"use_individual_grades"`
	Questions           []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

const (
	QuestionKindText           = "text"
	QuestionKindMultipleChoice = "multiple-choice"
	QuestionKindMatching       = "matching"
)

// Question is one entry of an assignment. Position fixes its index within
// the assignment and therefore the key of its answer.
type Question struct {
	ID           uint                                `gorm:"primaryKey" json:"id"`
	AssignmentID uint                                `gorm:"index;not null" json:"assignment_id"`
	Position     int                                 `gorm:"not null" json:"position"`
	Kind         string                              `gorm:"size:32;not null" json:"kind"`
	Prompt       string                              `gorm:"type:text" json:"prompt"`
	Points       float64                             `gorm:"not null;default:0" json:"points"`
	Options      datatypes.JSONSlice[QuestionOption] `json:"options"`
	LeftItems    datatypes.JSONSlice[MatchItem]      `json:"left_items"`
	RightItems   datatypes.JSONSlice[MatchItem]      `json:"right_items"`
}

// QuestionOption is a multiple-choice option.
type QuestionOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// MatchItem is one side of a matching pair; pairs share an ID.
type MatchItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
