package models

import "time"

// Discussion is a course discussion topic. Only graded discussions count
// toward the course grade.
type Discussion struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CourseID    uint       `gorm:"index;not null" json:"course_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Graded      bool       `gorm:"not null;default:false" json:"graded"`
	GroupName   string     `gorm:"size:128" json:"group_name"`
	TotalPoints float64    `gorm:"not null;default:0" json:"total_points"`
	DueDate     *time.Time `json:"due_date"`
	Published   bool       `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DiscussionEntry tracks one student's participation and grade in a discussion.
type DiscussionEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DiscussionID uint      `gorm:"uniqueIndex:idx_discussion_student;not null" json:"discussion_id"`
	StudentID    uint      `gorm:"uniqueIndex:idx_discussion_student;not null" json:"student_id"`
	Posted       bool      `gorm:"not null;default:false" json:"posted"`
	Grade        *float64  `json:"grade"`
	UpdatedAt    time.Time `json:"updated_at"`
}
