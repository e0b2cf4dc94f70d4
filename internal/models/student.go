package models

import "time"

// Student represents a learner enrolled in courses.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All returns every model managed by the gradebook, in migration order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Course{},
		&CourseGroup{},
		&GradeScaleRow{},
		&Assignment{},
		&Question{},
		&GroupSet{},
		&StudentGroup{},
		&GroupMember{},
		&Submission{},
		&SubmissionGradeHistory{},
		&Discussion{},
		&DiscussionEntry{},
	}
}
