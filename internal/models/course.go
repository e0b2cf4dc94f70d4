package models

import "time"

// Course owns the assignment groups and letter-grade scale used to compute
// a student's overall grade.
type Course struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Title      string          `gorm:"size:255;not null" json:"title"`
	Groups     []CourseGroup   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"groups"`
	GradeScale []GradeScaleRow `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grade_scale"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CourseGroup is a named assignment category with a percentage weight.
type CourseGroup struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	CourseID uint    `gorm:"index;not null" json:"course_id"`
	Name     string  `gorm:"size:128;not null" json:"name"`
	Weight   float64 `gorm:"not null;default:0" json:"weight"`
}

// GradeScaleRow maps an inclusive whole-number percentage range to a letter.
type GradeScaleRow struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CourseID uint   `gorm:"index;not null" json:"course_id"`
	Letter   string `gorm:"size:8;not null" json:"letter"`
	Min      int    `gorm:"column:min_percent;not null" json:"min"`
	Max      int    `gorm:"column:max_percent;not null" json:"max"`
	Position int    `gorm:"not null;default:0" json:"position"`
}
