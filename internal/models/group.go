package models

import "time"

// GroupSet partitions a course's students into groups for group assignments.
type GroupSet struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CourseID  uint           `gorm:"index;not null" json:"course_id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Groups    []StudentGroup `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"groups"`
	CreatedAt time.Time      `json:"created_at"`
}

// StudentGroup is one group within a set.
type StudentGroup struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	GroupSetID uint          `gorm:"index;not null" json:"group_set_id"`
	Name       string        `gorm:"size:255;not null" json:"name"`
	Members    []GroupMember `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members"`
}

// GroupMember links a student to a group.
type GroupMember struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	GroupID   uint `gorm:"uniqueIndex:idx_group_member;not null" json:"group_id"`
	StudentID uint `gorm:"uniqueIndex:idx_group_member;index;not null" json:"student_id"`
}
