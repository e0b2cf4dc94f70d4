package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/models"
)

// CourseRepository loads courses with their grading configuration.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	ReplaceGradeScale(ctx context.Context, courseID uint, rows []models.GradeScaleRow) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a GORM-backed repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("GradeScale", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

// ReplaceGradeScale swaps the course's scale rows in a single transaction.
func (r *courseRepository) ReplaceGradeScale(ctx context.Context, courseID uint, rows []models.GradeScaleRow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Course{}).Where("id = ?", courseID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("course_id = ?", courseID).Delete(&models.GradeScaleRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		for i := range rows {
			rows[i].ID = 0
			rows[i].CourseID = courseID
			rows[i].Position = i
		}
		return tx.Create(&rows).Error
	})
}
