package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/models"
)

// DiscussionRepository reads graded discussions and student participation.
type DiscussionRepository interface {
	ListGradedByCourse(ctx context.Context, courseID uint) ([]models.Discussion, error)
	ListEntriesForStudent(ctx context.Context, discussionIDs []uint, studentID uint) ([]models.DiscussionEntry, error)
}

type discussionRepository struct {
	db *gorm.DB
}

// NewDiscussionRepository constructs a GORM-backed repository.
func NewDiscussionRepository(db *gorm.DB) DiscussionRepository {
	return &discussionRepository{db: db}
}

func (r *discussionRepository) ListGradedByCourse(ctx context.Context, courseID uint) ([]models.Discussion, error) {
	var discussions []models.Discussion
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND graded = ?", courseID, true).
		Order("id ASC").
		Find(&discussions).Error; err != nil {
		return nil, err
	}

	return discussions, nil
}

func (r *discussionRepository) ListEntriesForStudent(ctx context.Context, discussionIDs []uint, studentID uint) ([]models.DiscussionEntry, error) {
	if len(discussionIDs) == 0 {
		return nil, nil
	}

	var entries []models.DiscussionEntry
	if err := r.db.WithContext(ctx).
		Where("discussion_id IN ? AND student_id = ?", discussionIDs, studentID).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
