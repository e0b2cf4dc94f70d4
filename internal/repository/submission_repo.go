package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/models"
)

// ErrVersionConflict is returned when a submission changed since it was read.
var ErrVersionConflict = errors.New("submission was modified concurrently")

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	FindByStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	FindByGroup(ctx context.Context, assignmentID, groupID uint) (models.Submission, error)
	ListForStudent(ctx context.Context, assignmentIDs []uint, studentID uint, groupIDs []uint) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateAnswers(ctx context.Context, submission *models.Submission) error
	UpdateGrading(ctx context.Context, submission *models.Submission, history *models.SubmissionGradeHistory) error
	ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) FindByStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Order("id DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) FindByGroup(ctx context.Context, assignmentID, groupID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND group_id = ?", assignmentID, groupID).
		Order("id DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// ListForStudent returns the student's own submissions plus those of the given
// groups, restricted to the given assignments.
func (r *submissionRepository) ListForStudent(ctx context.Context, assignmentIDs []uint, studentID uint, groupIDs []uint) ([]models.Submission, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Where("assignment_id IN ?", assignmentIDs)
	if len(groupIDs) > 0 {
		query = query.Where("student_id = ? OR group_id IN ?", studentID, groupIDs)
	} else {
		query = query.Where("student_id = ?", studentID)
	}

	var submissions []models.Submission
	if err := query.Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.Version == 0 {
		submission.Version = 1
	}
	return r.db.WithContext(ctx).Omit("History").Create(submission).Error
}

// UpdateAnswers stores re-submitted answers and the automatic grading fields.
func (r *submissionRepository) UpdateAnswers(ctx context.Context, submission *models.Submission) error {
	return r.updateVersioned(r.db.WithContext(ctx), submission, map[string]interface{}{
		"answers":              submission.Answers,
		"status":               submission.Status,
		"auto_graded":          submission.AutoGraded,
		"auto_grade":           submission.AutoGrade,
		"auto_question_grades": submission.AutoQuestionGrades,
		"question_grades":      submission.QuestionGrades,
		"grade":                submission.Grade,
		"final_grade":          submission.FinalGrade,
	})
}

// UpdateGrading writes the grading fields and appends the history entry in one
// transaction. It fails with ErrVersionConflict when the stored version no
// longer matches submission.Version.
func (r *submissionRepository) UpdateGrading(ctx context.Context, submission *models.Submission, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.updateVersioned(tx, submission, map[string]interface{}{
			"status":               submission.Status,
			"auto_graded":          submission.AutoGraded,
			"auto_grade":           submission.AutoGrade,
			"auto_question_grades": submission.AutoQuestionGrades,
			"question_grades":      submission.QuestionGrades,
			"grade":                submission.Grade,
			"final_grade":          submission.FinalGrade,
			"teacher_approved":     submission.TeacherApproved,
			"member_grades":        submission.MemberGrades,
			"feedback":             submission.Feedback,
			"graded_by":            submission.GradedBy,
			"graded_at":            submission.GradedAt,
		}); err != nil {
			return err
		}

		if history == nil {
			return nil
		}
		history.SubmissionID = submission.ID
		return tx.Create(history).Error
	})
}

func (r *submissionRepository) updateVersioned(db *gorm.DB, submission *models.Submission, values map[string]interface{}) error {
	expected := submission.Version
	values["version"] = expected + 1

	result := db.Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, expected).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	submission.Version = expected + 1
	return nil
}

func (r *submissionRepository) ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error) {
	var history []models.SubmissionGradeHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("graded_at DESC, id DESC").
		Find(&history).Error; err != nil {
		return nil, err
	}

	return history, nil
}
