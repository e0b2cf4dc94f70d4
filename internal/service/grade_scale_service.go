package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/dto"
	"github.com/noah-isme/gema-gradebook/internal/grading"
	"github.com/noah-isme/gema-gradebook/internal/models"
	"github.com/noah-isme/gema-gradebook/internal/repository"
)

// GradeScaleService manages per-course letter-grade scales.
type GradeScaleService interface {
	Get(ctx context.Context, courseID uint) (dto.GradeScaleResponse, error)
	Replace(ctx context.Context, courseID uint, payload dto.GradeScaleRequest) (dto.GradeScaleResponse, error)
}

type gradeScaleService struct {
	courses   repository.CourseRepository
	cache     *CourseGradeCache
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradeScaleService constructs the grade scale service.
func NewGradeScaleService(courses repository.CourseRepository, cache *CourseGradeCache, validate *validator.Validate, logger zerolog.Logger) GradeScaleService {
	return &gradeScaleService{
		courses:   courses,
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "grade_scale_service").Logger(),
	}
}

// Get returns the course scale, or the default scale when none is configured.
func (s *gradeScaleService) Get(ctx context.Context, courseID uint) (dto.GradeScaleResponse, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeScaleResponse{}, ErrCourseNotFound
		}
		return dto.GradeScaleResponse{}, err
	}

	if len(course.GradeScale) == 0 {
		rows := make([]models.GradeScaleRow, 0, len(grading.DefaultScale))
		for _, row := range grading.DefaultScale {
			rows = append(rows, models.GradeScaleRow{Letter: row.Letter, Min: int(row.Min), Max: int(row.Max)})
		}
		return newGradeScaleResponse(courseID, rows), nil
	}
	return newGradeScaleResponse(courseID, course.GradeScale), nil
}

func (s *gradeScaleService) Replace(ctx context.Context, courseID uint, payload dto.GradeScaleRequest) (dto.GradeScaleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	scale := make([]grading.ScaleRow, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		scale = append(scale, grading.ScaleRow{Letter: strings.TrimSpace(row.Letter), Min: row.Min, Max: row.Max})
	}
	if err := grading.ValidateScale(scale); err != nil {
		return dto.GradeScaleResponse{}, err
	}

	sort.SliceStable(scale, func(i, j int) bool { return scale[i].Min > scale[j].Min })
	rows := make([]models.GradeScaleRow, 0, len(scale))
	for _, row := range scale {
		rows = append(rows, models.GradeScaleRow{Letter: row.Letter, Min: int(row.Min), Max: int(row.Max)})
	}

	if err := s.courses.ReplaceGradeScale(ctx, courseID, rows); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeScaleResponse{}, ErrCourseNotFound
		}
		return dto.GradeScaleResponse{}, err
	}

	s.cache.InvalidateCourse(ctx, courseID)
	s.logger.Info().Uint("course_id", courseID).Int("rows", len(rows)).Msg("grade scale replaced")

	return newGradeScaleResponse(courseID, rows), nil
}

func newGradeScaleResponse(courseID uint, rows []models.GradeScaleRow) dto.GradeScaleResponse {
	response := dto.GradeScaleResponse{CourseID: courseID, Rows: make([]dto.GradeScaleRowResponse, 0, len(rows))}
	for _, row := range rows {
		response.Rows = append(response.Rows, dto.GradeScaleRowResponse{Letter: row.Letter, Min: row.Min, Max: row.Max})
	}
	return response
}
