package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/dto"
	"github.com/noah-isme/gema-gradebook/internal/grading"
	"github.com/noah-isme/gema-gradebook/internal/models"
	"github.com/noah-isme/gema-gradebook/internal/observability"
	"github.com/noah-isme/gema-gradebook/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the referenced assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAssignmentNotPublished indicates the assignment does not accept submissions yet.
	ErrAssignmentNotPublished = errors.New("assignment is not published")
	// ErrUnknownQuestion indicates an answer key that matches no question.
	ErrUnknownQuestion = errors.New("answer references an unknown question")
	// ErrNotGroupMember indicates the student has no group for a group assignment.
	ErrNotGroupMember = errors.New("student is not a member of a group for this assignment")
	// ErrSubmissionNotFound indicates the submission was not located.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionForbidden indicates the viewer may not access the submission.
	ErrSubmissionForbidden = errors.New("submission belongs to another student")
	// ErrSubmissionConflict indicates the submission changed while being written.
	ErrSubmissionConflict = errors.New("submission was modified concurrently")
)

// Actor is the authenticated user performing an action.
type Actor struct {
	ID   uint
	Role string
}

// IsStaff reports whether the actor may grade and view any submission.
func (a Actor) IsStaff() bool {
	return a.Role == "teacher" || a.Role == "admin"
}

// SubmissionService accepts student answers and auto-grades them.
type SubmissionService interface {
	Submit(ctx context.Context, studentID uint, payload dto.SubmissionAnswerRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint, viewer Actor) (dto.SubmissionResponse, error)
}

type submissionService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	groups      repository.GroupRepository
	cache       *CourseGradeCache
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewSubmissionService builds the submission service.
func NewSubmissionService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, groups repository.GroupRepository, cache *CourseGradeCache, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		assignments: assignments,
		submissions: submissions,
		groups:      groups,
		cache:       cache,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-gradebook/internal/service/submission"),
	}
}

func (s *submissionService) Submit(ctx context.Context, studentID uint, payload dto.SubmissionAnswerRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("submission.student_id", int64(studentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "assignment_not_found")
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}
	if !assignment.Published {
		span.SetStatus(codes.Error, "assignment_not_published")
		return dto.SubmissionResponse{}, ErrAssignmentNotPublished
	}

	for key := range payload.Answers {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= len(assignment.Questions) {
			span.SetStatus(codes.Error, "unknown_question")
			return dto.SubmissionResponse{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, key)
		}
	}

	submission, exists, err := s.findExisting(ctx, assignment, studentID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	key := assignmentKey(assignment)
	result := grading.AutoGrade(key.Questions, payload.Answers)

	submission.QuestionGrades = datatypes.NewJSONType(grading.RetainOverrides(
		key.Questions,
		submission.QuestionGrades.Data(),
		submission.AutoQuestionGrades.Data(),
	))
	submission.Answers = datatypes.NewJSONType(payload.Answers)
	submission.AutoGraded = result.AutoGraded
	submission.AutoGrade = result.AutoGrade
	submission.AutoQuestionGrades = datatypes.NewJSONType(result.AutoQuestionGrades)

	finalized := result.AllMultipleChoice && submission.GradedBy == nil
	if finalized {
		grade := result.AutoGrade
		final := result.AutoGrade
		submission.QuestionGrades = datatypes.NewJSONType(result.AutoQuestionGrades)
		submission.Grade = &grade
		submission.FinalGrade = &final
		submission.Status = models.SubmissionStatusGraded
	} else {
		submission.Status = models.SubmissionStatusSubmitted
	}

	if exists {
		err = s.submissions.UpdateAnswers(ctx, &submission)
	} else {
		err = s.submissions.Create(ctx, &submission)
	}
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			span.SetStatus(codes.Error, "version_conflict")
			return dto.SubmissionResponse{}, ErrSubmissionConflict
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	observability.AutoGrades().WithLabelValues(strconv.FormatBool(finalized)).Inc()
	s.cache.InvalidateStudents(ctx, assignment.CourseID, s.affectedStudents(ctx, submission)...)

	span.SetAttributes(
		attribute.Float64("submission.auto_grade", result.AutoGrade),
		attribute.Bool("submission.finalized", finalized),
	)
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignment.ID).
		Float64("auto_grade", result.AutoGrade).
		Bool("finalized", finalized).
		Msg("submission auto-graded")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) findExisting(ctx context.Context, assignment models.Assignment, studentID uint) (models.Submission, bool, error) {
	fresh := models.Submission{AssignmentID: assignment.ID}

	var (
		existing models.Submission
		err      error
	)
	if assignment.IsGroupAssignment {
		if assignment.GroupSetID == nil {
			return models.Submission{}, false, ErrNotGroupMember
		}
		memberships, lookupErr := s.groups.GroupsForStudent(ctx, studentID, []uint{*assignment.GroupSetID})
		if lookupErr != nil {
			return models.Submission{}, false, lookupErr
		}
		groupID, ok := memberships[*assignment.GroupSetID]
		if !ok {
			return models.Submission{}, false, ErrNotGroupMember
		}
		fresh.GroupID = &groupID
		existing, err = s.submissions.FindByGroup(ctx, assignment.ID, groupID)
	} else {
		student := studentID
		fresh.StudentID = &student
		existing, err = s.submissions.FindByStudent(ctx, assignment.ID, studentID)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fresh, false, nil
		}
		return models.Submission{}, false, err
	}
	return existing, true, nil
}

// affectedStudents lists the students whose course grade depends on the submission.
func (s *submissionService) affectedStudents(ctx context.Context, submission models.Submission) []uint {
	return submissionStudents(ctx, s.groups, s.logger, submission)
}

func submissionStudents(ctx context.Context, groups repository.GroupRepository, logger zerolog.Logger, submission models.Submission) []uint {
	if submission.StudentID != nil {
		return []uint{*submission.StudentID}
	}
	if submission.GroupID == nil || groups == nil {
		return nil
	}
	members, err := groups.MemberIDs(ctx, *submission.GroupID)
	if err != nil {
		logger.Warn().Err(err).Uint("group_id", *submission.GroupID).Msg("failed to resolve group members")
		return nil
	}
	return members
}

func (s *submissionService) Get(ctx context.Context, id uint, viewer Actor) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !viewer.IsStaff() && !s.canView(ctx, submission, viewer.ID) {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}

	if viewer.IsStaff() {
		history, err := s.submissions.ListHistory(ctx, submission.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to load grading history")
		}
		submission.History = history
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) canView(ctx context.Context, submission models.Submission, studentID uint) bool {
	if submission.StudentID != nil {
		return *submission.StudentID == studentID
	}
	for _, member := range submissionStudents(ctx, s.groups, s.logger, submission) {
		if member == studentID {
			return true
		}
	}
	return false
}
