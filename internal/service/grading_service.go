package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/dto"
	"github.com/noah-isme/gema-gradebook/internal/grading"
	"github.com/noah-isme/gema-gradebook/internal/models"
	"github.com/noah-isme/gema-gradebook/internal/observability"
	"github.com/noah-isme/gema-gradebook/internal/repository"
)

// GradingService applies teacher grading actions to submissions.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest, actor Actor) (dto.SubmissionResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	groups      repository.GroupRepository
	cache       *CourseGradeCache
	events      GradeEventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(submissions repository.SubmissionRepository, assignments repository.AssignmentRepository, groups repository.GroupRepository, cache *CourseGradeCache, events GradeEventPublisher, validate *validator.Validate, logger zerolog.Logger) GradingService {
	if events == nil {
		events = noopGradePublisher{}
	}
	return &gradingService{
		submissions: submissions,
		assignments: assignments,
		groups:      groups,
		cache:       cache,
		events:      events,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-gradebook/internal/service/grading"),
		now:         time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest, actor Actor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.merge", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.Bool("grading.approve", payload.ApproveGrade),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	var (
		key      *grading.AssignmentKey
		courseID uint
	)
	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	switch {
	case err == nil:
		key = assignmentKey(assignment)
		courseID = assignment.CourseID
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Warn().
			Uint("submission_id", submission.ID).
			Uint("assignment_id", submission.AssignmentID).
			Msg("assignment missing, grading from stored auto-grade")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignment_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	questionGrades, rejected := grading.ParseQuestionGrades(payload.QuestionGrades)
	input := grading.TeacherInput{
		ApproveGrade:   payload.ApproveGrade,
		QuestionGrades: questionGrades,
		MemberGrades:   rawGrades(payload.MemberGrades),
	}
	if payload.Grade != nil {
		raw := rawGrade(payload.Grade)
		input.Grade = &raw
	}

	if err := s.checkMembers(ctx, submission, input.MemberGrades); err != nil {
		span.SetStatus(codes.Error, "unknown_member")
		return dto.SubmissionResponse{}, err
	}

	before := submissionState(submission)
	result, err := grading.Merge(before, key, input)
	if err != nil {
		span.SetStatus(codes.Error, "merge_rejected")
		return dto.SubmissionResponse{}, err
	}

	anomalies := make([]string, 0, len(rejected)+len(result.Anomalies))
	for _, question := range rejected {
		anomalies = append(anomalies, "question "+question+": rejected non-numeric grade")
	}
	anomalies = append(anomalies, result.Anomalies...)

	feedback := submission.Feedback
	if payload.Feedback != nil {
		feedback = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Feedback))
	}

	span.SetAttributes(attribute.String("grading.mode", string(result.Mode)))

	unchanged := sameGrading(before, result.Submission) && feedback == submission.Feedback
	if unchanged && submission.IsGraded() && submission.GradedBy != nil && *submission.GradedBy == actor.ID {
		span.SetAttributes(attribute.Bool("grading.idempotent", true))
		response := dto.NewSubmissionResponse(submission)
		response.Anomalies = anomalies
		return response, nil
	}

	gradedAt := s.now().UTC()
	gradedBy := actor.ID
	applySubmissionState(&submission, result.Submission)
	submission.Feedback = feedback
	submission.Status = models.SubmissionStatusGraded
	submission.GradedBy = &gradedBy
	submission.GradedAt = &gradedAt

	var score float64
	if submission.FinalGrade != nil {
		score = *submission.FinalGrade
	}
	history := models.SubmissionGradeHistory{
		Mode:     string(result.Mode),
		Score:    score,
		Feedback: feedback,
		GradedBy: actor.ID,
		GradedAt: gradedAt,
	}

	if err := s.submissions.UpdateGrading(ctx, &submission, &history); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			span.SetStatus(codes.Error, "version_conflict")
			return dto.SubmissionResponse{}, ErrSubmissionConflict
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	observability.GradingMerges().WithLabelValues(string(result.Mode)).Inc()
	if len(anomalies) > 0 {
		observability.GradingAnomalies().WithLabelValues(string(result.Mode)).Add(float64(len(anomalies)))
		s.logger.Warn().
			Uint("submission_id", submission.ID).
			Str("mode", string(result.Mode)).
			Strs("anomalies", anomalies).
			Msg("grading merge reported anomalies")
	}

	students := submissionStudents(ctx, s.groups, s.logger, submission)
	if courseID != 0 {
		s.cache.InvalidateStudents(ctx, courseID, students...)
	}
	s.publish(ctx, submission, courseID, students, result.Mode)

	span.SetAttributes(attribute.Float64("grading.score", score))
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("graded_by", actor.ID).
		Str("mode", string(result.Mode)).
		Float64("final_grade", score).
		Msg("submission graded")

	response := dto.NewSubmissionResponse(submission)
	response.Anomalies = anomalies
	return response, nil
}

func (s *gradingService) publish(ctx context.Context, submission models.Submission, courseID uint, students []uint, mode grading.MergeMode) {
	event := dto.GradedEvent{
		ID:           uuid.NewString(),
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		CourseID:     courseID,
		StudentIDs:   students,
		Mode:         string(mode),
		FinalGrade:   submission.FinalGrade,
		GradedBy:     *submission.GradedBy,
		GradedAt:     submission.GradedAt.Format(time.RFC3339),
	}

	if err := s.events.PublishGraded(ctx, event); err != nil {
		observability.GradeEvents().WithLabelValues("failed").Inc()
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish grade event")
		return
	}
	observability.GradeEvents().WithLabelValues("published").Inc()
}

// checkMembers rejects member grades keyed by students outside the submitting group.
func (s *gradingService) checkMembers(ctx context.Context, submission models.Submission, memberGrades map[string]string) error {
	if len(memberGrades) == 0 || submission.GroupID == nil || s.groups == nil {
		return nil
	}

	members, err := s.groups.MemberIDs(ctx, *submission.GroupID)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(members))
	for _, id := range members {
		known[strconv.FormatUint(uint64(id), 10)] = struct{}{}
	}

	for member := range memberGrades {
		if _, ok := known[strings.TrimSpace(member)]; !ok {
			return fmt.Errorf("member %s is not in group %d: %w", member, *submission.GroupID, grading.ErrInvalidGrade)
		}
	}
	return nil
}
