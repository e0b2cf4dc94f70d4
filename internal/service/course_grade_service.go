package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

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

var (
	// ErrCourseNotFound indicates the course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrStudentNotFound indicates the student does not exist.
	ErrStudentNotFound = errors.New("student not found")
)

// CourseGradeService computes a student's weighted course grade on demand.
type CourseGradeService interface {
	GetCourseGrade(ctx context.Context, courseID, studentID uint, policy string) (dto.CourseGradeResponse, error)
}

// CourseGradeRepositories groups the stores the course grade is computed from.
type CourseGradeRepositories struct {
	Courses     repository.CourseRepository
	Assignments repository.AssignmentRepository
	Submissions repository.SubmissionRepository
	Discussions repository.DiscussionRepository
	Groups      repository.GroupRepository
	Students    repository.StudentRepository
}

type courseGradeService struct {
	repos         CourseGradeRepositories
	cache         *CourseGradeCache
	defaultPolicy string
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewCourseGradeService builds the course grade aggregator. An empty policy
// name in a request selects defaultPolicy.
func NewCourseGradeService(repos CourseGradeRepositories, cache *CourseGradeCache, defaultPolicy string, logger zerolog.Logger) CourseGradeService {
	return &courseGradeService{
		repos:         repos,
		cache:         cache,
		defaultPolicy: grading.PolicyByName(defaultPolicy).Name(),
		logger:        logger.With().Str("component", "course_grade_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/gema-gradebook/internal/service/course_grade"),
		now:           time.Now,
	}
}

func (s *courseGradeService) GetCourseGrade(ctx context.Context, courseID, studentID uint, policyName string) (dto.CourseGradeResponse, error) {
	if strings.TrimSpace(policyName) == "" {
		policyName = s.defaultPolicy
	}
	policy := grading.PolicyByName(policyName)

	ctx, span := s.tracer.Start(ctx, "course_grade.aggregate", trace.WithAttributes(
		attribute.Int64("course_grade.course_id", int64(courseID)),
		attribute.Int64("course_grade.student_id", int64(studentID)),
		attribute.String("course_grade.policy", policy.Name()),
	))
	defer span.End()

	if cached, ok := s.cache.Get(ctx, courseID, studentID, policy.Name()); ok {
		observability.CourseGrades().WithLabelValues(policy.Name(), "hit").Inc()
		s.logger.Debug().Uint("course_id", courseID).Uint("student_id", studentID).Msg("course grade cache hit")
		return cached, nil
	}

	course, err := s.repos.Courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "course_not_found")
			return dto.CourseGradeResponse{}, ErrCourseNotFound
		}
		span.RecordError(err)
		return dto.CourseGradeResponse{}, err
	}

	if s.repos.Students != nil {
		exists, err := s.repos.Students.Exists(ctx, studentID)
		if err != nil {
			span.RecordError(err)
			return dto.CourseGradeResponse{}, err
		}
		if !exists {
			span.SetStatus(codes.Error, "student_not_found")
			return dto.CourseGradeResponse{}, ErrStudentNotFound
		}
	}

	items, err := s.collectItems(ctx, courseID, studentID)
	if err != nil {
		span.RecordError(err)
		return dto.CourseGradeResponse{}, err
	}

	now := s.now()
	result := grading.AggregateCourseGrade(policy, strconv.FormatUint(uint64(studentID), 10), courseDefinition(course), items, now)
	response := dto.NewCourseGradeResponse(courseID, studentID, result, now)

	s.cache.Set(ctx, response)
	observability.CourseGrades().WithLabelValues(policy.Name(), "miss").Inc()
	span.SetAttributes(
		attribute.Float64("course_grade.percent", result.Percent),
		attribute.String("course_grade.letter", result.Letter),
	)

	return response, nil
}

func courseDefinition(course models.Course) grading.Course {
	groups := make([]grading.CourseGroup, 0, len(course.Groups))
	for _, group := range course.Groups {
		groups = append(groups, grading.CourseGroup{Name: group.Name, Weight: group.Weight})
	}

	var scale []grading.ScaleRow
	for _, row := range course.GradeScale {
		scale = append(scale, grading.ScaleRow{Letter: row.Letter, Min: float64(row.Min), Max: float64(row.Max)})
	}

	return grading.Course{Groups: groups, Scale: scale}
}

// collectItems gathers every assignment and graded discussion of the course
// together with the student's grade and submission state for each.
func (s *courseGradeService) collectItems(ctx context.Context, courseID, studentID uint) ([]grading.Item, error) {
	assignments, err := s.repos.Assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	assignmentIDs := make([]uint, 0, len(assignments))
	var groupSetIDs []uint
	for _, assignment := range assignments {
		assignmentIDs = append(assignmentIDs, assignment.ID)
		if assignment.IsGroupAssignment && assignment.GroupSetID != nil {
			groupSetIDs = append(groupSetIDs, *assignment.GroupSetID)
		}
	}

	memberships := map[uint]uint{}
	if len(groupSetIDs) > 0 {
		memberships, err = s.repos.Groups.GroupsForStudent(ctx, studentID, groupSetIDs)
		if err != nil {
			return nil, err
		}
	}

	groupIDs := make([]uint, 0, len(memberships))
	for _, groupID := range memberships {
		groupIDs = append(groupIDs, groupID)
	}

	submissions, err := s.repos.Submissions.ListForStudent(ctx, assignmentIDs, studentID, groupIDs)
	if err != nil {
		return nil, err
	}

	type submissionKey struct {
		assignmentID uint
		groupID      uint
	}
	indexed := make(map[submissionKey]models.Submission, len(submissions))
	for _, submission := range submissions {
		key := submissionKey{assignmentID: submission.AssignmentID}
		if submission.GroupID != nil {
			key.groupID = *submission.GroupID
		}
		indexed[key] = submission
	}

	items := make([]grading.Item, 0, len(assignments))
	for _, assignment := range assignments {
		item := grading.Item{
			ID:          fmt.Sprintf("assignment:%d", assignment.ID),
			Kind:        grading.ItemAssignment,
			GroupName:   assignment.GroupName,
			TotalPoints: assignment.TotalPoints,
			DueDate:     assignment.DueDate,
			Published:   assignment.Published,
		}

		key := submissionKey{assignmentID: assignment.ID}
		if assignment.IsGroupAssignment {
			item.Kind = grading.ItemGroupAssignment
			if assignment.GroupSetID == nil {
				s.logger.Warn().Uint("assignment_id", assignment.ID).Msg("group assignment without group set skipped")
				continue
			}
			groupID, ok := memberships[*assignment.GroupSetID]
			if !ok {
				s.logger.Debug().Uint("assignment_id", assignment.ID).Uint("student_id", studentID).Msg("student has no group for assignment")
				continue
			}
			key.groupID = groupID
		}

		if submission, ok := indexed[key]; ok {
			item.Submitted = true
			item.Grade = studentGrade(submission, assignment, studentID)
		}
		items = append(items, item)
	}

	discussionItems, err := s.discussionItems(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	return append(items, discussionItems...), nil
}

// studentGrade picks the grade that applies to one student. Group
// assignments graded per member use that member's own grade.
func studentGrade(submission models.Submission, assignment models.Assignment, studentID uint) *float64 {
	if submission.IsGroup() && assignment.UseIndividualGrades {
		members := submission.MemberGrades.Data()
		value, ok := members[strconv.FormatUint(uint64(studentID), 10)]
		if !ok {
			return nil
		}
		return &value
	}
	return submission.EffectiveGrade()
}

func (s *courseGradeService) discussionItems(ctx context.Context, courseID, studentID uint) ([]grading.Item, error) {
	if s.repos.Discussions == nil {
		return nil, nil
	}

	discussions, err := s.repos.Discussions.ListGradedByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(discussions) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(discussions))
	for _, discussion := range discussions {
		ids = append(ids, discussion.ID)
	}
	entries, err := s.repos.Discussions.ListEntriesForStudent(ctx, ids, studentID)
	if err != nil {
		return nil, err
	}
	byDiscussion := make(map[uint]models.DiscussionEntry, len(entries))
	for _, entry := range entries {
		byDiscussion[entry.DiscussionID] = entry
	}

	items := make([]grading.Item, 0, len(discussions))
	for _, discussion := range discussions {
		item := grading.Item{
			ID:          fmt.Sprintf("discussion:%d", discussion.ID),
			Kind:        grading.ItemDiscussion,
			GroupName:   discussion.GroupName,
			TotalPoints: discussion.TotalPoints,
			DueDate:     discussion.DueDate,
			Published:   discussion.Published,
		}
		if entry, ok := byDiscussion[discussion.ID]; ok {
			item.Submitted = entry.Posted
			item.Grade = entry.Grade
		}
		items = append(items, item)
	}
	return items, nil
}
