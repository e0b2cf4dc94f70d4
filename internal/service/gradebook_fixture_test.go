package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/dto"
	"github.com/noah-isme/gema-gradebook/internal/models"
	"github.com/noah-isme/gema-gradebook/internal/repository"
)

type gradebookFixture struct {
	db          *gorm.DB
	redis       *miniredis.Miniredis
	cache       *CourseGradeCache
	validate    *validator.Validate
	events      *recordingPublisher
	courses     repository.CourseRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	discussions repository.DiscussionRepository
	groups      repository.GroupRepository
	students    repository.StudentRepository
}

func newGradebookFixture(t *testing.T) *gradebookFixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &gradebookFixture{
		db:          db,
		redis:       server,
		cache:       NewCourseGradeCache(client, time.Minute, zerolog.Nop()),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		events:      &recordingPublisher{},
		courses:     repository.NewCourseRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		discussions: repository.NewDiscussionRepository(db),
		groups:      repository.NewGroupRepository(db),
		students:    repository.NewStudentRepository(db),
	}
}

func (f *gradebookFixture) submissionService() SubmissionService {
	return NewSubmissionService(f.assignments, f.submissions, f.groups, f.cache, f.validate, zerolog.Nop())
}

func (f *gradebookFixture) gradingService() GradingService {
	return NewGradingService(f.submissions, f.assignments, f.groups, f.cache, f.events, f.validate, zerolog.Nop())
}

func (f *gradebookFixture) courseGradeService(policy string) CourseGradeService {
	return NewCourseGradeService(CourseGradeRepositories{
		Courses:     f.courses,
		Assignments: f.assignments,
		Submissions: f.submissions,
		Discussions: f.discussions,
		Groups:      f.groups,
		Students:    f.students,
	}, f.cache, policy, zerolog.Nop())
}

func (f *gradebookFixture) createStudent(t *testing.T, name string) models.Student {
	t.Helper()
	student := models.Student{Name: name, Email: strings.ToLower(name) + "@example.com"}
	require.NoError(t, f.students.Create(context.Background(), &student))
	return student
}

func (f *gradebookFixture) createCourse(t *testing.T, groups ...models.CourseGroup) models.Course {
	t.Helper()
	course := models.Course{Title: "Programming Languages", Groups: groups}
	require.NoError(t, f.courses.Create(context.Background(), &course))
	return course
}

func (f *gradebookFixture) createAssignment(t *testing.T, assignment models.Assignment) models.Assignment {
	t.Helper()
	assignment.Published = true
	if assignment.Title == "" {
		assignment.Title = "Assignment"
	}
	require.NoError(t, f.assignments.Create(context.Background(), &assignment))
	return assignment
}

func (f *gradebookFixture) createGradedSubmission(t *testing.T, assignmentID, studentID uint, grade float64) models.Submission {
	t.Helper()
	final := grade
	submission := models.Submission{
		AssignmentID: assignmentID,
		StudentID:    &studentID,
		Status:       models.SubmissionStatusGraded,
		Grade:        &final,
		FinalGrade:   &final,
	}
	require.NoError(t, f.submissions.Create(context.Background(), &submission))
	return submission
}

func quizQuestions() []models.Question {
	return []models.Question{
		{Position: 0, Kind: models.QuestionKindMultipleChoice, Points: 10, Options: datatypes.JSONSlice[models.QuestionOption]{
			{Text: "A"}, {Text: "B", Correct: true}, {Text: "C"},
		}},
		{Position: 1, Kind: models.QuestionKindMatching, Points: 10,
			LeftItems: datatypes.JSONSlice[models.MatchItem]{
				{ID: "1", Text: "Go"}, {ID: "2", Text: "Rust"}, {ID: "3", Text: "Python"}, {ID: "4", Text: "Ruby"},
			},
			RightItems: datatypes.JSONSlice[models.MatchItem]{
				{ID: "3", Text: "Guido"}, {ID: "1", Text: "Pike"}, {ID: "4", Text: "Matz"}, {ID: "2", Text: "Hoare"},
			},
		},
		{Position: 2, Kind: models.QuestionKindText, Points: 5},
	}
}

func quizAnswers() map[string]string {
	return map[string]string{
		"0": "B",
		"1": `{"0":"Pike","1":"Hoare","2":"Guido","3":"Hoare"}`,
		"2": "Go was designed at Google.",
	}
}

func ptrFloat(v float64) *float64 { return &v }

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.GradedEvent
	err    error
}

func (p *recordingPublisher) PublishGraded(_ context.Context, event dto.GradedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []dto.GradedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.GradedEvent(nil), p.events...)
}
