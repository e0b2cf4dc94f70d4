package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-gradebook/internal/dto"
	"github.com/noah-isme/gema-gradebook/internal/grading"
	"github.com/noah-isme/gema-gradebook/internal/models"
)

func TestGradeScaleServiceReplaceAndResolve(t *testing.T) {
	f := newGradebookFixture(t)
	course := f.createCourse(t, models.CourseGroup{Name: "Exams", Weight: 100})
	student := f.createStudent(t, "Ada")
	exam := f.createAssignment(t, models.Assignment{CourseID: course.ID, GroupName: "Exams", TotalPoints: 100})
	f.createGradedSubmission(t, exam.ID, student.ID, 55)

	grades := f.courseGradeService("")
	before, err := grades.GetCourseGrade(context.Background(), course.ID, student.ID, "")
	require.NoError(t, err)
	require.Equal(t, "F", before.Letter)

	svc := NewGradeScaleService(f.courses, f.cache, f.validate, zerolog.Nop())
	response, err := svc.Replace(context.Background(), course.ID, dto.GradeScaleRequest{Rows: []dto.GradeScaleRowRequest{
		{Letter: "Fail", Min: 0, Max: 49},
		{Letter: " Pass ", Min: 50, Max: 100},
	}})
	require.NoError(t, err)
	require.Equal(t, "Pass", response.Rows[0].Letter)
	require.Equal(t, 50, response.Rows[0].Min)
	require.False(t, f.redis.Exists(courseGradeKey(course.ID, student.ID, "redistribute")))

	after, err := grades.GetCourseGrade(context.Background(), course.ID, student.ID, "")
	require.NoError(t, err)
	require.Equal(t, "Pass", after.Letter)

	stored, err := svc.Get(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, stored.Rows, 2)
}

func TestGradeScaleServiceRejectsInvalidScale(t *testing.T) {
	f := newGradebookFixture(t)
	course := f.createCourse(t)
	svc := NewGradeScaleService(f.courses, f.cache, f.validate, zerolog.Nop())

	_, err := svc.Replace(context.Background(), course.ID, dto.GradeScaleRequest{Rows: []dto.GradeScaleRowRequest{
		{Letter: "A", Min: 90, Max: 100},
		{Letter: "B", Min: 0, Max: 85},
	}})
	require.ErrorIs(t, err, grading.ErrInvalidScale)

	_, err = svc.Replace(context.Background(), course.ID, dto.GradeScaleRequest{})
	require.Error(t, err)

	_, err = svc.Replace(context.Background(), 999, dto.GradeScaleRequest{Rows: []dto.GradeScaleRowRequest{{Letter: "A", Min: 0, Max: 100}}})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestGradeScaleServiceDefaultsWhenUnset(t *testing.T) {
	f := newGradebookFixture(t)
	course := f.createCourse(t)
	svc := NewGradeScaleService(f.courses, f.cache, f.validate, zerolog.Nop())

	response, err := svc.Get(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, response.Rows, len(grading.DefaultScale))
	require.Equal(t, "A", response.Rows[0].Letter)
}
