package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-gradebook/internal/models"
)

func standardCourseGroups() []models.CourseGroup {
	return []models.CourseGroup{
		{Name: "Homework", Weight: 15},
		{Name: "Quizzes", Weight: 30},
		{Name: "Exams", Weight: 20},
		{Name: "Participation", Weight: 20},
		{Name: "Projects", Weight: 15},
	}
}

func TestCourseGradeServiceRedistributesUngradedWeight(t *testing.T) {
	f := newGradebookFixture(t)
	course := f.createCourse(t, standardCourseGroups()...)
	student := f.createStudent(t, "Ada")
	future := time.Now().Add(72 * time.Hour)

	quiz1 := f.createAssignment(t, models.Assignment{CourseID: course.ID, GroupName: "Quizzes", TotalPoints: 10})
	quiz2 := f.createAssignment(t, models.Assignment{CourseID: course.ID, GroupName: "quizzes", TotalPoints: 20})
	exam := f.createAssignment(t, models.Assignment{CourseID: course.ID, GroupName: "Exams", TotalPoints: 100})
	f.createAssignment(t, models.Assignment{CourseID: course.ID, GroupName: "Homework", TotalPoints: 10, DueDate: &future})

	f.createGradedSubmission(t, quiz1.ID, student.ID, 8)
	f.createGradedSubmission(t, quiz2.ID, student.ID, 16)
	f.createGradedSubmission(t, exam.ID, student.ID, 90)

	response, err := f.courseGradeService("").GetCourseGrade(context.Background(), course.ID, student.ID, "")
	require.NoError(t, err)
	require.Equal(t, "redistribute", response.Policy)
	require.InDelta(t, 84.0, response.Percent, 1e-9)
	require.Equal(t, "B", response.Letter)
	require.Len(t, response.Groups, 5)

	var total float64
	for _, group := range response.Groups {
		total += group.AdjustedWeight
	}
	require.InDelta(t, 100.0, total+response.Other.AdjustedWeight, 1e-9)
}

func TestCourseGradeServiceUsesCacheAndPolicies(t *testing.T) {
	f := newGradebookFixture(t)
	course := f.createCourse(t, models.CourseGroup{Name: "Quizzes", Weight: 1}, models.CourseGroup{Name: "Exams", Weight: 3})
	student := f.createStudent(t, "Grace")

	quiz := f.createAssignment(t, models.Assignment{CourseID: course.ID, GroupName: "Quizzes", TotalPoints: 10})
	extra := f.createAssignment(t, models.Assignment{CourseID: course.ID, GroupName: "Extra credit", TotalPoints: 10})
	f.createGradedSubmission(t, quiz.ID, student.ID, 10)
	f.createGradedSubmission(t, extra.ID, student.ID, 5)

	svc := f.courseGradeService("legacy")
	legacy, err := svc.GetCourseGrade(context.Background(), course.ID, student.ID, "")
	require.NoError(t, err)
	require.Equal(t, "legacy", legacy.Policy)
	require.InDelta(t, 62.5, legacy.Percent, 1e-9)
	require.True(t, f.redis.Exists(courseGradeKey(course.ID, student.ID, "legacy")))

	redistributed, err := svc.GetCourseGrade(context.Background(), course.ID, student.ID, "redistribute")
	require.NoError(t, err)
	require.InDelta(t, 52.0, redistributed.Percent, 1e-9)

	require.NoError(t, f.db.Model(&models.Submission{}).Where("assignment_id = ?", quiz.ID).Update("final_grade", 0).Error)
	cached, err := svc.GetCourseGrade(context.Background(), course.ID, student.ID, "legacy")
	require.NoError(t, err)
	require.Equal(t, legacy.Percent, cached.Percent)
}

func TestCourseGradeServiceGroupAndDiscussionItems(t *testing.T) {
	f := newGradebookFixture(t)
	course := f.createCourse(t, models.CourseGroup{Name: "Projects", Weight: 50}, models.CourseGroup{Name: "Participation", Weight: 50})
	ada := f.createStudent(t, "Ada")
	grace := f.createStudent(t, "Grace")

	set := models.GroupSet{CourseID: course.ID, Name: "Teams", Groups: []models.StudentGroup{
		{Name: "Team 1", Members: []models.GroupMember{{StudentID: ada.ID}, {StudentID: grace.ID}}},
	}}
	require.NoError(t, f.db.Create(&set).Error)
	groupID := set.Groups[0].ID

	project := f.createAssignment(t, models.Assignment{
		CourseID:            course.ID,
		GroupName:           "Projects",
		TotalPoints:         100,
		IsGroupAssignment:   true,
		GroupSetID:          &set.ID,
		UseIndividualGrades: true,
	})
	memberGrades := map[string]float64{
		strconv.FormatUint(uint64(ada.ID), 10):   70,
		strconv.FormatUint(uint64(grace.ID), 10): 90,
	}
	submission := models.Submission{
		AssignmentID: project.ID,
		GroupID:      &groupID,
		Status:       models.SubmissionStatusGraded,
		FinalGrade:   ptrFloat(80),
		Grade:        ptrFloat(80),
		MemberGrades: datatypes.NewJSONType(memberGrades),
	}
	require.NoError(t, f.submissions.Create(context.Background(), &submission))

	discussion := models.Discussion{CourseID: course.ID, Title: "Week 1", Graded: true, Published: true, GroupName: "Participation", TotalPoints: 10}
	require.NoError(t, f.db.Create(&discussion).Error)
	require.NoError(t, f.db.Create(&models.DiscussionEntry{DiscussionID: discussion.ID, StudentID: ada.ID, Posted: true, Grade: ptrFloat(10)}).Error)

	svc := f.courseGradeService("")
	adaGrade, err := svc.GetCourseGrade(context.Background(), course.ID, ada.ID, "")
	require.NoError(t, err)
	require.InDelta(t, 85.0, adaGrade.Percent, 1e-9)

	graceGrade, err := svc.GetCourseGrade(context.Background(), course.ID, grace.ID, "")
	require.NoError(t, err)
	require.InDelta(t, 90.0, graceGrade.Percent, 1e-9)
}

func TestCourseGradeServiceNotFound(t *testing.T) {
	f := newGradebookFixture(t)
	course := f.createCourse(t)
	student := f.createStudent(t, "Alan")
	svc := f.courseGradeService("")

	_, err := svc.GetCourseGrade(context.Background(), 999, student.ID, "")
	require.ErrorIs(t, err, ErrCourseNotFound)

	_, err = svc.GetCourseGrade(context.Background(), course.ID, 999, "")
	require.ErrorIs(t, err, ErrStudentNotFound)

	empty, err := svc.GetCourseGrade(context.Background(), course.ID, student.ID, "")
	require.NoError(t, err)
	require.Zero(t, empty.Percent)
	require.Equal(t, "F", empty.Letter)
	require.NotNil(t, empty.Groups)
}
