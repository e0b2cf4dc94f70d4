package dto

// GradeSubmissionRequest is a teacher's grading action. Grade values arrive as
// raw JSON so malformed numbers can be rejected with a clear error instead of
// failing payload decoding.
type GradeSubmissionRequest struct {
	ApproveGrade   bool                   `json:"approve_grade"`
	QuestionGrades map[string]interface{} `json:"question_grades"`
	Grade          interface{}            `json:"grade"`
	MemberGrades   map[string]interface{} `json:"member_grades"`
	Feedback       *string                `json:"feedback" validate:"omitempty,max=5000"`
}

// GradedEvent is published after a submission receives a grade.
type GradedEvent struct {
	ID           string   `json:"id"`
	SubmissionID uint     `json:"submission_id"`
	AssignmentID uint     `json:"assignment_id"`
	CourseID     uint     `json:"course_id"`
	StudentIDs   []uint   `json:"student_ids"`
	Mode         string   `json:"mode"`
	FinalGrade   *float64 `json:"final_grade"`
	GradedBy     uint     `json:"graded_by"`
	GradedAt     string   `json:"graded_at"`
}
