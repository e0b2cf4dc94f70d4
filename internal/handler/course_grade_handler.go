package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-gradebook/internal/dto"
	"github.com/noah-isme/gema-gradebook/internal/grading"
	"github.com/noah-isme/gema-gradebook/internal/service"
	"github.com/noah-isme/gema-gradebook/internal/utils"
)

// CourseGradeHandler serves course grade and grade scale endpoints.
type CourseGradeHandler struct {
	grades service.CourseGradeService
	scales service.GradeScaleService
	logger zerolog.Logger
}

// NewCourseGradeHandler constructs the handler.
func NewCourseGradeHandler(grades service.CourseGradeService, scales service.GradeScaleService, logger zerolog.Logger) *CourseGradeHandler {
	return &CourseGradeHandler{
		grades: grades,
		scales: scales,
		logger: logger.With().Str("component", "course_grade_handler").Logger(),
	}
}

// Register attaches the read endpoints. ReplaceScale is mounted by the router
// behind a staff role guard.
func (h *CourseGradeHandler) Register(router fiber.Router) {
	router.Get("/:id/grade", h.courseGrade)
	router.Get("/:id/grade-scale", h.gradeScale)
}

func (h *CourseGradeHandler) courseGrade(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	requested, err := parseUintQuery(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
	}

	policy := strings.ToLower(strings.TrimSpace(c.Query("policy")))
	if policy != "" && policy != grading.PolicyRedistribute && policy != grading.PolicyLegacy {
		return utils.SendError(c, fiber.StatusBadRequest, "unknown aggregation policy")
	}

	actor := actorFromContext(c)
	studentID := requested
	if actor.IsStaff() {
		if studentID == 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "student_id is required")
		}
	} else {
		if actor.ID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if studentID != 0 && studentID != actor.ID {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		studentID = actor.ID
	}

	grade, err := h.grades.GetCourseGrade(c.UserContext(), courseID, studentID, policy)
	if err != nil {
		return h.handleError(c, err, "failed to compute course grade")
	}

	return utils.OK(c, grade, "course grade computed", fiber.Map{"policy": grade.Policy})
}

func (h *CourseGradeHandler) gradeScale(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	scale, err := h.scales.Get(c.UserContext(), courseID)
	if err != nil {
		return h.handleError(c, err, "failed to load grade scale")
	}

	return utils.SendSuccess(c, "grade scale retrieved", scale)
}

// ReplaceScale stores a new letter scale for the course.
func (h *CourseGradeHandler) ReplaceScale(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeScaleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	scale, err := h.scales.Replace(c.UserContext(), courseID, payload)
	if err != nil {
		return h.handleError(c, err, "failed to replace grade scale")
	}

	return utils.SendSuccess(c, "grade scale updated", scale)
}

func (h *CourseGradeHandler) handleError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, grading.ErrInvalidScale), isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
