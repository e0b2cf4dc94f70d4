package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Gradebook roles. Teachers and admins are staff.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

const (
	localUserID   = "user_id"
	localUserRole = "user_role"
)

// SetIdentity binds the authenticated caller to the request.
func SetIdentity(c *fiber.Ctx, userID uint, role string) {
	if userID != 0 {
		c.Locals(localUserID, userID)
	}
	if role = NormalizeRole(role); role != "" {
		c.Locals(localUserRole, role)
	}
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c *fiber.Ctx) uint {
	switch v := c.Locals(localUserID).(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

// UserRole returns the normalized role of the caller.
func UserRole(c *fiber.Ctx) string {
	role, _ := c.Locals(localUserRole).(string)
	return NormalizeRole(role)
}

// NormalizeRole lowercases and trims a role name.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// IsStaff reports whether role may grade and edit grade scales.
func IsStaff(role string) bool {
	switch NormalizeRole(role) {
	case RoleTeacher, RoleAdmin:
		return true
	}
	return false
}
