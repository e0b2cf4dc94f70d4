package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-gradebook/internal/utils"
)

var errInvalidSubject = errors.New("token subject is not a user id")

// Claims is the token payload issued by the platform's auth service. The
// subject holds the numeric user id; roles may arrive as a single role or a list.
type Claims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// PrimaryRole returns the first non-empty role carried by the token.
func (c Claims) PrimaryRole() string {
	if role := NormalizeRole(c.Role); role != "" {
		return role
	}
	for _, role := range c.Roles {
		if normalized := NormalizeRole(role); normalized != "" {
			return normalized
		}
	}
	return ""
}

// UserID parses the subject claim.
func (c Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidSubject
	}
	return uint(id), nil
}

// JWTProtected validates HMAC-signed bearer tokens and binds the caller's
// identity to the request.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		scheme, raw, found := strings.Cut(authorization, " ")
		raw = strings.TrimSpace(raw)
		if !found || !strings.EqualFold(scheme, "bearer") || raw == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		var claims Claims
		token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, err := claims.UserID()
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		SetIdentity(c, userID, claims.PrimaryRole())
		return c.Next()
	}
}
