package middleware

import (
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const AdminTokenHeader = "X-Admin-Token"

// HasAdminToken reports whether the request carries the static admin token.
// Used as a JWTProtected skip so scripted admin calls need no login.
func HasAdminToken(policy *services.AdminPolicy) func(*fiber.Ctx) bool {
	return func(c *fiber.Ctx) bool {
		return policy.TokenMatches(c.Get(AdminTokenHeader))
	}
}

// AdminRequired admits the admin token or a JWT whose subject the policy
// allows. It must run after JWTProtected.
func AdminRequired(policy *services.AdminPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if policy.TokenMatches(c.Get(AdminTokenHeader)) {
			return c.Next()
		}

		uid, ok := GetUserID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if policy.Allows(c.UserContext(), uid, GetEmail(c)) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}
