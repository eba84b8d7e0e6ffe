package middleware

import (
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected validates the bearer token. Requests for which skip returns
// true pass through untouched.
func JWTProtected(cfg *config.Config, skip ...func(*fiber.Ctx) bool) fiber.Handler {
	jc := jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWT.Secret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	}
	if len(skip) > 0 {
		jc.Filter = func(c *fiber.Ctx) bool {
			for _, fn := range skip {
				if fn(c) {
					return true
				}
			}
			return false
		}
	}
	return jwtware.New(jc)
}
