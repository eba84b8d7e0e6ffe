package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func claims(c *fiber.Ctx) jwt.MapClaims {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	mc, _ := token.Claims.(jwt.MapClaims)
	return mc
}

// GetUserID returns the authenticated user's ID from the JWT subject.
func GetUserID(c *fiber.Ctx) (string, bool) {
	sub, _ := claims(c)["sub"].(string)
	return sub, sub != ""
}

func GetEmail(c *fiber.Ctx) string {
	email, _ := claims(c)["email"].(string)
	return email
}
