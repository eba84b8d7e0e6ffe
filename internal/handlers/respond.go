package handlers

import (
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badBody(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
}

// userID returns the caller's ID or writes a 401.
func userID(c *fiber.Ctx) (string, bool) {
	uid, ok := middleware.GetUserID(c)
	if !ok {
		errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	return uid, ok
}
