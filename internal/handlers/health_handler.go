package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping    func() error
	catalog *catalog.Catalog
}

func NewHealthHandler(ping func() error, products *catalog.Catalog) *HealthHandler {
	return &HealthHandler{ping: ping, catalog: products}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status, dbStatus := "ok", "ok"
	if err := h.ping(); err != nil {
		status, dbStatus = "degraded", "unhealthy: "+err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		DB:           dbStatus,
		ProductCount: len(h.catalog.All()),
	})
}
