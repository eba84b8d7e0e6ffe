package handlers

import (
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func adminError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{
			Error: true, Message: "Invalid shipping address", Fields: verr.Fields,
		})
	case errors.Is(err, repository.ErrOrderNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Order not found")
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrConfirmationRequired),
		errors.Is(err, services.ErrAWBRequired),
		errors.Is(err, services.ErrNoTrackingNumber),
		errors.Is(err, services.ErrEmptyCart):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return err
}

func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.admin.ListOrders(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.admin.UpdateStatus(c.UserContext(), c.Params("uid"), c.Params("key"), req.Status); err != nil {
		return adminError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *AdminHandler) CancelOrder(c *fiber.Ctx) error {
	var req dto.CancelOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.admin.CancelOrder(c.UserContext(), c.Params("uid"), c.Params("key"), req.Reason); err != nil {
		return adminError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// DeleteOrder requires ?confirm=true.
func (h *AdminHandler) DeleteOrder(c *fiber.Ctx) error {
	confirm := c.QueryBool("confirm", false)
	if err := h.admin.DeleteOrder(c.UserContext(), c.Params("uid"), c.Params("key"), confirm); err != nil {
		return adminError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *AdminHandler) UpdateShipment(c *fiber.Ctx) error {
	var req services.ShipmentUpdate
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	sh, err := h.admin.UpdateShipment(c.UserContext(), c.Params("uid"), c.Params("key"), req)
	if err != nil {
		return adminError(c, err)
	}
	return c.JSON(sh)
}

func (h *AdminHandler) RefreshTracking(c *fiber.Ctx) error {
	raw, sh, err := h.admin.RefreshTracking(c.UserContext(), c.Params("uid"), c.Params("key"))
	if err != nil {
		if errors.Is(err, services.ErrNoTrackingNumber) || errors.Is(err, repository.ErrOrderNotFound) {
			return adminError(c, err)
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.GatewayErrorResponse{
			Error:   "Tracking failed, check the AWB number",
			Details: err.Error(),
		})
	}
	return c.JSON(fiber.Map{"shipment": sh, "tracking": raw})
}

func (h *AdminHandler) RefreshAllTracking(c *fiber.Ctx) error {
	sum, err := h.admin.RefreshAllTracking(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

func (h *AdminHandler) CreateOrder(c *fiber.Ctx) error {
	var req services.ManualOrderInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	o, err := h.admin.CreateManualOrder(c.UserContext(), req)
	if err != nil {
		return adminError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

func (h *AdminHandler) ExportOrders(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="orders-%s.xlsx"`, c.Context().Time().Format("20060102")))
	return h.admin.ExportOrders(c.UserContext(), c.Response().BodyWriter())
}
