package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tracking-sentinel/internal/core/logger"
	"tracking-sentinel/internal/features/shipments/adapters"
	"tracking-sentinel/internal/features/shipments/ports"
)

// ErrorResponse is the error payload returned by the API.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id"`
}

// Handler serves shipment lookups.
type Handler struct {
	store ports.ShipmentStore
	log   *zap.Logger
}

// NewHandler creates the shipments handler.
func NewHandler(store ports.ShipmentStore) *Handler {
	return &Handler{
		store: store,
		log:   logger.Get().Named("shipments_handler"),
	}
}

// RegisterRoutes mounts the shipment endpoints on the app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/shipments/:trackingNumber", h.GetByTracking)
}

// GetByTracking godoc
// @Summary Shipment state by tracking number
// @Tags shipments
// @Produce json
// @Param trackingNumber path string true "Carrier tracking number"
// @Success 200 {object} domain.ShipmentRecord
// @Failure 404 {object} handler.ErrorResponse
// @Failure 500 {object} handler.ErrorResponse
// @Router /shipments/{trackingNumber} [get]
func (h *Handler) GetByTracking(c *fiber.Ctx) error {
	trackingNumber := c.Params("trackingNumber")
	record, err := h.store.GetByTracking(c.Context(), trackingNumber)
	if errors.Is(err, adapters.ErrShipmentNotFound) {
		return h.error(c, fiber.StatusNotFound, "shipment not found")
	}
	if err != nil {
		h.log.Error("Failed to load shipment",
			zap.String("tracking_number", trackingNumber),
			zap.Error(err))
		return h.error(c, fiber.StatusInternalServerError, "failed to load shipment")
	}
	return c.JSON(record)
}

func (h *Handler) error(c *fiber.Ctx, code int, msg string) error {
	rayID, _ := c.Locals("requestid").(string)
	return c.Status(code).JSON(ErrorResponse{Message: msg, RayID: rayID})
}
