package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tracking-sentinel/internal/core/cache"
	"tracking-sentinel/internal/core/logger"
	claimports "tracking-sentinel/internal/features/claims/ports"
	"tracking-sentinel/internal/features/runs/domain"
	runports "tracking-sentinel/internal/features/runs/ports"
	shipdomain "tracking-sentinel/internal/features/shipments/domain"
	shipports "tracking-sentinel/internal/features/shipments/ports"
)

// recentRunLimit caps how many run logs the stats endpoint returns.
const recentRunLimit = 14

// DailyRunner triggers the reconciliation flow.
type DailyRunner interface {
	RunDaily(ctx context.Context) (domain.RunStats, error)
	Running() bool
}

// Pinger checks one backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorResponse is the error payload returned by the API.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id"`
}

// HealthResponse reports the service and its backing stores.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// TriggerResponse acknowledges an accepted run trigger.
type TriggerResponse struct {
	Message string `json:"message"`
}

// StatsResponse aggregates operational counters and recent runs.
type StatsResponse struct {
	ShipmentsByStatus map[shipdomain.NormalizedStatus]int `json:"shipments_by_status"`
	OpenClaims        int                                 `json:"open_claims"`
	LedgerTenants     []int                               `json:"ledger_tenants"`
	RecentRuns        []domain.RunLog                     `json:"recent_runs"`
}

// Handler serves the operations endpoints.
type Handler struct {
	runner DailyRunner
	runs   runports.RunRepository
	store  shipports.ShipmentStore
	source shipports.ShipmentSource
	claims claimports.ClaimRepository
	db     Pinger
	cache  cache.Cache
	log    *zap.Logger
}

// NewHandler creates the operations handler.
func NewHandler(runner DailyRunner, runs runports.RunRepository, store shipports.ShipmentStore, source shipports.ShipmentSource, claims claimports.ClaimRepository, db Pinger, cacheClient cache.Cache) *Handler {
	return &Handler{
		runner: runner,
		runs:   runs,
		store:  store,
		source: source,
		claims: claims,
		db:     db,
		cache:  cacheClient,
		log:    logger.Get().Named("runs_handler"),
	}
}

// RegisterRoutes mounts the operations endpoints on the app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Post("/run", h.Trigger)
	app.Get("/stats", h.Stats)
}

// Health godoc
// @Summary Service and database health
// @Tags operations
// @Produce json
// @Success 200 {object} handler.HealthResponse
// @Router /health [get]
func (h *Handler) Health(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ok", Database: "ok", Cache: "ok"}
	if err := h.db.Ping(c.Context()); err != nil {
		h.log.Error("Database ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}
	if err := h.cache.Ping(c.Context()); err != nil {
		h.log.Error("Cache ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Cache = "unreachable"
	}
	return c.JSON(resp)
}

// Trigger godoc
// @Summary Trigger the daily reconciliation flow
// @Tags operations
// @Produce json
// @Success 202 {object} handler.TriggerResponse
// @Failure 409 {object} handler.ErrorResponse
// @Router /run [post]
func (h *Handler) Trigger(c *fiber.Ctx) error {
	if h.runner.Running() {
		return h.error(c, fiber.StatusConflict, "a daily run is already in progress")
	}
	go func() {
		if _, err := h.runner.RunDaily(context.Background()); err != nil {
			h.log.Error("Triggered run failed", zap.Error(err))
		}
	}()
	return c.Status(fiber.StatusAccepted).JSON(TriggerResponse{Message: "daily run started"})
}

// Stats godoc
// @Summary Shipment counters, ledger tenants, open claims and recent runs
// @Tags operations
// @Produce json
// @Success 200 {object} handler.StatsResponse
// @Failure 500 {object} handler.ErrorResponse
// @Router /stats [get]
func (h *Handler) Stats(c *fiber.Ctx) error {
	byStatus, err := h.store.CountByStatus(c.Context())
	if err != nil {
		h.log.Error("Failed to count shipments", zap.Error(err))
		return h.error(c, fiber.StatusInternalServerError, "failed to load shipment counters")
	}
	openClaims, err := h.claims.CountOpen(c.Context())
	if err != nil {
		h.log.Error("Failed to count open claims", zap.Error(err))
		return h.error(c, fiber.StatusInternalServerError, "failed to load claim counters")
	}
	tenants, err := h.source.Tenants(c.Context())
	if err != nil {
		h.log.Error("Failed to list ledger tenants", zap.Error(err))
		return h.error(c, fiber.StatusInternalServerError, "failed to load ledger tenants")
	}
	runs, err := h.runs.Recent(c.Context(), recentRunLimit)
	if err != nil {
		h.log.Error("Failed to load run logs", zap.Error(err))
		return h.error(c, fiber.StatusInternalServerError, "failed to load run logs")
	}
	return c.JSON(StatsResponse{
		ShipmentsByStatus: byStatus,
		OpenClaims:        openClaims,
		LedgerTenants:     tenants,
		RecentRuns:        runs,
	})
}

func (h *Handler) error(c *fiber.Ctx, code int, msg string) error {
	rayID, _ := c.Locals("requestid").(string)
	return c.Status(code).JSON(ErrorResponse{Message: msg, RayID: rayID})
}
