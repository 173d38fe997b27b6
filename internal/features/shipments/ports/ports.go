package ports

import (
	"context"

	"tracking-sentinel/internal/features/shipments/domain"
)

// ShipmentSource reads reserve records from the upstream ledger. The ledger
// is owned by another system, so implementations must be strictly read-only.
type ShipmentSource interface {
	// FetchReserves returns every reserve, optionally filtered to one tenant
	// (tenant <= 0 means all tenants).
	FetchReserves(ctx context.Context, tenant int) ([]domain.Reserve, error)
	// Tenants returns the distinct tenant numbers present in the ledger.
	Tenants(ctx context.Context) ([]int, error)
}

// ShipmentStore persists the locally owned shipment state.
type ShipmentStore interface {
	// Upsert stores a shipment keyed by tracking number, creating or
	// refreshing the row.
	Upsert(ctx context.Context, s domain.ShipmentRecord) (int64, error)
	// ApplyTrackUpdate records the latest carrier state for a tracking
	// number, bumping last_status_change only when the status changed.
	ApplyTrackUpdate(ctx context.Context, u domain.StatusUpdate) error
	// RecordsByClient returns a client's shipments ordered by tracking
	// number.
	RecordsByClient(ctx context.Context, clientID int64) ([]domain.ShipmentRecord, error)
	// GetByTracking returns one shipment by tracking number.
	GetByTracking(ctx context.Context, trackingNumber string) (*domain.ShipmentRecord, error)
	// CountByStatus returns active shipment counts grouped by normalized status.
	CountByStatus(ctx context.Context) (map[domain.NormalizedStatus]int, error)
}

// ClientStore persists the locally owned client registry.
type ClientStore interface {
	// EnsureClient creates or refreshes a client keyed by its CRM id and
	// returns the local row id.
	EnsureClient(ctx context.Context, crmID int64, name string, tenant int) (int64, error)
}
