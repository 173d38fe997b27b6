package ports

import (
	"context"

	"tracking-sentinel/internal/features/shipments/domain"
)

// CarrierTracker queries the carrier API for current shipment state.
type CarrierTracker interface {
	// TrackBatch resolves the current state of up to the carrier's batch
	// limit of tracking numbers. Larger inputs are split internally; the
	// result preserves one entry per tracking number the carrier answered.
	TrackBatch(ctx context.Context, trackingNumbers []string) ([]domain.StatusUpdate, error)
}
