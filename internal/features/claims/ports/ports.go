package ports

import (
	"context"

	anomalies "tracking-sentinel/internal/features/anomalies/domain"
	"tracking-sentinel/internal/features/claims/domain"
)

// ClaimRepository persists proactive claims.
type ClaimRepository interface {
	// Exists reports whether a claim already exists for the pair.
	Exists(ctx context.Context, trackingNumber string, rule anomalies.Rule) (bool, error)
	// Create stores a new claim and returns its id.
	Create(ctx context.Context, c domain.Claim) (int64, error)
	// CountOpen returns how many claims are still open.
	CountOpen(ctx context.Context) (int, error)
}
