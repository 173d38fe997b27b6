package adapters

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	anomalies "tracking-sentinel/internal/features/anomalies/domain"
	"tracking-sentinel/internal/features/claims/domain"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores claims in Postgres.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a claim repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Exists reports whether a claim already exists for the tracking number and
// rule pair.
func (r *PostgresRepository) Exists(ctx context.Context, trackingNumber string, rule anomalies.Rule) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM claims WHERE tracking_number = $1 AND rule = $2",
		trackingNumber, rule,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check claim existence for %s: %w", trackingNumber, err)
	}
	return count > 0, nil
}

const createClaimSQL = `
INSERT INTO claims (tracking_number, shipment_id, client_id, claim_type, rule, description, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

// Create stores a new claim and returns its id.
func (r *PostgresRepository) Create(ctx context.Context, c domain.Claim) (int64, error) {
	status := c.Status
	if status == "" {
		status = domain.StatusOpen
	}
	var id int64
	err := r.db.QueryRow(ctx, createClaimSQL,
		c.TrackingNumber, c.ShipmentID, c.ClientID, c.ClaimType, c.Rule, c.Description, status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create claim for %s: %w", c.TrackingNumber, err)
	}
	return id, nil
}

// CountOpen returns how many claims are still open.
func (r *PostgresRepository) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM claims WHERE status = $1", domain.StatusOpen,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open claims: %w", err)
	}
	return count, nil
}
