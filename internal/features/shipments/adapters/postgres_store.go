package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tracking-sentinel/internal/features/shipments/domain"
)

// ErrShipmentNotFound is returned when a tracking number has no stored row.
var ErrShipmentNotFound = errors.New("shipment not found")

// DB is the subset of pgxpool.Pool the store needs. Both the real pool and
// pgxmock satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists shipments in Postgres.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertShipmentSQL = `
INSERT INTO shipments (tracking_number, client_id, client_name_raw, order_number, tenant, ledger_data)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tracking_number) DO UPDATE SET
    client_id       = COALESCE(EXCLUDED.client_id, shipments.client_id),
    client_name_raw = COALESCE(EXCLUDED.client_name_raw, shipments.client_name_raw),
    order_number    = COALESCE(EXCLUDED.order_number, shipments.order_number),
    tenant          = EXCLUDED.tenant,
    ledger_data     = COALESCE(EXCLUDED.ledger_data, shipments.ledger_data),
    updated_at      = NOW()
RETURNING id`

// Upsert creates or refreshes a shipment row from ledger data and returns
// the row id.
func (s *PostgresStore) Upsert(ctx context.Context, r domain.ShipmentRecord) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, upsertShipmentSQL,
		r.TrackingNumber, r.ClientID, r.ClientNameRaw, r.OrderNumber, r.Tenant, r.LedgerData,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert shipment %s: %w", r.TrackingNumber, err)
	}
	return id, nil
}

const applyUpdateSQL = `
UPDATE shipments SET
    last_status_change      = CASE WHEN normalized_status IS DISTINCT FROM $2 THEN NOW() ELSE last_status_change END,
    normalized_status       = $2,
    carrier_status          = COALESCE(NULLIF($3, ''), carrier_status),
    carrier_status_code     = COALESCE(NULLIF($4, ''), carrier_status_code),
    is_delivered            = $5,
    label_creation_date     = COALESCE($6, label_creation_date),
    ship_date               = COALESCE($7, ship_date),
    delivery_date           = COALESCE($8, delivery_date),
    estimated_delivery_date = COALESCE($9, estimated_delivery_date),
    destination_city        = COALESCE(NULLIF($10, ''), destination_city),
    destination_state       = COALESCE(NULLIF($11, ''), destination_state),
    destination_country     = COALESCE(NULLIF($12, ''), destination_country),
    raw_carrier_response    = COALESCE($13, raw_carrier_response),
    last_carrier_check      = NOW(),
    carrier_check_count     = carrier_check_count + 1,
    updated_at              = NOW()
WHERE tracking_number = $1`

// ApplyTrackUpdate records the latest carrier state. last_status_change
// only moves when the normalized status actually changed.
func (s *PostgresStore) ApplyTrackUpdate(ctx context.Context, u domain.StatusUpdate) error {
	tag, err := s.db.Exec(ctx, applyUpdateSQL,
		u.TrackingNumber, u.NormalizedStatus, u.CarrierStatus, u.CarrierStatusCode,
		u.IsDelivered, u.LabelCreationDate, u.ShipDate, u.DeliveryDate,
		u.EstimatedDeliveryDate, u.DestinationCity, u.DestinationState,
		u.DestinationCountry, u.Raw,
	)
	if err != nil {
		return fmt.Errorf("failed to apply update for %s: %w", u.TrackingNumber, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrShipmentNotFound, u.TrackingNumber)
	}
	return nil
}

const shipmentColumns = `
    id, tracking_number, client_id, client_name_raw, order_number, tenant,
    normalized_status, carrier_status, carrier_status_code,
    label_creation_date, ship_date, delivery_date, estimated_delivery_date,
    destination_city, destination_state, destination_country,
    is_delivered, last_carrier_check, last_status_change, carrier_check_count,
    raw_carrier_response, ledger_data, created_at, updated_at`

// RecordsByClient returns a client's shipments ordered by tracking number
// for deterministic runs.
func (s *PostgresStore) RecordsByClient(ctx context.Context, clientID int64) ([]domain.ShipmentRecord, error) {
	var records []domain.ShipmentRecord
	query := "SELECT" + shipmentColumns + " FROM shipments WHERE client_id = $1 ORDER BY tracking_number"
	if err := pgxscan.Select(ctx, s.db, &records, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to load shipments for client %d: %w", clientID, err)
	}
	return records, nil
}

// GetByTracking returns one shipment by tracking number.
func (s *PostgresStore) GetByTracking(ctx context.Context, trackingNumber string) (*domain.ShipmentRecord, error) {
	var r domain.ShipmentRecord
	query := "SELECT" + shipmentColumns + " FROM shipments WHERE tracking_number = $1"
	if err := pgxscan.Get(ctx, s.db, &r, query, trackingNumber); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrShipmentNotFound, trackingNumber)
		}
		return nil, fmt.Errorf("failed to load shipment %s: %w", trackingNumber, err)
	}
	return &r, nil
}

// CountByStatus returns active shipment counts grouped by normalized status.
func (s *PostgresStore) CountByStatus(ctx context.Context) (map[domain.NormalizedStatus]int, error) {
	rows, err := s.db.Query(ctx,
		"SELECT normalized_status, COUNT(*) FROM shipments WHERE is_delivered = FALSE GROUP BY normalized_status")
	if err != nil {
		return nil, fmt.Errorf("failed to count shipments: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.NormalizedStatus]int)
	for rows.Next() {
		var status domain.NormalizedStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}
	return counts, nil
}
