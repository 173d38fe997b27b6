package adapters

import (
	"context"
	"fmt"
)

// PostgresClients persists the client registry.
type PostgresClients struct {
	db DB
}

// NewPostgresClients creates a client store.
func NewPostgresClients(db DB) *PostgresClients {
	return &PostgresClients{db: db}
}

const ensureClientSQL = `
INSERT INTO clients (odoo_id, name, ledger_tenant_id)
VALUES ($1, $2, $3)
ON CONFLICT (odoo_id) DO UPDATE SET
    name             = EXCLUDED.name,
    ledger_tenant_id = EXCLUDED.ledger_tenant_id
RETURNING id`

// EnsureClient creates or refreshes a client keyed by its CRM id and
// returns the local row id.
func (c *PostgresClients) EnsureClient(ctx context.Context, crmID int64, name string, tenant int) (int64, error) {
	var id int64
	if err := c.db.QueryRow(ctx, ensureClientSQL, crmID, name, tenant).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to ensure client %s: %w", name, err)
	}
	return id, nil
}
