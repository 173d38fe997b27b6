package domain

// Reserve is one ledger record: an order-level reservation holding one or
// more physical packages.
type Reserve struct {
	// ID is the ledger record id.
	ID string `json:"id"`
	// Tenant is the ledger tenant number the reserve belongs to.
	Tenant int `json:"tenant"`
	// OrderID is the upstream order identifier.
	OrderID string `json:"order_id,omitempty"`
	// OrderNumber is the human-facing order number.
	OrderNumber string `json:"order_number,omitempty"`
	// ShippingPostalCode is the destination postal code.
	ShippingPostalCode string `json:"shipping_postal_code,omitempty"`
	// CreatedAt is the ledger creation timestamp, as stored.
	CreatedAt string `json:"created_at,omitempty"`
	// UpdatedAt is the ledger update timestamp, as stored.
	UpdatedAt string `json:"updated_at,omitempty"`
	// Packages are the physical packages with tracking numbers.
	Packages []Package `json:"packages"`
}

// Package is a single trackable package inside a reserve.
type Package struct {
	// ID is the ledger package id.
	ID string `json:"id"`
	// TrackingNumber is the carrier tracking number.
	TrackingNumber string `json:"tracking_number"`
	// Status is the ledger's last known status text for the package.
	Status string `json:"status,omitempty"`
	// PieceID identifies the piece within multi-piece shipments.
	PieceID string `json:"piece_id,omitempty"`
	// GrossWeight is the package weight as recorded in the ledger.
	GrossWeight float64 `json:"gross_weight,omitempty"`
}
