package domain

import (
	"time"

	anomalies "tracking-sentinel/internal/features/anomalies/domain"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	// StatusOpen is the initial state of every automatically opened claim.
	StatusOpen ClaimStatus = "abierto"
	// StatusInProgress marks claims being worked by the operations team.
	StatusInProgress ClaimStatus = "en_proceso"
	// StatusClosed marks resolved claims.
	StatusClosed ClaimStatus = "cerrado"
)

// Claim is a proactive claim opened from a detected anomaly. At most one
// claim exists per (tracking number, rule) pair.
type Claim struct {
	ID             int64               `db:"id" json:"id"`
	TrackingNumber string              `db:"tracking_number" json:"tracking_number"`
	ShipmentID     *int64              `db:"shipment_id" json:"shipment_id,omitempty"`
	ClientID       *int64              `db:"client_id" json:"client_id,omitempty"`
	ClaimType      anomalies.ClaimType `db:"claim_type" json:"claim_type"`
	Rule           anomalies.Rule      `db:"rule" json:"rule"`
	Description    string              `db:"description" json:"description"`
	Status         ClaimStatus         `db:"status" json:"status"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}

// FromAnomaly builds the claim an anomaly should open.
func FromAnomaly(a anomalies.Anomaly) Claim {
	return Claim{
		TrackingNumber: a.TrackingNumber,
		ShipmentID:     a.ShipmentID,
		ClientID:       a.ClientID,
		ClaimType:      a.ClaimType,
		Rule:           a.Rule,
		Description:    a.Description,
		Status:         StatusOpen,
	}
}
