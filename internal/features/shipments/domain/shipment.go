package domain

// NormalizedStatus is the closed internal vocabulary a shipment's
// carrier-reported state is mapped into. Downstream logic never sees raw
// vendor codes, only these values.
type NormalizedStatus string

const (
	// StatusLabelCreated indicates a shipping label exists but the carrier has not received the package.
	StatusLabelCreated NormalizedStatus = "label_created"
	// StatusPickedUp indicates the carrier has received the package.
	StatusPickedUp NormalizedStatus = "picked_up"
	// StatusInTransit indicates the package is moving through the carrier network.
	StatusInTransit NormalizedStatus = "in_transit"
	// StatusInCustoms indicates the package is held in customs clearance.
	StatusInCustoms NormalizedStatus = "in_customs"
	// StatusOutForDelivery indicates the package is on a vehicle for final delivery.
	StatusOutForDelivery NormalizedStatus = "out_for_delivery"
	// StatusDelivered indicates the package reached its recipient.
	StatusDelivered NormalizedStatus = "delivered"
	// StatusException indicates the carrier reported a delivery exception.
	StatusException NormalizedStatus = "exception"
	// StatusDelayed indicates the carrier reported a delay.
	StatusDelayed NormalizedStatus = "delayed"
	// StatusOnHold indicates the package is held by the carrier.
	StatusOnHold NormalizedStatus = "on_hold"
	// StatusDeliveryAttempted indicates a delivery attempt failed.
	StatusDeliveryAttempted NormalizedStatus = "delivery_attempted"
	// StatusReturnedToSender indicates the package is going back to origin.
	StatusReturnedToSender NormalizedStatus = "returned_to_sender"
	// StatusCancelled indicates the shipment was cancelled.
	StatusCancelled NormalizedStatus = "cancelled"
	// StatusUnknown is the universal fallback for unrecognized states.
	StatusUnknown NormalizedStatus = "unknown"
)

// ShipmentSnapshot is the per-shipment view the anomaly detector evaluates.
// Date fields are strings in the formats the carrier and the store emit;
// parsing (and the missing-date policy) belongs to the detector.
type ShipmentSnapshot struct {
	// TrackingNumber is the primary correlation key. Never empty.
	TrackingNumber string `json:"tracking_number"`
	// NormalizedStatus is the already-normalized carrier state.
	NormalizedStatus NormalizedStatus `json:"normalized_status"`
	// IsDelivered is a redundant delivered flag; some writers set it without
	// updating the status, so both are consulted.
	IsDelivered bool `json:"is_delivered"`
	// CarrierStatusDetail is the raw carrier description, used to enrich
	// exception messages.
	CarrierStatusDetail string `json:"carrier_status_detail,omitempty"`
	// LabelCreationDate is when the shipping label was created (optional).
	LabelCreationDate string `json:"label_creation_date,omitempty"`
	// ShipDate is when the carrier picked the package up (optional).
	ShipDate string `json:"ship_date,omitempty"`
	// LastStatusChange is when the normalized status last changed (optional).
	LastStatusChange string `json:"last_status_change,omitempty"`
	// ClientID is passthrough correlation metadata for downstream attribution.
	ClientID *int64 `json:"client_id,omitempty"`
	// ClientName is passthrough correlation metadata.
	ClientName string `json:"client_name,omitempty"`
	// ShipmentID is the store's row id for this shipment, when known.
	ShipmentID *int64 `json:"shipment_id,omitempty"`
}
