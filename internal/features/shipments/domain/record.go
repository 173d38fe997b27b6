package domain

import "time"

// ShipmentRecord is the persisted shipment row. Struct tags follow the
// store's column names for row scanning; pointer fields map to nullable
// columns.
type ShipmentRecord struct {
	ID                    int64            `db:"id" json:"id"`
	TrackingNumber        string           `db:"tracking_number" json:"tracking_number"`
	ClientID              *int64           `db:"client_id" json:"client_id,omitempty"`
	ClientNameRaw         *string          `db:"client_name_raw" json:"client_name_raw,omitempty"`
	OrderNumber           *string          `db:"order_number" json:"order_number,omitempty"`
	Tenant                int              `db:"tenant" json:"tenant"`
	NormalizedStatus      NormalizedStatus `db:"normalized_status" json:"normalized_status"`
	CarrierStatus         *string          `db:"carrier_status" json:"carrier_status,omitempty"`
	CarrierStatusCode     *string          `db:"carrier_status_code" json:"carrier_status_code,omitempty"`
	LabelCreationDate     *time.Time       `db:"label_creation_date" json:"label_creation_date,omitempty"`
	ShipDate              *time.Time       `db:"ship_date" json:"ship_date,omitempty"`
	DeliveryDate          *time.Time       `db:"delivery_date" json:"delivery_date,omitempty"`
	EstimatedDeliveryDate *time.Time       `db:"estimated_delivery_date" json:"estimated_delivery_date,omitempty"`
	DestinationCity       *string          `db:"destination_city" json:"destination_city,omitempty"`
	DestinationState      *string          `db:"destination_state" json:"destination_state,omitempty"`
	DestinationCountry    *string          `db:"destination_country" json:"destination_country,omitempty"`
	IsDelivered           bool             `db:"is_delivered" json:"is_delivered"`
	LastCarrierCheck      *time.Time       `db:"last_carrier_check" json:"last_carrier_check,omitempty"`
	LastStatusChange      *time.Time       `db:"last_status_change" json:"last_status_change,omitempty"`
	CarrierCheckCount     int              `db:"carrier_check_count" json:"carrier_check_count"`
	RawCarrierResponse    []byte           `db:"raw_carrier_response" json:"-"`
	LedgerData            []byte           `db:"ledger_data" json:"-"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

// Snapshot projects the record into the detector's view. Timestamps are
// rendered in the given location without zone designators so the detector
// reads them back in the operating timezone.
func (r ShipmentRecord) Snapshot(loc *time.Location) ShipmentSnapshot {
	s := ShipmentSnapshot{
		TrackingNumber:   r.TrackingNumber,
		NormalizedStatus: r.NormalizedStatus,
		IsDelivered:      r.IsDelivered,
		ClientID:         r.ClientID,
	}
	if r.ID != 0 {
		id := r.ID
		s.ShipmentID = &id
	}
	if r.ClientNameRaw != nil {
		s.ClientName = *r.ClientNameRaw
	}
	if r.CarrierStatus != nil {
		s.CarrierStatusDetail = *r.CarrierStatus
	}
	if r.LabelCreationDate != nil {
		s.LabelCreationDate = r.LabelCreationDate.Format("2006-01-02")
	}
	if r.ShipDate != nil {
		s.ShipDate = r.ShipDate.Format("2006-01-02")
	}
	if r.LastStatusChange != nil {
		s.LastStatusChange = r.LastStatusChange.In(loc).Format("2006-01-02T15:04:05")
	}
	return s
}

// StatusUpdate is the carrier-derived state applied to a stored shipment.
// Nil dates mean the carrier omitted them and the stored value is kept.
type StatusUpdate struct {
	TrackingNumber        string           `json:"tracking_number"`
	NormalizedStatus      NormalizedStatus `json:"normalized_status"`
	CarrierStatus         string           `json:"carrier_status,omitempty"`
	CarrierStatusCode     string           `json:"carrier_status_code,omitempty"`
	IsDelivered           bool             `json:"is_delivered"`
	LabelCreationDate     *time.Time       `json:"label_creation_date,omitempty"`
	ShipDate              *time.Time       `json:"ship_date,omitempty"`
	DeliveryDate          *time.Time       `json:"delivery_date,omitempty"`
	EstimatedDeliveryDate *time.Time       `json:"estimated_delivery_date,omitempty"`
	DestinationCity       string           `json:"destination_city,omitempty"`
	DestinationState      string           `json:"destination_state,omitempty"`
	DestinationCountry    string           `json:"destination_country,omitempty"`
	Raw                   []byte           `json:"-"`
}
