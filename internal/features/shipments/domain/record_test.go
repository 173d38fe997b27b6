package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotProjection(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	shipDate := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	lastChange := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
	name := "Tienda Uno"
	detail := "In transit"
	clientID := int64(7)

	r := ShipmentRecord{
		ID:               42,
		TrackingNumber:   "794611234567",
		ClientID:         &clientID,
		ClientNameRaw:    &name,
		NormalizedStatus: StatusInTransit,
		CarrierStatus:    &detail,
		ShipDate:         &shipDate,
		LastStatusChange: &lastChange,
	}

	s := r.Snapshot(loc)
	assert.Equal(t, "794611234567", s.TrackingNumber)
	assert.Equal(t, StatusInTransit, s.NormalizedStatus)
	assert.Equal(t, "Tienda Uno", s.ClientName)
	assert.Equal(t, "In transit", s.CarrierStatusDetail)
	assert.Equal(t, "2024-03-06", s.ShipDate)
	// 20:00 UTC is 15:00 in the operating timezone.
	assert.Equal(t, "2024-03-15T15:00:00", s.LastStatusChange)
	require.NotNil(t, s.ShipmentID)
	assert.EqualValues(t, 42, *s.ShipmentID)
	require.NotNil(t, s.ClientID)
	assert.EqualValues(t, 7, *s.ClientID)
}

func TestSnapshotEmptyOptionalFields(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	r := ShipmentRecord{TrackingNumber: "111", NormalizedStatus: StatusUnknown}

	s := r.Snapshot(loc)
	assert.Empty(t, s.ShipDate)
	assert.Empty(t, s.LabelCreationDate)
	assert.Empty(t, s.LastStatusChange)
	assert.Nil(t, s.ShipmentID)
	assert.Nil(t, s.ClientID)
}
