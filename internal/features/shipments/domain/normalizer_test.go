package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDescriptionPriority(t *testing.T) {
	// The description wins even when the code disagrees.
	assert.Equal(t, StatusDelivered, Normalize("IT", "Delivered"))
	assert.Equal(t, StatusInTransit, Normalize("DL", "In transit to destination"))
}

func TestNormalizeDescriptionGroups(t *testing.T) {
	cases := map[string]NormalizedStatus{
		"Shipment information sent to FedEx":        StatusLabelCreated,
		"Shipping label created":                    StatusLabelCreated,
		"Delivered":                                 StatusDelivered,
		"On FedEx vehicle for delivery":             StatusOutForDelivery,
		"Out for delivery":                          StatusOutForDelivery,
		"Picked up":                                 StatusPickedUp,
		"Package received after FedEx cutoff":       StatusPickedUp,
		"International shipment release at origin":  StatusInTransit,
		"Departed FedEx hub":                        StatusInTransit,
		"Arrived at FedEx location":                 StatusInTransit,
		"At destination sort facility":              StatusInTransit,
		"Clearance in progress":                     StatusInCustoms,
		"International shipment held in customs":    StatusInCustoms,
		"Delivery exception":                        StatusException,
		"Shipment delay due to weather":             StatusDelayed,
		"Hold at location request received":         StatusOnHold,
		"Delivery attempt unsuccessful":             StatusDeliveryAttempted,
		"Customer not available, unable to deliver": StatusDeliveryAttempted,
		"Returning package to shipper":              StatusReturnedToSender,
		"Shipment cancelled by sender":              StatusCancelled,
	}
	for desc, want := range cases {
		assert.Equal(t, want, Normalize("", desc), "description: %s", desc)
	}
}

func TestNormalizeCodeFallback(t *testing.T) {
	assert.Equal(t, StatusDelivered, Normalize("DL", ""))
	assert.Equal(t, StatusOutForDelivery, Normalize("OD", ""))
	assert.Equal(t, StatusInTransit, Normalize("AR", ""))
	assert.Equal(t, StatusException, Normalize("SE", ""))
	assert.Equal(t, StatusLabelCreated, Normalize("IN", ""))
	assert.Equal(t, StatusInCustoms, Normalize("CD", ""))
	assert.Equal(t, StatusReturnedToSender, Normalize("RS", ""))
	// Lowercase codes normalize too.
	assert.Equal(t, StatusDelivered, Normalize("dl", ""))
}

func TestNormalizeUnknown(t *testing.T) {
	assert.Equal(t, StatusUnknown, Normalize("XX", ""))
	assert.Equal(t, StatusUnknown, Normalize("", ""))
	assert.Equal(t, StatusUnknown, Normalize("", "estado desconocido"))
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	assert.Equal(t, StatusInTransit, Normalize("", "IN TRANSIT"))
	assert.Equal(t, StatusDelivered, Normalize("", "  delivered  "))
}
