package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracking-sentinel/internal/core/config"
	"tracking-sentinel/internal/features/shipments/domain"
)

const sampleTrackResponse = `{
  "output": {
    "completeTrackResults": [
      {
        "trackingNumber": "794611111111",
        "trackResults": [
          {
            "latestStatusDetail": {"code": "IT", "description": "In transit"},
            "dateAndTimes": [
              {"type": "SHIP", "dateTime": "2024-03-06T08:00:00-05:00"},
              {"type": "ESTIMATED_DELIVERY", "dateTime": "2024-03-20T00:00:00-05:00"}
            ],
            "scanEvents": [
              {"date": "2024-03-07T10:00:00-05:00", "eventDescription": "Departed FedEx hub"},
              {"date": "2024-03-05T09:00:00-05:00", "eventDescription": "Shipment information sent to FedEx"}
            ],
            "recipientInformation": {
              "address": {"city": "BOGOTA", "stateOrProvinceCode": "DC", "countryCode": "CO"}
            }
          }
        ]
      },
      {
        "trackingNumber": "794622222222",
        "trackResults": [
          {
            "latestStatusDetail": {"code": "DL", "description": "Delivered"},
            "dateAndTimes": [
              {"type": "ACTUAL_DELIVERY", "dateTime": "2024-03-10T14:30:00-05:00"}
            ]
          }
        ]
      },
      {
        "trackingNumber": "794633333333",
        "trackResults": []
      }
    ]
  }
}`

// newFedExTestServer serves the token endpoint plus a canned tracking
// response, counting token requests.
func newFedExTestServer(t *testing.T, tokenCalls *int, trackingJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostFormValue("grant_type"))
		assert.Equal(t, "test-key", r.PostFormValue("client_id"))
		assert.Equal(t, "test-secret", r.PostFormValue("client_secret"))
		*tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","expires_in":3600}`))
	})
	mux.HandleFunc("/track/v1/trackingnumbers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(trackingJSON))
	})
	return httptest.NewServer(mux)
}

func newTestAdapter(baseURL string) *FedExAdapter {
	return NewFedExAdapter(config.FedExConfig{
		APIKey:    "test-key",
		SecretKey: "test-secret",
		BaseURL:   baseURL,
		BatchSize: 30,
	})
}

func TestTrackBatchParsesResults(t *testing.T) {
	tokenCalls := 0
	server := newFedExTestServer(t, &tokenCalls, sampleTrackResponse)
	defer server.Close()

	a := newTestAdapter(server.URL)
	updates, err := a.TrackBatch(context.Background(), []string{"794611111111", "794622222222", "794633333333"})
	require.NoError(t, err)
	require.Len(t, updates, 3)
	assert.Equal(t, 1, tokenCalls)

	inTransit := updates[0]
	assert.Equal(t, "794611111111", inTransit.TrackingNumber)
	assert.Equal(t, domain.StatusInTransit, inTransit.NormalizedStatus)
	assert.Equal(t, "IT", inTransit.CarrierStatusCode)
	assert.Equal(t, "In transit", inTransit.CarrierStatus)
	assert.False(t, inTransit.IsDelivered)
	require.NotNil(t, inTransit.ShipDate)
	assert.Equal(t, "2024-03-06", inTransit.ShipDate.Format("2006-01-02"))
	require.NotNil(t, inTransit.LabelCreationDate)
	assert.Equal(t, "2024-03-05", inTransit.LabelCreationDate.Format("2006-01-02"))
	require.NotNil(t, inTransit.EstimatedDeliveryDate)
	assert.Equal(t, "2024-03-20", inTransit.EstimatedDeliveryDate.Format("2006-01-02"))
	assert.Equal(t, "BOGOTA", inTransit.DestinationCity)
	assert.Equal(t, "DC", inTransit.DestinationState)
	assert.Equal(t, "CO", inTransit.DestinationCountry)
	assert.NotEmpty(t, inTransit.Raw)

	delivered := updates[1]
	assert.Equal(t, domain.StatusDelivered, delivered.NormalizedStatus)
	assert.True(t, delivered.IsDelivered)
	require.NotNil(t, delivered.DeliveryDate)
	assert.Equal(t, "2024-03-10", delivered.DeliveryDate.Format("2006-01-02"))

	empty := updates[2]
	assert.Equal(t, domain.StatusUnknown, empty.NormalizedStatus)
	assert.False(t, empty.IsDelivered)
}

func TestTrackBatchReusesToken(t *testing.T) {
	tokenCalls := 0
	server := newFedExTestServer(t, &tokenCalls, `{"output":{"completeTrackResults":[]}}`)
	defer server.Close()

	a := newTestAdapter(server.URL)
	_, err := a.TrackBatch(context.Background(), []string{"1"})
	require.NoError(t, err)
	_, err = a.TrackBatch(context.Background(), []string{"2"})
	require.NoError(t, err)
	assert.Equal(t, 1, tokenCalls)
}

func TestTrackBatchRefreshesExpiredToken(t *testing.T) {
	tokenCalls := 0
	server := newFedExTestServer(t, &tokenCalls, `{"output":{"completeTrackResults":[]}}`)
	defer server.Close()

	a := newTestAdapter(server.URL)
	current := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return current }

	_, err := a.TrackBatch(context.Background(), []string{"1"})
	require.NoError(t, err)

	// Jump past the cached token's lifetime.
	current = current.Add(2 * time.Hour)
	_, err = a.TrackBatch(context.Background(), []string{"2"})
	require.NoError(t, err)
	assert.Equal(t, 2, tokenCalls)
}

func TestTrackBatchSplitsLargeInput(t *testing.T) {
	tokenCalls := 0
	trackCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","expires_in":3600}`))
	})
	mux.HandleFunc("/track/v1/trackingnumbers", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TrackingInfo []json.RawMessage `json:"trackingInfo"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.LessOrEqual(t, len(body.TrackingInfo), 2)
		trackCalls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":{"completeTrackResults":[]}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := NewFedExAdapter(config.FedExConfig{
		APIKey: "test-key", SecretKey: "test-secret", BaseURL: server.URL, BatchSize: 2,
	})

	_, err := a.TrackBatch(context.Background(), []string{"1", "2", "3", "4", "5"})
	require.NoError(t, err)
	assert.Equal(t, 3, trackCalls)
	assert.Equal(t, 1, tokenCalls)
}

func TestTrackBatchEmptyInput(t *testing.T) {
	a := newTestAdapter("http://127.0.0.1:0")
	updates, err := a.TrackBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, updates)
}

func TestTrackBatchAuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"code":"NOT.AUTHORIZED"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := newTestAdapter(server.URL)
	_, err := a.TrackBatch(context.Background(), []string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication")
}
