package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tracking-sentinel/internal/core/config"
	"tracking-sentinel/internal/core/httpclient"
	"tracking-sentinel/internal/core/logger"
	"tracking-sentinel/internal/features/shipments/domain"
)

const (
	tokenPath = "/oauth/token"
	trackPath = "/track/v1/trackingnumbers"

	// tokenSlack is subtracted from the token lifetime so a token is never
	// used right at its expiry edge.
	tokenSlack = 60 * time.Second
)

// FedExAdapter queries the FedEx Track API v1. Tokens are obtained via the
// OAuth2 client-credentials flow and cached until shortly before expiry.
// Safe for concurrent use.
type FedExAdapter struct {
	client *resty.Client
	cfg    config.FedExConfig
	log    *zap.Logger

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
	now            func() time.Time
}

// NewFedExAdapter creates an adapter against the configured FedEx base URL.
func NewFedExAdapter(cfg config.FedExConfig) *FedExAdapter {
	return &FedExAdapter{
		client: httpclient.NewResty(cfg.BaseURL, 30*time.Second),
		cfg:    cfg,
		log:    logger.Named("fedex"),
		now:    time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type trackRequest struct {
	IncludeDetailedScans bool           `json:"includeDetailedScans"`
	TrackingInfo         []trackingInfo `json:"trackingInfo"`
}

type trackingInfo struct {
	TrackingNumberInfo trackingNumberInfo `json:"trackingNumberInfo"`
}

type trackingNumberInfo struct {
	TrackingNumber string `json:"trackingNumber"`
}

type trackResponse struct {
	Output struct {
		CompleteTrackResults []json.RawMessage `json:"completeTrackResults"`
	} `json:"output"`
}

type completeTrackResult struct {
	TrackingNumber string        `json:"trackingNumber"`
	TrackResults   []trackResult `json:"trackResults"`
}

type trackResult struct {
	LatestStatusDetail struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"latestStatusDetail"`
	DateAndTimes []struct {
		Type     string `json:"type"`
		DateTime string `json:"dateTime"`
	} `json:"dateAndTimes"`
	ScanEvents []struct {
		Date             string `json:"date"`
		EventDescription string `json:"eventDescription"`
	} `json:"scanEvents"`
	RecipientInformation struct {
		Address fedexAddress `json:"address"`
	} `json:"recipientInformation"`
	DestinationLocation struct {
		LocationContactAndAddress struct {
			Address fedexAddress `json:"address"`
		} `json:"locationContactAndAddress"`
	} `json:"destinationLocation"`
}

type fedexAddress struct {
	City                string `json:"city"`
	StateOrProvinceCode string `json:"stateOrProvinceCode"`
	CountryCode         string `json:"countryCode"`
}

// TrackBatch resolves current carrier state for the given tracking numbers,
// splitting the work into API-sized batches.
func (a *FedExAdapter) TrackBatch(ctx context.Context, trackingNumbers []string) ([]domain.StatusUpdate, error) {
	if len(trackingNumbers) == 0 {
		return nil, nil
	}

	batchSize := a.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 30
	}

	updates := make([]domain.StatusUpdate, 0, len(trackingNumbers))
	for start := 0; start < len(trackingNumbers); start += batchSize {
		end := start + batchSize
		if end > len(trackingNumbers) {
			end = len(trackingNumbers)
		}
		batch, err := a.trackOnce(ctx, trackingNumbers[start:end])
		if err != nil {
			return nil, err
		}
		updates = append(updates, batch...)
	}
	return updates, nil
}

func (a *FedExAdapter) trackOnce(ctx context.Context, trackingNumbers []string) ([]domain.StatusUpdate, error) {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	body := trackRequest{IncludeDetailedScans: true}
	for _, tn := range trackingNumbers {
		body.TrackingInfo = append(body.TrackingInfo, trackingInfo{
			TrackingNumberInfo: trackingNumberInfo{TrackingNumber: tn},
		})
	}

	var result trackResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&result).
		Post(trackPath)
	if err != nil {
		return nil, fmt.Errorf("failed to track batch: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tracking request returned status %d", resp.StatusCode())
	}

	a.log.Info("Tracked batch",
		zap.Int("requested", len(trackingNumbers)),
		zap.Int("answered", len(result.Output.CompleteTrackResults)))

	updates := make([]domain.StatusUpdate, 0, len(result.Output.CompleteTrackResults))
	for _, raw := range result.Output.CompleteTrackResults {
		var ctr completeTrackResult
		if err := json.Unmarshal(raw, &ctr); err != nil {
			a.log.Warn("Skipping unparseable track result", zap.Error(err))
			continue
		}
		if ctr.TrackingNumber == "" {
			continue
		}
		updates = append(updates, parseTrackResult(ctr, raw))
	}
	return updates, nil
}

// ensureToken returns a valid bearer token, authenticating when the cached
// one is missing or about to expire.
func (a *FedExAdapter) ensureToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.now().Before(a.tokenExpiresAt) {
		return a.token, nil
	}

	var tok tokenResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     a.cfg.APIKey,
			"client_secret": a.cfg.SecretKey,
		}).
		SetResult(&tok).
		Post(tokenPath)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate with carrier: %w", err)
	}
	if resp.IsError() || tok.AccessToken == "" {
		return "", fmt.Errorf("carrier authentication returned status %d", resp.StatusCode())
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	a.token = tok.AccessToken
	a.tokenExpiresAt = a.now().Add(time.Duration(expiresIn)*time.Second - tokenSlack)
	a.log.Info("Carrier authentication succeeded", zap.Time("token_expires_at", a.tokenExpiresAt))
	return a.token, nil
}

func parseTrackResult(ctr completeTrackResult, raw []byte) domain.StatusUpdate {
	u := domain.StatusUpdate{TrackingNumber: ctr.TrackingNumber, Raw: raw}
	if len(ctr.TrackResults) == 0 {
		u.NormalizedStatus = domain.StatusUnknown
		return u
	}
	detail := ctr.TrackResults[0]

	u.CarrierStatusCode = detail.LatestStatusDetail.Code
	u.CarrierStatus = detail.LatestStatusDetail.Description
	u.NormalizedStatus = domain.Normalize(detail.LatestStatusDetail.Code, detail.LatestStatusDetail.Description)

	for _, dt := range detail.DateAndTimes {
		switch dt.Type {
		case "ESTIMATED_DELIVERY", "ESTIMATED_DELIVERY_TIMESTAMP":
			if u.EstimatedDeliveryDate == nil {
				u.EstimatedDeliveryDate = parseAPIDate(dt.DateTime)
			}
		case "ACTUAL_PICKUP", "SHIP":
			if u.ShipDate == nil {
				u.ShipDate = parseAPIDate(dt.DateTime)
			}
		case "ACTUAL_DELIVERY":
			if u.DeliveryDate == nil {
				u.DeliveryDate = parseAPIDate(dt.DateTime)
			}
		}
	}

	// The oldest matching scan event carries the label creation date, and
	// serves as the ship date fallback when dateAndTimes said nothing.
	for i := len(detail.ScanEvents) - 1; i >= 0; i-- {
		desc := strings.ToLower(detail.ScanEvents[i].EventDescription)
		if u.LabelCreationDate == nil && containsAny(desc, "shipment information sent", "label created", "shipping label") {
			u.LabelCreationDate = parseAPIDate(detail.ScanEvents[i].Date)
		}
		if u.ShipDate == nil && containsAny(desc, "picked up", "package received") {
			u.ShipDate = parseAPIDate(detail.ScanEvents[i].Date)
		}
	}

	addr := detail.RecipientInformation.Address
	if addr.City == "" {
		addr = detail.DestinationLocation.LocationContactAndAddress.Address
	}
	u.DestinationCity = addr.City
	u.DestinationState = addr.StateOrProvinceCode
	u.DestinationCountry = addr.CountryCode

	u.IsDelivered = u.NormalizedStatus == domain.StatusDelivered || u.DeliveryDate != nil
	return u
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// parseAPIDate reads the date part of a carrier timestamp.
func parseAPIDate(v string) *time.Time {
	if len(v) < 10 {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", v[:10], time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
