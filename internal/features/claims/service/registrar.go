package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tracking-sentinel/internal/core/logger"
	anomalies "tracking-sentinel/internal/features/anomalies/domain"
	"tracking-sentinel/internal/features/claims/domain"
	"tracking-sentinel/internal/features/claims/ports"
	notify "tracking-sentinel/internal/features/notify/ports"
)

// RegisterResult summarizes one registration pass.
type RegisterResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Alerted int `json:"alerted"`
}

// Registrar turns detected anomalies into claims. Registration is
// idempotent per (tracking number, rule): anomalies that already have a
// claim are skipped.
type Registrar struct {
	claims     ports.ClaimRepository
	notifier   notify.Notifier
	adminPhone string
	log        *zap.Logger
}

// NewRegistrar creates a registrar. adminPhone may be empty, in which case
// high severity alerts are only logged.
func NewRegistrar(claims ports.ClaimRepository, notifier notify.Notifier, adminPhone string) *Registrar {
	return &Registrar{
		claims:     claims,
		notifier:   notifier,
		adminPhone: adminPhone,
		log:        logger.Named("claim-registrar"),
	}
}

// Register opens claims for the given anomalies. Failures on individual
// anomalies are logged and counted but do not stop the pass.
func (r *Registrar) Register(ctx context.Context, found []anomalies.Anomaly) RegisterResult {
	var result RegisterResult
	for _, a := range found {
		exists, err := r.claims.Exists(ctx, a.TrackingNumber, a.Rule)
		if err != nil {
			r.log.Error("Failed to check existing claim",
				zap.String("tracking_number", a.TrackingNumber),
				zap.String("rule", string(a.Rule)),
				zap.Error(err))
			result.Failed++
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		id, err := r.claims.Create(ctx, domain.FromAnomaly(a))
		if err != nil {
			r.log.Error("Failed to create claim",
				zap.String("tracking_number", a.TrackingNumber),
				zap.String("rule", string(a.Rule)),
				zap.Error(err))
			result.Failed++
			continue
		}
		result.Created++
		r.log.Info("Claim created",
			zap.Int64("claim_id", id),
			zap.String("tracking_number", a.TrackingNumber),
			zap.String("rule", string(a.Rule)),
			zap.String("severity", string(a.Severity)))

		if a.Severity == anomalies.SeverityHigh && r.alertAdmin(ctx, a) {
			result.Alerted++
		}
	}
	return result
}

func (r *Registrar) alertAdmin(ctx context.Context, a anomalies.Anomaly) bool {
	if r.adminPhone == "" {
		r.log.Warn("No admin phone configured, skipping alert",
			zap.String("tracking_number", a.TrackingNumber))
		return false
	}
	clientName := a.ClientName
	if clientName == "" {
		clientName = "N/A"
	}
	msg := fmt.Sprintf("Reclamo automático creado (%s)\nGuía: %s\nCliente: %s\n\n%s",
		a.Rule, a.TrackingNumber, clientName, a.Description)
	if err := r.notifier.SendAlert(ctx, r.adminPhone, msg); err != nil {
		r.log.Error("Failed to send admin alert",
			zap.String("tracking_number", a.TrackingNumber),
			zap.Error(err))
		return false
	}
	return true
}
