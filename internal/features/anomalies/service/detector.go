package service

import (
	"time"

	"go.uber.org/zap"

	"tracking-sentinel/internal/core/logger"
	"tracking-sentinel/internal/features/anomalies/domain"
	shipments "tracking-sentinel/internal/features/shipments/domain"
)

// dateFormats are the layouts shipment date strings arrive in. The layouts
// without a zone designator are interpreted in the operating timezone.
var dateFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var dateFormatsUTC = []string{
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z07:00",
}

// Detector evaluates shipment snapshots against the detection rules. It is
// stateless apart from the operating timezone, so a single instance is safe
// for concurrent use.
type Detector struct {
	loc *time.Location
	log *zap.Logger
}

// NewDetector creates a detector anchored to the operating timezone. All
// day arithmetic happens in that zone.
func NewDetector(loc *time.Location) *Detector {
	return &Detector{loc: loc, log: logger.Named("anomaly-detector")}
}

// Check evaluates one shipment against every rule and returns the anomalies
// that fired. Delivered shipments are exempt regardless of how stale their
// dates look. Rules whose reference date is missing or unparseable are
// skipped without error.
func (d *Detector) Check(s shipments.ShipmentSnapshot, th domain.Thresholds, now time.Time) []domain.Anomaly {
	if s.IsDelivered || s.NormalizedStatus == shipments.StatusDelivered {
		return nil
	}
	now = now.In(d.loc)

	var found []domain.Anomaly
	switch s.NormalizedStatus {
	case shipments.StatusException:
		found = append(found, newAnomaly(s, domain.RuleExceptionDetected,
			domain.RuleExceptionDetected.Describe(detailOf(s))))

	case shipments.StatusReturnedToSender:
		found = append(found, newAnomaly(s, domain.RuleReturnedToSender,
			domain.RuleReturnedToSender.Describe(detailOf(s))))

	case shipments.StatusInTransit:
		if shipped, ok := d.parseDate(s.ShipDate); ok {
			days := d.businessDaysBetween(shipped, now)
			if days > th.TransitDays {
				found = append(found, newAnomaly(s, domain.RuleTransitTooLong,
					domain.RuleTransitTooLong.Describe(days, th.TransitDays, shipped.Format("2006-01-02"))))
			}
		}

	case shipments.StatusInCustoms:
		if changed, ok := d.parseDate(s.LastStatusChange); ok {
			days := d.businessDaysBetween(changed, now)
			if days > th.CustomsDays {
				found = append(found, newAnomaly(s, domain.RuleCustomsTooLong,
					domain.RuleCustomsTooLong.Describe(days, th.CustomsDays)))
			}
		}

	case shipments.StatusDeliveryAttempted:
		if changed, ok := d.parseDate(s.LastStatusChange); ok {
			days := d.calendarDaysBetween(changed, now)
			if days > th.DeliveryAttemptDays {
				found = append(found, newAnomaly(s, domain.RuleDeliveryAttemptedStuck,
					domain.RuleDeliveryAttemptedStuck.Describe(days, th.DeliveryAttemptDays)))
			}
		}

	case shipments.StatusLabelCreated:
		if created, ok := d.parseDate(s.LabelCreationDate); ok {
			days := d.calendarDaysBetween(created, now)
			if days > th.LabelNoMovementDays {
				found = append(found, newAnomaly(s, domain.RuleLabelNoMovement,
					domain.RuleLabelNoMovement.Describe(days, th.LabelNoMovementDays, created.Format("2006-01-02"))))
			}
		}
	}
	return found
}

// CheckAll evaluates a batch of shipments and returns the concatenated
// anomalies in input order. The result for a batch is a pure function of
// the snapshots, thresholds and clock.
func (d *Detector) CheckAll(batch []shipments.ShipmentSnapshot, th domain.Thresholds, now time.Time) []domain.Anomaly {
	all := make([]domain.Anomaly, 0)
	for _, s := range batch {
		all = append(all, d.Check(s, th, now)...)
	}
	if len(all) == 0 {
		d.log.Info("No anomalies detected", zap.Int("shipments", len(batch)))
		return all
	}
	byRule := make(map[domain.Rule]int)
	for _, a := range all {
		byRule[a.Rule]++
	}
	d.log.Warn("Anomalies detected",
		zap.Int("shipments", len(batch)),
		zap.Int("total", len(all)),
		zap.Any("by_rule", byRule))
	return all
}

func newAnomaly(s shipments.ShipmentSnapshot, rule domain.Rule, description string) domain.Anomaly {
	return domain.Anomaly{
		Rule:           rule,
		TrackingNumber: s.TrackingNumber,
		ClaimType:      rule.ClaimType(),
		Severity:       rule.Severity(),
		Description:    description,
		ClientID:       s.ClientID,
		ClientName:     s.ClientName,
		ShipmentID:     s.ShipmentID,
	}
}

func detailOf(s shipments.ShipmentSnapshot) string {
	if s.CarrierStatusDetail != "" {
		return s.CarrierStatusDetail
	}
	return "N/A"
}

// parseDate accepts the known date layouts. Values without zone information
// are assumed to be in the operating timezone.
func (d *Detector) parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.ParseInLocation(layout, value, d.loc); err == nil {
			return t, true
		}
	}
	for _, layout := range dateFormatsUTC {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// businessDaysBetween counts weekdays after start up to and including end,
// so same-day is zero and a Friday-to-Monday span is one.
func (d *Detector) businessDaysBetween(start, end time.Time) int {
	from := dateOnly(start.In(d.loc))
	to := dateOnly(end.In(d.loc))
	count := 0
	for day := from.AddDate(0, 0, 1); !day.After(to); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// calendarDaysBetween counts whole calendar days between the two dates.
func (d *Detector) calendarDaysBetween(start, end time.Time) int {
	from := dateOnly(start.In(d.loc))
	to := dateOnly(end.In(d.loc))
	return int(to.Sub(from).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
