package domain

import "fmt"

// Rule identifies a detection rule.
type Rule string

const (
	RuleExceptionDetected     Rule = "exception_detected"
	RuleTransitTooLong        Rule = "transit_too_long"
	RuleReturnedToSender      Rule = "returned_to_sender"
	RuleDeliveryAttemptedStuck Rule = "delivery_attempted_stuck"
	RuleCustomsTooLong        Rule = "customs_too_long"
	RuleLabelNoMovement       Rule = "label_no_movement"
)

// ClaimType classifies the claim an anomaly should open.
type ClaimType string

const (
	ClaimEntregaTardia ClaimType = "entrega_tardia"
	ClaimNoEntregado   ClaimType = "no_entregado"
	ClaimOtro          ClaimType = "otro"
)

// Severity ranks how urgently an anomaly needs attention.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Anomaly is one rule firing for one shipment. Client and shipment fields
// are copied through from the evaluated snapshot for downstream attribution.
type Anomaly struct {
	Rule           Rule      `json:"rule"`
	TrackingNumber string    `json:"tracking_number"`
	ClaimType      ClaimType `json:"claim_type"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	ClientID       *int64    `json:"client_id,omitempty"`
	ClientName     string    `json:"client_name,omitempty"`
	ShipmentID     *int64    `json:"shipment_id,omitempty"`
}

// Thresholds are the configurable day limits the time-based rules compare
// against. Comparisons are strictly greater than, so a zero threshold means
// one elapsed day already fires.
type Thresholds struct {
	TransitDays         int `json:"transit_days"`
	CustomsDays         int `json:"customs_days"`
	DeliveryAttemptDays int `json:"delivery_attempt_days"`
	LabelNoMovementDays int `json:"label_no_movement_days"`
}

// DefaultThresholds returns the standard operating limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TransitDays:         7,
		CustomsDays:         5,
		DeliveryAttemptDays: 2,
		LabelNoMovementDays: 5,
	}
}

// ruleSpec carries the static attributes of one rule. Adding a rule means
// adding a row here plus its trigger in the detector.
type ruleSpec struct {
	claimType ClaimType
	severity  Severity
	message   string
}

var ruleTable = map[Rule]ruleSpec{
	RuleExceptionDetected: {
		claimType: ClaimOtro,
		severity:  SeverityHigh,
		message:   "FedEx reportó una excepción de entrega. Estado: %s",
	},
	RuleTransitTooLong: {
		claimType: ClaimEntregaTardia,
		severity:  SeverityMedium,
		message:   "Paquete en tránsito por %d días hábiles (umbral: %d). Enviado: %s",
	},
	RuleReturnedToSender: {
		claimType: ClaimNoEntregado,
		severity:  SeverityHigh,
		message:   "Paquete devuelto a origen. Estado FedEx: %s",
	},
	RuleDeliveryAttemptedStuck: {
		claimType: ClaimNoEntregado,
		severity:  SeverityMedium,
		message:   "Intento de entrega sin éxito por %d días (umbral: %d)",
	},
	RuleCustomsTooLong: {
		claimType: ClaimEntregaTardia,
		severity:  SeverityMedium,
		message:   "Paquete en aduanas por %d días hábiles (umbral: %d)",
	},
	RuleLabelNoMovement: {
		claimType: ClaimOtro,
		severity:  SeverityLow,
		message:   "Label creada hace %d días sin movimiento (umbral: %d). Label: %s",
	},
}

// ClaimType returns the claim classification the rule opens.
func (r Rule) ClaimType() ClaimType { return ruleTable[r].claimType }

// Severity returns the rule's severity.
func (r Rule) Severity() Severity { return ruleTable[r].severity }

// Describe renders the rule's human-facing description with its arguments.
func (r Rule) Describe(args ...interface{}) string {
	return fmt.Sprintf(ruleTable[r].message, args...)
}
