package domain

import (
	"encoding/json"
	"time"
)

// RunStatus is the outcome of one daily run.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// RunStats are the counters collected over one daily run.
type RunStats struct {
	TotalShipmentsRead int `json:"total_shipments_read"`
	TenantsFound       int `json:"tenants_found"`
	TenantsInCRM       int `json:"tenants_in_crm"`
	TenantsMissingCRM  int `json:"tenants_missing_crm"`
	TenantsNoWhatsApp  int `json:"tenants_no_whatsapp"`
	ShipmentsStored    int `json:"shipments_stored"`
	ShipmentsChecked   int `json:"shipments_checked"`
	ShipmentsUpdated   int `json:"shipments_updated"`
	ShipmentsDelivered int `json:"shipments_delivered"`
	ClaimsCreated      int `json:"claims_created"`
	ReportsGenerated   int `json:"reports_generated"`
	ReportsSent        int `json:"reports_sent"`
	AlertsSent         int `json:"alerts_sent"`
}

// FlowError records one non-fatal failure inside a run.
type FlowError struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// RunLog is one persisted daily run. Metrics and Errors stay raw JSON so
// historical rows survive counter renames.
type RunLog struct {
	ID         int64           `json:"id"`
	RunDate    time.Time       `json:"run_date"`
	Status     RunStatus       `json:"status"`
	Metrics    json.RawMessage `json:"metrics,omitempty"`
	Errors     json.RawMessage `json:"errors,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}
