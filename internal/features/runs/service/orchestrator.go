package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tracking-sentinel/internal/core/cache"
	"tracking-sentinel/internal/core/logger"
	anomalies "tracking-sentinel/internal/features/anomalies/domain"
	claimsvc "tracking-sentinel/internal/features/claims/service"
	dirports "tracking-sentinel/internal/features/directory/ports"
	notify "tracking-sentinel/internal/features/notify/ports"
	"tracking-sentinel/internal/features/runs/domain"
	runports "tracking-sentinel/internal/features/runs/ports"
	shipdomain "tracking-sentinel/internal/features/shipments/domain"
	shipports "tracking-sentinel/internal/features/shipments/ports"
	trackports "tracking-sentinel/internal/features/tracking/ports"
)

// ErrRunInProgress is returned when a daily run is started while another one
// is still going.
var ErrRunInProgress = errors.New("daily run already in progress")

// deliveredSetKey is the cache set holding tracking numbers already confirmed
// delivered, so they are never polled against the carrier again.
const deliveredSetKey = "tracking:delivered"

// anomalyChecker evaluates a batch of snapshots against the detection rules.
type anomalyChecker interface {
	CheckAll(batch []shipdomain.ShipmentSnapshot, th anomalies.Thresholds, now time.Time) []anomalies.Anomaly
}

// claimRegistrar files claims for detected anomalies.
type claimRegistrar interface {
	Register(ctx context.Context, found []anomalies.Anomaly) claimsvc.RegisterResult
}

// textReporter renders a per-client WhatsApp summary.
type textReporter interface {
	ClientReport(clientName string, records []shipdomain.ShipmentRecord) string
}

// excelReporter renders the per-tenant and consolidated workbooks.
type excelReporter interface {
	TenantReport(tenantName string, records []shipdomain.ShipmentRecord) (string, error)
	ConsolidatedReport(byTenant map[string][]shipdomain.ShipmentRecord) (string, error)
}

// Orchestrator drives the daily reconciliation: reads the ledger, resolves
// each tenant in the CRM, refreshes carrier state, files claims for detected
// anomalies and sends per-client reports. At most one run executes at a time.
type Orchestrator struct {
	source     shipports.ShipmentSource
	store      shipports.ShipmentStore
	clients    shipports.ClientStore
	tracker    trackports.CarrierTracker
	directory  dirports.CompanyDirectory
	notifier   notify.Notifier
	registrar  claimRegistrar
	detector   anomalyChecker
	runs       runports.RunRepository
	cache      cache.Cache
	text       textReporter
	excel      excelReporter
	thresholds anomalies.Thresholds
	adminPhone string
	loc        *time.Location
	log        *zap.Logger
	now        func() time.Time
	running    atomic.Bool
}

// Deps bundles the collaborators the orchestrator needs.
type Deps struct {
	Source     shipports.ShipmentSource
	Store      shipports.ShipmentStore
	Clients    shipports.ClientStore
	Tracker    trackports.CarrierTracker
	Directory  dirports.CompanyDirectory
	Notifier   notify.Notifier
	Registrar  claimRegistrar
	Detector   anomalyChecker
	Runs       runports.RunRepository
	Cache      cache.Cache
	Text       textReporter
	Excel      excelReporter
	Thresholds anomalies.Thresholds
	AdminPhone string
	Location   *time.Location
}

// NewOrchestrator creates the daily run orchestrator.
func NewOrchestrator(d Deps) *Orchestrator {
	return &Orchestrator{
		source:     d.Source,
		store:      d.Store,
		clients:    d.Clients,
		tracker:    d.Tracker,
		directory:  d.Directory,
		notifier:   d.Notifier,
		registrar:  d.Registrar,
		detector:   d.Detector,
		runs:       d.Runs,
		cache:      d.Cache,
		text:       d.Text,
		excel:      d.Excel,
		thresholds: d.Thresholds,
		adminPhone: d.AdminPhone,
		loc:        d.Location,
		log:        logger.Get().Named("orchestrator"),
		now:        time.Now,
	}
}

// Running reports whether a daily run is currently executing.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// RunDaily executes one full reconciliation cycle and returns its counters.
// A ledger read failure aborts the whole run; per-tenant failures are logged,
// alerted and skipped so the remaining tenants still get processed.
func (o *Orchestrator) RunDaily(ctx context.Context) (domain.RunStats, error) {
	if !o.running.CompareAndSwap(false, true) {
		return domain.RunStats{}, ErrRunInProgress
	}
	defer o.running.Store(false)

	now := o.now().In(o.loc)
	var stats domain.RunStats
	var flowErrors []domain.FlowError

	runID, err := o.runs.Start(ctx, now)
	if err != nil {
		return stats, fmt.Errorf("failed to open run log: %w", err)
	}
	o.log.Info("Daily run started", zap.Int64("run_id", runID))

	reserves, err := o.source.FetchReserves(ctx, 0)
	if err != nil {
		flowErrors = append(flowErrors, domain.FlowError{Step: "ledger_read", Error: err.Error()})
		o.alertFlowError(ctx, &stats, flowAlert{
			clientName: "N/A",
			errType:    "Lectura del ledger fallida",
			detail:     err.Error(),
			scope:      "Ciclo completo detenido, ningun tenant fue procesado",
		})
		o.complete(ctx, runID, domain.RunFailed, stats, flowErrors)
		return stats, fmt.Errorf("failed to read ledger: %w", err)
	}

	groups := make(map[int][]shipdomain.Reserve)
	for _, r := range reserves {
		if r.Tenant <= 0 {
			o.log.Warn("Reserve without tenant skipped", zap.String("reserve_id", r.ID))
			continue
		}
		groups[r.Tenant] = append(groups[r.Tenant], r)
		stats.TotalShipmentsRead += len(r.Packages)
	}
	stats.TenantsFound = len(groups)
	if len(groups) == 0 {
		o.log.Info("Ledger empty, nothing to reconcile")
		o.complete(ctx, runID, domain.RunSuccess, stats, flowErrors)
		return stats, nil
	}

	totalActive := 0
	for _, rs := range reserves {
		for _, p := range rs.Packages {
			if p.TrackingNumber != "" && !strings.EqualFold(p.Status, "delivered") {
				totalActive++
			}
		}
	}

	tenants := make([]int, 0, len(groups))
	for t := range groups {
		tenants = append(tenants, t)
	}
	sort.Ints(tenants)

	byClient := make(map[string][]shipdomain.ShipmentRecord)
	for _, tenant := range tenants {
		if err := o.processTenant(ctx, tenant, groups[tenant], &stats, totalActive, now, byClient); err != nil {
			o.log.Error("Tenant processing failed", zap.Int("tenant", tenant), zap.Error(err))
			flowErrors = append(flowErrors, domain.FlowError{
				Step:  fmt.Sprintf("tenant_%d", tenant),
				Error: err.Error(),
			})
			o.alertFlowError(ctx, &stats, flowAlert{
				tenant:     tenant,
				clientName: fmt.Sprintf("Tenant #%d", tenant),
				errType:    "Error critico procesando tenant",
				detail:     err.Error(),
				affected:   countTracking(groups[tenant]),
				total:      totalActive,
				scope:      "Solo este cliente, el resto del ciclo continua",
			})
		}
	}

	if len(byClient) > 0 {
		if path, err := o.excel.ConsolidatedReport(byClient); err != nil {
			o.log.Error("Consolidated workbook failed", zap.Error(err))
			flowErrors = append(flowErrors, domain.FlowError{Step: "consolidated_report", Error: err.Error()})
		} else {
			stats.ReportsGenerated++
			o.log.Info("Consolidated workbook written", zap.String("path", path))
		}
	}

	status := domain.RunSuccess
	if len(flowErrors) > 0 {
		status = domain.RunPartial
		o.sendRunSummary(ctx, &stats, status, flowErrors)
	}
	o.complete(ctx, runID, status, stats, flowErrors)
	o.log.Info("Daily run finished",
		zap.Int64("run_id", runID),
		zap.String("status", string(status)),
		zap.Int("tenants", stats.TenantsFound),
		zap.Int("claims_created", stats.ClaimsCreated),
		zap.Int("reports_sent", stats.ReportsSent))
	return stats, nil
}

// processTenant reconciles all reserves of one tenant.
func (o *Orchestrator) processTenant(ctx context.Context, tenant int, reserves []shipdomain.Reserve, stats *domain.RunStats, totalActive int, now time.Time, byClient map[string][]shipdomain.ShipmentRecord) error {
	log := o.log.With(zap.Int("tenant", tenant))

	allTracking, activeTracking := o.splitTracking(ctx, reserves)
	log.Info("Processing tenant",
		zap.Int("reserves", len(reserves)),
		zap.Int("tracking_numbers", len(allTracking)),
		zap.Int("active", len(activeTracking)))

	company, err := o.directory.FindCompanyByTenant(ctx, tenant)
	if errors.Is(err, dirports.ErrCompanyNotFound) {
		stats.TenantsMissingCRM++
		o.alertTenantNotFound(ctx, stats, tenant, allTracking)
		name := fmt.Sprintf("Tenant #%d (sin CRM)", tenant)
		o.upsertReserves(ctx, reserves, nil, name, stats, log)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve tenant in CRM: %w", err)
	}
	stats.TenantsInCRM++
	log = log.With(zap.String("client", company.Name))

	contacts, err := o.directory.WhatsAppContacts(ctx, company.ID)
	if err != nil {
		log.Error("Failed to load WhatsApp contacts", zap.Error(err))
		contacts = nil
	}
	if len(contacts) == 0 {
		stats.TenantsNoWhatsApp++
		o.alertNoContacts(ctx, stats, tenant, company.Name, len(allTracking))
	}

	clientID, err := o.clients.EnsureClient(ctx, company.ID, company.Name, tenant)
	if err != nil {
		return fmt.Errorf("failed to register client: %w", err)
	}

	o.upsertReserves(ctx, reserves, &clientID, company.Name, stats, log)

	if len(activeTracking) > 0 {
		updates, err := o.tracker.TrackBatch(ctx, activeTracking)
		if err != nil {
			log.Error("Carrier batch failed", zap.Error(err))
			o.alertFlowError(ctx, stats, flowAlert{
				tenant:     tenant,
				clientName: company.Name,
				errType:    "Consulta al carrier fallida",
				detail:     err.Error(),
				affected:   len(activeTracking),
				total:      totalActive,
				scope:      "Estados no actualizados para este cliente",
			})
		} else {
			stats.ShipmentsChecked += len(activeTracking)
			o.applyUpdates(ctx, updates, stats, log)
		}
	}

	records, err := o.store.RecordsByClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to load client shipments: %w", err)
	}
	byClient[company.Name] = records

	snapshots := make([]shipdomain.ShipmentSnapshot, 0, len(records))
	for _, r := range records {
		s := r.Snapshot(o.loc)
		s.ClientID = &clientID
		s.ClientName = company.Name
		snapshots = append(snapshots, s)
	}
	found := o.detector.CheckAll(snapshots, o.thresholds, now)
	result := o.registrar.Register(ctx, found)
	stats.ClaimsCreated += result.Created
	stats.AlertsSent += result.Alerted

	if len(records) > 0 {
		if path, err := o.excel.TenantReport(company.Name, records); err != nil {
			log.Error("Tenant workbook failed", zap.Error(err))
		} else {
			stats.ReportsGenerated++
			log.Info("Tenant workbook written", zap.String("path", path))
		}
	}

	if len(contacts) > 0 && len(records) > 0 {
		report := o.text.ClientReport(company.Name, records)
		stats.ReportsGenerated++
		for _, c := range contacts {
			if err := o.notifier.SendReport(ctx, c.WhatsAppNumber, report, company.Name); err != nil {
				log.Error("Failed to send report",
					zap.String("contact", c.Name),
					zap.Error(err))
				continue
			}
			stats.ReportsSent++
		}
	}
	return nil
}

// splitTracking collects all tracking numbers of a tenant and the subset
// still worth polling. Numbers in the delivered cache set are excluded from
// the active list; cache failures only lose the shortcut.
func (o *Orchestrator) splitTracking(ctx context.Context, reserves []shipdomain.Reserve) (all, active []string) {
	for _, r := range reserves {
		for _, p := range r.Packages {
			if p.TrackingNumber == "" {
				continue
			}
			all = append(all, p.TrackingNumber)
			if strings.EqualFold(p.Status, "delivered") {
				continue
			}
			done, err := o.cache.InSet(ctx, deliveredSetKey, p.TrackingNumber)
			if err != nil {
				o.log.Warn("Delivered set lookup failed", zap.Error(err))
			}
			if done {
				continue
			}
			active = append(active, p.TrackingNumber)
		}
	}
	return all, active
}

// upsertReserves stores every package of the tenant's reserves, carrying the
// raw ledger payload alongside.
func (o *Orchestrator) upsertReserves(ctx context.Context, reserves []shipdomain.Reserve, clientID *int64, clientName string, stats *domain.RunStats, log *zap.Logger) {
	for _, r := range reserves {
		ledgerData, err := json.Marshal(r)
		if err != nil {
			log.Error("Failed to encode ledger payload", zap.String("reserve_id", r.ID), zap.Error(err))
			ledgerData = nil
		}
		for _, p := range r.Packages {
			if p.TrackingNumber == "" {
				continue
			}
			rec := shipdomain.ShipmentRecord{
				TrackingNumber: p.TrackingNumber,
				ClientID:       clientID,
				ClientNameRaw:  &clientName,
				Tenant:         r.Tenant,
				LedgerData:     ledgerData,
			}
			if r.OrderNumber != "" {
				rec.OrderNumber = &r.OrderNumber
			}
			if _, err := o.store.Upsert(ctx, rec); err != nil {
				log.Error("Failed to store shipment",
					zap.String("tracking_number", p.TrackingNumber),
					zap.Error(err))
				continue
			}
			stats.ShipmentsStored++
		}
	}
}

// applyUpdates writes carrier updates and marks delivered guides in the
// cache set.
func (o *Orchestrator) applyUpdates(ctx context.Context, updates []shipdomain.StatusUpdate, stats *domain.RunStats, log *zap.Logger) {
	for _, u := range updates {
		if err := o.store.ApplyTrackUpdate(ctx, u); err != nil {
			log.Error("Failed to apply carrier update",
				zap.String("tracking_number", u.TrackingNumber),
				zap.Error(err))
			continue
		}
		stats.ShipmentsUpdated++
		if u.IsDelivered {
			stats.ShipmentsDelivered++
			if err := o.cache.AddToSet(ctx, deliveredSetKey, u.TrackingNumber); err != nil {
				log.Warn("Failed to mark tracking as delivered in cache",
					zap.String("tracking_number", u.TrackingNumber),
					zap.Error(err))
			}
		}
	}
}

func (o *Orchestrator) complete(ctx context.Context, runID int64, status domain.RunStatus, stats domain.RunStats, flowErrors []domain.FlowError) {
	if err := o.runs.Complete(ctx, runID, status, stats, flowErrors); err != nil {
		o.log.Error("Failed to close run log", zap.Int64("run_id", runID), zap.Error(err))
	}
}

// flowAlert carries the fields of one operator error alert.
type flowAlert struct {
	tenant     int
	clientName string
	errType    string
	detail     string
	affected   int
	total      int
	scope      string
}

// alertFlowError notifies the operator about a failure inside the run.
func (o *Orchestrator) alertFlowError(ctx context.Context, stats *domain.RunStats, a flowAlert) {
	detail := a.detail
	if len(detail) > 300 {
		detail = detail[:300] + "..."
	}
	var b strings.Builder
	b.WriteString("Se produjo un error durante el ciclo diario:\n\n")
	if a.tenant > 0 {
		fmt.Fprintf(&b, "👤 Cliente: %s (Tenant #%d)\n", a.clientName, a.tenant)
	} else {
		fmt.Fprintf(&b, "👤 Cliente: %s\n", a.clientName)
	}
	fmt.Fprintf(&b, "❌ Tipo de error: %s\n", a.errType)
	if a.total > 0 {
		fmt.Fprintf(&b, "📦 Guías afectadas: %d\n", a.affected)
		fmt.Fprintf(&b, "📊 Total guías activas en el ciclo: %d\n", a.total)
	}
	fmt.Fprintf(&b, "🔄 Alcance: %s\n\nDetalle: %s", a.scope, detail)
	o.sendAdminAlert(ctx, stats, b.String())
}

// alertTenantNotFound notifies the operator that a ledger tenant has no CRM
// company, listing up to five of its guides.
func (o *Orchestrator) alertTenantNotFound(ctx context.Context, stats *domain.RunStats, tenant int, tracking []string) {
	shown := tracking
	extra := 0
	if len(shown) > 5 {
		extra = len(shown) - 5
		shown = shown[:5]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tenant #%d tiene %d guías en el ledger pero no existe en el CRM.\n\n", tenant, len(tracking))
	b.WriteString("Guías:\n")
	for _, t := range shown {
		fmt.Fprintf(&b, "  • %s\n", t)
	}
	if extra > 0 {
		fmt.Fprintf(&b, "  ... y %d más\n", extra)
	}
	b.WriteString("\nRegistrar la empresa en el CRM para que reciba sus reportes.")
	o.sendAdminAlert(ctx, stats, b.String())
}

// alertNoContacts notifies the operator that a client has no WhatsApp
// recipients, so its report cannot be delivered.
func (o *Orchestrator) alertNoContacts(ctx context.Context, stats *domain.RunStats, tenant int, clientName string, guides int) {
	msg := fmt.Sprintf(
		"El cliente %s (Tenant #%d) existe en el CRM pero no tiene contactos con WhatsApp.\n\n"+
			"📦 Guías en seguimiento: %d\n"+
			"El reporte diario no pudo ser enviado. Agregar un contacto con número móvil.",
		clientName, tenant, guides)
	o.sendAdminAlert(ctx, stats, msg)
}

// sendRunSummary sends the end-of-run digest when the run had errors.
func (o *Orchestrator) sendRunSummary(ctx context.Context, stats *domain.RunStats, status domain.RunStatus, flowErrors []domain.FlowError) {
	var b strings.Builder
	b.WriteString("📊 *Sentinel Tracker - Resumen Diario*\n\n")
	fmt.Fprintf(&b, "Estado: %s\n", status)
	fmt.Fprintf(&b, "Errores: %d\n", len(flowErrors))
	fmt.Fprintf(&b, "Tenants procesados: %d\n", stats.TenantsInCRM)
	fmt.Fprintf(&b, "Reportes enviados: %d\n", stats.ReportsSent)
	fmt.Fprintf(&b, "Alertas enviadas: %d\n", stats.AlertsSent)
	b.WriteString("\nPasos con error:\n")
	for _, fe := range flowErrors {
		fmt.Fprintf(&b, "  • %s\n", fe.Step)
	}
	o.sendAdminAlert(ctx, stats, b.String())
}

func (o *Orchestrator) sendAdminAlert(ctx context.Context, stats *domain.RunStats, msg string) {
	if o.adminPhone == "" {
		o.log.Warn("Admin alert skipped, no admin phone configured")
		return
	}
	if err := o.notifier.SendAlert(ctx, o.adminPhone, msg); err != nil {
		o.log.Error("Failed to send admin alert", zap.Error(err))
		return
	}
	stats.AlertsSent++
}

func countTracking(reserves []shipdomain.Reserve) int {
	n := 0
	for _, r := range reserves {
		for _, p := range r.Packages {
			if p.TrackingNumber != "" {
				n++
			}
		}
	}
	return n
}
