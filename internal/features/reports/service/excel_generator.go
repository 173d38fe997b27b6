package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tracking-sentinel/internal/core/logger"
	shipments "tracking-sentinel/internal/features/shipments/domain"
)

var excelHeaders = []string{
	"Nombre Cliente",
	"FEDEX Tracking",
	"Sentinel status",
	"FedEx status",
	"Label Creation Date",
	"Shipping Date",
	"Days After Shipment",
	"Working Days After Shipment",
	"Days After Label Creation",
	"Destination City/State/Country",
	"Historial",
	"Sentinel Recomendacion",
}

var excelColWidths = []float64{22, 18, 14, 20, 18, 16, 24, 28, 24, 30, 60, 40}

// ExcelGenerator renders tracking workbooks for operations.
type ExcelGenerator struct {
	outputDir string
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
}

// NewExcelGenerator creates a generator writing workbooks under outputDir.
func NewExcelGenerator(outputDir string, loc *time.Location) *ExcelGenerator {
	return &ExcelGenerator{
		outputDir: outputDir,
		loc:       loc,
		now:       time.Now,
		log:       logger.Named("excel-reports"),
	}
}

// ConsolidatedReport writes one workbook holding every tenant's shipments,
// grouped by tenant name, and returns the file path.
func (g *ExcelGenerator) ConsolidatedReport(byTenant map[string][]shipments.ShipmentRecord) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Consolidado"
	f.SetSheetName("Sheet1", sheet)

	styles, err := g.prepareSheet(f, sheet)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(byTenant))
	for name := range byTenant {
		names = append(names, name)
	}
	sort.Strings(names)

	row := 2
	for _, name := range names {
		for _, r := range byTenant[name] {
			if err := g.writeShipmentRow(f, sheet, styles, row, name, r); err != nil {
				return "", err
			}
			row++
		}
	}
	g.finishSheet(f, sheet, row-1)

	dateStr := g.now().In(g.loc).Format("2006-01-02")
	path := filepath.Join(g.outputDir, fmt.Sprintf("Sentinel_Tracking_Consolidado_%s.xlsx", dateStr))
	if err := g.save(f, path); err != nil {
		return "", err
	}
	g.log.Info("Consolidated report saved", zap.String("path", path), zap.Int("shipments", row-2))
	return path, nil
}

// TenantReport writes a workbook with one tenant's shipments and returns
// the file path. An empty shipment list is an error.
func (g *ExcelGenerator) TenantReport(tenantName string, records []shipments.ShipmentRecord) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("no shipments to report for %s", tenantName)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := tenantName
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	f.SetSheetName("Sheet1", sheet)

	styles, err := g.prepareSheet(f, sheet)
	if err != nil {
		return "", err
	}

	for i, r := range records {
		if err := g.writeShipmentRow(f, sheet, styles, i+2, tenantName, r); err != nil {
			return "", err
		}
	}
	g.finishSheet(f, sheet, len(records)+1)

	dateStr := g.now().In(g.loc).Format("2006-01-02")
	path := filepath.Join(g.outputDir, fmt.Sprintf("Sentinel_Tracking_%s_%s.xlsx", safeFileName(tenantName), dateStr))
	if err := g.save(f, path); err != nil {
		return "", err
	}
	g.log.Info("Tenant report saved",
		zap.String("tenant", tenantName),
		zap.String("path", path),
		zap.Int("shipments", len(records)))
	return path, nil
}

// sheetStyles holds the style ids used while writing one sheet.
type sheetStyles struct {
	data      int
	wrapped   int
	delivered int
	alert     int
}

func (g *ExcelGenerator) prepareSheet(f *excelize.File, sheet string) (sheetStyles, error) {
	var styles sheetStyles

	thinBorder := []excelize.Border{
		{Type: "left", Style: 1, Color: "D9D9D9"},
		{Type: "right", Style: 1, Color: "D9D9D9"},
		{Type: "top", Style: 1, Color: "D9D9D9"},
		{Type: "bottom", Style: 1, Color: "D9D9D9"},
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Bold: true, Color: "FFFFFF", Size: 10},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, fmt.Errorf("failed to build header style: %w", err)
	}

	styles.data, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10},
		Alignment: &excelize.Alignment{Vertical: "top"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, fmt.Errorf("failed to build data style: %w", err)
	}
	styles.wrapped, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, fmt.Errorf("failed to build wrapped style: %w", err)
	}
	styles.delivered, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"E2EFDA"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, fmt.Errorf("failed to build delivered style: %w", err)
	}
	styles.alert, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FCE4EC"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, fmt.Errorf("failed to build alert style: %w", err)
	}

	for i, header := range excelHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
		f.SetColWidth(sheet, col, col, excelColWidths[i])
	}
	f.SetRowHeight(sheet, 1, 30)
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return styles, nil
}

func (g *ExcelGenerator) writeShipmentRow(f *excelize.File, sheet string, styles sheetStyles, row int, tenantName string, r shipments.ShipmentRecord) error {
	today := toDate(g.now().In(g.loc))

	destination := joinNonEmpty(", ",
		deref(r.DestinationCity), deref(r.DestinationState), deref(r.DestinationCountry))

	values := []any{
		tenantName,
		r.TrackingNumber,
		titleStatus(r.NormalizedStatus),
		deref(r.CarrierStatus),
		formatDate(r.LabelCreationDate),
		formatDate(r.ShipDate),
		daysText(r.ShipDate, r.DeliveryDate, today, r.IsDelivered),
		workingDaysText(r.ShipDate, r.DeliveryDate, today, r.IsDelivered),
		daysText(r.LabelCreationDate, r.DeliveryDate, today, r.IsDelivered),
		destination,
		formatHistory(r.RawCarrierResponse),
		recommendation(r.NormalizedStatus, r.ShipDate, r.DeliveryDate, today, r.IsDelivered),
	}

	for i, v := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
		style := styles.data
		switch {
		case r.IsDelivered:
			style = styles.delivered
		case r.NormalizedStatus == shipments.StatusException ||
			r.NormalizedStatus == shipments.StatusReturnedToSender ||
			r.NormalizedStatus == shipments.StatusInCustoms:
			style = styles.alert
		case i >= 10:
			style = styles.wrapped
		}
		f.SetCellStyle(sheet, cell, cell, style)
	}
	return nil
}

func (g *ExcelGenerator) finishSheet(f *excelize.File, sheet string, lastRow int) {
	if lastRow >= 2 {
		lastCol, _ := excelize.ColumnNumberToName(len(excelHeaders))
		f.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil)
	}
}

func (g *ExcelGenerator) save(f *excelize.File, path string) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func titleStatus(status shipments.NormalizedStatus) string {
	if status == "" {
		return ""
	}
	words := strings.Split(string(status), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func safeFileName(name string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return c
		case c == '_' || c == ' ' || c == '-':
			return c
		default:
			return '_'
		}
	}, name)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func calendarDays(start, end time.Time) int {
	return int(toDate(end).Sub(toDate(start)).Hours() / 24)
}

// businessDays counts weekdays after start up to and including end.
func businessDays(start, end time.Time) int {
	count := 0
	for day := toDate(start).AddDate(0, 0, 1); !day.After(toDate(end)); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

func daysText(start, delivery *time.Time, today time.Time, isDelivered bool) string {
	if start == nil {
		return ""
	}
	if isDelivered && delivery != nil {
		return fmt.Sprintf("ENTREGADO EN %d DIAS", calendarDays(*start, *delivery))
	}
	days := calendarDays(*start, today)
	if days < 0 {
		return "PENDIENTE"
	}
	return fmt.Sprintf("%d DIAS EN TRANSITO", days)
}

func workingDaysText(start, delivery *time.Time, today time.Time, isDelivered bool) string {
	if start == nil {
		return ""
	}
	if isDelivered && delivery != nil {
		return fmt.Sprintf("ENTREGADO EN %d DIAS HABILES", businessDays(*start, *delivery))
	}
	return fmt.Sprintf("%d DIAS HABILES EN TRANSITO", businessDays(*start, today))
}

func recommendation(status shipments.NormalizedStatus, shipDate, deliveryDate *time.Time, today time.Time, isDelivered bool) string {
	if isDelivered && deliveryDate != nil && shipDate != nil {
		days := calendarDays(*shipDate, *deliveryDate)
		switch {
		case days <= 7:
			return "Buen tiempo de entrega dentro de lo esperado."
		case days <= 14:
			return "Entrega dentro de rango aceptable."
		default:
			return fmt.Sprintf("Entrega demorada (%d dias). Revisar con FedEx si hay patron.", days)
		}
	}

	if shipDate == nil {
		return "Sin fecha de envio registrada."
	}
	transitDays := calendarDays(*shipDate, today)

	switch {
	case status == shipments.StatusException:
		return "ATENCION: Excepcion de entrega. Contactar FedEx inmediatamente."
	case status == shipments.StatusReturnedToSender:
		return "CRITICO: Paquete devuelto a origen. Accion inmediata requerida."
	case status == shipments.StatusInCustoms:
		return "En retencion de aduana. Monitorear y preparar documentacion."
	case transitDays > 21:
		return fmt.Sprintf("ALERTA: %d dias en transito. Posible perdida. Abrir reclamo.", transitDays)
	case transitDays > 14:
		return fmt.Sprintf("Atencion: %d dias en transito. Monitorear de cerca.", transitDays)
	case transitDays > 7:
		return "En transito, dentro de rango normal para envio internacional."
	default:
		return "En transito, tiempo normal."
	}
}

// formatHistory renders scan events stored in the raw carrier payload.
func formatHistory(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var payload struct {
		TrackResults []struct {
			ScanEvents []struct {
				Date             string `json:"date"`
				EventDescription string `json:"eventDescription"`
				ScanLocation     struct {
					City string `json:"city"`
				} `json:"scanLocation"`
			} `json:"scanEvents"`
		} `json:"trackResults"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.TrackResults) == 0 {
		return ""
	}

	events := payload.TrackResults[0].ScanEvents
	if len(events) > 5 {
		events = events[:5]
	}
	parts := make([]string, 0, len(events))
	for _, e := range events {
		entry := fmt.Sprintf("%s: %s", e.Date, e.EventDescription)
		if e.ScanLocation.City != "" {
			entry += fmt.Sprintf(" (%s)", e.ScanLocation.City)
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, " -> ")
}
