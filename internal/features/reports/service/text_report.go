package service

import (
	"fmt"
	"strings"
	"time"

	shipments "tracking-sentinel/internal/features/shipments/domain"
)

// TextReportGenerator renders the WhatsApp text report sent to each client.
type TextReportGenerator struct {
	loc *time.Location
	now func() time.Time
}

// NewTextReportGenerator creates a generator anchored to the operating
// timezone.
func NewTextReportGenerator(loc *time.Location) *TextReportGenerator {
	return &TextReportGenerator{loc: loc, now: time.Now}
}

// statusLabels maps normalized statuses to the Spanish wording used in the
// client report.
var statusLabels = map[shipments.NormalizedStatus]string{
	shipments.StatusLabelCreated:      "Label creada",
	shipments.StatusPickedUp:          "Recogido",
	shipments.StatusInTransit:         "En tránsito",
	shipments.StatusInCustoms:         "En aduanas",
	shipments.StatusOutForDelivery:    "En reparto",
	shipments.StatusDelivered:         "Entregado",
	shipments.StatusException:         "Excepción de entrega",
	shipments.StatusDelayed:           "Demorado",
	shipments.StatusOnHold:            "Retenido",
	shipments.StatusDeliveryAttempted: "Intento de entrega",
	shipments.StatusReturnedToSender:  "Devuelto a origen",
	shipments.StatusCancelled:         "Cancelado",
	shipments.StatusUnknown:           "Sin información",
}

// attentionStatuses are listed individually in the report body.
var attentionStatuses = map[shipments.NormalizedStatus]bool{
	shipments.StatusException:         true,
	shipments.StatusReturnedToSender:  true,
	shipments.StatusInCustoms:         true,
	shipments.StatusDeliveryAttempted: true,
	shipments.StatusDelayed:           true,
	shipments.StatusOnHold:            true,
}

// ClientReport renders the daily summary for one client.
func (g *TextReportGenerator) ClientReport(clientName string, records []shipments.ShipmentRecord) string {
	date := g.now().In(g.loc).Format("2006-01-02")

	delivered := 0
	counts := make(map[shipments.NormalizedStatus]int)
	var flagged []shipments.ShipmentRecord
	for _, r := range records {
		if r.IsDelivered || r.NormalizedStatus == shipments.StatusDelivered {
			delivered++
			continue
		}
		counts[r.NormalizedStatus]++
		if attentionStatuses[r.NormalizedStatus] {
			flagged = append(flagged, r)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Reporte de envíos - %s*\n", clientName)
	fmt.Fprintf(&b, "Fecha: %s\n\n", date)
	fmt.Fprintf(&b, "Total guías: %d\n", len(records))
	fmt.Fprintf(&b, "Entregadas: %d\n", delivered)

	for _, status := range []shipments.NormalizedStatus{
		shipments.StatusInTransit,
		shipments.StatusOutForDelivery,
		shipments.StatusInCustoms,
		shipments.StatusLabelCreated,
	} {
		if counts[status] > 0 {
			fmt.Fprintf(&b, "%s: %d\n", statusLabels[status], counts[status])
		}
	}

	if len(flagged) > 0 {
		b.WriteString("\n⚠️ *Guías que requieren atención:*\n")
		for _, r := range flagged {
			fmt.Fprintf(&b, "• %s: %s", r.TrackingNumber, statusLabels[r.NormalizedStatus])
			if r.CarrierStatus != nil && *r.CarrierStatus != "" {
				fmt.Fprintf(&b, " (%s)", *r.CarrierStatus)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\n✅ Sin novedades pendientes.\n")
	}
	return b.String()
}
