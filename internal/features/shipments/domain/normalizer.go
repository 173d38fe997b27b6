package domain

import "strings"

// descriptionGroup pairs a normalized status with the lowercase substrings
// that indicate it. Groups are checked in order; the first match wins, so
// more specific phrases must come before generic ones.
type descriptionGroup struct {
	status   NormalizedStatus
	keywords []string
}

var descriptionGroups = []descriptionGroup{
	{StatusLabelCreated, []string{"shipment information sent", "label created", "shipping label"}},
	{StatusDelivered, []string{"delivered"}},
	{StatusOutForDelivery, []string{"out for delivery", "on fedex vehicle for delivery"}},
	{StatusPickedUp, []string{"picked up", "package received"}},
	{StatusInTransit, []string{
		"in transit", "departed", "arrived", "left fedex", "at fedex",
		"on the way", "at destination sort", "at local fedex", "in fedex",
		"international shipment release",
	}},
	{StatusInCustoms, []string{"clearance", "customs", "import", "broker"}},
	{StatusException, []string{"exception"}},
	{StatusDelayed, []string{"delay"}},
	{StatusOnHold, []string{"hold"}},
	{StatusDeliveryAttempted, []string{"delivery attempt", "unable to deliver"}},
	{StatusReturnedToSender, []string{"return"}},
	{StatusCancelled, []string{"cancel"}},
}

// codeTable maps carrier derived status codes to normalized statuses. Only
// consulted when the description matched nothing.
var codeTable = map[string]NormalizedStatus{
	"DL": StatusDelivered,
	"OD": StatusOutForDelivery,
	"PU": StatusPickedUp,
	"IT": StatusInTransit,
	"AA": StatusInTransit,
	"AR": StatusInTransit,
	"DP": StatusInTransit,
	"AF": StatusInTransit,
	"PM": StatusInTransit,
	"DE": StatusException,
	"SE": StatusException,
	"OC": StatusException,
	"HL": StatusOnHold,
	"RS": StatusReturnedToSender,
	"CA": StatusCancelled,
	"CD": StatusInCustoms,
	"IN": StatusLabelCreated,
	"SP": StatusLabelCreated,
	"PL": StatusLabelCreated,
}

// Normalize maps a carrier status code and free-text description to the
// internal status vocabulary. The description is authoritative: keyword
// matching runs first and the code table only breaks ties when the text
// said nothing recognizable. Unrecognized inputs fall through to
// StatusUnknown, never an error.
func Normalize(code, description string) NormalizedStatus {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc != "" {
		for _, g := range descriptionGroups {
			for _, kw := range g.keywords {
				if strings.Contains(desc, kw) {
					return g.status
				}
			}
		}
	}
	if s, ok := codeTable[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return s
	}
	return StatusUnknown
}
