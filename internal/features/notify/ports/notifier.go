package ports

import "context"

// Notifier delivers outbound messages through the messaging relay.
type Notifier interface {
	// SendMessage delivers a plain text message to a phone number.
	SendMessage(ctx context.Context, phoneNumber, message string) error
	// SendReport delivers a formatted tracking report attributed to a client.
	SendReport(ctx context.Context, phoneNumber, report, clientName string) error
	// SendAlert delivers an operator alert with the alert banner prefixed.
	SendAlert(ctx context.Context, phoneNumber, message string) error
}
