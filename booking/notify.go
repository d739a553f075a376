/*
notify.go - Notification gateway contract and confirmation templates

The engine sends exactly one confirmation per booking. Delivery is
pluggable: an SMTP client, a logging fake, or an outbox queue all satisfy
Notifier. The engine never retries inline - a failed send leaves the
notified flag false, and the next confirming save is the only retry path.
*/
package booking

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Notifier delivers a confirmation message. Implementations must honor
// ctx cancellation; the machine bounds every send with a timeout.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Logger is the minimal logging capability the engine needs, injected so
// tests can substitute it.
type Logger interface {
	Printf(format string, v ...any)
}

// stdLogger adapts the process logger.
type stdLogger struct{}

func (stdLogger) Printf(format string, v ...any) { log.Printf(format, v...) }

// DefaultLogger returns a Logger backed by the standard library logger.
func DefaultLogger() Logger { return stdLogger{} }

// =============================================================================
// CONFIRMATION TEMPLATES
// =============================================================================

const toBeConfirmed = "to be confirmed"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return toBeConfirmed
	}
	return t.Format("2006-01-02")
}

// ReservationConfirmation builds the one-time confirmation message for a
// confirmed training program reservation.
func ReservationConfirmation(clientName, programName string, startDate time.Time) (subject, body string) {
	subject = "Reservation Confirmed - Training Program"
	body = fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your reservation for the training program '%s' has been confirmed.\n\n"+
			"Reservation details:\n"+
			"- Program: %s\n"+
			"- Start date: %s\n\n"+
			"Thank you for trusting our services.\n\n"+
			"Regards,\n"+
			"Security & Training Operations",
		clientName, programName, programName, formatDate(startDate),
	)
	return subject, body
}

// ContractConfirmation builds the one-time confirmation message for a
// confirmed security service contract.
func ContractConfirmation(clientName, serviceName string, startDate, endDate time.Time) (subject, body string) {
	subject = "Contract Confirmed - Security Service"
	body = fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your contract for the security service '%s' has been confirmed.\n\n"+
			"Contract details:\n"+
			"- Service: %s\n"+
			"- Start date: %s\n"+
			"- End date: %s\n\n"+
			"Thank you for trusting our services.\n\n"+
			"Regards,\n"+
			"Security & Training Operations",
		clientName, serviceName, serviceName, formatDate(startDate), formatDate(endDate),
	)
	return subject, body
}
