package allocation

import (
	"context"
	"log"
)

// =============================================================================
// NOTIFICATION SINK - Fire-and-forget delivery to a collaborator
// =============================================================================

type Severity string

const (
	SeverityAlert   Severity = "alert"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

type Notification struct {
	Recipient string
	Subject   string
	Body      string
	Severity  Severity
}

// Notifier delivers notifications. Delivery failures must never roll
// back the state transition that triggered them; the lifecycle service
// logs and continues.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the process log. Default sink when
// no delivery integration is configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, n Notification) error {
	log.Printf("[Notify] to=%s severity=%s subject=%q", n.Recipient, n.Severity, n.Subject)
	return nil
}
