package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bagel-preorder-backend/internal/model"
)

// SMSOutcome is reported to the customer alongside a new order.
type SMSOutcome string

const (
	SMSSent          SMSOutcome = "sent"
	SMSFailed        SMSOutcome = "failed"
	SMSNotConfigured SMSOutcome = "not_configured"
)

// Dispatcher fans a placed order out to the customer (SMS) and the kitchen (push).
type Dispatcher struct {
	sms    SMSSender
	alerts *WorkerPool
}

// NewDispatcher creates a dispatcher. alerts may be nil when push is disabled.
func NewDispatcher(sms SMSSender, alerts *WorkerPool) *Dispatcher {
	return &Dispatcher{sms: sms, alerts: alerts}
}

// ConfirmationText is the SMS sent when an order is accepted.
func ConfirmationText(o *model.Order) string {
	return fmt.Sprintf("Thanks! We received your order for %s on %s %s. Reply STOP to opt out.",
		o.Item, o.Day, o.Slot)
}

// ReadyText is the default SMS sent when staff resend a notification.
func ReadyText(o *model.Order) string {
	return fmt.Sprintf("Your order is ready for pickup! %s for %s %s.", o.Item, o.Day, o.Slot)
}

// OrderPlaced texts the customer and queues a kitchen alert. It never fails;
// the SMS result is returned for the response body.
func (d *Dispatcher) OrderPlaced(ctx context.Context, o *model.Order) SMSOutcome {
	if d.alerts != nil {
		d.alerts.Dispatch(*o)
	}

	err := d.sms.Send(ctx, o.Phone, ConfirmationText(o))
	switch {
	case err == nil:
		return SMSSent
	case errors.Is(err, ErrSMSNotConfigured):
		return SMSNotConfigured
	default:
		log.Printf("Confirmation SMS for order %d failed: %v", o.ID, err)
		return SMSFailed
	}
}

// SendSMS sends an arbitrary message, returning ErrSMSNotConfigured when disabled.
func (d *Dispatcher) SendSMS(ctx context.Context, to, body string) error {
	return d.sms.Send(ctx, to, body)
}
