package policies

import "context"

// Notifier delivers operator notifications. `to` names an audience, the
// template selects the message layout.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}

const (
	AudienceOperators = "operators"

	TemplateReservationCommitted = "reservation_committed"
	TemplatePaymentFailed        = "payment_failed"
)
