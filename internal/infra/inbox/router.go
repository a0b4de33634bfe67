package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"monteur/internal/app/commands"
	reservationhandlers "monteur/internal/app/handlers/reservation"
	"monteur/internal/app/middleware"
	appoutbox "monteur/internal/app/outbox"
	"monteur/internal/app/policies"
	domainreservation "monteur/internal/domain/reservation"
)

const (
	EventReservationCommitted = "reservation.committed"
	EventPaymentSettled       = "payment.settled"
	EventPaymentFailed        = "payment.failed"
	EventPaymentRefunded      = "payment.refunded"

	// PaymentsActor is the operator identity payment settlements run under.
	PaymentsActor = "system:payments"
)

var ErrMalformedEvent = errors.New("inbox: malformed event")

// Event is the part of a CloudEvents envelope the router needs.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	Subject string          `json:"subject"`
	Time    time.Time       `json:"time"`
	Data    json.RawMessage `json:"data"`
}

// Name is the event type without its version suffix.
func (e Event) Name() string {
	return strings.TrimSuffix(e.Type, ".v1")
}

func ParseCloudEvent(payload []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if evt.ID == "" || evt.Type == "" {
		return Event{}, fmt.Errorf("%w: id and type are required", ErrMalformedEvent)
	}
	return evt, nil
}

type paymentData struct {
	ReservationID string `json:"reservation_id"`
	Reference     string `json:"reference"`
}

// Router reacts to integration events: committed reservations notify the
// operators, payment provider facts become reservation.payment commands.
type Router struct {
	Inbox    Deduper
	Notifier policies.Notifier
	Commands commands.Bus
	Logger   *slog.Logger
}

// Dispatch handles evt at most once per event id. A failed event is
// forgotten so the broker redelivery retries it.
func (r *Router) Dispatch(ctx context.Context, evt Event) error {
	if r.Inbox != nil {
		seen, err := r.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			r.logger().DebugContext(ctx, "duplicate event skipped", "event", evt.Type, "id", evt.ID)
			return nil
		}
	}
	if err := r.route(ctx, evt); err != nil {
		if r.Inbox != nil {
			if ferr := r.Inbox.Forget(ctx, evt.ID); ferr != nil {
				r.logger().WarnContext(ctx, "inbox forget failed", "id", evt.ID, "error", ferr)
			}
		}
		return err
	}
	return nil
}

// Relay feeds a committed outbox record straight into the router, for
// deployments without a broker.
func (r *Router) Relay(ctx context.Context, record appoutbox.EventRecord) error {
	return r.Dispatch(ctx, Event{
		ID:      record.ID,
		Type:    record.Name,
		Subject: record.Aggregate,
		Time:    record.OccurredAt,
		Data:    record.Payload,
	})
}

func (r *Router) route(ctx context.Context, evt Event) error {
	switch name := evt.Name(); name {
	case EventReservationCommitted:
		return r.notify(ctx, policies.TemplateReservationCommitted, evt)
	case EventPaymentSettled:
		return r.recordPayment(ctx, evt, domainreservation.PaymentPaid)
	case EventPaymentFailed:
		if err := r.recordPayment(ctx, evt, domainreservation.PaymentFailed); err != nil {
			return err
		}
		return r.notify(ctx, policies.TemplatePaymentFailed, evt)
	case EventPaymentRefunded:
		return r.recordPayment(ctx, evt, domainreservation.PaymentRefunded)
	default:
		return nil
	}
}

// notify never fails the event: a lost push message is not worth a redelivery.
func (r *Router) notify(ctx context.Context, template string, evt Event) error {
	if r.Notifier == nil {
		return nil
	}
	var data map[string]any
	if len(evt.Data) > 0 {
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
	}
	if err := r.Notifier.Send(ctx, policies.AudienceOperators, template, data); err != nil {
		r.logger().WarnContext(ctx, "operator notification failed", "template", template, "id", evt.ID, "error", err)
	}
	return nil
}

func (r *Router) recordPayment(ctx context.Context, evt Event, status domainreservation.PaymentStatus) error {
	if r.Commands == nil {
		return errors.New("inbox: command bus not configured")
	}
	var data paymentData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if data.ReservationID == "" {
		data.ReservationID = evt.Subject
	}
	if data.ReservationID == "" {
		return fmt.Errorf("%w: reservation id missing", ErrMalformedEvent)
	}
	cmd := reservationhandlers.RecordPaymentCommand{
		ReservationID: data.ReservationID,
		Status:        string(status),
		Reference:     data.Reference,
	}
	_, err := r.Commands.Dispatch(middleware.ContextWithOperator(ctx, PaymentsActor), cmd)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domainreservation.ErrNotFound), errors.Is(err, domainreservation.ErrInvalidTransition):
		// stale or replayed provider fact
		r.logger().WarnContext(ctx, "payment event ignored", "event", evt.Type, "reservation", data.ReservationID, "error", err)
		return nil
	default:
		return err
	}
}

func (r *Router) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
