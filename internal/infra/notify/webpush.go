package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sony/gobreaker"

	"monteur/internal/app/policies"
)

var ErrUnknownTemplate = errors.New("notify: unknown template")

// Sender sends a single web push message.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type WebPushSender struct{}

func (WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions holds the browser push subscriptions of the operators.
type Subscriptions interface {
	List(ctx context.Context) ([]webpush.Subscription, error)
	Add(ctx context.Context, sub webpush.Subscription) error
	Remove(ctx context.Context, endpoint string) error
}

type MemorySubscriptions struct {
	mu   sync.RWMutex
	subs map[string]webpush.Subscription
}

func NewMemorySubscriptions() *MemorySubscriptions {
	return &MemorySubscriptions{subs: make(map[string]webpush.Subscription)}
}

func (m *MemorySubscriptions) List(context.Context) ([]webpush.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]webpush.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	return out, nil
}

func (m *MemorySubscriptions) Add(_ context.Context, sub webpush.Subscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return errors.New("notify: incomplete push subscription")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.Endpoint] = sub
	return nil
}

func (m *MemorySubscriptions) Remove(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, endpoint)
	return nil
}

type message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  any    `json:"data,omitempty"`
}

func render(template string, data any) (message, error) {
	fields, _ := data.(map[string]any)
	switch template {
	case policies.TemplateReservationCommitted:
		return message{
			Title: "Neue Buchung",
			Body:  fmt.Sprintf("%v bucht %v", fields["GuestName"], fields["Unit"]),
			Data:  data,
		}, nil
	case policies.TemplatePaymentFailed:
		return message{
			Title: "Zahlung fehlgeschlagen",
			Body:  fmt.Sprintf("Buchung %v", fields["reservation_id"]),
			Data:  data,
		}, nil
	default:
		return message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
	}
}

// WebPushNotifier pushes operator notifications to every registered
// subscription. Expired subscriptions (410) are dropped.
type WebPushNotifier struct {
	subs    Subscriptions
	options *webpush.Options
	sender  Sender
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        int
}

func NewWebPushNotifier(cfg WebPushConfig, subs Subscriptions, logger *slog.Logger) *WebPushNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 3600
	}
	return &WebPushNotifier{
		subs: subs,
		options: &webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			TTL:             ttl,
		},
		sender:  WebPushSender{},
		breaker: circuitBreaker("webpush", logger),
		logger:  logger,
	}
}

func (n *WebPushNotifier) PublicKey() string { return n.options.VAPIDPublicKey }

func (n *WebPushNotifier) Subscriptions() Subscriptions { return n.subs }

func (n *WebPushNotifier) Send(ctx context.Context, to, template string, data any) error {
	if to != policies.AudienceOperators {
		return fmt.Errorf("notify: unknown audience %q", to)
	}
	msg, err := render(template, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subs, err := n.subs.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for i := range subs {
		if err := n.push(ctx, payload, &subs[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *WebPushNotifier) push(ctx context.Context, payload []byte, sub *webpush.Subscription) error {
	res, err := n.breaker.Execute(func() (any, error) {
		resp, err := n.sender.Send(payload, sub, n.options)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("notify: push service answered %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return err
	}
	if status := res.(int); status == http.StatusGone || status == http.StatusNotFound {
		n.logger.InfoContext(ctx, "dropping expired push subscription", "endpoint", sub.Endpoint)
		return n.subs.Remove(ctx, sub.Endpoint)
	}
	return nil
}

func circuitBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// LogNotifier writes notifications to the log when no push keys are set.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to, template string, data any) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "to", to, "template", template, "data", data)
	return nil
}

var (
	_ policies.Notifier = (*WebPushNotifier)(nil)
	_ policies.Notifier = LogNotifier{}
)
