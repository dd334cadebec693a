package square

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
	"github.com/decorlyhq/decorly-backend/pkg/metrics"
)

// replayTTL bounds how long an event id is remembered. Square retries
// webhooks for at most 72 hours.
const replayTTL = 96 * time.Hour

// Event is the envelope Square posts to the webhook endpoint.
type Event struct {
	MerchantID string    `json:"merchant_id"`
	Type       string    `json:"type"`
	EventID    string    `json:"event_id"`
	CreatedAt  string    `json:"created_at"`
	Data       EventData `json:"data"`
}

// EventData wraps the typed object inside an event.
type EventData struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Object json.RawMessage `json:"object"`
}

type paymentObject struct {
	Payment struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		OrderID string `json:"order_id"`
		Note    string `json:"note"`
	} `json:"payment"`
}

// OrderSettler marks pending orders paid for a settled gateway transaction.
type OrderSettler interface {
	MarkPaidByTransaction(ctx context.Context, transactionID string) (int64, error)
}

// ReplayGuard remembers processed event ids so redelivered webhooks are
// dropped before they touch the ledger.
type ReplayGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	WebhookEventKey(eventID string) string
}

// Service applies Square webhook events to the order ledger.
type Service struct {
	settler  OrderSettler
	guard    ReplayGuard
	commerce *metrics.CommerceMetrics
	log      *logger.Logger
}

// NewService builds a webhook service.
func NewService(settler OrderSettler, guard ReplayGuard, commerce *metrics.CommerceMetrics, log *logger.Logger) *Service {
	return &Service{settler: settler, guard: guard, commerce: commerce, log: log}
}

// HandleEvent processes one webhook delivery. Redeliveries and event types
// outside the payment lifecycle are acknowledged without side effects, so
// Square stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil || event.EventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event id is required")
	}
	if event.Type == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event type is required")
	}

	ctx = s.log.WithFields(ctx, map[string]any{
		"event_id":   event.EventID,
		"event_type": event.Type,
	})

	if s.guard != nil {
		fresh, err := s.guard.SetNX(ctx, s.guard.WebhookEventKey(event.EventID), "1", replayTTL)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook replay guard unavailable")
		}
		if !fresh {
			s.commerce.IncPaymentEvent("webhook_duplicate")
			s.log.Info(ctx, "webhook event redelivered, skipping")
			return nil
		}
	}

	switch event.Type {
	case "payment.created", "payment.updated":
		return s.handlePayment(ctx, event)
	default:
		s.log.Info(ctx, "webhook event type ignored")
		return nil
	}
}

func (s *Service) handlePayment(ctx context.Context, event *Event) error {
	var object paymentObject
	if err := json.Unmarshal(event.Data.Object, &object); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed payment payload")
	}
	payment := object.Payment
	if payment.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id missing from webhook")
	}

	if !strings.EqualFold(payment.Status, "COMPLETED") {
		s.log.Info(s.log.WithField(ctx, "payment_status", payment.Status), "payment not settled yet, ignoring")
		return nil
	}

	updated, err := s.settler.MarkPaidByTransaction(ctx, payment.ID)
	if err != nil {
		return err
	}
	s.commerce.IncPaymentEvent("webhook_applied")
	s.log.Info(s.log.WithField(ctx, "orders_updated", updated), "payment webhook applied")
	return nil
}

// VerifySignature checks the x-square-hmacsha256-signature header: an HMAC
// SHA-256 of the notification URL concatenated with the raw body, base64
// encoded with the webhook signature key.
func VerifySignature(secret, notificationURL string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
