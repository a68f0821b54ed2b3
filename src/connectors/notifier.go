package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

// Event is the JSON payload of one outbound webhook delivery. Triggers and
// briefings share the envelope; the optional fields differ per type.
type Event struct {
	EventID     string     `json:"event_id"`
	Type        string     `json:"type"`
	UserID      uint       `json:"user_id"`
	PositionID  uint       `json:"position_id,omitempty"`
	Symbol      string     `json:"symbol,omitempty"`
	OptionType  string     `json:"option_type,omitempty"`
	StrikePrice float64    `json:"strike_price,omitempty"`
	Expiration  string     `json:"expiration,omitempty"`
	TriggerType string     `json:"trigger_type,omitempty"`
	Price       float64    `json:"price,omitempty"`
	RealizedPnl *float64   `json:"realized_pnl,omitempty"`
	LossAvoided *float64   `json:"loss_avoided,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Message     string     `json:"message,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

const (
	EventTypeTrigger  = "trigger"
	EventTypeBriefing = "briefing"
)

// NewEvent stamps a fresh event envelope.
func NewEvent(eventType string) Event {
	return Event{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier makes exactly one best-effort delivery attempt per event. There is
// no queue or retry layer for these events; a failed delivery is logged and
// swallowed by the caller.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// WebhookNotifier POSTs events to a single configured webhook URL.
type WebhookNotifier struct {
	http *resty.Client
	url  string
}

func NewWebhookNotifier(webhookURL string, timeout time.Duration) *WebhookNotifier {
	// No retry here: at-most-one delivery attempt per event.
	httpClient := resty.New().SetTimeout(timeout)

	return &WebhookNotifier{
		http: httpClient,
		url:  webhookURL,
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, event Event) error {
	if n.url == "" {
		logger.WithField("event_id", event.EventID).
			Debug("No webhook URL configured, dropping event")
		return nil
	}

	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(event).
		Post(n.url)

	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode())
	}

	logger.WithFields(map[string]interface{}{
		"event_id": event.EventID,
		"type":     event.Type,
	}).Info("Event delivered")

	return nil
}
