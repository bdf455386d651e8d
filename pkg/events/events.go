package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TopicUsers    = "user_events"
	TopicProducts = "product_events"
	TopicCart     = "cart_events"
	TopicOrders   = "order_events"
)

// Envelope wraps every payload published to the event bus.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	RequestID  string          `json:"request_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher is fire-and-forget: a failed publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload any)
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

func requestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}

func newEnvelope(ctx context.Context, producer, eventType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Producer:   producer,
		RequestID:  requestID(ctx),
		Payload:    raw,
	}, nil
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, string, any) {}
