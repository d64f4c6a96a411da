package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is an in-process domain event. Events are transient fan-out signals,
// not a persisted log.
type Event struct {
	ID          uuid.UUID
	Topic       string
	AggregateID uuid.UUID
	OwnerID     uuid.UUID
	Payload     json.RawMessage
	OccurredAt  time.Time
}

// Notifier reacts to emitted events (logging, cache invalidation, task
// enqueueing).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus fans events out to its notifiers. Notifier failures are joined and
// reported to the caller but never abort remaining notifiers.
type Bus struct {
	Notifiers []Notifier

	Now func() time.Time
}

// Emit builds the event and dispatches it to all configured notifiers.
func (b *Bus) Emit(ctx context.Context, topic string, ownerID, aggregateID uuid.UUID, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	ev := Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		OwnerID:     ownerID,
		Payload:     encoded,
		OccurredAt:  now,
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}
