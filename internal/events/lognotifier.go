package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier records every emitted event. It never fails.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info().
		Str("event_id", ev.ID.String()).
		Str("topic", ev.Topic).
		Str("owner_id", ev.OwnerID.String()).
		Str("aggregate_id", ev.AggregateID.String()).
		Time("occurred_at", ev.OccurredAt).
		Msg("event emitted")
	return nil
}
