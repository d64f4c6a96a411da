package dashboard

import (
	"context"

	"github.com/noah-isme/backend-pos/internal/events"
)

// InvalidateNotifier drops the owner's cached stats when an order is
// created, so the next dashboard read reflects the sale.
type InvalidateNotifier struct {
	Svc Service
}

// Notify implements events.Notifier.
func (n InvalidateNotifier) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicOrderCreated {
		return nil
	}
	return n.Svc.Invalidate(ctx, ev.OwnerID)
}
