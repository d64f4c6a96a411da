package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/repo"
)

type countingOrders struct {
	calls  int
	orders []repo.Order
	items  map[uuid.UUID][]repo.OrderItem
}

func (c *countingOrders) ListSinceWithItems(_ context.Context, _ uuid.UUID, _ time.Time) ([]repo.Order, map[uuid.UUID][]repo.OrderItem, error) {
	c.calls++
	return c.orders, c.items, nil
}

type countingProducts struct {
	calls    int
	products []repo.Product
}

func (c *countingProducts) ListAll(_ context.Context, _ uuid.UUID) ([]repo.Product, error) {
	c.calls++
	return c.products, nil
}

func newStatsService(t *testing.T) (Service, *countingOrders) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	order := makeOrder(time.Now(), 450)
	orders := &countingOrders{orders: []repo.Order{order}}
	products := &countingProducts{}
	return Service{
		Orders:         orders,
		Products:       products,
		Cache:          cache.Cache{R: client, TTL: time.Minute},
		MarginFallback: 0.3,
	}, orders
}

func TestStatsCachedWithinTTL(t *testing.T) {
	svc, orders := newStatsService(t)
	ctx := context.Background()
	ownerID := uuid.New()

	first, err := svc.Stats(ctx, ownerID, PeriodDay)
	if err != nil {
		t.Fatalf("first stats: %v", err)
	}
	if first.PeriodSales != 450 {
		t.Fatalf("period sales = %v, want 450", first.PeriodSales)
	}
	second, err := svc.Stats(ctx, ownerID, PeriodDay)
	if err != nil {
		t.Fatalf("second stats: %v", err)
	}
	if orders.calls != 1 {
		t.Fatalf("storage hit %d times, want 1 (second read from cache)", orders.calls)
	}
	if second.PeriodSales != first.PeriodSales {
		t.Fatalf("cached stats differ: %v vs %v", second.PeriodSales, first.PeriodSales)
	}
}

func TestPeriodsCachedIndependently(t *testing.T) {
	svc, orders := newStatsService(t)
	ctx := context.Background()
	ownerID := uuid.New()

	if _, err := svc.Stats(ctx, ownerID, PeriodDay); err != nil {
		t.Fatalf("day: %v", err)
	}
	if _, err := svc.Stats(ctx, ownerID, PeriodWeek); err != nil {
		t.Fatalf("week: %v", err)
	}
	if orders.calls != 2 {
		t.Fatalf("storage hit %d times, want 2 (one per period)", orders.calls)
	}
}

func TestOrderCreatedInvalidatesCache(t *testing.T) {
	svc, orders := newStatsService(t)
	ctx := context.Background()
	ownerID := uuid.New()

	if _, err := svc.Stats(ctx, ownerID, PeriodDay); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	bus := events.Bus{Notifiers: []events.Notifier{InvalidateNotifier{Svc: svc}}}
	if _, err := bus.Emit(ctx, events.TopicOrderCreated, ownerID, uuid.New(), nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if _, err := svc.Stats(ctx, ownerID, PeriodDay); err != nil {
		t.Fatalf("stats after invalidation: %v", err)
	}
	if orders.calls != 2 {
		t.Fatalf("storage hit %d times, want 2 (cache dropped by event)", orders.calls)
	}
}
