package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// OrdersQuerier supplies completed orders with items for the window.
type OrdersQuerier interface {
	ListSinceWithItems(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]repo.Order, map[uuid.UUID][]repo.OrderItem, error)
}

// ProductsQuerier supplies the full product collection.
type ProductsQuerier interface {
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]repo.Product, error)
}

// Service computes dashboard stats with a short per-owner, per-period cache.
type Service struct {
	Orders   OrdersQuerier
	Products ProductsQuerier
	Cache    cache.Cache

	// MarginFallback estimates cost as price*(1-margin) when a product
	// carries no cost price.
	MarginFallback float64

	Logger zerolog.Logger
	Now    func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Stats returns the aggregated view for the period, recomputing on cache
// miss.
func (s Service) Stats(ctx context.Context, ownerID uuid.UUID, period Period) (Stats, error) {
	start, err := period.Start(s.now())
	if err != nil {
		return Stats{}, err
	}

	key := cache.KeyDashboard(ownerID, string(period))
	var cached Stats
	hit, err := s.Cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("dashboard cache read failed")
	}
	if hit {
		return cached, nil
	}

	orders, items, err := s.Orders.ListSinceWithItems(ctx, ownerID, start)
	if err != nil {
		return Stats{}, err
	}
	products, err := s.Products.ListAll(ctx, ownerID)
	if err != nil {
		return Stats{}, err
	}

	stats := Aggregate(orders, items, products, start, s.MarginFallback)
	stats.Period = string(period)
	if err := s.Cache.SetJSON(ctx, key, stats); err != nil {
		s.Logger.Warn().Err(err).Msg("dashboard cache write failed")
	}
	return stats, nil
}

// Invalidate drops every cached period for the owner. Wired to the
// order.created event.
func (s Service) Invalidate(ctx context.Context, ownerID uuid.UUID) error {
	return s.Cache.Invalidate(ctx, cache.DashboardKeys(ownerID)...)
}
