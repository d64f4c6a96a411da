package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/repo"
)

// ProductsQuerier is the inventory access the worker needs.
type ProductsQuerier interface {
	ListLowStock(ctx context.Context, ownerID uuid.UUID) ([]repo.Product, error)
	CountLowStock(ctx context.Context) (int64, error)
}

// SessionsQuerier prunes expired refresh sessions.
type SessionsQuerier interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LowStockGauge receives the global low-stock product count.
type LowStockGauge interface {
	Set(v float64)
}

// Handlers processes background tasks in the worker binary.
type Handlers struct {
	Products ProductsQuerier
	Sessions SessionsQuerier
	Gauge    LowStockGauge
	Logger   zerolog.Logger

	Now func() time.Time
}

// HandleLowStockCheck logs every product of the owner at or below its
// threshold and refreshes the low-stock gauge.
func (h Handlers) HandleLowStockCheck(ctx context.Context, t *asynq.Task) error {
	var payload LowStockCheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return fmt.Errorf("parse owner id: %w: %w", err, asynq.SkipRetry)
	}

	low, err := h.Products.ListLowStock(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	for _, p := range low {
		h.Logger.Warn().
			Str("owner_id", ownerID.String()).
			Str("product_id", p.ID.String()).
			Str("product", p.Name).
			Int32("stock", p.Stock).
			Int32("stock_level", p.StockLevel).
			Msg("product low on stock")
	}

	if h.Gauge != nil {
		total, err := h.Products.CountLowStock(ctx)
		if err != nil {
			return fmt.Errorf("count low stock: %w", err)
		}
		h.Gauge.Set(float64(total))
	}
	return nil
}

// HandleSessionCleanup prunes expired refresh sessions.
func (h Handlers) HandleSessionCleanup(ctx context.Context, _ *asynq.Task) error {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	pruned, err := h.Sessions.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	if pruned > 0 {
		h.Logger.Info().Int64("pruned", pruned).Msg("expired sessions removed")
	}
	return nil
}
