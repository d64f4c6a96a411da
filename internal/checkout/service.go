package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/repo"
	"github.com/noah-isme/backend-pos/internal/tasks"
)

// ErrInProgress is returned when a checkout for the same cart is already in
// flight. The caller must not retry automatically; order creation is not
// assumed idempotent.
var ErrInProgress = errors.New("checkout: already in progress")

// OrdersQuerier creates the order atomically.
type OrdersQuerier interface {
	CreateWithItems(ctx context.Context, order repo.Order, items []repo.OrderItem) (repo.Order, error)
}

// TaskEnqueuer enqueues background tasks. *asynq.Client satisfies it.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service runs the checkout flow: validate, lock, create atomically, clear
// the cart, emit order.created.
type Service struct {
	Orders  OrdersQuerier
	Carts   cart.Service
	Locker  lock.Locker
	LockTTL time.Duration

	Bus     *events.Bus
	Tasks   TaskEnqueuer
	Metrics *obs.DomainMetrics
	Logger  zerolog.Logger

	Now func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Checkout submits the cart as an order. The cart survives every failure and
// is cleared only after the order is durably created.
func (s Service) Checkout(ctx context.Context, ownerID uuid.UUID, cartID string, in Input) (repo.Order, error) {
	start := s.now()
	key := fmt.Sprintf("checkout:%s:%s", ownerID, cartID)

	var created repo.Order
	err := s.Locker.TryWithLock(ctx, key, s.LockTTL, func(ctx context.Context) error {
		c, err := s.Carts.Get(ctx, ownerID, cartID)
		if err != nil {
			return err
		}
		order, items, err := Assemble(ownerID, c, in)
		if err != nil {
			return err
		}
		created, err = s.Orders.CreateWithItems(ctx, order, items)
		if err != nil {
			return err
		}
		if err := s.Carts.Clear(ctx, ownerID, cartID); err != nil {
			// Order already created; the leftover cart expires on its TTL.
			s.Logger.Warn().Err(err).Str("cart_id", cartID).Msg("clearing cart after checkout failed")
		}
		return nil
	})
	if err != nil {
		s.observeFailure(err, in.PaymentMethod)
		if errors.Is(err, lock.ErrHeld) {
			return repo.Order{}, ErrInProgress
		}
		return repo.Order{}, err
	}

	s.afterCreate(ctx, created)
	if s.Metrics != nil {
		s.Metrics.OrdersCreated.WithLabelValues(created.PaymentMethod, "ok").Inc()
		s.Metrics.CheckoutDuration.Observe(obs.DurationMillis(s.now().Sub(start)))
	}
	return created, nil
}

func (s Service) afterCreate(ctx context.Context, order repo.Order) {
	if s.Bus != nil {
		payload := map[string]any{
			"order_id":     order.ID.String(),
			"final_amount": order.FinalAmount,
		}
		if _, err := s.Bus.Emit(ctx, events.TopicOrderCreated, order.OwnerID, order.ID, payload); err != nil {
			s.Logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("order.created fan-out failed")
		}
	}
	if s.Tasks != nil {
		task, err := tasks.NewLowStockCheckTask(order.OwnerID)
		if err == nil {
			_, err = s.Tasks.EnqueueContext(ctx, task)
		}
		if err != nil {
			s.Logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("enqueue low-stock check failed")
		}
	}
}

func (s Service) observeFailure(err error, method string) {
	if s.Metrics == nil {
		return
	}
	switch {
	case errors.Is(err, ErrValidation):
		s.Metrics.CheckoutRejected.WithLabelValues("validation").Inc()
	case errors.Is(err, repo.ErrInsufficientStock):
		s.Metrics.CheckoutRejected.WithLabelValues("insufficient_stock").Inc()
	case errors.Is(err, lock.ErrHeld):
		s.Metrics.CheckoutRejected.WithLabelValues("in_progress").Inc()
	case errors.Is(err, cart.ErrNotFound):
		s.Metrics.CheckoutRejected.WithLabelValues("cart_not_found").Inc()
	default:
		s.Metrics.OrdersCreated.WithLabelValues(method, "error").Inc()
	}
}
