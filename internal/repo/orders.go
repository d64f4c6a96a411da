package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Order is an immutable sale record. Monetary fields are denormalized at
// creation so later product edits never change history.
type Order struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	OrgClientID    string
	OutletClientID string
	CustomerID     *string
	CustomerName   string
	CustomerMobile string
	TotalAmount    float64
	TotalDiscount  float64
	FinalAmount    float64
	PaymentMethod  string
	PaymentStatus  string
	CashGiven      *float64
	ChangeAmount   *float64
	CreatedAt      time.Time
}

// OrderItem is one snapshotted line of an order.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID *uuid.UUID
	Name      string
	Price     float64
	Discount  float64
	Quantity  int32
	Total     float64
}

// OrdersRepo persists orders and their line items.
type OrdersRepo struct {
	Pool TxBeginner
}

const orderColumns = `id, owner_id, org_client_id, outlet_client_id, customer_id,
customer_name, customer_mobile, total_amount, total_discount, final_amount,
payment_method, payment_status, cash_given, change_amount, created_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OwnerID, &o.OrgClientID, &o.OutletClientID,
		&o.CustomerID, &o.CustomerName, &o.CustomerMobile, &o.TotalAmount,
		&o.TotalDiscount, &o.FinalAmount, &o.PaymentMethod, &o.PaymentStatus,
		&o.CashGiven, &o.ChangeAmount, &o.CreatedAt)
	return o, err
}

// CreateWithItems inserts the order, its items and decrements stock for every
// item referencing a product, all in one transaction. A decrement that finds
// no row with enough stock aborts the whole transaction with
// ErrInsufficientStock wrapped with the product name.
func (r OrdersRepo) CreateWithItems(ctx context.Context, order Order, items []OrderItem) (Order, error) {
	if len(items) == 0 {
		return Order{}, errors.New("repo: order requires at least one item")
	}
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertOrder = `
INSERT INTO orders (owner_id, org_client_id, outlet_client_id, customer_id,
customer_name, customer_mobile, total_amount, total_discount, final_amount,
payment_method, payment_status, cash_given, change_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + orderColumns
	row := tx.QueryRow(ctx, insertOrder, order.OwnerID, order.OrgClientID,
		order.OutletClientID, order.CustomerID, order.CustomerName,
		order.CustomerMobile, order.TotalAmount, order.TotalDiscount,
		order.FinalAmount, order.PaymentMethod, order.PaymentStatus,
		order.CashGiven, order.ChangeAmount)
	created, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}

	const insertItem = `
INSERT INTO order_items (order_id, product_id, name, price, discount, quantity, total)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	const decrement = `
UPDATE products SET stock = stock - $3, updated_at = now()
WHERE id = $1 AND owner_id = $2 AND stock >= $3`

	for _, item := range items {
		if _, err := tx.Exec(ctx, insertItem, created.ID, item.ProductID,
			item.Name, item.Price, item.Discount, item.Quantity, item.Total); err != nil {
			return Order{}, err
		}
		if item.ProductID == nil {
			continue
		}
		tag, err := tx.Exec(ctx, decrement, *item.ProductID, order.OwnerID, item.Quantity)
		if err != nil {
			return Order{}, err
		}
		if tag.RowsAffected() == 0 {
			return Order{}, fmt.Errorf("%w: %s", ErrInsufficientStock, item.Name)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return created, nil
}

// GetByID returns an owner's order with its line items.
func (r OrdersRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (Order, []OrderItem, error) {
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1 AND owner_id = $2`, orderColumns)
	order, err := scanOrder(r.Pool.QueryRow(ctx, q, id, ownerID))
	if err != nil {
		return Order{}, nil, mapRowError(err)
	}
	items, err := r.itemsFor(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return Order{}, nil, err
	}
	return order, items[order.ID], nil
}

// List returns the owner's orders newest first.
func (r OrdersRepo) List(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]Order, error) {
	q := fmt.Sprintf(`
SELECT %s FROM orders
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`, orderColumns)
	rows, err := r.Pool.Query(ctx, q, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListSinceWithItems returns completed orders created at or after the cutoff,
// oldest first, with line items attached. Dashboard aggregation input.
func (r OrdersRepo) ListSinceWithItems(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]Order, map[uuid.UUID][]OrderItem, error) {
	q := fmt.Sprintf(`
SELECT %s FROM orders
WHERE owner_id = $1 AND payment_status = 'completed' AND created_at >= $2
ORDER BY created_at ASC, id ASC`, orderColumns)
	rows, err := r.Pool.Query(ctx, q, ownerID, since)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return orders, items, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r OrdersRepo) itemsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	result := make(map[uuid.UUID][]OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}
	const q = `
SELECT id, order_id, product_id, name, price, discount, quantity, total
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, id`
	rows, err := r.Pool.Query(ctx, q, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.Name, &item.Price, &item.Discount, &item.Quantity, &item.Total); err != nil {
			return nil, err
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}
	return result, rows.Err()
}
