package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is an inventory row. Stock is kept in the product's base unit.
type Product struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Name            string
	Category        string
	Barcode         string
	Price           float64
	CostPrice       *float64
	Discount        float64
	Stock           int32
	StockLevel      int32
	MeasureCategory string
	BaseUnit        string
	QtyPerItem      float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProductsRepo persists the per-owner product catalog.
type ProductsRepo struct {
	DB DB
}

const productColumns = `id, owner_id, name, category, barcode, price, cost_price,
discount, stock, stock_level, measure_category, base_unit, qty_per_item,
created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Category, &p.Barcode,
		&p.Price, &p.CostPrice, &p.Discount, &p.Stock, &p.StockLevel,
		&p.MeasureCategory, &p.BaseUnit, &p.QtyPerItem, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a product for the owner.
func (r ProductsRepo) Create(ctx context.Context, p Product) (Product, error) {
	q := fmt.Sprintf(`
INSERT INTO products (owner_id, name, category, barcode, price, cost_price,
discount, stock, stock_level, measure_category, base_unit, qty_per_item)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING %s`, productColumns)
	row := r.DB.QueryRow(ctx, q, p.OwnerID, strings.TrimSpace(p.Name), p.Category,
		p.Barcode, p.Price, p.CostPrice, p.Discount, p.Stock, p.StockLevel,
		p.MeasureCategory, p.BaseUnit, p.QtyPerItem)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, err
	}
	return created, nil
}

// Update rewrites the mutable fields of an owner's product.
func (r ProductsRepo) Update(ctx context.Context, p Product) (Product, error) {
	q := fmt.Sprintf(`
UPDATE products SET
  name = $3, category = $4, barcode = $5, price = $6, cost_price = $7,
  discount = $8, stock = $9, stock_level = $10, measure_category = $11,
  base_unit = $12, qty_per_item = $13, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING %s`, productColumns)
	row := r.DB.QueryRow(ctx, q, p.ID, p.OwnerID, strings.TrimSpace(p.Name),
		p.Category, p.Barcode, p.Price, p.CostPrice, p.Discount, p.Stock,
		p.StockLevel, p.MeasureCategory, p.BaseUnit, p.QtyPerItem)
	updated, err := scanProduct(row)
	if err != nil {
		return Product{}, mapRowError(err)
	}
	return updated, nil
}

// Delete removes an owner's product. Missing rows return ErrNotFound.
func (r ProductsRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	const q = `DELETE FROM products WHERE id = $1 AND owner_id = $2`
	tag, err := r.DB.Exec(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a single owner-scoped product.
func (r ProductsRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (Product, error) {
	q := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 AND owner_id = $2`, productColumns)
	p, err := scanProduct(r.DB.QueryRow(ctx, q, id, ownerID))
	if err != nil {
		return Product{}, mapRowError(err)
	}
	return p, nil
}

// List returns the owner's products ordered by creation time, optionally
// filtered by a case-insensitive name/category/barcode search.
func (r ProductsRepo) List(ctx context.Context, ownerID uuid.UUID, search string, limit, offset int32) ([]Product, error) {
	q := fmt.Sprintf(`
SELECT %s FROM products
WHERE owner_id = $1
  AND ($2 = '' OR name ILIKE '%%' || $2 || '%%'
       OR category ILIKE '%%' || $2 || '%%'
       OR barcode = $2)
ORDER BY created_at ASC, id ASC
LIMIT $3 OFFSET $4`, productColumns)
	rows, err := r.DB.Query(ctx, q, ownerID, strings.TrimSpace(search), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListAll returns every product of the owner in stable creation order.
// Dashboard aggregation recomputes over the full set.
func (r ProductsRepo) ListAll(ctx context.Context, ownerID uuid.UUID) ([]Product, error) {
	q := fmt.Sprintf(`SELECT %s FROM products WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`, productColumns)
	rows, err := r.DB.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListLowStock returns products at or below their per-product threshold.
func (r ProductsRepo) ListLowStock(ctx context.Context, ownerID uuid.UUID) ([]Product, error) {
	q := fmt.Sprintf(`
SELECT %s FROM products
WHERE owner_id = $1 AND stock <= stock_level
ORDER BY stock ASC, created_at ASC`, productColumns)
	rows, err := r.DB.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountLowStock counts products at or below threshold across all owners.
// Feeds the low-stock gauge in the worker.
func (r ProductsRepo) CountLowStock(ctx context.Context) (int64, error) {
	const q = `SELECT count(*) FROM products WHERE stock <= stock_level`
	var n int64
	if err := r.DB.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
