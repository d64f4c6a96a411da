package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/repo"
)

var (
	// ErrNotFound is returned for an unknown or expired cart.
	ErrNotFound = errors.New("cart: not found")
	// ErrInsufficientStock is the advisory stock guard rejection. The
	// checkout transaction remains the authoritative check.
	ErrInsufficientStock = errors.New("cart: insufficient stock")
)

// Item is one line of a cart. Name, price and discount are snapshotted at
// add time; Total is derived from them.
type Item struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Discount  float64 `json:"discount"`
	Quantity  int32   `json:"quantity"`
	Total     float64 `json:"total"`
}

// Cart is a transient checkout session stored in redis.
type Cart struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Items          []Item    `json:"items"`
	CustomerName   string    `json:"customer_name,omitempty"`
	CustomerMobile string    `json:"customer_mobile,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Totals computes the cart aggregates from the snapshotted lines.
func (c Cart) Totals() pricing.Totals {
	items := make([]pricing.Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, pricing.Item{Price: it.Price, Qty: int(it.Quantity), Discount: it.Discount})
	}
	return pricing.CartTotals(items)
}

// ProductsQuerier provides the current stock figure for the guard.
type ProductsQuerier interface {
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (repo.Product, error)
}

// Service manages redis-backed cart sessions. Every mutation refreshes the
// session TTL.
type Service struct {
	R        *redis.Client
	Products ProductsQuerier
	TTL      time.Duration

	Now func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cartKey(ownerID, cartID string) string {
	return fmt.Sprintf("cart:%s:%s", ownerID, cartID)
}

// Create opens an empty cart session.
func (s Service) Create(ctx context.Context, ownerID uuid.UUID) (Cart, error) {
	now := s.now()
	c := Cart{
		ID:        uuid.NewString(),
		OwnerID:   ownerID.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get loads a cart session.
func (s Service) Get(ctx context.Context, ownerID uuid.UUID, cartID string) (Cart, error) {
	return s.load(ctx, ownerID.String(), cartID)
}

// AddProduct adds one unit of the product, snapshotting name, price and
// discount. Adding past the product's current stock is rejected.
func (s Service) AddProduct(ctx context.Context, ownerID uuid.UUID, cartID string, productID uuid.UUID) (Cart, error) {
	c, err := s.load(ctx, ownerID.String(), cartID)
	if err != nil {
		return Cart{}, err
	}
	product, err := s.Products.GetByID(ctx, ownerID, productID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Cart{}, fmt.Errorf("cart: product %s: %w", productID, repo.ErrNotFound)
		}
		return Cart{}, err
	}

	idx := c.itemIndex(productID.String())
	currentQty := int32(0)
	if idx >= 0 {
		currentQty = c.Items[idx].Quantity
	}
	if currentQty+1 > product.Stock {
		return Cart{}, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, product.Name, product.Stock)
	}

	if idx >= 0 {
		c.Items[idx].Quantity++
		c.Items[idx].Total = pricing.LineTotal(c.Items[idx].Price, int(c.Items[idx].Quantity), c.Items[idx].Discount)
	} else {
		c.Items = append(c.Items, Item{
			ProductID: productID.String(),
			Name:      product.Name,
			Price:     product.Price,
			Discount:  product.Discount,
			Quantity:  1,
			Total:     pricing.LineTotal(product.Price, 1, product.Discount),
		})
	}
	c.UpdatedAt = s.now()
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// SetQuantity sets a line's quantity. Zero or negative removes the line;
// exceeding current stock is rejected and the cart left unchanged.
func (s Service) SetQuantity(ctx context.Context, ownerID uuid.UUID, cartID string, productID uuid.UUID, qty int32) (Cart, error) {
	c, err := s.load(ctx, ownerID.String(), cartID)
	if err != nil {
		return Cart{}, err
	}
	idx := c.itemIndex(productID.String())
	if idx < 0 {
		return Cart{}, fmt.Errorf("cart: product %s not in cart: %w", productID, repo.ErrNotFound)
	}

	if qty <= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	} else {
		product, err := s.Products.GetByID(ctx, ownerID, productID)
		if err != nil {
			return Cart{}, err
		}
		if qty > product.Stock {
			return Cart{}, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, product.Name, product.Stock)
		}
		c.Items[idx].Quantity = qty
		c.Items[idx].Total = pricing.LineTotal(c.Items[idx].Price, int(qty), c.Items[idx].Discount)
	}
	c.UpdatedAt = s.now()
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// RemoveItem drops a line from the cart.
func (s Service) RemoveItem(ctx context.Context, ownerID uuid.UUID, cartID string, productID uuid.UUID) (Cart, error) {
	return s.SetQuantity(ctx, ownerID, cartID, productID, 0)
}

// SetCustomer attaches optional customer details to the session.
func (s Service) SetCustomer(ctx context.Context, ownerID uuid.UUID, cartID, name, mobile string) (Cart, error) {
	c, err := s.load(ctx, ownerID.String(), cartID)
	if err != nil {
		return Cart{}, err
	}
	c.CustomerName = name
	c.CustomerMobile = mobile
	c.UpdatedAt = s.now()
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Clear discards the cart session entirely.
func (s Service) Clear(ctx context.Context, ownerID uuid.UUID, cartID string) error {
	if s.R == nil {
		return errors.New("cart: redis client not configured")
	}
	return s.R.Del(ctx, cartKey(ownerID.String(), cartID)).Err()
}

func (c Cart) itemIndex(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s Service) load(ctx context.Context, ownerID, cartID string) (Cart, error) {
	if s.R == nil {
		return Cart{}, errors.New("cart: redis client not configured")
	}
	raw, err := s.R.Get(ctx, cartKey(ownerID, cartID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("cart: decode session: %w", err)
	}
	return c, nil
}

func (s Service) save(ctx context.Context, c Cart) error {
	if s.R == nil {
		return errors.New("cart: redis client not configured")
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cart: encode session: %w", err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return s.R.Set(ctx, cartKey(c.OwnerID, c.ID), raw, ttl).Err()
}
