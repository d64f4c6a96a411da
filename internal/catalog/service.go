package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/measure"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// ErrInvalidInput marks a product payload rejected before touching storage.
var ErrInvalidInput = errors.New("catalog: invalid input")

// Querier is the product storage the service depends on.
type Querier interface {
	Create(ctx context.Context, p repo.Product) (repo.Product, error)
	Update(ctx context.Context, p repo.Product) (repo.Product, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (repo.Product, error)
	List(ctx context.Context, ownerID uuid.UUID, search string, limit, offset int32) ([]repo.Product, error)
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]repo.Product, error)
	ListLowStock(ctx context.Context, ownerID uuid.UUID) ([]repo.Product, error)
}

// ProductInput is a create/update payload. Unit and PackSize are the values
// as entered; the service normalizes them to a base unit before storage.
type ProductInput struct {
	Name            string
	Category        string
	Barcode         string
	Price           float64
	CostPrice       *float64
	Discount        float64
	Stock           int32
	StockLevel      int32
	MeasureCategory string
	Unit            string
	PackSize        float64
}

// Service implements the per-owner product catalog.
type Service struct {
	Q      Querier
	Cache  cache.Cache
	Logger zerolog.Logger
}

// List returns the owner's products. The unfiltered list is served from
// cache; searches always hit storage.
func (s Service) List(ctx context.Context, ownerID uuid.UUID, search string) ([]repo.Product, error) {
	search = strings.TrimSpace(search)
	if search != "" {
		return s.Q.List(ctx, ownerID, search, 500, 0)
	}
	var cached []repo.Product
	hit, err := s.Cache.GetJSON(ctx, cache.KeyCatalogList(ownerID), &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read failed")
	}
	if hit {
		return cached, nil
	}
	products, err := s.Q.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, cache.KeyCatalogList(ownerID), products); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return products, nil
}

// Get returns one owner-scoped product.
func (s Service) Get(ctx context.Context, ownerID, id uuid.UUID) (repo.Product, error) {
	return s.Q.GetByID(ctx, ownerID, id)
}

// LowStock returns products at or below their threshold.
func (s Service) LowStock(ctx context.Context, ownerID uuid.UUID) ([]repo.Product, error) {
	return s.Q.ListLowStock(ctx, ownerID)
}

// Create validates, normalizes units and persists a new product.
func (s Service) Create(ctx context.Context, ownerID uuid.UUID, in ProductInput) (repo.Product, error) {
	row, err := s.buildRow(ownerID, in)
	if err != nil {
		return repo.Product{}, err
	}
	created, err := s.Q.Create(ctx, row)
	if err != nil {
		return repo.Product{}, err
	}
	s.invalidate(ctx, ownerID)
	return created, nil
}

// Update rewrites an owner's product.
func (s Service) Update(ctx context.Context, ownerID, id uuid.UUID, in ProductInput) (repo.Product, error) {
	row, err := s.buildRow(ownerID, in)
	if err != nil {
		return repo.Product{}, err
	}
	row.ID = id
	updated, err := s.Q.Update(ctx, row)
	if err != nil {
		return repo.Product{}, err
	}
	s.invalidate(ctx, ownerID)
	return updated, nil
}

// Delete removes an owner's product.
func (s Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.Q.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

func (s Service) invalidate(ctx context.Context, ownerID uuid.UUID) {
	if err := s.Cache.Invalidate(ctx, cache.KeyCatalogList(ownerID)); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func (s Service) buildRow(ownerID uuid.UUID, in ProductInput) (repo.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return repo.Product{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Price < 0 {
		return repo.Product{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if in.CostPrice != nil && *in.CostPrice < 0 {
		return repo.Product{}, fmt.Errorf("%w: cost price must not be negative", ErrInvalidInput)
	}
	if in.Discount < 0 || in.Discount > 100 {
		return repo.Product{}, fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return repo.Product{}, fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	if in.StockLevel < 0 {
		return repo.Product{}, fmt.Errorf("%w: stock level must not be negative", ErrInvalidInput)
	}

	category := measure.Category(strings.TrimSpace(strings.ToLower(in.MeasureCategory)))
	unit := strings.TrimSpace(strings.ToLower(in.Unit))
	packSize := in.PackSize
	if category == "" {
		// Measurement metadata is optional; plain piece goods are the default.
		category, unit, packSize = measure.Piece, measure.UnitPiece, 1
	}
	norm, err := measure.Normalize(category, unit, packSize)
	if err != nil {
		return repo.Product{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return repo.Product{
		OwnerID:         ownerID,
		Name:            name,
		Category:        strings.TrimSpace(in.Category),
		Barcode:         strings.TrimSpace(in.Barcode),
		Price:           in.Price,
		CostPrice:       in.CostPrice,
		Discount:        in.Discount,
		Stock:           in.Stock,
		StockLevel:      in.StockLevel,
		MeasureCategory: string(category),
		BaseUnit:        norm.BaseUnit,
		QtyPerItem:      norm.QtyPerItem,
	}, nil
}
