package measure

import (
	"errors"
	"fmt"
)

// Category classifies how a product is measured.
type Category string

const (
	Liquid Category = "liquid"
	Solid  Category = "solid"
	Piece  Category = "piece"
)

// Base units per category. Stock arithmetic always happens in these units
// regardless of how a restock batch was entered.
const (
	UnitMilliliter = "ml"
	UnitLiter      = "l"
	UnitGram       = "g"
	UnitKilogram   = "kg"
	UnitPiece      = "pcs"
)

// ErrInvalidUnit is returned when a unit does not belong to the category.
var ErrInvalidUnit = errors.New("measure: unit not valid for category")

// Normalized carries the canonical measurement recorded on a product.
type Normalized struct {
	BaseUnit   string
	QtyPerItem float64
}

// Normalize converts a user-entered pack size in the chosen unit into the
// category's base unit. Liter and kilogram entries are scaled by a fixed
// factor of 1000; pieces pass through unchanged.
func Normalize(category Category, unit string, packSize float64) (Normalized, error) {
	if packSize <= 0 {
		return Normalized{}, fmt.Errorf("measure: pack size must be positive, got %v", packSize)
	}
	switch category {
	case Liquid:
		switch unit {
		case UnitMilliliter:
			return Normalized{BaseUnit: UnitMilliliter, QtyPerItem: packSize}, nil
		case UnitLiter:
			return Normalized{BaseUnit: UnitMilliliter, QtyPerItem: packSize * 1000}, nil
		}
	case Solid:
		switch unit {
		case UnitGram:
			return Normalized{BaseUnit: UnitGram, QtyPerItem: packSize}, nil
		case UnitKilogram:
			return Normalized{BaseUnit: UnitGram, QtyPerItem: packSize * 1000}, nil
		}
	case Piece:
		if unit == UnitPiece || unit == "" {
			return Normalized{BaseUnit: UnitPiece, QtyPerItem: packSize}, nil
		}
	default:
		return Normalized{}, fmt.Errorf("measure: unknown category %q", category)
	}
	return Normalized{}, fmt.Errorf("%w: %q for %s", ErrInvalidUnit, unit, category)
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case Liquid, Solid, Piece:
		return true
	}
	return false
}
