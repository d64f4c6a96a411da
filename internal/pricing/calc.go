package pricing

import "math"

// Item describes a cart line used for totals calculation. Price and discount
// are snapshots taken when the line was added, not live product values.
type Item struct {
	Price    float64
	Qty      int
	Discount float64
}

// Totals aggregates the computed cart amounts. Final is always
// Subtotal - Discount.
type Totals struct {
	Subtotal float64
	Discount float64
	Final    float64
}

// LineTotal computes price * qty * (1 - discount/100). The result is carried
// at full precision; Round2 is applied only at display and persistence
// boundaries.
func LineTotal(price float64, qty int, discountPct float64) float64 {
	if qty <= 0 {
		return 0
	}
	return price * float64(qty) * (1 - discountPct/100)
}

// CartTotals sums the provided lines. Summation is commutative, so the result
// does not depend on item order.
func CartTotals(items []Item) Totals {
	var t Totals
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		gross := it.Price * float64(it.Qty)
		t.Subtotal += gross
		t.Discount += gross * it.Discount / 100
	}
	t.Final = t.Subtotal - t.Discount
	return t
}

// ChangeDue returns the change owed for a cash payment. It never goes
// negative; callers must reject checkouts where cashGiven < final before
// asking for change.
func ChangeDue(cashGiven, final float64) float64 {
	change := cashGiven - final
	if change < 0 {
		return 0
	}
	return change
}

// Round2 rounds a monetary amount to two decimal places for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
