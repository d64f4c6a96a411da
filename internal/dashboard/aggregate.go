package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/repo"
)

// Period selects the aggregation window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Valid reports whether the period is a known value.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// Start computes the window start: beginning of the current day, or now
// minus 7 days / 1 month / 1 year.
func (p Period) Start(now time.Time) (time.Time, error) {
	switch p {
	case PeriodDay:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case PeriodWeek:
		return now.AddDate(0, 0, -7), nil
	case PeriodMonth:
		return now.AddDate(0, -1, 0), nil
	case PeriodYear:
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("dashboard: unknown period %q", p)
}

// Mover is a product ranked by units sold within the window.
type Mover struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	TotalSold int64  `json:"total_sold"`
}

// LowStockProduct is a product at or below its alert threshold.
type LowStockProduct struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Stock      int32  `json:"stock"`
	StockLevel int32  `json:"stock_level"`
}

// Stats is the aggregated dashboard view for one period.
type Stats struct {
	Period      string            `json:"period"`
	PeriodSales float64           `json:"period_sales"`
	Profit      float64           `json:"profit"`
	LowStock    []LowStockProduct `json:"low_stock"`
	FastMoving  []Mover           `json:"fast_moving"`
	SlowMoving  []Mover           `json:"slow_moving"`
}

const topMovers = 5

// Aggregate recomputes the full dashboard in one pass over the collections.
// Only completed orders created at or after start count. When a product has
// no recorded cost price its cost is estimated as price*(1-marginFallback);
// that is an estimation policy, not an accounting figure. Mover ranking uses
// stable sorts, so ties keep the products' original order.
func Aggregate(orders []repo.Order, items map[uuid.UUID][]repo.OrderItem, products []repo.Product, start time.Time, marginFallback float64) Stats {
	byID := make(map[uuid.UUID]repo.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var periodSales, profit float64
	sold := make(map[uuid.UUID]int64)
	for _, o := range orders {
		if o.PaymentStatus != "completed" || o.CreatedAt.Before(start) {
			continue
		}
		periodSales += o.FinalAmount
		for _, item := range items[o.ID] {
			cost := item.Price * (1 - marginFallback)
			if item.ProductID != nil {
				if p, ok := byID[*item.ProductID]; ok && p.CostPrice != nil {
					cost = *p.CostPrice
				}
				sold[*item.ProductID] += int64(item.Quantity)
			}
			profit += (item.Price - cost) * float64(item.Quantity)
		}
	}

	stats := Stats{
		Period:      "",
		PeriodSales: periodSales,
		Profit:      profit,
		LowStock:    []LowStockProduct{},
		FastMoving:  []Mover{},
		SlowMoving:  []Mover{},
	}

	for _, p := range products {
		if p.Stock <= p.StockLevel {
			stats.LowStock = append(stats.LowStock, LowStockProduct{
				ProductID:  p.ID.String(),
				Name:       p.Name,
				Stock:      p.Stock,
				StockLevel: p.StockLevel,
			})
		}
	}

	movers := make([]Mover, 0, len(products))
	for _, p := range products {
		movers = append(movers, Mover{ProductID: p.ID.String(), Name: p.Name, TotalSold: sold[p.ID]})
	}

	fast := make([]Mover, 0, len(movers))
	for _, m := range movers {
		if m.TotalSold > 0 {
			fast = append(fast, m)
		}
	}
	sort.SliceStable(fast, func(i, j int) bool { return fast[i].TotalSold > fast[j].TotalSold })
	stats.FastMoving = topN(fast, topMovers)

	slow := append([]Mover(nil), movers...)
	sort.SliceStable(slow, func(i, j int) bool { return slow[i].TotalSold < slow[j].TotalSold })
	stats.SlowMoving = topN(slow, topMovers)

	return stats
}

func topN(movers []Mover, n int) []Mover {
	if len(movers) > n {
		movers = movers[:n]
	}
	return movers
}
