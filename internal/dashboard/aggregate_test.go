package dashboard

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/repo"
)

func makeProduct(name string, stock, level int32, costPrice *float64) repo.Product {
	return repo.Product{ID: uuid.New(), Name: name, Price: 100, CostPrice: costPrice, Stock: stock, StockLevel: level}
}

func makeOrder(createdAt time.Time, final float64) repo.Order {
	return repo.Order{ID: uuid.New(), PaymentStatus: "completed", FinalAmount: final, CreatedAt: createdAt}
}

func itemFor(orderID uuid.UUID, p repo.Product, qty int32) repo.OrderItem {
	pid := p.ID
	return repo.OrderItem{OrderID: orderID, ProductID: &pid, Name: p.Name, Price: p.Price, Quantity: qty, Total: p.Price * float64(qty)}
}

func TestDayWindowBoundaries(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, 4, 10, 14, 0, 0, 0, loc)
	start, err := PeriodDay.Start(now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	yesterday := makeOrder(time.Date(2026, 4, 9, 23, 59, 0, 0, loc), 500)
	justInside := makeOrder(time.Date(2026, 4, 10, 0, 0, 1, 0, loc), 300)
	stats := Aggregate([]repo.Order{yesterday, justInside}, nil, nil, start, 0.3)

	if stats.PeriodSales != 300 {
		t.Fatalf("period sales = %v, want 300 (yesterday 23:59 excluded, today 00:00:01 included)", stats.PeriodSales)
	}
}

func TestPendingOrdersExcluded(t *testing.T) {
	now := time.Now()
	start := now.AddDate(0, 0, -7)
	pending := makeOrder(now, 100)
	pending.PaymentStatus = "pending"
	completed := makeOrder(now, 250)

	stats := Aggregate([]repo.Order{pending, completed}, nil, nil, start, 0.3)
	if stats.PeriodSales != 250 {
		t.Fatalf("period sales = %v, want 250", stats.PeriodSales)
	}
}

func TestProfitUsesCostPriceOrMarginFallback(t *testing.T) {
	cost := 60.0
	withCost := makeProduct("Costed", 50, 5, &cost)
	noCost := makeProduct("Estimated", 50, 5, nil)
	now := time.Now()
	order := makeOrder(now, 0)
	items := map[uuid.UUID][]repo.OrderItem{
		order.ID: {itemFor(order.ID, withCost, 2), itemFor(order.ID, noCost, 1)},
	}

	stats := Aggregate([]repo.Order{order}, items, []repo.Product{withCost, noCost}, now.AddDate(0, 0, -1), 0.3)
	// (100-60)*2 plus (100-70)*1 with the 30% margin estimate.
	if stats.Profit != 110 {
		t.Fatalf("profit = %v, want 110", stats.Profit)
	}
}

func TestMovers(t *testing.T) {
	a := makeProduct("A", 50, 5, nil)
	b := makeProduct("B", 50, 5, nil)
	c := makeProduct("C", 50, 5, nil)
	unsold := makeProduct("Unsold", 50, 5, nil)
	now := time.Now()
	order := makeOrder(now, 0)
	items := map[uuid.UUID][]repo.OrderItem{
		order.ID: {itemFor(order.ID, a, 3), itemFor(order.ID, b, 7), itemFor(order.ID, c, 3)},
	}

	stats := Aggregate([]repo.Order{order}, items, []repo.Product{a, b, c, unsold}, now.AddDate(0, 0, -1), 0.3)

	if len(stats.FastMoving) != 3 {
		t.Fatalf("fast movers = %+v, want 3 entries", stats.FastMoving)
	}
	if stats.FastMoving[0].Name != "B" {
		t.Fatalf("top fast mover = %s, want B", stats.FastMoving[0].Name)
	}
	// A and C tie on 3 sold; the stable sort keeps catalog order.
	if stats.FastMoving[1].Name != "A" || stats.FastMoving[2].Name != "C" {
		t.Fatalf("tie order = %s,%s, want A,C", stats.FastMoving[1].Name, stats.FastMoving[2].Name)
	}
	for _, m := range stats.FastMoving {
		if m.TotalSold == 0 {
			t.Fatalf("zero-sold product %s in fast movers", m.Name)
		}
	}

	if stats.SlowMoving[0].Name != "Unsold" || stats.SlowMoving[0].TotalSold != 0 {
		t.Fatalf("slowest mover = %+v, want Unsold with 0", stats.SlowMoving[0])
	}
	if len(stats.SlowMoving) != 4 {
		t.Fatalf("slow movers = %d entries, want 4", len(stats.SlowMoving))
	}
}

func TestLowStockInclusive(t *testing.T) {
	at := makeProduct("At", 5, 5, nil)
	above := makeProduct("Above", 6, 5, nil)
	stats := Aggregate(nil, nil, []repo.Product{at, above}, time.Now(), 0.3)
	if len(stats.LowStock) != 1 || stats.LowStock[0].Name != "At" {
		t.Fatalf("low stock = %+v, want only At", stats.LowStock)
	}
}

func TestPeriodStarts(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		period Period
		want   time.Time
	}{
		{PeriodDay, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)},
		{PeriodWeek, now.AddDate(0, 0, -7)},
		{PeriodMonth, now.AddDate(0, -1, 0)},
		{PeriodYear, now.AddDate(-1, 0, 0)},
	}
	for _, tc := range cases {
		got, err := tc.period.Start(now)
		if err != nil {
			t.Fatalf("%s: %v", tc.period, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("%s start = %v, want %v", tc.period, got, tc.want)
		}
	}
	if _, err := Period("quarter").Start(now); err == nil {
		t.Fatal("unknown period must error")
	}
}
