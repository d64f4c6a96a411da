package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/repo"
)

type stubProducts struct {
	rows map[uuid.UUID]repo.Product
}

func (s stubProducts) GetByID(_ context.Context, ownerID, id uuid.UUID) (repo.Product, error) {
	p, ok := s.rows[id]
	if !ok || p.OwnerID != ownerID {
		return repo.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func newCartTest(t *testing.T) (Service, *miniredis.Miniredis, uuid.UUID, uuid.UUID) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ownerID := uuid.New()
	productID := uuid.New()
	products := stubProducts{rows: map[uuid.UUID]repo.Product{
		productID: {ID: productID, OwnerID: ownerID, Name: "Soap", Price: 100, Discount: 10, Stock: 5},
	}}
	svc := Service{R: client, Products: products, TTL: time.Hour}
	return svc, mr, ownerID, productID
}

func TestAddProductSnapshotsAndTotals(t *testing.T) {
	svc, _, ownerID, productID := newCartTest(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, ownerID)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}

	c, err = svc.AddProduct(ctx, ownerID, c.ID, productID)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 1 || c.Items[0].Total != 90 {
		t.Fatalf("after first add: %+v, want qty=1 total=90", c.Items)
	}

	c, err = svc.AddProduct(ctx, ownerID, c.ID, productID)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if c.Items[0].Quantity != 2 || c.Items[0].Total != 180 {
		t.Fatalf("after second add: qty=%d total=%v, want qty=2 total=180", c.Items[0].Quantity, c.Items[0].Total)
	}

	totals := c.Totals()
	if totals.Subtotal != 200 || totals.Discount != 20 || totals.Final != 180 {
		t.Fatalf("totals = %+v", totals)
	}
}

func TestStockGuardRejectsOverSubscription(t *testing.T) {
	svc, _, ownerID, productID := newCartTest(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, ownerID)
	for i := 0; i < 5; i++ {
		var err error
		c, err = svc.AddProduct(ctx, ownerID, c.ID, productID)
		if err != nil {
			t.Fatalf("add %d: %v", i+1, err)
		}
	}
	// Cart quantity equals stock; one more must be rejected without mutation.
	if _, err := svc.AddProduct(ctx, ownerID, c.ID, productID); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("add past stock: err = %v, want ErrInsufficientStock", err)
	}
	if _, err := svc.SetQuantity(ctx, ownerID, c.ID, productID, 6); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("set quantity past stock: err = %v, want ErrInsufficientStock", err)
	}
	got, err := svc.Get(ctx, ownerID, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Items[0].Quantity != 5 {
		t.Fatalf("rejected mutation changed state: qty = %d, want 5", got.Items[0].Quantity)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	svc, _, ownerID, productID := newCartTest(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, ownerID)
	if _, err := svc.AddProduct(ctx, ownerID, c.ID, productID); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := svc.SetQuantity(ctx, ownerID, c.ID, productID, 0)
	if err != nil {
		t.Fatalf("set quantity 0: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("line not removed: %+v", got.Items)
	}
}

func TestMutationRefreshesTTL(t *testing.T) {
	svc, mr, ownerID, productID := newCartTest(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, ownerID)
	mr.FastForward(50 * time.Minute)
	if _, err := svc.AddProduct(ctx, ownerID, c.ID, productID); err != nil {
		t.Fatalf("add: %v", err)
	}
	// The mutation reset the clock; the original expiry would have hit here.
	mr.FastForward(50 * time.Minute)
	if _, err := svc.Get(ctx, ownerID, c.ID); err != nil {
		t.Fatalf("cart expired despite refresh: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := svc.Get(ctx, ownerID, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle cart should expire: err = %v", err)
	}
}

func TestClearDiscardsSession(t *testing.T) {
	svc, _, ownerID, productID := newCartTest(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, ownerID)
	if _, err := svc.AddProduct(ctx, ownerID, c.ID, productID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Clear(ctx, ownerID, c.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := svc.Get(ctx, ownerID, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after clear: err = %v, want ErrNotFound", err)
	}
}

func TestCartsAreOwnerScoped(t *testing.T) {
	svc, _, ownerID, _ := newCartTest(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, ownerID)
	other := uuid.New()
	if _, err := svc.Get(ctx, other, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner get: err = %v, want ErrNotFound", err)
	}
}
