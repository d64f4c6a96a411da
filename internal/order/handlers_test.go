package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/repo"
)

type stubOrders struct {
	orders    []repo.Order
	items     map[uuid.UUID][]repo.OrderItem
	lastLimit int32
	lastOff   int32
}

func (s *stubOrders) List(_ context.Context, ownerID uuid.UUID, limit, offset int32) ([]repo.Order, error) {
	s.lastLimit = limit
	s.lastOff = offset
	var out []repo.Order
	for _, o := range s.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubOrders) GetByID(_ context.Context, ownerID, id uuid.UUID) (repo.Order, []repo.OrderItem, error) {
	for _, o := range s.orders {
		if o.OwnerID == ownerID && o.ID == id {
			return o, s.items[o.ID], nil
		}
	}
	return repo.Order{}, nil, repo.ErrNotFound
}

func testOrder(ownerID uuid.UUID) repo.Order {
	return repo.Order{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		OrgClientID:    "org-1",
		OutletClientID: "outlet-1",
		TotalAmount:    200,
		FinalAmount:    180,
		TotalDiscount:  20,
		PaymentMethod:  "cash",
		PaymentStatus:  "completed",
		CreatedAt:      time.Now(),
	}
}

func authedRequest(method, target string, ownerID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(common.WithOwnerID(req.Context(), ownerID.String()))
}

func TestListScopesByOwnerAndPaginates(t *testing.T) {
	ownerID := uuid.New()
	q := &stubOrders{orders: []repo.Order{testOrder(ownerID), testOrder(uuid.New())}}
	h := Handlers{Q: q}

	rr := httptest.NewRecorder()
	h.List(rr, authedRequest(http.MethodGet, "/orders?page=2&limit=10", ownerID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if q.lastLimit != 10 || q.lastOff != 10 {
		t.Fatalf("limit/offset = %d/%d, want 10/10", q.lastLimit, q.lastOff)
	}

	var body struct {
		Orders []orderResponse `json:"orders"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Orders) != 1 {
		t.Fatalf("orders = %d, want only the owner's", len(body.Orders))
	}
}

func TestListRequiresAuth(t *testing.T) {
	h := Handlers{Q: &stubOrders{}}
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestGetReturnsItems(t *testing.T) {
	ownerID := uuid.New()
	o := testOrder(ownerID)
	productID := uuid.New()
	q := &stubOrders{
		orders: []repo.Order{o},
		items: map[uuid.UUID][]repo.OrderItem{
			o.ID: {{OrderID: o.ID, ProductID: &productID, Name: "Milk 1L", Price: 100, Quantity: 2, Total: 200}},
		},
	}
	h := Handlers{Q: q}

	req := authedRequest(http.MethodGet, "/orders/"+o.ID.String(), ownerID)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", o.ID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var body orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Name != "Milk 1L" {
		t.Fatalf("items = %+v", body.Items)
	}
}

func TestGetUnknownOrderIs404(t *testing.T) {
	ownerID := uuid.New()
	h := Handlers{Q: &stubOrders{}}

	req := authedRequest(http.MethodGet, "/orders/"+uuid.NewString(), ownerID)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", uuid.NewString())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}
