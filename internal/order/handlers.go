package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// Querier is the order storage the handlers read from. Orders are immutable
// after creation, so there is no write surface here.
type Querier interface {
	List(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]repo.Order, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (repo.Order, []repo.OrderItem, error)
}

// Handlers exposes order history over HTTP.
type Handlers struct {
	Q      Querier
	Logger zerolog.Logger
}

type itemResponse struct {
	ProductID *string `json:"product_id,omitempty"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Discount  float64 `json:"discount"`
	Quantity  int32   `json:"quantity"`
	Total     float64 `json:"total"`
}

type orderResponse struct {
	ID             string         `json:"id"`
	OrgClientID    string         `json:"org_client_id"`
	OutletClientID string         `json:"outlet_client_id"`
	CustomerName   string         `json:"customer_name,omitempty"`
	CustomerMobile string         `json:"customer_mobile,omitempty"`
	TotalAmount    float64        `json:"total_amount"`
	TotalDiscount  float64        `json:"total_discount"`
	FinalAmount    float64        `json:"final_amount"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentStatus  string         `json:"payment_status"`
	CashGiven      *float64       `json:"cash_given,omitempty"`
	ChangeAmount   *float64       `json:"change_amount,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Items          []itemResponse `json:"items,omitempty"`
}

func toOrderResponse(o repo.Order, items []repo.OrderItem) orderResponse {
	out := orderResponse{
		ID:             o.ID.String(),
		OrgClientID:    o.OrgClientID,
		OutletClientID: o.OutletClientID,
		CustomerName:   o.CustomerName,
		CustomerMobile: o.CustomerMobile,
		TotalAmount:    o.TotalAmount,
		TotalDiscount:  o.TotalDiscount,
		FinalAmount:    o.FinalAmount,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  o.PaymentStatus,
		CashGiven:      o.CashGiven,
		ChangeAmount:   o.ChangeAmount,
		CreatedAt:      o.CreatedAt,
	}
	for _, item := range items {
		ir := itemResponse{
			Name:     item.Name,
			Price:    item.Price,
			Discount: item.Discount,
			Quantity: item.Quantity,
			Total:    item.Total,
		}
		if item.ProductID != nil {
			s := item.ProductID.String()
			ir.ProductID = &s
		}
		out.Items = append(out.Items, ir)
	}
	return out
}

// List handles GET /orders, newest first.
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	page := common.ParsePagination(r)
	orders, err := h.Q.List(r.Context(), ownerID, int32(page.PerPage), int32(page.Offset()))
	if err != nil {
		h.Logger.Error().Err(err).Msg("list orders failed")
		common.WriteError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, nil))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"orders":   out,
		"page":     page.Page,
		"per_page": page.PerPage,
	})
}

// Get handles GET /orders/{id} with line items.
func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid order id", nil))
		return
	}
	o, items, err := h.Q.GetByID(r.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "order not found", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("get order failed")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toOrderResponse(o, items))
}
