package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// Handlers exposes checkout over HTTP.
type Handlers struct {
	Svc      Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type checkoutRequest struct {
	OrgClientID    string   `json:"org_client_id" validate:"required"`
	OutletClientID string   `json:"outlet_client_id" validate:"required"`
	CustomerID     *string  `json:"customer_id"`
	CustomerName   string   `json:"customer_name" validate:"max=200"`
	CustomerMobile string   `json:"customer_mobile" validate:"max=20"`
	PaymentMethod  string   `json:"payment_method" validate:"required,oneof=cash upi"`
	CashGiven      *float64 `json:"cash_given" validate:"omitempty,gte=0"`
}

type checkoutResponse struct {
	OrderID       string   `json:"order_id"`
	TotalAmount   float64  `json:"total_amount"`
	TotalDiscount float64  `json:"total_discount"`
	FinalAmount   float64  `json:"final_amount"`
	PaymentMethod string   `json:"payment_method"`
	PaymentStatus string   `json:"payment_status"`
	CashGiven     *float64 `json:"cash_given,omitempty"`
	ChangeAmount  *float64 `json:"change_amount,omitempty"`
}

// Checkout handles POST /carts/{cartID}/checkout.
func (h Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ValidationError("invalid JSON body", nil))
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.WriteError(w, common.ValidationError("invalid checkout request", validationDetails(err)))
			return
		}
	}

	order, err := h.Svc.Checkout(r.Context(), ownerID, chi.URLParam(r, "cartID"), Input{
		OrgClientID:    req.OrgClientID,
		OutletClientID: req.OutletClientID,
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		CustomerMobile: req.CustomerMobile,
		PaymentMethod:  req.PaymentMethod,
		CashGiven:      req.CashGiven,
	})
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, checkoutResponse{
		OrderID:       order.ID.String(),
		TotalAmount:   order.TotalAmount,
		TotalDiscount: order.TotalDiscount,
		FinalAmount:   order.FinalAmount,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		CashGiven:     order.CashGiven,
		ChangeAmount:  order.ChangeAmount,
	})
}

func (h Handlers) writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		common.WriteError(w, common.ValidationError(err.Error(), nil))
	case errors.Is(err, ErrInProgress):
		common.JSONError(w, http.StatusConflict, common.CodeCheckoutInProgress, "a checkout for this cart is already in progress", nil)
	case errors.Is(err, repo.ErrInsufficientStock):
		common.WriteError(w, common.InsufficientStock(err.Error()))
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart not found", nil)
	default:
		h.Logger.Error().Err(err).Msg("checkout failed")
		common.WriteError(w, err)
	}
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
