package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// Handlers exposes cart sessions over HTTP.
type Handlers struct {
	Svc    Service
	Logger zerolog.Logger
}

type cartResponse struct {
	Cart   Cart           `json:"cart"`
	Totals pricing.Totals `json:"totals"`
}

func respond(w http.ResponseWriter, status int, c Cart) {
	common.JSON(w, status, cartResponse{Cart: c, Totals: c.Totals()})
}

// Create handles POST /carts.
func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	c, err := h.Svc.Create(r.Context(), ownerID)
	if err != nil {
		h.Logger.Error().Err(err).Msg("create cart failed")
		common.WriteError(w, err)
		return
	}
	respond(w, http.StatusCreated, c)
}

// Get handles GET /carts/{cartID}.
func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	c, err := h.Svc.Get(r.Context(), ownerID, chi.URLParam(r, "cartID"))
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
}

// AddItem handles POST /carts/{cartID}/items, adding one unit.
func (h Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ValidationError("invalid JSON body", nil))
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid product id", nil))
		return
	}
	c, err := h.Svc.AddProduct(r.Context(), ownerID, chi.URLParam(r, "cartID"), productID)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

type setQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

// SetQuantity handles PUT /carts/{cartID}/items/{productID}.
func (h Handlers) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid product id", nil))
		return
	}
	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ValidationError("invalid JSON body", nil))
		return
	}
	c, err := h.Svc.SetQuantity(r.Context(), ownerID, chi.URLParam(r, "cartID"), productID, req.Quantity)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

// RemoveItem handles DELETE /carts/{cartID}/items/{productID}.
func (h Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid product id", nil))
		return
	}
	c, err := h.Svc.RemoveItem(r.Context(), ownerID, chi.URLParam(r, "cartID"), productID)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

type setCustomerRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

// SetCustomer handles PUT /carts/{cartID}/customer.
func (h Handlers) SetCustomer(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	var req setCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ValidationError("invalid JSON body", nil))
		return
	}
	c, err := h.Svc.SetCustomer(r.Context(), ownerID, chi.URLParam(r, "cartID"), req.Name, req.Mobile)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

// Clear handles DELETE /carts/{cartID}.
func (h Handlers) Clear(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	if err := h.Svc.Clear(r.Context(), ownerID, chi.URLParam(r, "cartID")); err != nil {
		h.Logger.Error().Err(err).Msg("clear cart failed")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h Handlers) writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart not found", nil)
	case errors.Is(err, repo.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
	case errors.Is(err, ErrInsufficientStock):
		common.WriteError(w, common.InsufficientStock(err.Error()))
	default:
		h.Logger.Error().Err(err).Msg("cart operation failed")
		common.WriteError(w, err)
	}
}
