package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// Handlers exposes product CRUD over HTTP.
type Handlers struct {
	Svc      Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type productRequest struct {
	Name            string   `json:"name" validate:"required,min=1,max=200"`
	Category        string   `json:"category" validate:"max=100"`
	Barcode         string   `json:"barcode" validate:"max=64"`
	Price           float64  `json:"price" validate:"gte=0"`
	CostPrice       *float64 `json:"cost_price" validate:"omitempty,gte=0"`
	Discount        float64  `json:"discount" validate:"gte=0,lte=100"`
	Stock           int32    `json:"stock" validate:"gte=0"`
	StockLevel      int32    `json:"stock_level" validate:"gte=0"`
	MeasureCategory string   `json:"measure_category" validate:"omitempty,oneof=liquid solid piece"`
	Unit            string   `json:"unit" validate:"omitempty,oneof=ml l g kg pcs"`
	PackSize        float64  `json:"pack_size" validate:"omitempty,gt=0"`
}

type productResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category,omitempty"`
	Barcode         string    `json:"barcode,omitempty"`
	Price           float64   `json:"price"`
	CostPrice       *float64  `json:"cost_price,omitempty"`
	Discount        float64   `json:"discount"`
	Stock           int32     `json:"stock"`
	StockLevel      int32     `json:"stock_level"`
	MeasureCategory string    `json:"measure_category"`
	BaseUnit        string    `json:"base_unit"`
	QtyPerItem      float64   `json:"qty_per_item"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toProductResponse(p repo.Product) productResponse {
	return productResponse{
		ID:              p.ID.String(),
		Name:            p.Name,
		Category:        p.Category,
		Barcode:         p.Barcode,
		Price:           p.Price,
		CostPrice:       p.CostPrice,
		Discount:        p.Discount,
		Stock:           p.Stock,
		StockLevel:      p.StockLevel,
		MeasureCategory: p.MeasureCategory,
		BaseUnit:        p.BaseUnit,
		QtyPerItem:      p.QtyPerItem,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// List handles GET /products with an optional ?search= filter.
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	products, err := h.Svc.List(r.Context(), ownerID, r.URL.Query().Get("search"))
	if err != nil {
		h.Logger.Error().Err(err).Msg("list products failed")
		common.WriteError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	common.JSON(w, http.StatusOK, map[string]any{"products": out})
}

// LowStock handles GET /products/low-stock.
func (h Handlers) LowStock(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	products, err := h.Svc.LowStock(r.Context(), ownerID)
	if err != nil {
		h.Logger.Error().Err(err).Msg("list low-stock products failed")
		common.WriteError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	common.JSON(w, http.StatusOK, map[string]any{"products": out})
}

// Get handles GET /products/{id}.
func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid product id", nil))
		return
	}
	product, err := h.Svc.Get(r.Context(), ownerID, id)
	if err != nil {
		h.writeProductError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toProductResponse(product))
}

// Create handles POST /products.
func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	input, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.Svc.Create(r.Context(), ownerID, input)
	if err != nil {
		h.writeProductError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, toProductResponse(product))
}

// Update handles PUT /products/{id}.
func (h Handlers) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid product id", nil))
		return
	}
	input, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.Svc.Update(r.Context(), ownerID, id, input)
	if err != nil {
		h.writeProductError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toProductResponse(product))
}

// Delete handles DELETE /products/{id}.
func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ValidationError("invalid product id", nil))
		return
	}
	if err := h.Svc.Delete(r.Context(), ownerID, id); err != nil {
		h.writeProductError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h Handlers) decodeProduct(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ValidationError("invalid JSON body", nil))
		return ProductInput{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.WriteError(w, common.ValidationError("invalid product", validationDetails(err)))
			return ProductInput{}, false
		}
	}
	return ProductInput{
		Name:            req.Name,
		Category:        req.Category,
		Barcode:         req.Barcode,
		Price:           req.Price,
		CostPrice:       req.CostPrice,
		Discount:        req.Discount,
		Stock:           req.Stock,
		StockLevel:      req.StockLevel,
		MeasureCategory: req.MeasureCategory,
		Unit:            req.Unit,
		PackSize:        req.PackSize,
	}, true
}

func (h Handlers) writeProductError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.WriteError(w, common.ValidationError(err.Error(), nil))
	default:
		h.Logger.Error().Err(err).Msg("product operation failed")
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
