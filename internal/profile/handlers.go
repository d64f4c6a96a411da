package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// Handlers exposes the store profile over HTTP.
type Handlers struct {
	Svc      Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type profileRequest struct {
	StoreName string `json:"store_name" validate:"required,min=1,max=200"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=20"`
	Address   string `json:"address" validate:"max=500"`
	GSTNumber string `json:"gst_number" validate:"max=32"`
	LogoURL   string `json:"logo_url" validate:"omitempty,url|uri"`
}

type profileResponse struct {
	StoreName string     `json:"store_name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	GSTNumber string     `json:"gst_number,omitempty"`
	LogoURL   string     `json:"logo_url,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toProfileResponse(p repo.StoreProfile) profileResponse {
	out := profileResponse{
		StoreName: p.StoreName,
		Email:     p.Email,
		Phone:     p.Phone,
		Address:   p.Address,
		GSTNumber: p.GSTNumber,
		LogoURL:   p.LogoURL,
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// Get handles GET /profile. An absent profile is an empty 200.
func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	p, err := h.Svc.Get(r.Context(), ownerID)
	if err != nil {
		h.Logger.Error().Err(err).Msg("get profile failed")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toProfileResponse(p))
}

// Upsert handles PUT /profile.
func (h Handlers) Upsert(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.ValidationError("invalid JSON body", nil))
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.WriteError(w, common.ValidationError("invalid profile", validationDetails(err)))
			return
		}
	}
	p, err := h.Svc.Upsert(r.Context(), ownerID, Input{
		StoreName: req.StoreName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		GSTNumber: req.GSTNumber,
		LogoURL:   req.LogoURL,
	})
	if err != nil {
		h.Logger.Error().Err(err).Msg("upsert profile failed")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toProfileResponse(p))
}

// UploadLogo handles POST /profile/logo (multipart field "logo").
func (h Handlers) UploadLogo(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		common.WriteError(w, common.ValidationError("multipart field 'logo' is required", nil))
		return
	}
	defer file.Close()

	url, err := h.Svc.SaveLogo(r.Context(), ownerID, file, header)
	if err != nil {
		if errors.Is(err, ErrInvalidUpload) {
			common.WriteError(w, common.ValidationError(err.Error(), nil))
			return
		}
		h.Logger.Error().Err(err).Msg("logo upload failed")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]string{"logo_url": url})
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
