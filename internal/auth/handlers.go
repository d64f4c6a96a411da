package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
)

const refreshCookieName = "refresh_token"

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Handlers exposes the auth HTTP endpoints.
type Handlers struct {
	Svc      Service
	Validate *validator.Validate
	Cookie   CookieConfig
	Logger   zerolog.Logger
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tokenResponse struct {
	AccessToken     string       `json:"access_token"`
	RefreshToken    string       `json:"refresh_token"`
	AccessExpiresAt time.Time    `json:"access_expires_at"`
	User            userResponse `json:"user"`
}

// Register handles POST /auth/register.
func (h Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, pair, err := h.Svc.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			common.WriteError(w, common.ValidationError("email already registered", nil))
			return
		}
		h.Logger.Error().Err(err).Msg("register failed")
		common.WriteError(w, err)
		return
	}
	h.setRefreshCookie(w, pair)
	common.JSON(w, http.StatusCreated, tokenResponse{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		User:            userResponse{ID: user.ID.String(), Email: user.Email, Name: user.Name},
	})
}

// Login handles POST /auth/login.
func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, pair, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "invalid email or password", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("login failed")
		common.WriteError(w, err)
		return
	}
	h.setRefreshCookie(w, pair)
	common.JSON(w, http.StatusOK, tokenResponse{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		User:            userResponse{ID: user.ID.String(), Email: user.Email, Name: user.Name},
	})
}

// Refresh handles POST /auth/refresh, rotating the presented session.
func (h Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFrom(r)
	if token == "" {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing refresh token", nil)
		return
	}
	pair, err := h.Svc.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			h.clearRefreshCookie(w)
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "session expired", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("refresh failed")
		common.WriteError(w, err)
		return
	}
	h.setRefreshCookie(w, pair)
	common.JSON(w, http.StatusOK, map[string]any{
		"access_token":      pair.AccessToken,
		"refresh_token":     pair.RefreshToken,
		"access_expires_at": pair.AccessExpiresAt,
	})
}

// Logout handles POST /auth/logout.
func (h Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.refreshTokenFrom(r); token != "" {
		if err := h.Svc.Logout(r.Context(), token); err != nil {
			h.Logger.Error().Err(err).Msg("logout failed")
			common.WriteError(w, err)
			return
		}
	}
	h.clearRefreshCookie(w)
	common.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me handles GET /auth/me, restoring the session user.
func (h Handlers) Me(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	user, err := h.Svc.CurrentUser(r.Context(), ownerID)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	common.JSON(w, http.StatusOK, userResponse{ID: user.ID.String(), Email: user.Email, Name: user.Name})
}

func (h Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.WriteError(w, common.ValidationError("invalid JSON body", nil))
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.WriteError(w, common.ValidationError("invalid request", validationDetails(err)))
			return false
		}
	}
	return true
}

func (h Handlers) refreshTokenFrom(r *http.Request) string {
	var req refreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h Handlers) setRefreshCookie(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/auth",
		Domain:   h.Cookie.Domain,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.SameSite,
	})
}

func (h Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		Domain:   h.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.SameSite,
	})
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
