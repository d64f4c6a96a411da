package dashboard

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handlers exposes dashboard stats over HTTP.
type Handlers struct {
	Svc    Service
	Logger zerolog.Logger
}

// Stats handles GET /dashboard/stats?period=day|week|month|year.
func (h Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerUUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "not authenticated", nil)
		return
	}
	period := Period(r.URL.Query().Get("period"))
	if period == "" {
		period = PeriodDay
	}
	if !period.Valid() {
		common.WriteError(w, common.ValidationError("period must be one of day, week, month, year", nil))
		return
	}
	stats, err := h.Svc.Stats(r.Context(), ownerID, period)
	if err != nil {
		h.Logger.Error().Err(err).Str("period", string(period)).Msg("dashboard stats failed")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, stats)
}
