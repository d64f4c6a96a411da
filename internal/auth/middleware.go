package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Middleware authenticates requests with a Bearer access token and threads
// the owner id through the request context.
type Middleware struct {
	Secret []byte
	Now    func() time.Time
}

func (m Middleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// RequireAuth rejects requests without a valid access token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing access token", nil)
			return
		}
		userID, err := ParseAccessToken(raw, m.Secret, m.now())
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "invalid or expired access token", nil)
			return
		}
		ctx := common.WithOwnerID(r.Context(), userID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
