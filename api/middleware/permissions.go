package middleware

import (
	"net/http"

	"github.com/caribcell/caribcell-backend/api/responses"
	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	"github.com/caribcell/caribcell-backend/pkg/logger"
)

// RequirePermission gates a route on the access gate's verdict. The gate
// re-reads the account, so a suspended user or an expired role grant is
// rejected even when the token is otherwise valid.
func RequirePermission(gate *access.Gate, perm enums.Permission, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if err := gate.Authorize(r.Context(), actor, perm); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
