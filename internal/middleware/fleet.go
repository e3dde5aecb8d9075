package middleware

import (
	"net/http"

	"github.com/ukydev/fleetflow/internal/fleet"
)

// FleetScope makes reader available to handlers through fleet.FromContext.
func FleetScope(reader fleet.Reader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(fleet.NewContext(r.Context(), reader)))
		})
	}
}
