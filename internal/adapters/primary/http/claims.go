package http

import (
	"net/http"

	mw "github.com/pulsefit/pulsefit-backend/internal/adapters/primary/http/middleware"
	"github.com/pulsefit/pulsefit-backend/internal/auth"
)

// getClaims extracts and validates user claims from the request context
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
