package controllers

import (
	"net/http"

	"crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/delivery/http/middleware"
	"crewplanner/internal/domain"
)

// signedInUser returns the caller set by RequireAuth, or writes 401.
func signedInUser(w http.ResponseWriter, r *http.Request) (domain.SignedInUser, bool) {
	user, ok := middleware.SignedInUserFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return domain.SignedInUser{}, false
	}
	return user, true
}
