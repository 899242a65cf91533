package controllers

import (
	"log/slog"
	"net/http"

	"crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/domain"
)

type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the users"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users [get]
func (c *UserController) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := signedInUser(w, r)
	if !ok {
		return
	}
	users, err := c.Service.ListUsers(r.Context(), caller)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, users)
}

// GetUser godoc
// @Summary Get a user
// @Description Users may always read themselves; "me" resolves to the caller.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userKey path string true "User key or me"
// @Success 200 {object} helpers.APIResponse "data contains the user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userKey} [get]
func (c *UserController) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := signedInUser(w, r)
	if !ok {
		return
	}
	key := caller.Key
	if r.PathValue("userKey") != "me" {
		if key, ok = helpers.PathKey(w, r, "userKey", domain.ParseUserKey); !ok {
			return
		}
	}
	user, err := c.Service.GetUser(r.Context(), caller, key)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}
