package controllers

import (
	"log/slog"
	"net/http"

	"crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/domain"
)

// RegistrationRequest is the request body for creating a registration. A
// registration names either a user or a guest, never both.
type RegistrationRequest struct {
	PositionKey domain.PositionKey `json:"positionKey"`
	UserKey     *domain.UserKey    `json:"userKey"`
	Name        *string            `json:"name"`
	Note        *string            `json:"note"`
}

// Validate implements Validator.
func (req RegistrationRequest) Validate() []string {
	return validationMessages(req.spec().Validate())
}

func (req RegistrationRequest) spec() domain.CreateRegistrationSpec {
	return domain.CreateRegistrationSpec{
		Position: req.PositionKey,
		User:     req.UserKey,
		Name:     req.Name,
		Note:     req.Note,
	}
}

// UpdateRegistrationRequest is the request body for PUT on a registration.
// It replaces all mutable fields.
type UpdateRegistrationRequest struct {
	PositionKey domain.PositionKey `json:"positionKey"`
	UserKey     *domain.UserKey    `json:"userKey"`
	Name        *string            `json:"name"`
	Note        *string            `json:"note"`
	Confirmed   bool               `json:"confirmed"`
}

// Validate implements Validator.
func (req UpdateRegistrationRequest) Validate() []string {
	return validationMessages(req.spec().Validate())
}

func (req UpdateRegistrationRequest) spec() domain.UpdateRegistrationSpec {
	return domain.UpdateRegistrationSpec{
		Position:  req.PositionKey,
		User:      req.UserKey,
		Name:      req.Name,
		Note:      req.Note,
		Confirmed: req.Confirmed,
	}
}

func validationMessages(err error) []string {
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}

// RegistrationSuccessResponse is the success response envelope for a single registration.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// AddRegistration godoc
// @Summary Register for an event
// @Description Adds a registration to the event's waiting list. Team members may only register themselves.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventKey path string true "Event key"
// @Param body body RegistrationRequest true "Registration"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventKey}/registrations [post]
func (c *RegistrationController) AddRegistration(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	eventKey, ok := helpers.PathKey(w, r, "eventKey", domain.ParseEventKey)
	if !ok {
		return
	}
	var req RegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Service.AddRegistration(r.Context(), user, eventKey, req.spec())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// UpdateRegistration godoc
// @Summary Update a registration
// @Description Replaces position, registrant, note and confirmation of a registration.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventKey path string true "Event key"
// @Param registrationKey path string true "Registration key"
// @Param body body UpdateRegistrationRequest true "Registration"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventKey}/registrations/{registrationKey} [put]
func (c *RegistrationController) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	eventKey, regKey, ok := registrationPath(w, r)
	if !ok {
		return
	}
	var req UpdateRegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Service.UpdateRegistration(r.Context(), user, eventKey, regKey, req.spec())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// RemoveRegistration godoc
// @Summary Remove a registration
// @Description Removes the registration and frees its slot.
// @Tags registrations
// @Security BearerAuth
// @Param eventKey path string true "Event key"
// @Param registrationKey path string true "Registration key"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventKey}/registrations/{registrationKey} [delete]
func (c *RegistrationController) RemoveRegistration(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	eventKey, regKey, ok := registrationPath(w, r)
	if !ok {
		return
	}
	if err := c.Service.RemoveRegistration(r.Context(), user, eventKey, regKey); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Confirm godoc
// @Summary Confirm participation
// @Description Confirms participation using the access key from the notification email. No login required.
// @Tags registrations
// @Param eventKey path string true "Event key"
// @Param registrationKey path string true "Registration key"
// @Param accessKey query string true "Access key of the registration"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventKey}/registrations/{registrationKey}/confirm [post]
func (c *RegistrationController) Confirm(w http.ResponseWriter, r *http.Request) {
	eventKey, regKey, ok := registrationPath(w, r)
	if !ok {
		return
	}
	if err := c.Service.ConfirmByToken(r.Context(), eventKey, regKey, r.URL.Query().Get("accessKey")); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Decline godoc
// @Summary Decline participation
// @Description Withdraws the registration using the access key from the notification email. No login required.
// @Tags registrations
// @Param eventKey path string true "Event key"
// @Param registrationKey path string true "Registration key"
// @Param accessKey query string true "Access key of the registration"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventKey}/registrations/{registrationKey}/decline [post]
func (c *RegistrationController) Decline(w http.ResponseWriter, r *http.Request) {
	eventKey, regKey, ok := registrationPath(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeclineByToken(r.Context(), eventKey, regKey, r.URL.Query().Get("accessKey")); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func registrationPath(w http.ResponseWriter, r *http.Request) (domain.EventKey, domain.RegistrationKey, bool) {
	eventKey, ok := helpers.PathKey(w, r, "eventKey", domain.ParseEventKey)
	if !ok {
		return "", "", false
	}
	regKey, ok := helpers.PathKey(w, r, "registrationKey", domain.ParseRegistrationKey)
	if !ok {
		return "", "", false
	}
	return eventKey, regKey, true
}
