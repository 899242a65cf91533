package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/domain"
)

// CreateEventRequest is the request body for POST /events. New events start as draft.
type CreateEventRequest struct {
	Name        string            `json:"name"`
	Note        string            `json:"note"`
	Description string            `json:"description"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Locations   []domain.Location `json:"locations"`
	Slots       []domain.Slot     `json:"slots"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Start.IsZero() || c.End.IsZero() {
		errs = append(errs, "start and end are required")
	} else if c.End.Before(c.Start) {
		errs = append(errs, "end must not be before start")
	}
	return errs
}

func (c CreateEventRequest) spec() domain.CreateEventSpec {
	return domain.CreateEventSpec{
		Name:        c.Name,
		Note:        c.Note,
		Description: c.Description,
		Start:       c.Start,
		End:         c.End,
		Locations:   c.Locations,
		Slots:       c.Slots,
	}
}

// UpdateEventRequest is the request body for PATCH /events/{eventKey}. All
// fields optional; omitted fields are unchanged. Sending slots replaces the
// whole crew roster.
type UpdateEventRequest struct {
	domain.UpdateEventSpec
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if state, ok := u.State.Get(); ok && !state.Valid() {
		errs = append(errs, "unknown state "+strconv.Quote(string(state)))
	}
	if name, ok := u.Name.Get(); ok && strings.TrimSpace(name) == "" {
		errs = append(errs, "name must not be empty")
	}
	return errs
}

// EventSuccessResponse is the success response envelope for a single event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success response envelope for GET /events.
type EventListSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	now     func() time.Time
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		now:     time.Now,
	}
}

// ListEvents godoc
// @Summary List events of a year
// @Description Returns all events starting in the given year, ordered by start. Defaults to the current year.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param year query int false "Year (1-9999)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	year := c.now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "year must be a number")
			return
		}
		year = v
	}
	events, err := c.Service.ListEventsByYear(r.Context(), user, year)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates a draft event with its crew roster. Slot assignments in the body are ignored.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), user, req.spec())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event with its slots and registrations.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventKey path string true "Event key"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventKey} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	key, ok := helpers.PathKey(w, r, "eventKey", domain.ParseEventKey)
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), user, key)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Partially updates an event. Crew changes and cancellation notify the affected registrants. A stale write answers 409; reload and retry.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventKey path string true "Event key"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventKey} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	key, ok := helpers.PathKey(w, r, "eventKey", domain.ParseEventKey)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), user, key, req.UpdateEventSpec)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes the event with its slots and registrations.
// @Tags events
// @Security BearerAuth
// @Param eventKey path string true "Event key"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventKey} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	key, ok := helpers.PathKey(w, r, "eventKey", domain.ParseEventKey)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), user, key); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
