package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/domain"
)

// PositionRequest is the request body for creating or replacing a position.
// Key is optional on create; a key is generated when omitted.
type PositionRequest struct {
	Key      domain.PositionKey `json:"key"`
	Name     string             `json:"name"`
	Color    string             `json:"color"`
	Priority int                `json:"prio"`
	Rank     string             `json:"rank"`
}

// Validate implements Validator.
func (p PositionRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

func (p PositionRequest) position(key domain.PositionKey) *domain.Position {
	return &domain.Position{
		Key:      key,
		Name:     strings.TrimSpace(p.Name),
		Color:    p.Color,
		Priority: p.Priority,
		Rank:     p.Rank,
	}
}

type PositionController struct {
	Logger  *slog.Logger
	Service domain.PositionService
}

func NewPositionController(logger *slog.Logger, svc domain.PositionService) *PositionController {
	return &PositionController{
		Logger:  logger,
		Service: svc,
	}
}

// ListPositions godoc
// @Summary List positions
// @Tags positions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the positions"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /positions [get]
func (c *PositionController) ListPositions(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	positions, err := c.Service.ListPositions(r.Context(), user)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, positions)
}

// CreatePosition godoc
// @Summary Create a position
// @Tags positions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PositionRequest true "Position"
// @Success 201 {object} helpers.APIResponse "data contains the created position"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /positions [post]
func (c *PositionController) CreatePosition(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	var req PositionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	position := req.position(req.Key)
	if err := c.Service.CreatePosition(r.Context(), user, position); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, position)
}

// UpdatePosition godoc
// @Summary Replace a position
// @Description The key in the path wins over a key in the body.
// @Tags positions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param positionKey path string true "Position key"
// @Param body body PositionRequest true "Position"
// @Success 200 {object} helpers.APIResponse "data contains the updated position"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /positions/{positionKey} [put]
func (c *PositionController) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	key, ok := helpers.PathKey(w, r, "positionKey", domain.ParsePositionKey)
	if !ok {
		return
	}
	var req PositionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	position := req.position(key)
	if err := c.Service.UpdatePosition(r.Context(), user, position); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, position)
}

// DeletePosition godoc
// @Summary Delete a position
// @Description Events that still reference the position keep the dangling key.
// @Tags positions
// @Security BearerAuth
// @Param positionKey path string true "Position key"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /positions/{positionKey} [delete]
func (c *PositionController) DeletePosition(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	key, ok := helpers.PathKey(w, r, "positionKey", domain.ParsePositionKey)
	if !ok {
		return
	}
	if err := c.Service.DeletePosition(r.Context(), user, key); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
