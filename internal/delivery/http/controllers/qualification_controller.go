package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/domain"
)

// QualificationRequest is the request body for POST /qualifications.
type QualificationRequest struct {
	Key             domain.QualificationKey `json:"key"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	Expires         bool                    `json:"expires"`
	GrantsPositions []domain.PositionKey    `json:"grantsPositions"`
}

// Validate implements Validator.
func (q QualificationRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(q.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

type QualificationController struct {
	Logger  *slog.Logger
	Service domain.QualificationService
}

func NewQualificationController(logger *slog.Logger, svc domain.QualificationService) *QualificationController {
	return &QualificationController{
		Logger:  logger,
		Service: svc,
	}
}

// ListQualifications godoc
// @Summary List qualifications
// @Tags qualifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the qualifications"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /qualifications [get]
func (c *QualificationController) ListQualifications(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	qualifications, err := c.Service.ListQualifications(r.Context(), user)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, qualifications)
}

// CreateQualification godoc
// @Summary Create a qualification
// @Description Every granted position must exist.
// @Tags qualifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body QualificationRequest true "Qualification"
// @Success 201 {object} helpers.APIResponse "data contains the created qualification"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /qualifications [post]
func (c *QualificationController) CreateQualification(w http.ResponseWriter, r *http.Request) {
	user, ok := signedInUser(w, r)
	if !ok {
		return
	}
	var req QualificationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	q := &domain.Qualification{
		Key:             req.Key,
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Expires:         req.Expires,
		GrantsPositions: req.GrantsPositions,
	}
	if q.GrantsPositions == nil {
		q.GrantsPositions = []domain.PositionKey{}
	}
	if err := c.Service.CreateQualification(r.Context(), user, q); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, q)
}
