package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/delivery/http/middleware"
	"crewplanner/internal/domain"

	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var testPlanner = domain.SignedInUser{Key: "planner", Email: "pia@example.com", Roles: []domain.Role{domain.RoleEventPlanner}}

func withUser(req *http.Request, user domain.SignedInUser) *http.Request {
	return req.WithContext(middleware.SetSignedInUser(req.Context(), user))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) helpers.APIResponse {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if data != nil && raw.Error == nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return helpers.APIResponse{Data: data, Error: raw.Error}
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	event      *domain.Event
	events     []*domain.Event
	err        error
	lastUser   domain.SignedInUser
	lastKey    domain.EventKey
	lastYear   int
	lastCreate domain.CreateEventSpec
	lastUpdate domain.UpdateEventSpec
	deleted    bool
}

func (f *fakeEventService) CreateEvent(_ context.Context, user domain.SignedInUser, spec domain.CreateEventSpec) (*domain.Event, error) {
	f.lastUser, f.lastCreate = user, spec
	return f.event, f.err
}

func (f *fakeEventService) GetEvent(_ context.Context, user domain.SignedInUser, key domain.EventKey) (*domain.Event, error) {
	f.lastUser, f.lastKey = user, key
	return f.event, f.err
}

func (f *fakeEventService) ListEventsByYear(_ context.Context, user domain.SignedInUser, year int) ([]*domain.Event, error) {
	f.lastUser, f.lastYear = user, year
	return f.events, f.err
}

func (f *fakeEventService) UpdateEvent(_ context.Context, user domain.SignedInUser, key domain.EventKey, spec domain.UpdateEventSpec) (*domain.Event, error) {
	f.lastUser, f.lastKey, f.lastUpdate = user, key, spec
	return f.event, f.err
}

func (f *fakeEventService) DeleteEvent(_ context.Context, user domain.SignedInUser, key domain.EventKey) error {
	f.lastUser, f.lastKey = user, key
	f.deleted = f.err == nil
	return f.err
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	reg           *domain.Registration
	err           error
	lastEvent     domain.EventKey
	lastKey       domain.RegistrationKey
	lastAccessKey string
	lastCreate    domain.CreateRegistrationSpec
	lastUpdate    domain.UpdateRegistrationSpec
	calls         []string
}

func (f *fakeRegistrationService) AddRegistration(_ context.Context, _ domain.SignedInUser, eventKey domain.EventKey, spec domain.CreateRegistrationSpec) (*domain.Registration, error) {
	f.calls = append(f.calls, "add")
	f.lastEvent, f.lastCreate = eventKey, spec
	return f.reg, f.err
}

func (f *fakeRegistrationService) UpdateRegistration(_ context.Context, _ domain.SignedInUser, eventKey domain.EventKey, key domain.RegistrationKey, spec domain.UpdateRegistrationSpec) (*domain.Registration, error) {
	f.calls = append(f.calls, "update")
	f.lastEvent, f.lastKey, f.lastUpdate = eventKey, key, spec
	return f.reg, f.err
}

func (f *fakeRegistrationService) RemoveRegistration(_ context.Context, _ domain.SignedInUser, eventKey domain.EventKey, key domain.RegistrationKey) error {
	f.calls = append(f.calls, "remove")
	f.lastEvent, f.lastKey = eventKey, key
	return f.err
}

func (f *fakeRegistrationService) ConfirmByToken(_ context.Context, eventKey domain.EventKey, key domain.RegistrationKey, accessKey string) error {
	f.calls = append(f.calls, "confirm")
	f.lastEvent, f.lastKey, f.lastAccessKey = eventKey, key, accessKey
	return f.err
}

func (f *fakeRegistrationService) DeclineByToken(_ context.Context, eventKey domain.EventKey, key domain.RegistrationKey, accessKey string) error {
	f.calls = append(f.calls, "decline")
	f.lastEvent, f.lastKey, f.lastAccessKey = eventKey, key, accessKey
	return f.err
}

// fakeCatalogService implements PositionService and QualificationService.
type fakeCatalogService struct {
	positions      []*domain.Position
	qualifications []*domain.Qualification
	err            error
	lastPosition   *domain.Position
	lastQual       *domain.Qualification
	lastDeleted    domain.PositionKey
}

func (f *fakeCatalogService) ListPositions(context.Context, domain.SignedInUser) ([]*domain.Position, error) {
	return f.positions, f.err
}

func (f *fakeCatalogService) CreatePosition(_ context.Context, _ domain.SignedInUser, p *domain.Position) error {
	f.lastPosition = p
	if f.err == nil && p.Key == "" {
		p.Key = "generated"
	}
	return f.err
}

func (f *fakeCatalogService) UpdatePosition(_ context.Context, _ domain.SignedInUser, p *domain.Position) error {
	f.lastPosition = p
	return f.err
}

func (f *fakeCatalogService) DeletePosition(_ context.Context, _ domain.SignedInUser, key domain.PositionKey) error {
	f.lastDeleted = key
	return f.err
}

func (f *fakeCatalogService) ListQualifications(context.Context, domain.SignedInUser) ([]*domain.Qualification, error) {
	return f.qualifications, f.err
}

func (f *fakeCatalogService) CreateQualification(_ context.Context, _ domain.SignedInUser, q *domain.Qualification) error {
	f.lastQual = q
	return f.err
}

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	token     string
	user      *domain.User
	users     []*domain.User
	err       error
	lastEmail string
	lastKey   domain.UserKey
}

func (f *fakeUserService) Login(_ context.Context, email, _ string) (string, *domain.User, error) {
	f.lastEmail = email
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeUserService) GetUser(_ context.Context, _ domain.SignedInUser, key domain.UserKey) (*domain.User, error) {
	f.lastKey = key
	return f.user, f.err
}

func (f *fakeUserService) ListUsers(context.Context, domain.SignedInUser) ([]*domain.User, error) {
	return f.users, f.err
}
