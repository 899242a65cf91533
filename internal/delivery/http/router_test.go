package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crewplanner/internal/delivery/http/controllers"
	"crewplanner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (domain.SignedInUser, error) {
	if token != "good" {
		return domain.SignedInUser{}, domain.ErrUnauthorized
	}
	return domain.SignedInUser{Key: "u1", Roles: []domain.Role{domain.RoleTeamMember}}, nil
}

type stubRegistrations struct {
	domain.RegistrationService
	confirmed domain.RegistrationKey
}

func (s *stubRegistrations) ConfirmByToken(_ context.Context, _ domain.EventKey, key domain.RegistrationKey, accessKey string) error {
	if accessKey != "secret" {
		return domain.ErrUnauthorized
	}
	s.confirmed = key
	return nil
}

type stubPositions struct {
	domain.PositionService
}

func (stubPositions) ListPositions(context.Context, domain.SignedInUser) ([]*domain.Position, error) {
	return []*domain.Position{{Key: "deckhand", Name: "Deckhand"}}, nil
}

type countingRecorder struct {
	statuses []int
}

func (c *countingRecorder) RequestObserved(_ string, status int, _ time.Duration) {
	c.statuses = append(c.statuses, status)
}

func newTestRouter(regs *stubRegistrations, rec *countingRecorder) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(Controllers{
		Auth:          controllers.NewAuthController(logger, nil),
		Event:         controllers.NewEventController(logger, nil),
		Registration:  controllers.NewRegistrationController(logger, regs),
		Position:      controllers.NewPositionController(logger, stubPositions{}),
		Qualification: controllers.NewQualificationController(logger, nil),
		User:          controllers.NewUserController(logger, nil),
	}, RouterConfig{
		Verifier:       stubVerifier{},
		Recorder:       rec,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "metrics") }),
		AllowedOrigins: []string{"https://crew.example.com"},
		Logger:         logger,
	})
}

func TestRouter(t *testing.T) {
	regs := &stubRegistrations{}
	rec := &countingRecorder{}
	router := newTestRouter(regs, rec)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"protected route without token", http.MethodGet, "/events", "", http.StatusUnauthorized},
		{"protected route with bad token", http.MethodPost, "/events/ev1/registrations", "bad", http.StatusUnauthorized},
		{"protected route with token", http.MethodGet, "/positions", "good", http.StatusOK},
		{"confirm is public", http.MethodPost, "/events/ev1/registrations/r1/confirm?accessKey=secret", "", http.StatusNoContent},
		{"confirm with wrong access key", http.MethodPost, "/events/ev1/registrations/r1/confirm?accessKey=guess", "", http.StatusUnauthorized},
		{"wrong method", http.MethodGet, "/events/ev1/registrations/r1/confirm", "", http.StatusMethodNotAllowed},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
	assert.Equal(t, domain.RegistrationKey("r1"), regs.confirmed)
	require.Len(t, rec.statuses, len(tests))
	assert.Equal(t, http.StatusUnauthorized, rec.statuses[0])
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(&stubRegistrations{}, &countingRecorder{})
	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "https://crew.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://crew.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
