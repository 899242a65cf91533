package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthController_Login(t *testing.T) {
	user := &domain.User{Key: "u1", Email: "anna@example.com", FirstName: "Anna", PasswordHash: "hash", Salt: "salt"}
	tests := []struct {
		name         string
		body         string
		fakeErr      error
		wantStatus   int
		wantBodyCode string
	}{
		{name: "success", body: `{"email":"anna@example.com","password":"pw"}`, wantStatus: http.StatusOK},
		{name: "missing password", body: `{"email":"anna@example.com"}`, wantStatus: http.StatusBadRequest, wantBodyCode: helpers.ErrCodeBadRequest},
		{name: "bad credentials", body: `{"email":"anna@example.com","password":"nope"}`, fakeErr: domain.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantBodyCode: helpers.ErrCodeUnauthorized},
		{name: "malformed email", body: `{"email":"anna","password":"pw"}`, fakeErr: domain.ErrInvalidInput, wantStatus: http.StatusBadRequest, wantBodyCode: helpers.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeUserService{token: "jwt-token", user: user, err: tt.fakeErr}
			ctrl := NewAuthController(testLogger, fake)
			rr := httptest.NewRecorder()
			ctrl.Login(rr, httptest.NewRequest(http.MethodPost, "http://test/auth/login", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBodyCode != "" {
				envelope := decodeEnvelope(t, rr, nil)
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
				return
			}
			assert.NotContains(t, rr.Body.String(), "hash")
			var resp LoginResponse
			decodeEnvelope(t, rr, &resp)
			assert.Equal(t, "jwt-token", resp.Token)
			assert.Equal(t, "Bearer", resp.TokenType)
			assert.Equal(t, domain.UserKey("u1"), resp.User.Key)
		})
	}
}

func TestUserController_GetUser(t *testing.T) {
	tests := []struct {
		name       string
		pathKey    string
		fakeErr    error
		wantStatus int
		wantKey    domain.UserKey
	}{
		{name: "me resolves to caller", pathKey: "me", wantStatus: http.StatusOK, wantKey: "planner"},
		{name: "other user", pathKey: "u1", wantStatus: http.StatusOK, wantKey: "u1"},
		{name: "invalid key", pathKey: "u 1", wantStatus: http.StatusBadRequest},
		{name: "forbidden", pathKey: "u1", fakeErr: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantKey: "u1"},
		{name: "not found", pathKey: "u9", fakeErr: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantKey: "u9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeUserService{user: &domain.User{Key: "u1", Email: "anna@example.com"}, err: tt.fakeErr}
			ctrl := NewUserController(testLogger, fake)
			req := withUser(httptest.NewRequest(http.MethodGet, "http://test/users/"+tt.pathKey, nil), testPlanner)
			req.SetPathValue("userKey", tt.pathKey)
			rr := httptest.NewRecorder()
			ctrl.GetUser(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantKey, fake.lastKey)
		})
	}
}

func TestUserController_ListUsers(t *testing.T) {
	fake := &fakeUserService{users: []*domain.User{{Key: "u1"}, {Key: "u2"}}}
	ctrl := NewUserController(testLogger, fake)

	rr := httptest.NewRecorder()
	ctrl.ListUsers(rr, withUser(httptest.NewRequest(http.MethodGet, "http://test/users", nil), testPlanner))
	require.Equal(t, http.StatusOK, rr.Code)
	var users []domain.User
	decodeEnvelope(t, rr, &users)
	assert.Len(t, users, 2)

	rr = httptest.NewRecorder()
	ctrl.ListUsers(rr, httptest.NewRequest(http.MethodGet, "http://test/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
