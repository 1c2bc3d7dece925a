package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"festregistration/internal/delivery/http/helpers"
	"festregistration/internal/delivery/http/middleware"
	"festregistration/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthController_SignUp(t *testing.T) {
	participant := &domain.User{ID: "u-1", Name: "Asha Rao", Email: "asha@example.com", PID: "PID260001", Role: domain.RoleUser}

	tests := []struct {
		name       string
		body       string
		svc        *fakeAuthService
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"name":"Asha Rao","email":"asha@example.com","password":"secret1","rollNumber":"1001","college":"City College"}`,
			svc:        &fakeAuthService{user: participant, token: "tok"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing credentials",
			body:       `{"name":"Asha Rao"}`,
			svc:        &fakeAuthService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "duplicate email",
			body:       `{"email":"asha@example.com","password":"secret1"}`,
			svc:        &fakeAuthService{err: domain.ErrDuplicateEmail},
			wantStatus: http.StatusBadRequest,
			wantCode:   "duplicate",
		},
		{
			name:       "service validation",
			body:       `{"email":"asha@example.com","password":"x"}`,
			svc:        &fakeAuthService{err: domain.NewError(domain.KindValidation, "password must be at least 6 characters")},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "role cannot be chosen",
			body:       `{"email":"asha@example.com","password":"secret1","role":"admin"}`,
			svc:        &fakeAuthService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewAuthController(testLogger, tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			ctrl.SignUp(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
				return
			}
			env := decodeData[AuthResponse](t, rr)
			assert.Equal(t, "tok", env.Data.Token)
			assert.Equal(t, "Bearer", env.Data.TokenType)
			assert.Equal(t, "PID260001", env.Data.User.PID)
			assert.Equal(t, "1001", tt.svc.lastSignUp.RollNumber)
			assert.Equal(t, "City College", tt.svc.lastSignUp.College)
		})
	}
}

func TestAuthController_SignUp_HidesPasswordHash(t *testing.T) {
	svc := &fakeAuthService{user: &domain.User{ID: "u-1", PasswordHash: "hash-value", Salt: "salt-value"}, token: "tok"}
	ctrl := NewAuthController(testLogger, svc)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	rr := httptest.NewRecorder()

	ctrl.SignUp(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hash-value")
	assert.NotContains(t, rr.Body.String(), "salt-value")
}

func TestAuthController_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *fakeAuthService
		wantStatus int
		wantCode   string
	}{
		{
			name:       "ok",
			body:       `{"email":"asha@example.com","password":"secret1"}`,
			svc:        &fakeAuthService{user: &domain.User{ID: "u-1"}, token: "tok"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			body:       `{"email":"asha@example.com","password":"nope"}`,
			svc:        &fakeAuthService{err: domain.NewError(domain.KindUnauthorized, "invalid email or password")},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "deactivated",
			body:       `{"email":"asha@example.com","password":"secret1"}`,
			svc:        &fakeAuthService{err: domain.NewError(domain.KindForbidden, "account is deactivated")},
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			svc:        &fakeAuthService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewAuthController(testLogger, tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			ctrl.Login(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
				return
			}
			assert.Equal(t, "tok", decodeData[AuthResponse](t, rr).Data.Token)
		})
	}
}

func TestAuthController_Me(t *testing.T) {
	t.Run("no user in context", func(t *testing.T) {
		ctrl := NewAuthController(testLogger, &fakeAuthService{})
		rr := httptest.NewRecorder()

		ctrl.Me(rr, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("profile", func(t *testing.T) {
		ctrl := NewAuthController(testLogger, &fakeAuthService{user: &domain.User{ID: "u-1", PID: "PID260001"}})
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req = req.WithContext(middleware.SetUserID(req.Context(), "u-1"))
		rr := httptest.NewRecorder()

		ctrl.Me(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "PID260001", decodeData[domain.User](t, rr).Data.PID)
	})

	t.Run("deleted user", func(t *testing.T) {
		ctrl := NewAuthController(testLogger, &fakeAuthService{err: domain.ErrNotFound})
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req = req.WithContext(middleware.SetUserID(req.Context(), "u-1"))
		rr := httptest.NewRecorder()

		ctrl.Me(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAuthController_UpdateProfile(t *testing.T) {
	svc := &fakeAuthService{user: &domain.User{ID: "u-1", Name: "Asha R"}}
	ctrl := NewAuthController(testLogger, svc)
	req := httptest.NewRequest(http.MethodPut, "/auth/profile", strings.NewReader(`{"name":"Asha R","year":"3"}`))
	req = req.WithContext(middleware.SetUserID(req.Context(), "u-1"))
	rr := httptest.NewRecorder()

	ctrl.UpdateProfile(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.lastUpdate.Name)
	assert.Equal(t, "Asha R", *svc.lastUpdate.Name)
	require.NotNil(t, svc.lastUpdate.Year)
	assert.Nil(t, svc.lastUpdate.College)

	req = httptest.NewRequest(http.MethodPut, "/auth/profile", strings.NewReader(`{"pid":"PID260009"}`))
	req = req.WithContext(middleware.SetUserID(req.Context(), "u-1"))
	rr = httptest.NewRecorder()
	ctrl.UpdateProfile(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
