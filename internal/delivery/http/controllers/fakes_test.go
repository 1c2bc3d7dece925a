package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"festregistration/internal/delivery/http/helpers"
	"festregistration/internal/domain"

	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// envelope decodes a success response with a typed data payload.
type envelope[T any] struct {
	Data       T                       `json:"data"`
	Pagination *helpers.PaginationMeta `json:"pagination"`
}

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) helpers.APIError {
	t.Helper()
	var body helpers.APIError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	user       *domain.User
	token      string
	err        error
	lastSignUp domain.SignUpInput
	lastEmail  string
	lastUpdate domain.ProfileUpdate
}

func (f *fakeAuthService) SignUp(_ context.Context, in domain.SignUpInput) (*domain.User, string, error) {
	f.lastSignUp = in
	if f.err != nil {
		return nil, "", f.err
	}
	return f.user, f.token, nil
}

func (f *fakeAuthService) Login(_ context.Context, email, _ string) (*domain.User, string, error) {
	f.lastEmail = email
	if f.err != nil {
		return nil, "", f.err
	}
	return f.user, f.token, nil
}

func (f *fakeAuthService) GetProfile(_ context.Context, _ string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeAuthService) UpdateProfile(_ context.Context, _ string, upd domain.ProfileUpdate) (*domain.User, error) {
	f.lastUpdate = upd
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	events          []*domain.Event
	total           int
	event           *domain.Event
	err             error
	lastFilter      domain.EventFilter
	lastParams      domain.PaginationParams
	lastUnlisted    bool
	lastInput       domain.EventInput
	lastCreatedBy   string
	lastContentType string
	lastExt         string
	lastImage       []byte
}

func (f *fakeEventService) ListEvents(_ context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastFilter, f.lastParams = filter, params
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.events, f.total, nil
}

func (f *fakeEventService) GetEvent(_ context.Context, _ string, includeUnlisted bool) (*domain.Event, error) {
	f.lastUnlisted = includeUnlisted
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) CreateEvent(_ context.Context, createdBy string, in domain.EventInput) (*domain.Event, error) {
	f.lastCreatedBy, f.lastInput = createdBy, in
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) UpdateEvent(_ context.Context, _ string, in domain.EventInput) (*domain.Event, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) ToggleListing(_ context.Context, _ string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) SetImage(_ context.Context, _ string, body io.Reader, contentType, fileExt string) (*domain.Event, error) {
	f.lastContentType, f.lastExt = contentType, fileExt
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.lastImage = data
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	reg       *domain.Registration
	profile   *domain.PublicProfile
	mine      []*domain.MyRegistration
	err       error
	lastUser  string
	lastEvent string
	lastTeam  *domain.TeamPayload
	lastPID   string
	summaries int
}

func (f *fakeRegistrationService) Register(_ context.Context, userID, eventID string, team *domain.TeamPayload) (*domain.Registration, error) {
	f.lastUser, f.lastEvent, f.lastTeam = userID, eventID, team
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) CancelRegistration(_ context.Context, userID, eventID string) error {
	f.lastUser, f.lastEvent = userID, eventID
	return f.err
}

func (f *fakeRegistrationService) ValidatePidForTeam(_ context.Context, requesterID, pid string) (*domain.PublicProfile, error) {
	f.lastUser, f.lastPID = requesterID, pid
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeRegistrationService) ListMyRegistrations(_ context.Context, userID string) ([]*domain.MyRegistration, error) {
	f.lastUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.mine, nil
}

func (f *fakeRegistrationService) EmailRegistrationSummary(_ context.Context, userID string) error {
	f.lastUser = userID
	f.summaries++
	return f.err
}

// fakeAdminService implements domain.AdminService for handler tests.
type fakeAdminService struct {
	report       *domain.ReconcileReport
	stats        *domain.Stats
	participants []*domain.ParticipantWithRegistrations
	events       []*domain.Event
	registrants  []*domain.EventRegistrant
	reg          *domain.Registration
	err          error
	deleted      []string
	lastTeamName string
}

func (f *fakeAdminService) RecomputeAllCounters(_ context.Context) (*domain.ReconcileReport, error) {
	return f.report, f.err
}

func (f *fakeAdminService) Stats(_ context.Context) (*domain.Stats, error) {
	return f.stats, f.err
}

func (f *fakeAdminService) ListParticipants(_ context.Context) ([]*domain.ParticipantWithRegistrations, error) {
	return f.participants, f.err
}

func (f *fakeAdminService) ListAllEvents(_ context.Context) ([]*domain.Event, error) {
	return f.events, f.err
}

func (f *fakeAdminService) DeleteUser(_ context.Context, userID string) error {
	f.deleted = append(f.deleted, "user:"+userID)
	return f.err
}

func (f *fakeAdminService) DeleteEvent(_ context.Context, eventID string) error {
	f.deleted = append(f.deleted, "event:"+eventID)
	return f.err
}

func (f *fakeAdminService) ListEventRegistrations(_ context.Context, _ string) ([]*domain.EventRegistrant, error) {
	return f.registrants, f.err
}

func (f *fakeAdminService) DeleteRegistration(_ context.Context, registrationID string) error {
	f.deleted = append(f.deleted, "registration:"+registrationID)
	return f.err
}

func (f *fakeAdminService) UpdateTeamName(_ context.Context, _ string, teamName string) (*domain.Registration, error) {
	f.lastTeamName = teamName
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}
