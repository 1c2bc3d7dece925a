package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	h "festregistration/internal/delivery/http/helpers"
	"festregistration/internal/delivery/http/middleware"
	"festregistration/internal/domain"
)

// MaxImageBytes is the largest event image accepted by the upload endpoint.
const MaxImageBytes = 5 << 20

// multipartOverhead leaves room for form boundaries and headers around the image part.
const multipartOverhead = 64 << 10

const eventDateLayout = "2006-01-02"

// EventRequest is the request body for creating or updating an event.
// Date accepts YYYY-MM-DD or RFC 3339.
type EventRequest struct {
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Theme             string           `json:"theme,omitempty"`
	Category          string           `json:"category"`
	Date              string           `json:"date"`
	Time              string           `json:"time,omitempty"`
	Venue             string           `json:"venue"`
	MaxParticipants   int              `json:"maxParticipants"`
	IsListed          *bool            `json:"isListed,omitempty"`
	ParticipationType string           `json:"participationType"`
	TeamSize          *domain.TeamSize `json:"teamSize,omitempty"`

	date time.Time
}

// Validate implements Validator. Only the date format is checked here; the
// remaining rules belong to the event service.
func (e *EventRequest) Validate() []string {
	if strings.TrimSpace(e.Date) == "" {
		return nil
	}
	d, err := parseEventDate(e.Date)
	if err != nil {
		return []string{"date must be YYYY-MM-DD or RFC 3339"}
	}
	e.date = d
	return nil
}

func (e *EventRequest) input() domain.EventInput {
	return domain.EventInput{
		Title:             e.Title,
		Description:       e.Description,
		Theme:             e.Theme,
		Category:          domain.Category(e.Category),
		Date:              e.date,
		Time:              e.Time,
		Venue:             e.Venue,
		MaxParticipants:   e.MaxParticipants,
		IsListed:          e.IsListed,
		ParticipationType: e.ParticipationType,
		TeamSize:          e.TeamSize,
	}
}

func parseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(eventDateLayout, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return d.UTC(), nil
}

// TeamNameRequest is the request body for PATCH /admin/registrations/{registrationID}.
type TeamNameRequest struct {
	TeamName string `json:"teamName"`
}

// Validate implements Validator.
func (t TeamNameRequest) Validate() []string {
	if strings.TrimSpace(t.TeamName) == "" {
		return []string{"team name is required"}
	}
	return nil
}

// StatsResponse documents the envelope for GET /admin/stats.
type StatsResponse struct {
	Data *domain.Stats `json:"data"`
}

// ParticipantsResponse documents the envelope for GET /admin/users.
type ParticipantsResponse struct {
	Data []*domain.ParticipantWithRegistrations `json:"data"`
}

// EventsResponse documents the envelope for GET /admin/events.
type EventsResponse struct {
	Data []*domain.Event `json:"data"`
}

// EventRegistrantsResponse documents the envelope for GET /admin/events/{eventID}/registrations.
type EventRegistrantsResponse struct {
	Data []*domain.EventRegistrant `json:"data"`
}

// ReconcileResponse documents the envelope for POST /admin/reconcile.
type ReconcileResponse struct {
	Data *domain.ReconcileReport `json:"data"`
}

type AdminController struct {
	Logger  *slog.Logger
	Service domain.AdminService
	Events  domain.EventService
}

func NewAdminController(logger *slog.Logger, svc domain.AdminService, events domain.EventService) *AdminController {
	return &AdminController{
		Logger:  logger,
		Service: svc,
		Events:  events,
	}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Recomputes registration counters, then returns event, participant and registration totals.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.StatsResponse
// @Failure 403 {object} helpers.APIError "code: forbidden"
// @Router /admin/stats [get]
func (c *AdminController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.Stats(r.Context())
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ListUsers godoc
// @Summary Participants with their registrations
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ParticipantsResponse
// @Router /admin/users [get]
func (c *AdminController) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.Service.ListParticipants(r.Context())
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	if users == nil {
		users = []*domain.ParticipantWithRegistrations{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, users)
}

// DeleteUser godoc
// @Summary Delete a participant
// @Description Removes the user and their registrations and releases the event slots. Admin accounts cannot be deleted.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 200 {object} controllers.MessageResponse
// @Failure 403 {object} helpers.APIError "code: forbidden"
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /admin/users/{userID} [delete]
func (c *AdminController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.DeleteUser(r.Context(), r.PathValue("userID")); err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// ListEvents godoc
// @Summary All events
// @Description Listed and unlisted events ordered by date.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.EventsResponse
// @Router /admin/events [get]
func (c *AdminController) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := c.Service.ListAllEvents(r.Context())
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// CreateEvent godoc
// @Summary Create an event
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body EventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIError "code: validation, bad_request"
// @Router /admin/events [post]
func (c *AdminController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	event, err := c.Events.CreateEvent(r.Context(), userID, req.input())
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Replaces the editable fields. Capacity cannot drop below the current registrations.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body EventRequest true "Event data"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIError "code: validation, invalid_state"
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /admin/events/{eventID} [put]
func (c *AdminController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Events.UpdateEvent(r.Context(), r.PathValue("eventID"), req.input())
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// ToggleListing godoc
// @Summary Toggle event visibility
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /admin/events/{eventID}/toggle [patch]
func (c *AdminController) ToggleListing(w http.ResponseWriter, r *http.Request) {
	event, err := c.Events.ToggleListing(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// UploadImage godoc
// @Summary Upload an event image
// @Description Multipart form with an "image" file of at most 5 MiB. Replaces the previous image.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param image formData file true "Image file"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIError "code: validation, bad_request"
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Failure 503 {object} helpers.APIError "code: service_unavailable"
// @Router /admin/events/{eventID}/image [put]
func (c *AdminController) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+multipartOverhead)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.WriteJSONError(w, http.StatusBadRequest, "validation", "image must be 5MB or smaller")
			return
		}
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "image file is required")
		return
	}
	defer file.Close()
	if header.Size > MaxImageBytes {
		h.WriteJSONError(w, http.StatusBadRequest, "validation", "image must be 5MB or smaller")
		return
	}
	contentType := header.Header.Get("Content-Type")
	event, err := c.Events.SetImage(r.Context(), r.PathValue("eventID"), file, contentType, filepath.Ext(header.Filename))
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes the event, its registrations and its image.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.MessageResponse
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /admin/events/{eventID} [delete]
func (c *AdminController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.DeleteEvent(r.Context(), r.PathValue("eventID")); err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "Event deleted successfully"})
}

// EventRegistrations godoc
// @Summary Registrations for an event
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventRegistrantsResponse
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /admin/events/{eventID}/registrations [get]
func (c *AdminController) EventRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := c.Service.ListEventRegistrations(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	if regs == nil {
		regs = []*domain.EventRegistrant{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, regs)
}

// DeleteRegistration godoc
// @Summary Delete a registration
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} controllers.MessageResponse
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /admin/registrations/{registrationID} [delete]
func (c *AdminController) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.DeleteRegistration(r.Context(), r.PathValue("registrationID")); err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "Registration deleted successfully"})
}

// UpdateTeamName godoc
// @Summary Rename a team
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Param body body TeamNameRequest true "New team name"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIError "code: validation, invalid_state"
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /admin/registrations/{registrationID} [patch]
func (c *AdminController) UpdateTeamName(w http.ResponseWriter, r *http.Request) {
	var req TeamNameRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Service.UpdateTeamName(r.Context(), r.PathValue("registrationID"), req.TeamName)
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}

// Reconcile godoc
// @Summary Recompute registration counters
// @Description Sets every event's registered count to its number of active registrations and reports the drift found.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ReconcileResponse
// @Router /admin/reconcile [post]
func (c *AdminController) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := c.Service.RecomputeAllCounters(r.Context())
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, report)
}
