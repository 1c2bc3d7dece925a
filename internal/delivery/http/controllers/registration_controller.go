package controllers

import (
	"log/slog"
	"net/http"

	h "festregistration/internal/delivery/http/helpers"
	"festregistration/internal/delivery/http/middleware"
	"festregistration/internal/domain"
)

// TeamMemberRequest identifies a teammate by PID.
type TeamMemberRequest struct {
	PID string `json:"pid"`
}

// RegisterRequest is the optional body for POST /registrations/{eventID}. Solo events take no body.
type RegisterRequest struct {
	TeamName    string              `json:"teamName"`
	TeamMembers []TeamMemberRequest `json:"teamMembers"`
}

// team converts the request to a payload, or nil when no team data was sent.
func (req RegisterRequest) team() *domain.TeamPayload {
	if req.TeamName == "" && len(req.TeamMembers) == 0 {
		return nil
	}
	pids := make([]string, len(req.TeamMembers))
	for i, m := range req.TeamMembers {
		pids[i] = m.PID
	}
	return &domain.TeamPayload{TeamName: req.TeamName, MemberPIDs: pids}
}

// RegistrationSuccessResponse documents the envelope around a registration.
type RegistrationSuccessResponse struct {
	Data *domain.Registration `json:"data"`
}

// MyRegistrationsResponse documents the envelope for GET /registrations/mine.
type MyRegistrationsResponse struct {
	Data []*domain.MyRegistration `json:"data"`
}

// PIDCheckResponse documents the envelope for GET /registrations/{pid}/exists.
type PIDCheckResponse struct {
	Data *domain.PublicProfile `json:"data"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
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

func (c *RegistrationController) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
	}
	return userID, ok
}

// Register godoc
// @Summary Register for an event
// @Description Solo events need no body. Group events take a team name and the teammates' PIDs; the caller is the leader and is counted in the team size.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body RegisterRequest false "Team data for group events"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIError "code: validation, invalid_state, capacity_exceeded, duplicate, invalid_team_size, invalid_pid, college_mismatch"
// @Failure 401 {object} helpers.APIError "code: unauthorized"
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /registrations/{eventID} [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.caller(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if r.ContentLength != 0 {
		if !h.DecodeAndValidate(w, r, &req) {
			return
		}
	}
	reg, err := c.Service.Register(r.Context(), userID, r.PathValue("eventID"), req.team())
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// Cancel godoc
// @Summary Cancel a registration
// @Description Only the leader can cancel; cancelling a team registration frees every member.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.MessageResponse
// @Failure 403 {object} helpers.APIError "code: forbidden"
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /registrations/{eventID} [delete]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.caller(w, r)
	if !ok {
		return
	}
	if err := c.Service.CancelRegistration(r.Context(), userID, r.PathValue("eventID")); err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "Registration cancelled successfully"})
}

// ValidatePID godoc
// @Summary Check a teammate PID
// @Description Returns the public profile of an active participant from the caller's college.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param pid path string true "Participant ID"
// @Success 200 {object} controllers.PIDCheckResponse
// @Failure 400 {object} helpers.APIError "code: validation, college_mismatch"
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /registrations/{pid}/exists [get]
func (c *RegistrationController) ValidatePID(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.caller(w, r)
	if !ok {
		return
	}
	profile, err := c.Service.ValidatePidForTeam(r.Context(), userID, r.PathValue("pid"))
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, profile)
}

// Mine godoc
// @Summary My registrations
// @Description Registrations the caller leads or is a team member of.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MyRegistrationsResponse
// @Router /registrations/mine [get]
func (c *RegistrationController) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.caller(w, r)
	if !ok {
		return
	}
	regs, err := c.Service.ListMyRegistrations(r.Context(), userID)
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	if regs == nil {
		regs = []*domain.MyRegistration{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, regs)
}

// EmailSummary godoc
// @Summary Email my registrations
// @Description Sends a summary of the caller's registrations. Limited to one request per cooldown window.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MessageResponse
// @Failure 429 {object} helpers.APIError "code: rate_limited"
// @Failure 503 {object} helpers.APIError "code: service_unavailable"
// @Router /registrations/email-summary [post]
func (c *RegistrationController) EmailSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.caller(w, r)
	if !ok {
		return
	}
	if err := c.Service.EmailRegistrationSummary(r.Context(), userID); err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "Registration summary sent to your email"})
}
