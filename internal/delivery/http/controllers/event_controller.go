package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "festregistration/internal/delivery/http/helpers"
	"festregistration/internal/delivery/http/middleware"
	"festregistration/internal/domain"
)

// allCategories is the category value clients send to mean "no filter".
const allCategories = "All"

// EventListResponse documents the paginated event list envelope.
type EventListResponse struct {
	Data       []*domain.Event  `json:"data"`
	Pagination h.PaginationMeta `json:"pagination"`
}

// EventSuccessResponse documents the envelope around a single event.
type EventSuccessResponse struct {
	Data *domain.Event `json:"data"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Listed events ordered by date. Filter by category (All means no filter) and search title, description and theme.
// @Tags events
// @Produce json
// @Param category query string false "Dance, Music, Fine Arts, Literary, Dramatics, Informals or All"
// @Param search query string false "Case-insensitive search text"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventListResponse
// @Failure 400 {object} helpers.APIError "code: validation"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{Search: strings.TrimSpace(q.Get("search"))}
	if cat := strings.TrimSpace(q.Get("category")); cat != "" && !strings.EqualFold(cat, allCategories) {
		filter.Category = domain.Category(cat)
	}
	params := h.ParsePagination(r)
	events, total, err := c.Service.ListEvents(r.Context(), filter, params)
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	h.WriteJSONPage(w, events, h.NewPaginationMeta(params, total))
}

// GetEvent godoc
// @Summary Get an event
// @Description Unlisted events are only visible to admins.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 403 {object} helpers.APIError "code: forbidden"
// @Failure 404 {object} helpers.APIError "code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "event id is required")
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID, middleware.IsAdmin(r.Context()))
	if err != nil {
		h.WriteError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}
