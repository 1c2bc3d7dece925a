package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"festregistration/internal/delivery/http/middleware"
	"festregistration/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventController_ListEvents(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		svc          *fakeEventService
		wantStatus   int
		wantCategory domain.Category
		wantSearch   string
		wantPages    int
	}{
		{
			name:       "defaults",
			svc:        &fakeEventService{events: []*domain.Event{{ID: "ev-1"}}, total: 1},
			wantStatus: http.StatusOK,
			wantPages:  1,
		},
		{
			name:       "All means no filter",
			query:      "?category=All&search=%20salsa%20",
			svc:        &fakeEventService{total: 0},
			wantStatus: http.StatusOK,
			wantSearch: "salsa",
		},
		{
			name:         "category and paging",
			query:        "?category=Fine%20Arts&page=2&page_size=10",
			svc:          &fakeEventService{events: []*domain.Event{{ID: "ev-11"}}, total: 11},
			wantStatus:   http.StatusOK,
			wantCategory: domain.CategoryFineArts,
			wantPages:    2,
		},
		{
			name:       "unknown category",
			query:      "?category=Cooking",
			svc:        &fakeEventService{err: domain.NewError(domain.KindValidation, "unknown category")},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewEventController(testLogger, tt.svc)
			rr := httptest.NewRecorder()

			ctrl.ListEvents(rr, httptest.NewRequest(http.MethodGet, "/events"+tt.query, nil))

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			env := decodeData[[]*domain.Event](t, rr)
			assert.NotNil(t, env.Data)
			require.NotNil(t, env.Pagination)
			assert.Equal(t, tt.wantPages, env.Pagination.TotalPages)
			assert.Equal(t, tt.wantCategory, tt.svc.lastFilter.Category)
			assert.Equal(t, tt.wantSearch, tt.svc.lastFilter.Search)
		})
	}
}

func TestEventController_GetEvent(t *testing.T) {
	t.Run("anonymous cannot see unlisted", func(t *testing.T) {
		svc := &fakeEventService{err: domain.NewError(domain.KindForbidden, "event is not available")}
		ctrl := NewEventController(testLogger, svc)
		req := httptest.NewRequest(http.MethodGet, "/events/ev-1", nil)
		req.SetPathValue("eventID", "ev-1")
		rr := httptest.NewRecorder()

		ctrl.GetEvent(rr, req)

		require.Equal(t, http.StatusForbidden, rr.Code)
		assert.False(t, svc.lastUnlisted)
	})

	t.Run("admin sees unlisted", func(t *testing.T) {
		svc := &fakeEventService{event: &domain.Event{ID: "ev-1", IsListed: false}}
		ctrl := NewEventController(testLogger, svc)
		req := httptest.NewRequest(http.MethodGet, "/events/ev-1", nil)
		req.SetPathValue("eventID", "ev-1")
		req = req.WithContext(middleware.SetClaims(req.Context(), &domain.TokenClaims{UserID: "a-1", Role: domain.RoleAdmin}))
		rr := httptest.NewRecorder()

		ctrl.GetEvent(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, svc.lastUnlisted)
		assert.Equal(t, "ev-1", decodeData[domain.Event](t, rr).Data.ID)
	})

	t.Run("missing", func(t *testing.T) {
		ctrl := NewEventController(testLogger, &fakeEventService{err: domain.ErrNotFound})
		req := httptest.NewRequest(http.MethodGet, "/events/nope", nil)
		req.SetPathValue("eventID", "nope")
		rr := httptest.NewRecorder()

		ctrl.GetEvent(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}
