package domain

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Category is the fest track an event belongs to.
type Category string

const (
	CategoryDance     Category = "Dance"
	CategoryMusic     Category = "Music"
	CategoryFineArts  Category = "Fine Arts"
	CategoryLiterary  Category = "Literary"
	CategoryDramatics Category = "Dramatics"
	CategoryInformals Category = "Informals"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryDance, CategoryMusic, CategoryFineArts, CategoryLiterary, CategoryDramatics, CategoryInformals,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Participation modes.
const (
	ParticipationSolo  = "solo"
	ParticipationGroup = "group"
)

// MinTeamSize is the smallest team a group event may declare, leader included.
const MinTeamSize = 2

// TeamSize bounds the total team size of a group event, leader included.
type TeamSize struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether n lies within the bounds.
func (t TeamSize) Contains(n int) bool {
	return n >= t.Min && n <= t.Max
}

// EventImage points at the externally hosted poster of an event.
type EventImage struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Event is a fest event participants register for.
// swagger:model Event
type Event struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Theme             string     `json:"theme,omitempty"`
	Category          Category   `json:"category"`
	Date              time.Time  `json:"date"`
	Time              string     `json:"time,omitempty"`
	Venue             string     `json:"venue"`
	MaxParticipants   int        `json:"maxParticipants"`
	RegisteredCount   int        `json:"registeredCount"`
	Image             EventImage `json:"image"`
	IsListed          bool       `json:"isListed"`
	ParticipationType string     `json:"participationType"`
	TeamSize          TeamSize   `json:"teamSize"`
	CreatedBy         string     `json:"createdBy,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// IsGroup reports whether the event takes team registrations.
func (e *Event) IsGroup() bool { return e.ParticipationType == ParticipationGroup }

// EventInput holds the admin-editable fields of an event.
type EventInput struct {
	Title             string
	Description       string
	Theme             string
	Category          Category
	Date              time.Time
	Time              string
	Venue             string
	MaxParticipants   int
	IsListed          *bool
	ParticipationType string
	TeamSize          *TeamSize
}

// Normalize trims text fields and defaults the participation mode to solo.
func (in *EventInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Theme = strings.TrimSpace(in.Theme)
	in.Category = Category(strings.TrimSpace(string(in.Category)))
	in.Time = strings.TrimSpace(in.Time)
	in.Venue = strings.TrimSpace(in.Venue)
	in.ParticipationType = strings.ToLower(strings.TrimSpace(in.ParticipationType))
	if in.ParticipationType == "" {
		in.ParticipationType = ParticipationSolo
	}
}

// Validate returns one message per invalid field.
func (in EventInput) Validate() []string {
	var errs []string
	if in.Title == "" {
		errs = append(errs, "title is required")
	}
	if in.Description == "" {
		errs = append(errs, "description is required")
	}
	if in.Venue == "" {
		errs = append(errs, "venue is required")
	}
	if in.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if !in.Category.Valid() {
		errs = append(errs, fmt.Sprintf("category must be one of %s", joinCategories()))
	}
	if in.MaxParticipants < 1 {
		errs = append(errs, "maxParticipants must be at least 1")
	}
	switch in.ParticipationType {
	case ParticipationSolo:
	case ParticipationGroup:
		errs = append(errs, validateTeamSize(in.TeamSize)...)
	default:
		errs = append(errs, "participationType must be solo or group")
	}
	return errs
}

func validateTeamSize(ts *TeamSize) []string {
	if ts == nil {
		return []string{"teamSize is required for group events"}
	}
	var errs []string
	if ts.Min < MinTeamSize {
		errs = append(errs, "teamSize.min must be at least 2")
	}
	if ts.Max < MinTeamSize {
		errs = append(errs, "teamSize.max must be at least 2")
	}
	if ts.Min > ts.Max {
		errs = append(errs, "teamSize.min cannot be greater than teamSize.max")
	}
	return errs
}

func joinCategories() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// ApplyTo copies validated input onto e. Theme and team size only apply to group events.
func (in EventInput) ApplyTo(e *Event) {
	e.Title = in.Title
	e.Description = in.Description
	e.Category = in.Category
	e.Date = in.Date
	e.Time = in.Time
	e.Venue = in.Venue
	e.MaxParticipants = in.MaxParticipants
	e.ParticipationType = in.ParticipationType
	if in.IsListed != nil {
		e.IsListed = *in.IsListed
	}
	if in.ParticipationType == ParticipationGroup {
		e.Theme = in.Theme
		e.TeamSize = *in.TeamSize
	} else {
		e.Theme = ""
		e.TeamSize = TeamSize{}
	}
}

// EventFilter narrows event listings.
type EventFilter struct {
	Category   Category
	Search     string
	ListedOnly bool
}

// CounterDrift records an event whose registeredCount disagreed with its registrations.
type CounterDrift struct {
	EventID string `json:"eventId"`
	Stored  int    `json:"stored"`
	Actual  int    `json:"actual"`
}

// ReconcileReport summarises a counter recomputation.
// swagger:model ReconcileReport
type ReconcileReport struct {
	EventsChecked int            `json:"eventsChecked"`
	Drifted       []CounterDrift `json:"drifted"`
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// List returns matching events ordered by date and the total match count.
	// A zero PageSize returns every match.
	List(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	Update(ctx context.Context, event *Event) error
	SetListed(ctx context.Context, id string, listed bool) error
	SetImage(ctx context.Context, id string, image EventImage) error
	// Delete removes the event together with every registration referencing it.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (total, listed int, err error)
	// DecrementCounts lowers registeredCount per event id, clamping at zero.
	DecrementCounts(ctx context.Context, byEvent map[string]int) error
	// RecomputeCounters overwrites every registeredCount with the number of
	// non-cancelled registrations, zero included.
	RecomputeCounters(ctx context.Context) (*ReconcileReport, error)
}

// ImageStore hosts event images outside the database.
type ImageStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// EventService covers public browsing and admin management of events.
type EventService interface {
	ListEvents(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	// GetEvent returns an event; unlisted events are only visible when includeUnlisted is set.
	GetEvent(ctx context.Context, id string, includeUnlisted bool) (*Event, error)
	CreateEvent(ctx context.Context, createdBy string, in EventInput) (*Event, error)
	UpdateEvent(ctx context.Context, id string, in EventInput) (*Event, error)
	ToggleListing(ctx context.Context, id string) (*Event, error)
	SetImage(ctx context.Context, id string, body io.Reader, contentType, fileExt string) (*Event, error)
}
