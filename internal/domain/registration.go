package domain

import (
	"context"
	"time"
)

// Registration statuses. Creation only ever produces StatusConfirmed.
const (
	StatusConfirmed  = "confirmed"
	StatusCancelled  = "cancelled"
	StatusWaitlisted = "waitlisted"
)

// TeamMember is a snapshot of a teammate taken when the team registered.
// It is not kept in sync with later profile edits.
type TeamMember struct {
	PID     string `json:"pid"`
	Name    string `json:"name"`
	College string `json:"college"`
}

// Registration enrolls one leader (and, for group events, a team) into one event.
// swagger:model Registration
type Registration struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	EventID     string       `json:"eventId"`
	PID         string       `json:"pid"`
	Status      string       `json:"status"`
	TeamName    string       `json:"teamName,omitempty"`
	TID         string       `json:"tid,omitempty"`
	TeamMembers []TeamMember `json:"teamMembers"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// HasMember reports whether pid appears in the team snapshot.
func (r *Registration) HasMember(pid string) bool {
	for _, m := range r.TeamMembers {
		if m.PID == pid {
			return true
		}
	}
	return false
}

// TeamPayload is what a group leader submits alongside a registration.
type TeamPayload struct {
	TeamName   string
	MemberPIDs []string
}

// MyRegistration is a registration as seen by a leader or team member.
type MyRegistration struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
	IsLeader     bool          `json:"isLeader"`
	CanCancel    bool          `json:"canCancel"`
}

// EventRegistrant pairs a registration with its leader for admin rosters.
type EventRegistrant struct {
	Registration *Registration `json:"registration"`
	Leader       *User         `json:"leader"`
}

// ParticipantRegistration is one entry in a participant's admin view.
type ParticipantRegistration struct {
	Registration *Registration `json:"registration"`
	EventTitle   string        `json:"eventTitle"`
}

// ParticipantWithRegistrations is a participant account with its registrations.
type ParticipantWithRegistrations struct {
	User          *User                      `json:"user"`
	Registrations []*ParticipantRegistration `json:"registrations"`
}

// Stats is the admin dashboard summary.
// swagger:model Stats
type Stats struct {
	TotalEvents        int `json:"totalEvents"`
	ListedEvents       int `json:"listedEvents"`
	TotalUsers         int `json:"totalUsers"`
	TotalRegistrations int `json:"totalRegistrations"`
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	// Create persists reg and its team snapshot in one transaction that bumps the
	// event counter, rejects the insert when active registrations would exceed
	// capacity and assigns a TID when a team name is set.
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Registration, error)
	FindByEventAndMemberPID(ctx context.Context, eventID, pid string) (*Registration, error)
	CountActiveByEvent(ctx context.Context, eventID string) (int, error)
	CountActive(ctx context.Context) (int, error)
	ListByUser(ctx context.Context, userID string) ([]*Registration, error)
	// ListInvolving returns active registrations where userID leads or pid is a team member.
	ListInvolving(ctx context.Context, userID, pid string) ([]*Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Registration, error)
	ListActive(ctx context.Context) ([]*Registration, error)
	// Delete removes the registration and decrements its event counter.
	Delete(ctx context.Context, id string) (*Registration, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
	// SetTeamName updates the team name and assigns a TID if none exists yet.
	SetTeamName(ctx context.Context, id, teamName string, updatedAt time.Time) (*Registration, error)
}

// RegistrationService is the participant-facing registration workflow.
type RegistrationService interface {
	Register(ctx context.Context, userID, eventID string, team *TeamPayload) (*Registration, error)
	CancelRegistration(ctx context.Context, userID, eventID string) error
	ValidatePidForTeam(ctx context.Context, requesterID, candidatePID string) (*PublicProfile, error)
	ListMyRegistrations(ctx context.Context, userID string) ([]*MyRegistration, error)
	EmailRegistrationSummary(ctx context.Context, userID string) error
}

// AdminService covers reconciliation, cascading deletes and rosters.
type AdminService interface {
	RecomputeAllCounters(ctx context.Context) (*ReconcileReport, error)
	Stats(ctx context.Context) (*Stats, error)
	ListParticipants(ctx context.Context) ([]*ParticipantWithRegistrations, error)
	ListAllEvents(ctx context.Context) ([]*Event, error)
	DeleteUser(ctx context.Context, userID string) error
	DeleteEvent(ctx context.Context, eventID string) error
	ListEventRegistrations(ctx context.Context, eventID string) ([]*EventRegistrant, error)
	DeleteRegistration(ctx context.Context, registrationID string) error
	UpdateTeamName(ctx context.Context, registrationID, teamName string) (*Registration, error)
}

// Cooldown is a soft per-key rate limit.
type Cooldown interface {
	// Acquire reserves key for window. If key is still cooling down it returns
	// false and the time left.
	Acquire(ctx context.Context, key string, window time.Duration) (ok bool, remaining time.Duration, err error)
	Release(ctx context.Context, key string) error
}
