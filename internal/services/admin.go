package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"festregistration/internal/domain"
	"festregistration/internal/metrics"
)

type adminService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	userRepo         domain.UserRepository
	images           domain.ImageStore
	notifier         domain.Notifier
	metrics          *metrics.Metrics
	logger           *slog.Logger
	contextTimeout   time.Duration
}

func NewAdminService(eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	userRepo domain.UserRepository,
	images domain.ImageStore,
	notifier domain.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	timeout time.Duration,
) domain.AdminService {
	return &adminService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		userRepo:         userRepo,
		images:           images,
		notifier:         notifier,
		metrics:          m,
		logger:           logger,
		contextTimeout:   timeout,
	}
}

// RecomputeAllCounters overwrites every event counter from the registrations
// table. Running it twice in a row changes nothing the second time.
func (s *adminService) RecomputeAllCounters(ctx context.Context) (*domain.ReconcileReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.recompute(ctx)
}

func (s *adminService) recompute(ctx context.Context) (*domain.ReconcileReport, error) {
	report, err := s.eventRepo.RecomputeCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute counters: %w", err)
	}
	s.metrics.Reconciled(len(report.Drifted))
	for _, d := range report.Drifted {
		s.logger.InfoContext(ctx, "corrected registered count", "event_id", d.EventID, "stored", d.Stored, "actual", d.Actual)
	}
	return report, nil
}

// Stats recomputes counters first so the dashboard never shows drift.
func (s *adminService) Stats(ctx context.Context) (*domain.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.recompute(ctx); err != nil {
		return nil, err
	}
	total, listed, err := s.eventRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	users, err := s.userRepo.CountByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	regs, err := s.registrationRepo.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	return &domain.Stats{TotalEvents: total, ListedEvents: listed, TotalUsers: users, TotalRegistrations: regs}, nil
}

func (s *adminService) ListParticipants(ctx context.Context) ([]*domain.ParticipantWithRegistrations, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	users, err := s.userRepo.ListByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	regs, err := s.registrationRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	events, _, err := s.eventRepo.List(ctx, domain.EventFilter{}, domain.PaginationParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	titles := make(map[string]string, len(events))
	for _, e := range events {
		titles[e.ID] = e.Title
	}
	byUser := make(map[string][]*domain.ParticipantRegistration)
	for _, r := range regs {
		byUser[r.UserID] = append(byUser[r.UserID], &domain.ParticipantRegistration{Registration: r, EventTitle: titles[r.EventID]})
	}

	out := make([]*domain.ParticipantWithRegistrations, 0, len(users))
	for _, u := range users {
		entries := byUser[u.ID]
		if entries == nil {
			entries = []*domain.ParticipantRegistration{}
		}
		out = append(out, &domain.ParticipantWithRegistrations{User: u, Registrations: entries})
	}
	return out, nil
}

func (s *adminService) ListAllEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, _, err := s.eventRepo.List(ctx, domain.EventFilter{}, domain.PaginationParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// DeleteUser removes a participant and everything they lead. Steps after the
// registrations are gone are best effort; a failed counter update is repaired
// by the next recomputation.
func (s *adminService) DeleteUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return domain.NewError(domain.KindForbidden, "administrator accounts cannot be deleted")
	}

	regs, err := s.registrationRepo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list registrations: %w", err)
	}
	perEvent := make(map[string]int)
	for _, r := range regs {
		if r.Status != domain.StatusCancelled {
			perEvent[r.EventID]++
		}
	}

	if _, err := s.registrationRepo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete registrations: %w", err)
	}
	if err := s.eventRepo.DecrementCounts(ctx, perEvent); err != nil {
		s.logger.ErrorContext(ctx, "failed to decrement event counters after user deletion",
			"user_id", userID, "events", len(perEvent), "error", err)
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.notifier.AccountDeleted(ctx, &domain.AccountDeletedEmailData{Email: user.Email, Name: user.Name})
	return nil
}

func (s *adminService) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if event.Image.Key != "" {
		if err := s.images.Delete(ctx, event.Image.Key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete event image", "event_id", eventID, "key", event.Image.Key, "error", err)
		}
	}
	return nil
}

// ListEventRegistrations returns the roster of an event. Registrations led by
// accounts that are no longer participants are left out.
func (s *adminService) ListEventRegistrations(ctx context.Context, eventID string) ([]*domain.EventRegistrant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	regs, err := s.registrationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	out := make([]*domain.EventRegistrant, 0, len(regs))
	leaders := make(map[string]*domain.User)
	for _, r := range regs {
		leader, ok := leaders[r.UserID]
		if !ok {
			leader, err = s.userRepo.GetByID(ctx, r.UserID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("failed to load leader: %w", err)
			}
			leaders[r.UserID] = leader
		}
		if leader == nil || leader.Role != domain.RoleUser {
			continue
		}
		out = append(out, &domain.EventRegistrant{Registration: r, Leader: leader})
	}
	return out, nil
}

func (s *adminService) DeleteRegistration(ctx context.Context, registrationID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.registrationRepo.Delete(ctx, registrationID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.KindNotFound, "registration not found")
		}
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return nil
}

func (s *adminService) UpdateTeamName(ctx context.Context, registrationID, teamName string) (*domain.Registration, error) {
	teamName = strings.TrimSpace(teamName)
	if teamName == "" {
		return nil, domain.NewError(domain.KindValidation, "team name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsGroup() {
		return nil, domain.NewError(domain.KindInvalidState, "team names only apply to group events")
	}
	var updated *domain.Registration
	err = retryOnCollision(ctx, domain.ErrDuplicateTID, func() error {
		var err error
		updated, err = s.registrationRepo.SetTeamName(ctx, registrationID, teamName, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update team name: %w", err)
	}
	return updated, nil
}
