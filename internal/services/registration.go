package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"festregistration/internal/domain"
	"festregistration/internal/metrics"
)

const emailDateLayout = "Mon, 02 Jan 2006"

type registrationService struct {
	registrationRepo domain.RegistrationRepository
	eventRepo        domain.EventRepository
	userRepo         domain.UserRepository
	notifier         domain.Notifier
	emailService     domain.EmailService
	cooldown         domain.Cooldown
	metrics          *metrics.Metrics
	logger           *slog.Logger
	summaryCooldown  time.Duration
	contextTimeout   time.Duration
}

func NewRegistrationService(registrationRepo domain.RegistrationRepository,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	notifier domain.Notifier,
	emailService domain.EmailService,
	cooldown domain.Cooldown,
	m *metrics.Metrics,
	logger *slog.Logger,
	summaryCooldown time.Duration,
	timeout time.Duration,
) domain.RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		eventRepo:        eventRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		emailService:     emailService,
		cooldown:         cooldown,
		metrics:          m,
		logger:           logger,
		summaryCooldown:  summaryCooldown,
		contextTimeout:   timeout,
	}
}

func (s *registrationService) reject(reason string, err error) error {
	s.metrics.RegistrationRejected(reason)
	return err
}

// Register enrolls userID into eventID. The checks run in a fixed order and
// the first failing one decides the error.
func (s *registrationService) Register(ctx context.Context, userID, eventID string, team *domain.TeamPayload) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, s.reject(metrics.ReasonForbidden, domain.NewError(domain.KindForbidden, "administrators cannot register for events"))
	}
	if !user.IsActive {
		return nil, s.reject(metrics.ReasonForbidden, domain.NewError(domain.KindForbidden, "account is deactivated"))
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.reject(metrics.ReasonNotFound, domain.NewError(domain.KindNotFound, "event not found"))
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if !event.IsListed {
		return nil, s.reject(metrics.ReasonNotListed, domain.NewError(domain.KindInvalidState, "registration is not open for this event"))
	}

	active, err := s.registrationRepo.CountActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	if active+1 > event.MaxParticipants {
		return nil, s.reject(metrics.ReasonCapacity, domain.NewCapacityError(event.MaxParticipants-active))
	}

	if _, err := s.registrationRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return nil, s.reject(metrics.ReasonDuplicate, domain.ErrAlreadyRegistered)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}

	now := time.Now().UTC()
	reg := &domain.Registration{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		EventID:     event.ID,
		PID:         user.PID,
		Status:      domain.StatusConfirmed,
		TeamMembers: []domain.TeamMember{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if event.IsGroup() {
		members, err := s.validateTeam(ctx, user, event, team)
		if err != nil {
			return nil, s.reject(metrics.ReasonTeamValidation, err)
		}
		reg.TeamName = strings.TrimSpace(team.TeamName)
		reg.TeamMembers = members
	}

	err = retryOnCollision(ctx, domain.ErrDuplicateTID, func() error {
		return s.registrationRepo.Create(ctx, reg)
	})
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindCapacityExceeded:
			return nil, s.reject(metrics.ReasonCapacity, err)
		case domain.KindDuplicate:
			return nil, s.reject(metrics.ReasonDuplicate, err)
		case domain.KindNotFound:
			return nil, s.reject(metrics.ReasonNotFound, domain.NewError(domain.KindNotFound, "event not found"))
		}
		s.metrics.RegistrationRejected(metrics.ReasonStorage)
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}

	s.metrics.RegistrationCreated(event.ParticipationType)
	s.notifier.RegistrationConfirmed(ctx, &domain.RegistrationConfirmationEmailData{
		Email:      user.Email,
		Name:       user.Name,
		PID:        user.PID,
		EventTitle: event.Title,
		Category:   string(event.Category),
		EventDate:  event.Date.Format(emailDateLayout),
		EventTime:  event.Time,
		Venue:      event.Venue,
		TeamName:   reg.TeamName,
		TID:        reg.TID,
		Members:    reg.TeamMembers,
	})
	return reg, nil
}

// validateTeam checks a group submission and returns the member snapshots in
// submission order.
func (s *registrationService) validateTeam(ctx context.Context, leader *domain.User, event *domain.Event, team *domain.TeamPayload) ([]domain.TeamMember, error) {
	if team == nil || strings.TrimSpace(team.TeamName) == "" || len(team.MemberPIDs) == 0 {
		return nil, domain.NewError(domain.KindValidation, "team name and at least one team member are required for group events")
	}
	size := len(team.MemberPIDs) + 1
	if !event.TeamSize.Contains(size) {
		return nil, domain.NewError(domain.KindInvalidTeamSize,
			"team size must be between %d and %d including the leader, got %d", event.TeamSize.Min, event.TeamSize.Max, size)
	}

	pids := make([]string, len(team.MemberPIDs))
	seen := make(map[string]bool, len(pids))
	for i, raw := range team.MemberPIDs {
		pid := domain.NormalizePID(raw)
		switch {
		case pid == "":
			return nil, domain.NewError(domain.KindValidation, "team member PIDs cannot be empty")
		case pid == leader.PID:
			return nil, domain.NewError(domain.KindValidation, "you cannot add yourself as a team member")
		case seen[pid]:
			return nil, domain.NewError(domain.KindValidation, "duplicate team member PID %s", pid)
		}
		seen[pid] = true
		pids[i] = pid
	}

	users, err := s.userRepo.ListByPIDs(ctx, pids)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	byPID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		if u.Role == domain.RoleUser {
			byPID[u.PID] = u
		}
	}

	var invalid, mismatched []string
	for _, pid := range pids {
		u, ok := byPID[pid]
		if !ok {
			invalid = append(invalid, pid)
			continue
		}
		if u.College != leader.College {
			mismatched = append(mismatched, pid)
		}
	}
	if len(invalid) > 0 {
		return nil, domain.NewError(domain.KindInvalidPID, "invalid participant IDs: %s", strings.Join(invalid, ", "))
	}
	if len(mismatched) > 0 {
		return nil, domain.NewError(domain.KindCollegeMismatch,
			"all team members must be from %s; mismatched PIDs: %s", leader.College, strings.Join(mismatched, ", "))
	}

	members := make([]domain.TeamMember, len(pids))
	for i, pid := range pids {
		u := byPID[pid]
		members[i] = domain.TeamMember{PID: u.PID, Name: u.Name, College: u.College}
	}
	return members, nil
}

func (s *registrationService) CancelRegistration(ctx context.Context, userID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to load registration: %w", err)
		}
		if s.isTeamMember(ctx, userID, eventID) {
			return domain.NewError(domain.KindForbidden, "only the team leader can cancel this registration")
		}
		return domain.NewError(domain.KindNotFound, "registration not found")
	}
	if _, err := s.registrationRepo.Delete(ctx, reg.ID); err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}
	s.metrics.RegistrationCancelled()
	return nil
}

func (s *registrationService) isTeamMember(ctx context.Context, userID, eventID string) bool {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false
	}
	_, err = s.registrationRepo.FindByEventAndMemberPID(ctx, eventID, user.PID)
	return err == nil
}

func (s *registrationService) ValidatePidForTeam(ctx context.Context, requesterID, candidatePID string) (*domain.PublicProfile, error) {
	pid := domain.NormalizePID(candidatePID)
	if pid == "" {
		return nil, domain.NewError(domain.KindValidation, "PID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	requester, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if pid == requester.PID {
		return nil, domain.NewError(domain.KindValidation, "you cannot add yourself as a team member")
	}
	candidate, err := s.userRepo.GetByPID(ctx, pid)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up PID: %w", err)
	}
	if err != nil || candidate.IsAdmin() {
		return nil, domain.NewError(domain.KindNotFound, "no participant found with PID %s", pid)
	}
	if candidate.College != requester.College {
		return nil, domain.NewError(domain.KindCollegeMismatch,
			"%s is from %s; team members must be from %s", pid, candidate.College, requester.College)
	}
	return candidate.PublicProfile(), nil
}

func (s *registrationService) ListMyRegistrations(ctx context.Context, userID string) ([]*domain.MyRegistration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.myRegistrations(ctx, user)
}

func (s *registrationService) myRegistrations(ctx context.Context, user *domain.User) ([]*domain.MyRegistration, error) {
	regs, err := s.registrationRepo.ListInvolving(ctx, user.ID, user.PID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	events := make(map[string]*domain.Event)
	out := make([]*domain.MyRegistration, 0, len(regs))
	for _, reg := range regs {
		event, ok := events[reg.EventID]
		if !ok {
			event, err = s.eventRepo.GetByID(ctx, reg.EventID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to load event: %w", err)
			}
			events[reg.EventID] = event
		}
		isLeader := reg.UserID == user.ID
		out = append(out, &domain.MyRegistration{
			Registration: reg,
			Event:        event,
			IsLeader:     isLeader,
			CanCancel:    isLeader && reg.Status != domain.StatusCancelled,
		})
	}
	return out, nil
}

// EmailRegistrationSummary mails the user their registrations, at most once
// per cooldown window.
func (s *registrationService) EmailRegistrationSummary(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	mine, err := s.myRegistrations(ctx, user)
	if err != nil {
		return err
	}

	key := "summary:" + userID
	ok, remaining, err := s.cooldown.Acquire(ctx, key, s.summaryCooldown)
	if err != nil {
		return domain.WrapError(domain.KindServiceUnavailable, err, "summary emails are temporarily unavailable")
	}
	if !ok {
		minutes := int(math.Ceil(remaining.Minutes()))
		return domain.NewError(domain.KindRateLimited,
			"please wait %d minute(s) before requesting another summary", max(minutes, 1))
	}

	data := &domain.RegistrationSummaryEmailData{Email: user.Email, Name: user.Name, PID: user.PID}
	for _, m := range mine {
		role := "member"
		if m.IsLeader {
			role = "leader"
		}
		data.Items = append(data.Items, domain.SummaryItem{
			EventTitle: m.Event.Title,
			EventDate:  m.Event.Date.Format(emailDateLayout),
			Venue:      m.Event.Venue,
			TeamName:   m.Registration.TeamName,
			TID:        m.Registration.TID,
			Role:       role,
		})
	}
	if err := s.emailService.SendRegistrationSummary(ctx, data); err != nil {
		if rerr := s.cooldown.Release(ctx, key); rerr != nil {
			s.logger.WarnContext(ctx, "failed to release summary cooldown", "user_id", userID, "error", rerr)
		}
		return domain.WrapError(domain.KindServiceUnavailable, err, "could not send the summary email, please try again later")
	}
	return nil
}
