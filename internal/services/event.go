package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"festregistration/internal/domain"
)

type eventService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	images           domain.ImageStore
	logger           *slog.Logger
	contextTimeout   time.Duration
}

func NewEventService(eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	images domain.ImageStore,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		images:           images,
		logger:           logger,
		contextTimeout:   timeout,
	}
}

// ListEvents returns listed events only, whatever the filter says.
func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.Category != "" && !filter.Category.Valid() {
		return nil, 0, domain.NewError(domain.KindValidation, "unknown category %q", filter.Category)
	}
	filter.ListedOnly = true
	return s.eventRepo.List(ctx, filter, params)
}

func (s *eventService) GetEvent(ctx context.Context, id string, includeUnlisted bool) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsListed && !includeUnlisted {
		return nil, domain.NewError(domain.KindForbidden, "this event is not available")
	}
	return event, nil
}

func (s *eventService) CreateEvent(ctx context.Context, createdBy string, in domain.EventInput) (*domain.Event, error) {
	in.Normalize()
	if err := validationError(in.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := time.Now().UTC()
	event := &domain.Event{
		ID:        uuid.NewString(),
		IsListed:  true,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.ApplyTo(event)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, in domain.EventInput) (*domain.Event, error) {
	in.Normalize()
	if err := validationError(in.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	active, err := s.registrationRepo.CountActiveByEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	if in.MaxParticipants < active {
		return nil, domain.NewError(domain.KindInvalidState,
			"maxParticipants cannot be lower than the %d existing registrations", active)
	}
	in.ApplyTo(event)
	event.UpdatedAt = time.Now().UTC()
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return event, nil
}

func (s *eventService) ToggleListing(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	event.IsListed = !event.IsListed
	if err := s.eventRepo.SetListed(ctx, id, event.IsListed); err != nil {
		return nil, fmt.Errorf("failed to toggle listing: %w", err)
	}
	return event, nil
}

// SetImage uploads a new poster and removes the previous one on a best-effort basis.
func (s *eventService) SetImage(ctx context.Context, id string, body io.Reader, contentType, fileExt string) (*domain.Event, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.NewError(domain.KindValidation, "only image uploads are allowed")
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	key := path.Join("events", id, uuid.NewString()+strings.ToLower(fileExt))
	url, err := s.images.Upload(ctx, key, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	previous := event.Image
	event.Image = domain.EventImage{URL: url, Key: key}
	if err := s.eventRepo.SetImage(ctx, id, event.Image); err != nil {
		s.deleteImage(ctx, key)
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	if previous.Key != "" {
		s.deleteImage(ctx, previous.Key)
	}
	return event, nil
}

func (s *eventService) deleteImage(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete event image", "key", key, "error", err)
	}
}
