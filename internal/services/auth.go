package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"festregistration/internal/domain"
)

var errInvalidCredentials = domain.NewError(domain.KindUnauthorized, "invalid email or password")

type authService struct {
	userRepo       domain.UserRepository
	hasher         domain.PasswordHasher
	tokenIssuer    domain.TokenIssuer
	notifier       domain.Notifier
	adminEmails    map[string]bool
	tokenExpiry    time.Duration
	contextTimeout time.Duration
}

// NewAuthService creates an AuthService. Sign-ups whose email is in
// adminEmails get the admin role.
func NewAuthService(userRepo domain.UserRepository, hasher domain.PasswordHasher, tokenIssuer domain.TokenIssuer,
	notifier domain.Notifier, adminEmails []string, tokenExpiry, timeout time.Duration,
) domain.AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &authService{
		userRepo:       userRepo,
		hasher:         hasher,
		tokenIssuer:    tokenIssuer,
		notifier:       notifier,
		adminEmails:    admins,
		tokenExpiry:    tokenExpiry,
		contextTimeout: timeout,
	}
}

func (s *authService) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.User, string, error) {
	in.Normalize()
	if err := validationError(in.Validate()); err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, "", err
	}
	hash, err := s.hasher.Hash(salt, in.Password)
	if err != nil {
		return nil, "", err
	}

	role := domain.RoleUser
	if s.adminEmails[in.Email] {
		role = domain.RoleAdmin
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Salt:         salt,
		RollNumber:   in.RollNumber,
		College:      in.College,
		Phone:        in.Phone,
		Department:   in.Department,
		Year:         in.Year,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = retryOnCollision(ctx, domain.ErrDuplicatePID, func() error {
		return s.userRepo.Create(ctx, user)
	})
	if err != nil {
		if domain.KindOf(err) != "" {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	s.notifier.Welcome(ctx, &domain.WelcomeEmailData{Email: user.Email, Name: user.Name, PID: user.PID})
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", errInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, "", errInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", domain.NewError(domain.KindForbidden, "account is deactivated")
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *authService) issue(user *domain.User) (string, error) {
	return s.tokenIssuer.Issue(domain.TokenClaims{UserID: user.ID, Email: user.Email, Role: user.Role}, s.tokenExpiry)
}

func (s *authService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.userRepo.GetByID(ctx, userID)
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validationError(upd.Apply(user)); err != nil {
		return nil, err
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}
