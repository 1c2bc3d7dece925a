package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"festregistration/internal/domain"
)

// NotificationService sends best-effort emails in the background. Failures
// are logged and never reach the caller.
type NotificationService struct {
	email   domain.EmailService
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

var _ domain.Notifier = (*NotificationService)(nil)

func NewNotificationService(email domain.EmailService, logger *slog.Logger, timeout time.Duration) *NotificationService {
	return &NotificationService{email: email, logger: logger, timeout: timeout}
}

func (n *NotificationService) Welcome(ctx context.Context, data *domain.WelcomeEmailData) {
	n.dispatch(ctx, "welcome", func(ctx context.Context) error {
		return n.email.SendWelcome(ctx, data)
	})
}

func (n *NotificationService) RegistrationConfirmed(ctx context.Context, data *domain.RegistrationConfirmationEmailData) {
	n.dispatch(ctx, "registration_confirmation", func(ctx context.Context) error {
		return n.email.SendRegistrationConfirmation(ctx, data)
	})
}

func (n *NotificationService) AccountDeleted(ctx context.Context, data *domain.AccountDeletedEmailData) {
	n.dispatch(ctx, "account_deleted", func(ctx context.Context) error {
		return n.email.SendAccountDeleted(ctx, data)
	})
}

// Wait blocks until every dispatched notification has finished.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

// dispatch runs send on its own goroutine. The request context is detached so
// the email outlives the response, and bounded by the service timeout.
func (n *NotificationService) dispatch(ctx context.Context, kind string, send func(context.Context) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("notification panicked", "kind", kind, "panic", r)
			}
		}()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		if err := send(sendCtx); err != nil {
			n.logger.WarnContext(sendCtx, "notification failed", "kind", kind, "error", err)
		}
	}()
}
