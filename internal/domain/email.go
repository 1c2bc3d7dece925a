package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeEmailData holds data for the welcome email.
type WelcomeEmailData struct {
	Email string
	Name  string
	PID   string
}

// RegistrationConfirmationEmailData holds data for the registration confirmation email.
type RegistrationConfirmationEmailData struct {
	Email      string
	Name       string
	PID        string
	EventTitle string
	Category   string
	EventDate  string
	EventTime  string
	Venue      string
	TeamName   string
	TID        string
	Members    []TeamMember
}

// AccountDeletedEmailData holds data for the account removal notice.
type AccountDeletedEmailData struct {
	Email string
	Name  string
}

// SummaryItem is one registration line in the summary email.
type SummaryItem struct {
	EventTitle string
	EventDate  string
	Venue      string
	TeamName   string
	TID        string
	Role       string
}

// RegistrationSummaryEmailData holds data for the on-demand registration summary.
type RegistrationSummaryEmailData struct {
	Email string
	Name  string
	PID   string
	Items []SummaryItem
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendWelcome(ctx context.Context, data *WelcomeEmailData) error
	SendRegistrationConfirmation(ctx context.Context, data *RegistrationConfirmationEmailData) error
	SendAccountDeleted(ctx context.Context, data *AccountDeletedEmailData) error
	SendRegistrationSummary(ctx context.Context, data *RegistrationSummaryEmailData) error
}

// Notifier sends best-effort notifications. Failures are logged and never
// returned to the caller.
type Notifier interface {
	Welcome(ctx context.Context, data *WelcomeEmailData)
	RegistrationConfirmed(ctx context.Context, data *RegistrationConfirmationEmailData)
	AccountDeleted(ctx context.Context, data *AccountDeletedEmailData)
}
