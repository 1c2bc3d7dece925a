package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festregistration/internal/domain"
)

func TestTemplateRenderer_RegistrationConfirmation(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	subject, html, text, err := r.Render(TemplateRegistrationConfirmation, &domain.RegistrationConfirmationEmailData{
		Email: "asha@example.com", Name: "Asha", PID: "PID250001",
		EventTitle: "Battle of Bands", Category: "Music", EventDate: "2025-03-01", Venue: "OAT",
		TeamName: "Rhythm <3", TID: "TID250004",
		Members: []domain.TeamMember{{PID: "PID250002", Name: "Ben", College: "City College"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Registration confirmed: Battle of Bands", subject)
	assert.Contains(t, text, "Team:  Rhythm <3 (TID250004)")
	assert.Contains(t, text, "Ben (PID250002)")
	assert.Contains(t, html, "Rhythm &lt;3")
	assert.NotContains(t, html, "Rhythm <3")
}

func TestTemplateRenderer_AllTemplates(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	tests := []struct {
		name string
		data any
		want string
	}{
		{TemplateWelcome, &domain.WelcomeEmailData{Name: "Asha", PID: "PID250001"}, "PID250001"},
		{TemplateAccountDeleted, &domain.AccountDeletedEmailData{Name: "Asha", Email: "asha@example.com"}, "asha@example.com"},
		{TemplateRegistrationSummary, &domain.RegistrationSummaryEmailData{
			Name: "Asha", PID: "PID250001",
			Items: []domain.SummaryItem{{EventTitle: "Solo Dance", EventDate: "2025-03-01", Venue: "Hall", Role: "leader"}},
		}, "Solo Dance"},
		{TemplateRegistrationSummary, &domain.RegistrationSummaryEmailData{Name: "Asha"}, "not registered for any event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, html, text, err := r.Render(tt.name, tt.data)
			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.Contains(t, html, tt.want)
			assert.Contains(t, text, tt.want)
		})
	}

	_, _, _, err = r.Render("missing", nil)
	require.Error(t, err)
}
