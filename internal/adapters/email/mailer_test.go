package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := newSESMailer(client, MailerConfig{FromAddress: "fest@example.com", FromName: "Fest"}, testLogger())

	err := m.Send(context.Background(), "asha@example.com", "Hello", "<p>hi</p>", "")
	require.NoError(t, err)
	require.NotNil(t, client.input)
	assert.Equal(t, "Fest <fest@example.com>", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"asha@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(client.input.Message.Body.Html.Data))
	assert.Nil(t, client.input.Message.Body.Text)
}

func TestSESMailer_Send_error(t *testing.T) {
	m := newSESMailer(&fakeSES{err: errors.New("throttled")}, MailerConfig{FromAddress: "fest@example.com"}, testLogger())
	err := m.Send(context.Background(), "asha@example.com", "Hello", "", "hi")
	require.ErrorContains(t, err, "throttled")
}

func TestNewMailer_providers(t *testing.T) {
	_, ok := NewMailer(MailerConfig{Provider: "ses", SES: SESConfig{Region: "ap-south-1"}}, testLogger()).(*sesMailer)
	assert.True(t, ok)
	_, ok = NewMailer(MailerConfig{Provider: "smtp"}, testLogger()).(*noopMailer)
	assert.True(t, ok)
	require.NoError(t, NewMailer(MailerConfig{Provider: "noop"}, testLogger()).Send(context.Background(), "a@b.co", "s", "", ""))
}
