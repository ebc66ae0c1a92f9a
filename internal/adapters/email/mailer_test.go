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

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	fake := &fakeSES{}
	m := &sesMailer{client: fake, fromAddress: "hi@freeday.vn", fromName: "Freeday", logger: testLogger}

	require.NoError(t, m.Send("an@example.com", "Subject", "<p>hi</p>", ""))

	require.NotNil(t, fake.input)
	assert.Equal(t, "Freeday <hi@freeday.vn>", aws.ToString(fake.input.Source))
	assert.Equal(t, []string{"an@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "Subject", aws.ToString(fake.input.Message.Subject.Data))
	require.NotNil(t, fake.input.Message.Body.Html)
	assert.Nil(t, fake.input.Message.Body.Text, "empty bodies are omitted")
}

func TestSESMailer_SendError(t *testing.T) {
	m := &sesMailer{client: &fakeSES{err: errors.New("throttled")}, fromAddress: "hi@freeday.vn", logger: testLogger}

	err := m.Send("an@example.com", "s", "", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewMailer_Providers(t *testing.T) {
	_, ok := NewMailer(MailerConfig{Provider: "noop"}, testLogger).(*noopMailer)
	assert.True(t, ok)

	_, ok = NewMailer(MailerConfig{Provider: "carrier-pigeon"}, testLogger).(*noopMailer)
	assert.True(t, ok, "unknown providers fall back to noop")

	_, ok = NewMailer(MailerConfig{Provider: "ses", SES: SESConfig{Region: "ap-southeast-1"}}, testLogger).(*sesMailer)
	assert.True(t, ok)
}
