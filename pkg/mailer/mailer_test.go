package mailer

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
)

type fakeClient struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func TestSendGridSendsSingleEmail(t *testing.T) {
	client := &fakeClient{status: http.StatusAccepted}
	s := &SendGrid{client: client, from: "no-reply@premiumcity.local", fromName: "PremiumCity"}

	err := s.Send(context.Background(), Message{To: "ops@premiumcity.local", Subject: "hello", Text: "a <b>\nline"})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	require.Equal(t, "hello", client.sent[0].Subject)
	require.Equal(t, "PremiumCity", client.sent[0].From.Name)
	require.Len(t, client.sent[0].Content, 2)
	require.Equal(t, "<p>a &lt;b&gt;<br/>line</p>", client.sent[0].Content[1].Value)
}

func TestSendGridClassifiesFailures(t *testing.T) {
	s := &SendGrid{client: &fakeClient{status: http.StatusBadRequest}, from: "a@b.c"}
	err := s.Send(context.Background(), Message{To: "x@y.z", Subject: "s", Text: "t"})
	require.ErrorIs(t, err, ErrPermanent)

	s = &SendGrid{client: &fakeClient{status: http.StatusTooManyRequests}, from: "a@b.c"}
	err = s.Send(context.Background(), Message{To: "x@y.z", Subject: "s", Text: "t"})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrPermanent))

	s = &SendGrid{client: &fakeClient{err: errors.New("dial tcp: timeout")}, from: "a@b.c"}
	err = s.Send(context.Background(), Message{To: "x@y.z", Subject: "s", Text: "t"})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrPermanent))
}

func TestNewWithoutAPIKeyLogsOnly(t *testing.T) {
	sender := New(config.SendgridConfig{}, logger.Nop())
	_, ok := sender.(*LogSender)
	require.True(t, ok)
	require.NoError(t, sender.Send(context.Background(), Message{To: "x@y.z", Subject: "s"}))
	require.ErrorIs(t, sender.Send(context.Background(), Message{Subject: "s"}), ErrPermanent)
}
