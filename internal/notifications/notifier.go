package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
)

// Email is one outbound message.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Notifier delivers or queues an email.
type Notifier interface {
	Send(ctx context.Context, email Email) error
}

type enqueuer interface {
	Enqueue(ctx context.Context, row *models.EmailOutbox) error
}

// Queue writes emails to the outbox table for the worker to deliver.
type Queue struct {
	outbox enqueuer
}

func NewQueue(outbox enqueuer) (*Queue, error) {
	if outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return &Queue{outbox: outbox}, nil
}

func (q *Queue) Send(ctx context.Context, email Email) error {
	to := strings.TrimSpace(email.To)
	if to == "" {
		return fmt.Errorf("recipient required")
	}
	if strings.TrimSpace(email.Subject) == "" {
		return fmt.Errorf("subject required")
	}
	row := &models.EmailOutbox{
		Recipient: to,
		Subject:   email.Subject,
		BodyText:  email.Text,
	}
	if email.HTML != "" {
		html := email.HTML
		row.BodyHTML = &html
	}
	return q.outbox.Enqueue(ctx, row)
}

// SafeSend delivers email and logs instead of returning failures. Callers use
// it after their transaction has committed.
func SafeSend(ctx context.Context, logg *logger.Logger, n Notifier, email Email) {
	if n == nil || strings.TrimSpace(email.To) == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil && logg != nil {
			logg.Error(logg.WithField(ctx, "subject", email.Subject), "notification panicked", fmt.Errorf("%v", r))
		}
	}()
	if err := n.Send(ctx, email); err != nil && logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"subject": email.Subject,
			"error":   err.Error(),
		}), "notification failed")
	}
}
