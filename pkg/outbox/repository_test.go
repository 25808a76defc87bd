package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/dbtest"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/outbox"
)

func TestRepositoryLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	ctx := context.Background()

	first := &models.EmailOutbox{Recipient: "a@x.io", Subject: "one", BodyText: "1", CreatedAt: time.Now().UTC().Add(-time.Minute)}
	second := &models.EmailOutbox{Recipient: "b@x.io", Subject: "two", BodyText: "2"}
	require.NoError(t, repo.Enqueue(ctx, first))
	require.NoError(t, repo.Enqueue(ctx, second))
	require.Equal(t, enums.EmailOutboxPending, first.Status)

	now := time.Now().UTC()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchDueForSend(tx, 10, 3, now)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, first.ID, rows[0].ID)

		require.NoError(t, repo.MarkSentTx(tx, rows[0].ID, now))
		return repo.MarkFailedTx(tx, rows[1].ID, errors.New("timeout"), now.Add(time.Hour))
	}))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchDueForSend(tx, 10, 3, now)
		require.NoError(t, err)
		require.Empty(t, rows, "sent rows and rows scheduled later are not due")

		rows, err = repo.FetchDueForSend(tx, 10, 3, now.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, 1, rows[0].AttemptCount)
		require.NotNil(t, rows[0].LastError)
		return repo.MarkTerminalTx(tx, rows[0].ID, errors.New("bounced"))
	}))

	var terminal models.EmailOutbox
	require.NoError(t, client.DB().First(&terminal, "id = ?", second.ID).Error)
	require.Equal(t, enums.EmailOutboxTerminal, terminal.Status)
	require.Equal(t, 2, terminal.AttemptCount)
}
