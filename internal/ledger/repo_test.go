package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/dbtest"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
)

func TestAppendOrdersBySequenceNotTimestamp(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, client, "10.00")
	repo := NewRepository(client.DB())

	// identical timestamps leave only the sequence to order by
	stamp := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	moves := []struct {
		typ    enums.WalletTransactionType
		amount string
		after  string
	}{
		{enums.WalletTransactionPurchase, "-4.00", "6.00"},
		{enums.WalletTransactionTopup, "20.00", "26.00"},
		{enums.WalletTransactionPurchase, "-1.50", "24.50"},
		{enums.WalletTransactionRefund, "1.50", "26.00"},
		{enums.WalletTransactionAdjustment, "-0.25", "25.75"},
	}
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, m := range moves {
			entry := &models.WalletTransaction{
				UserID:       user.ID,
				Type:         m.typ,
				Amount:       dec(m.amount),
				BalanceAfter: dec(m.after),
				CreatedAt:    stamp,
			}
			if err := repo.WithTx(tx).Append(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	all, err := repo.ListAllByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, all, len(moves)+1)
	for i, row := range all {
		require.EqualValues(t, i+1, row.Seq)
	}
	require.Equal(t, "25.75", all[len(all)-1].BalanceAfter.StringFixed(2))
	require.Equal(t, "25.75", Fold(all).StringFixed(2))

	latest, err := repo.LatestForUser(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, len(moves)+1, latest.Seq)
	require.Equal(t, "25.75", latest.BalanceAfter.StringFixed(2))

	recent, err := repo.ListRecentByUser(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, enums.WalletTransactionAdjustment, recent[0].Type)
	require.Equal(t, enums.WalletTransactionRefund, recent[1].Type)
}

func TestSequenceIsPerUser(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	first := dbtest.SeedUser(t, client, "5.00")
	second := dbtest.SeedUser(t, client, "0")
	repo := NewRepository(client.DB())

	entry := &models.WalletTransaction{UserID: second.ID, Type: enums.WalletTransactionTopup, Amount: dec("3.00"), BalanceAfter: dec("3.00")}
	require.NoError(t, repo.Append(ctx, entry))
	require.EqualValues(t, 1, entry.Seq)

	entry = &models.WalletTransaction{UserID: first.ID, Type: enums.WalletTransactionTopup, Amount: dec("1.00"), BalanceAfter: dec("6.00")}
	require.NoError(t, repo.Append(ctx, entry))
	require.EqualValues(t, 2, entry.Seq)
}
