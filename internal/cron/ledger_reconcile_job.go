package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/premiumcity-backend/internal/ledger"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
)

const defaultReconcileBatch = 200

type walletHolders interface {
	ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.User, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, userID uuid.UUID, stored decimal.Decimal) (*ledger.ReconcileResult, error)
}

type LedgerReconcileJobParams struct {
	Logger    *logger.Logger
	Users     walletHolders
	Ledger    reconciler
	Metrics   *metrics.MaintenanceMetrics
	BatchSize int
}

// NewLedgerReconcileJob audits every wallet: the stored balance must equal the
// sum of its ledger rows and the newest row's balance_after. Drift is reported,
// never repaired.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &ledgerReconcileJob{
		logg:    params.Logger,
		users:   params.Users,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		batch:   batch,
	}, nil
}

type ledgerReconcileJob struct {
	logg    *logger.Logger
	users   walletHolders
	ledger  reconciler
	metrics *metrics.MaintenanceMetrics
	batch   int
}

func (j *ledgerReconcileJob) Name() string { return "ledger-reconcile" }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	var (
		after   uuid.UUID
		checked int
		drifted int
	)
	for {
		rows, err := j.users.ListAfter(ctx, after, j.batch)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		for _, user := range rows {
			result, err := j.ledger.Reconcile(ctx, user.ID, user.WalletBalance)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", user.ID, err)
			}
			checked++
			if !result.InSync {
				drifted++
				j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
					"user_id":        user.ID.String(),
					"stored":         money.Format(result.Stored),
					"ledger":         money.Format(result.Ledger),
					"latest_balance": money.Format(result.Latest),
					"drift":          money.Format(result.Drift),
					"entries":        result.Entries,
				}), "ledger.drift")
			}
		}
		if len(rows) < j.batch {
			break
		}
		after = rows[len(rows)-1].ID
	}

	j.metrics.SetLedgerDrift(drifted)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"wallets_checked": checked,
		"wallets_drifted": drifted,
	}), "ledger reconcile complete")
	return nil
}
