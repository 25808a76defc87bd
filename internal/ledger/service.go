package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

// ErrNegativeBalance is returned when a movement would take a wallet below zero.
var ErrNegativeBalance = errors.New("wallet balance cannot go negative")

// Service records and inspects wallet ledger rows.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.WalletTransaction, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error)
	Reconcile(ctx context.Context, userID uuid.UUID, stored decimal.Decimal) (*ReconcileResult, error)
}

type service struct {
	repo Repository
}

// RecordInput captures one balance movement. BalanceAfter is the balance the
// caller has just written to the user row.
type RecordInput struct {
	UserID       uuid.UUID
	Type         enums.WalletTransactionType
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Reference    *string
	Metadata     types.JSONMap
}

// ReconcileResult compares the cached balance with the ledger replay.
type ReconcileResult struct {
	UserID  uuid.UUID       `json:"user_id"`
	Ledger  decimal.Decimal `json:"ledger"`
	Latest  decimal.Decimal `json:"latest_balance_after"`
	Stored  decimal.Decimal `json:"stored"`
	Drift   decimal.Decimal `json:"drift"`
	Entries int             `json:"entries"`
	InSync  bool            `json:"in_sync"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid wallet transaction type %q", input.Type)
	}
	amount := money.Round(input.Amount)
	if !input.Type.AllowsAmount(amount) {
		return nil, fmt.Errorf("amount %s not allowed for %s", money.Format(amount), input.Type)
	}
	if input.BalanceAfter.IsNegative() {
		return nil, ErrNegativeBalance
	}

	entry := &models.WalletTransaction{
		UserID:       input.UserID,
		Type:         input.Type,
		Amount:       amount,
		BalanceAfter: money.Round(input.BalanceAfter),
		Reference:    input.Reference,
		Metadata:     input.Metadata,
	}
	if err := s.repo.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.repo.ListRecentByUser(ctx, userID, limit)
}

func (s *service) Reconcile(ctx context.Context, userID uuid.UUID, stored decimal.Decimal) (*ReconcileResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	entries, err := s.repo.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	replayed := Fold(entries)
	latest := decimal.Zero
	if len(entries) > 0 {
		last, err := s.repo.LatestForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		latest = last.BalanceAfter
	}

	drift := stored.Sub(replayed)
	return &ReconcileResult{
		UserID:  userID,
		Ledger:  replayed,
		Latest:  latest,
		Stored:  stored,
		Drift:   drift,
		Entries: len(entries),
		InSync:  drift.IsZero() && latest.Equal(stored),
	}, nil
}

// DefaultRecentLimit is the number of rows shown on the wallet overview.
const DefaultRecentLimit = 25

// Fold replays ledger rows from a zero balance.
func Fold(entries []models.WalletTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
	}
	return money.Round(total)
}

// Apply returns balance+amount, refusing results below zero.
func Apply(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	next := money.Round(balance.Add(amount))
	if next.IsNegative() {
		return balance, ErrNegativeBalance
	}
	return next, nil
}
