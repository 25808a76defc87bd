package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/internal/ledger"
	"github.com/angelmondragon/premiumcity-backend/internal/users"
	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/metrics"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/pagination"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

const (
	minBankNameLen = 2
	minHintLen     = 4
	maxHintLen     = 10
	maxNoteLen     = 500
)

// Service runs the bank-transfer top-up workflow and wallet reads.
type Service interface {
	Submit(ctx context.Context, input SubmitTopupInput) (*models.TopupRequest, error)
	Approve(ctx context.Context, topupID, adminID uuid.UUID) (*models.User, error)
	Reject(ctx context.Context, topupID, adminID uuid.UUID, comment string) (*models.TopupRequest, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.User, error)
	Overview(ctx context.Context, userID uuid.UUID) (*OverviewDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]TopupDTO, error)
	ListAll(ctx context.Context, params pagination.Params, status *enums.TopupStatus) (*TopupListResult, error)
}

// SubmitTopupInput is a customer's claim that they wired money.
type SubmitTopupInput struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	BankName      string
	ReferenceHint string
	Note          string
}

// AdjustInput is an admin balance correction. Amount may be negative.
type AdjustInput struct {
	UserID  uuid.UUID
	AdminID uuid.UUID
	Amount  decimal.Decimal
	Reason  string
}

type walletAlerts interface {
	TopupSubmitted(ctx context.Context, topup *models.TopupRequest)
	TopupDecided(ctx context.Context, user *models.User, topup *models.TopupRequest)
}

type ServiceParams struct {
	DB      db.TxRunner
	Topups  TopupRepository
	Users   users.Repository
	Ledger  ledger.Service
	Alerts  walletAlerts
	Metrics *metrics.ShopMetrics
	Logger  *logger.Logger
	Config  config.WalletConfig
	Now     func() time.Time
}

type service struct {
	db       db.TxRunner
	topups   TopupRepository
	users    users.Repository
	ledger   ledger.Service
	alerts   walletAlerts
	metrics  *metrics.ShopMetrics
	logg     *logger.Logger
	minTopup decimal.Decimal
	maxTopup decimal.Decimal
	now      func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Topups == nil:
		return nil, fmt.Errorf("topup repository required")
	case p.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	min, max := p.Config.TopupBounds()
	return &service{
		db:       p.DB,
		topups:   p.Topups,
		users:    p.Users,
		ledger:   p.Ledger,
		alerts:   p.Alerts,
		metrics:  p.Metrics,
		logg:     p.Logger,
		minTopup: min,
		maxTopup: max,
		now:      now,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitTopupInput) (*models.TopupRequest, error) {
	amount := money.Round(input.Amount)
	bank := strings.TrimSpace(input.BankName)
	hint := strings.TrimSpace(input.ReferenceHint)
	note := strings.TrimSpace(input.Note)

	if !amount.IsPositive() {
		return nil, validation("amount", "amount must be greater than zero")
	}
	if s.minTopup.IsPositive() && amount.LessThan(s.minTopup) {
		return nil, validation("amount", "amount is below the minimum top-up of "+money.Format(s.minTopup))
	}
	if s.maxTopup.IsPositive() && amount.GreaterThan(s.maxTopup) {
		return nil, validation("amount", "amount exceeds the maximum top-up of "+money.Format(s.maxTopup))
	}
	if utf8.RuneCountInString(bank) < minBankNameLen {
		return nil, validation("bank_name", "bank name is required")
	}
	if n := utf8.RuneCountInString(hint); n < minHintLen || n > maxHintLen {
		return nil, validation("reference_hint", fmt.Sprintf("reference hint must be %d-%d characters", minHintLen, maxHintLen))
	}
	if utf8.RuneCountInString(note) > maxNoteLen {
		return nil, validation("note", fmt.Sprintf("note must be at most %d characters", maxNoteLen))
	}

	if _, err := s.users.FindByID(ctx, input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	topup := &models.TopupRequest{
		UserID:        input.UserID,
		Amount:        amount,
		BankName:      bank,
		ReferenceHint: hint,
		Status:        enums.TopupStatusPending,
	}
	if note != "" {
		topup.Note = &note
	}
	if err := s.topups.Create(ctx, topup); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create topup request")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"topup_id": topup.ID.String(),
		"user_id":  topup.UserID.String(),
		"amount":   money.Format(amount),
	}), "topup.submitted")
	if s.alerts != nil {
		s.alerts.TopupSubmitted(ctx, topup)
	}
	return topup, nil
}

// Approve credits the wallet and appends the TOPUP ledger row. A request that
// is no longer PENDING fails with INVALID_TOPUP_STATE.
func (s *service) Approve(ctx context.Context, topupID, adminID uuid.UUID) (*models.User, error) {
	var (
		user  *models.User
		topup *models.TopupRequest
	)
	err := s.db.WithRetryTx(ctx, func(tx *gorm.DB) error {
		var err error
		topup, err = s.claimPending(ctx, tx, topupID, ResolveInput{
			Status:      enums.TopupStatusApproved,
			Comment:     fmt.Sprintf("Approved by %s", adminID),
			ProcessedBy: adminID,
			ProcessedAt: s.now(),
		})
		if err != nil {
			return err
		}

		metadata := types.JSONMap{}
		if topup.Note != nil {
			metadata["note"] = *topup.Note
		}
		user, err = s.move(ctx, tx, topup.UserID, topup.Amount, enums.WalletTransactionTopup, topup.ID.String(), metadata)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTopupProcessed(string(enums.TopupDecisionApprove))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"topup_id": topup.ID.String(),
		"user_id":  user.ID.String(),
		"admin_id": adminID.String(),
		"balance":  money.Format(user.WalletBalance),
	}), "topup.approved")
	if s.alerts != nil {
		s.alerts.TopupDecided(ctx, user, topup)
	}
	return user, nil
}

// Reject closes a pending request without touching the balance.
func (s *service) Reject(ctx context.Context, topupID, adminID uuid.UUID, comment string) (*models.TopupRequest, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = fmt.Sprintf("Rejected by %s", adminID)
	}

	var topup *models.TopupRequest
	err := s.db.WithRetryTx(ctx, func(tx *gorm.DB) error {
		var err error
		topup, err = s.claimPending(ctx, tx, topupID, ResolveInput{
			Status:      enums.TopupStatusRejected,
			Comment:     comment,
			ProcessedBy: adminID,
			ProcessedAt: s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTopupProcessed(string(enums.TopupDecisionReject))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"topup_id": topup.ID.String(),
		"admin_id": adminID.String(),
	}), "topup.rejected")
	if s.alerts != nil {
		if user, err := s.users.FindByID(ctx, topup.UserID); err == nil {
			s.alerts.TopupDecided(ctx, user, topup)
		}
	}
	return topup, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.User, error) {
	amount := money.Round(input.Amount)
	if amount.IsZero() {
		return nil, validation("amount", "adjustment amount must be non-zero")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, validation("reason", "reason is required")
	}

	var user *models.User
	err := s.db.WithRetryTx(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = s.move(ctx, tx, input.UserID, amount, enums.WalletTransactionAdjustment, "", types.JSONMap{
			"reason":  reason,
			"adminId": input.AdminID.String(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":  user.ID.String(),
		"admin_id": input.AdminID.String(),
		"amount":   money.Format(amount),
	}), "wallet.adjusted")
	return user, nil
}

func (s *service) Overview(ctx context.Context, userID uuid.UUID) (*OverviewDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	rows, err := s.ledger.Recent(ctx, userID, ledger.DefaultRecentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet transactions")
	}
	return toOverview(user, rows), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]TopupDTO, error) {
	rows, err := s.topups.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list topups")
	}
	out := make([]TopupDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromTopup(&rows[i]))
	}
	return out, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, status *enums.TopupStatus) (*TopupListResult, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid topup status")
	}
	rows, next, err := s.topups.ListAll(ctx, params, status)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list topups")
	}
	out := &TopupListResult{Items: make([]TopupDTO, 0, len(rows))}
	for i := range rows {
		out.Items = append(out.Items, FromTopup(&rows[i]))
	}
	if next != nil {
		out.Cursor = next.Encode()
	}
	return out, nil
}

// claimPending locks the request, checks it is PENDING and writes the final
// status with a conditional update.
func (s *service) claimPending(ctx context.Context, tx *gorm.DB, topupID uuid.UUID, resolve ResolveInput) (*models.TopupRequest, error) {
	repo := s.topups.WithTx(tx)
	topup, err := repo.FindByIDForUpdate(ctx, topupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeTopupNotFound, "top-up request not found")
		}
		return nil, fmt.Errorf("load topup: %w", err)
	}
	if topup.Status != enums.TopupStatusPending {
		return nil, invalidTopupState(topup.Status)
	}

	ok, err := repo.Resolve(ctx, topup.ID, resolve)
	if err != nil {
		return nil, fmt.Errorf("resolve topup: %w", err)
	}
	if !ok {
		return nil, invalidTopupState(topup.Status)
	}

	topup.Status = resolve.Status
	topup.AdminComment = &resolve.Comment
	topup.ProcessedBy = &resolve.ProcessedBy
	topup.ProcessedAt = &resolve.ProcessedAt
	return topup, nil
}

// move applies amount to the locked user row and appends the matching ledger row.
func (s *service) move(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, kind enums.WalletTransactionType, reference string, metadata types.JSONMap) (*models.User, error) {
	usersRepo := s.users.WithTx(tx)
	user, err := usersRepo.FindByIDForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	balance, err := ledger.Apply(user.WalletBalance, amount)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance").
			WithDetails(map[string]any{"balance": money.Format(user.WalletBalance)})
	}
	if err := usersRepo.UpdateWalletBalance(ctx, user.ID, balance); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	user.WalletBalance = balance

	var ref *string
	if reference != "" {
		ref = &reference
	}
	if len(metadata) == 0 {
		metadata = nil
	}
	if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
		UserID:       user.ID,
		Type:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		Reference:    ref,
		Metadata:     metadata,
	}); err != nil {
		return nil, fmt.Errorf("append ledger: %w", err)
	}
	return user, nil
}

func validation(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}

func invalidTopupState(status enums.TopupStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTopupState, "top-up request already processed").
		WithDetails(map[string]any{"status": status})
}
