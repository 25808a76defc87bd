package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
)

// Repository appends and reads wallet ledger rows. Rows are never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.WalletTransaction) error
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error)
	ListAllByUser(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error)
	LatestForUser(ctx context.Context, userID uuid.UUID) (*models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Append numbers the row after the user's latest one. Callers hold the user
// row lock, so the per-user sequence has no gaps or ties.
func (r *repository) Append(ctx context.Context, entry *models.WalletTransaction) error {
	var last int64
	if err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("user_id = ?", entry.UserID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error; err != nil {
		return err
	}
	entry.Seq = last + 1
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecentByUser returns the newest rows first.
func (r *repository) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAllByUser returns the full history in append order.
func (r *repository) ListAllByUser(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) LatestForUser(ctx context.Context, userID uuid.UUID) (*models.WalletTransaction, error) {
	var row models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq DESC").
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
