package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
)

const maxErrorLength = 1000

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert queues an email using the provided session.
func (r *Repository) Insert(tx *gorm.DB, row *models.EmailOutbox) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if row.Status == "" {
		row.Status = enums.EmailOutboxPending
	}
	return tx.Create(row).Error
}

// Enqueue queues an email outside of any business transaction.
func (r *Repository) Enqueue(ctx context.Context, row *models.EmailOutbox) error {
	return r.Insert(r.db.WithContext(ctx), row)
}

// FetchDueForSend returns pending rows whose next attempt is due, locking them
// on Postgres so concurrent workers do not deliver the same email twice.
func (r *Repository) FetchDueForSend(tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]models.EmailOutbox, error) {
	var rows []models.EmailOutbox
	err := db.ForUpdateSkipLocked(tx).
		Where("status = ?", enums.EmailOutboxPending).
		Where("attempt_count < ?", maxAttempts).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkSentTx(tx *gorm.DB, id uuid.UUID, sentAt time.Time) error {
	return tx.Model(&models.EmailOutbox{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.EmailOutboxSent,
			"sent_at":       sentAt,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error, nextAttemptAt time.Time) error {
	return tx.Model(&models.EmailOutbox{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":      truncateError(cause),
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"next_attempt_at": nextAttemptAt,
		}).Error
}

func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return tx.Model(&models.EmailOutbox{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.EmailOutboxTerminal,
			"last_error":    truncateError(cause),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLength {
		return msg[:maxErrorLength]
	}
	return msg
}

// DeleteFinishedBefore removes sent and terminal rows created before cutoff.
func (r *Repository) DeleteFinishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	res := tx.
		Where("status IN ?", []enums.EmailOutboxStatus{enums.EmailOutboxSent, enums.EmailOutboxTerminal}).
		Where("created_at < ?", cutoff).
		Delete(&models.EmailOutbox{})
	return res.RowsAffected, res.Error
}
