package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/pagination"
)

// TopupRepository persists top-up requests.
type TopupRepository interface {
	WithTx(tx *gorm.DB) TopupRepository
	Create(ctx context.Context, topup *models.TopupRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TopupRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TopupRequest, error)
	Resolve(ctx context.Context, id uuid.UUID, input ResolveInput) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TopupRequest, error)
	ListAll(ctx context.Context, params pagination.Params, status *enums.TopupStatus) ([]models.TopupRequest, *pagination.Cursor, error)
}

// ResolveInput is the terminal state written to a pending request.
type ResolveInput struct {
	Status      enums.TopupStatus
	Comment     string
	ProcessedBy uuid.UUID
	ProcessedAt time.Time
}

type topupRepository struct {
	db *gorm.DB
}

func NewTopupRepository(db *gorm.DB) TopupRepository {
	return &topupRepository{db: db}
}

func (r *topupRepository) WithTx(tx *gorm.DB) TopupRepository {
	if tx == nil {
		return r
	}
	return &topupRepository{db: tx}
}

func (r *topupRepository) Create(ctx context.Context, topup *models.TopupRequest) error {
	return r.db.WithContext(ctx).Create(topup).Error
}

func (r *topupRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TopupRequest, error) {
	var topup models.TopupRequest
	if err := r.db.WithContext(ctx).First(&topup, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &topup, nil
}

func (r *topupRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TopupRequest, error) {
	var topup models.TopupRequest
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&topup, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &topup, nil
}

// Resolve moves a PENDING request to its final status. It reports false when
// the request was already processed, so a request is credited at most once.
func (r *topupRepository) Resolve(ctx context.Context, id uuid.UUID, input ResolveInput) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TopupRequest{}).
		Where("id = ? AND status = ?", id, enums.TopupStatusPending).
		Updates(map[string]any{
			"status":        input.Status,
			"admin_comment": input.Comment,
			"processed_by":  input.ProcessedBy,
			"processed_at":  input.ProcessedAt,
			"updated_at":    input.ProcessedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *topupRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TopupRequest, error) {
	var rows []models.TopupRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *topupRepository) ListAll(ctx context.Context, params pagination.Params, status *enums.TopupStatus) ([]models.TopupRequest, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	q, limit, err := pagination.NewestFirst(q, params)
	if err != nil {
		return nil, nil, err
	}
	var rows []models.TopupRequest
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, limit, func(t models.TopupRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return rows, next, nil
}
