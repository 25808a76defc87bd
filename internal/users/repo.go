package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/internal/repo"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.User, error)
}

type repository struct {
	base repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Bind(tx)}
}

// Create inserts a new user and returns the persisted model.
func (r *repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.base.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.base.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.base.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDForUpdate loads a user and holds its row lock until the transaction ends.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.base.Locked(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateWalletBalance overwrites the cached balance. Callers must hold the row
// lock and append the matching ledger row in the same transaction.
func (r *repository) UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return repo.Touched(r.base.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("wallet_balance", balance))
}

// UpdatePasswordHash replaces the stored credential, used when hashing costs are raised.
func (r *repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return repo.Touched(r.base.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash))
}

// ListAfter pages through users in id order, starting after the given id.
func (r *repository) ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.User, error) {
	var rows []models.User
	q := r.base.DB(ctx).Order("id ASC").Limit(limit)
	if after != uuid.Nil {
		q = q.Where("id > ?", after)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
