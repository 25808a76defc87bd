package banks

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/internal/repo"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
)

// Repository reads the transfer destinations shown on the top-up form.
type Repository interface {
	ListActive(ctx context.Context) ([]models.BankAccount, error)
	Create(ctx context.Context, account *models.BankAccount) error
}

type repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) ListActive(ctx context.Context) ([]models.BankAccount, error) {
	var rows []models.BankAccount
	err := r.base.DB(ctx).
		Where("is_active = ?", true).
		Order("bank_name ASC").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Create(ctx context.Context, account *models.BankAccount) error {
	return r.base.DB(ctx).Create(account).Error
}

type BankAccountDTO struct {
	ID            string  `json:"id"`
	BankName      string  `json:"bank_name"`
	AccountName   string  `json:"account_name"`
	AccountNumber string  `json:"account_number"`
	Instructions  *string `json:"instructions,omitempty"`
}

// CreateAccountInput registers a transfer destination; new accounts are active.
type CreateAccountInput struct {
	BankName      string
	AccountName   string
	AccountNumber string
	Instructions  string
}

type Service interface {
	ListActive(ctx context.Context) ([]BankAccountDTO, error)
	Create(ctx context.Context, input CreateAccountInput) (*BankAccountDTO, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bank repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListActive(ctx context.Context) ([]BankAccountDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bank accounts")
	}
	out := make([]BankAccountDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateAccountInput) (*BankAccountDTO, error) {
	account := &models.BankAccount{
		BankName:      strings.TrimSpace(input.BankName),
		AccountName:   strings.TrimSpace(input.AccountName),
		AccountNumber: strings.TrimSpace(input.AccountNumber),
		IsActive:      true,
	}
	switch {
	case len(account.BankName) < 2:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank name must be at least 2 characters")
	case len(account.AccountName) < 2:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account name must be at least 2 characters")
	case len(account.AccountNumber) < 4:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number must be at least 4 characters")
	}
	if instructions := strings.TrimSpace(input.Instructions); instructions != "" {
		account.Instructions = &instructions
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bank account")
	}
	dto := fromModel(*account)
	return &dto, nil
}

func fromModel(row models.BankAccount) BankAccountDTO {
	return BankAccountDTO{
		ID:            row.ID.String(),
		BankName:      row.BankName,
		AccountName:   row.AccountName,
		AccountNumber: row.AccountNumber,
		Instructions:  row.Instructions,
	}
}
