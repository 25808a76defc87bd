package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
	"github.com/angelmondragon/premiumcity-backend/pkg/types"
)

type TransactionDTO struct {
	ID           uuid.UUID                   `json:"id"`
	Type         enums.WalletTransactionType `json:"type"`
	Amount       string                      `json:"amount"`
	BalanceAfter string                      `json:"balance_after"`
	Reference    *string                     `json:"reference,omitempty"`
	Metadata     types.JSONMap               `json:"metadata,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// OverviewDTO is the wallet page: balance plus the newest ledger rows.
type OverviewDTO struct {
	UserID       uuid.UUID        `json:"user_id"`
	Balance      string           `json:"balance"`
	Currency     enums.Currency   `json:"currency"`
	Transactions []TransactionDTO `json:"transactions"`
}

type TopupDTO struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"user_id"`
	Amount        string            `json:"amount"`
	BankName      string            `json:"bank_name"`
	ReferenceHint string            `json:"reference_hint"`
	Note          *string           `json:"note,omitempty"`
	Status        enums.TopupStatus `json:"status"`
	AdminComment  *string           `json:"admin_comment,omitempty"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type TopupListResult struct {
	Items  []TopupDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

func FromTopup(t *models.TopupRequest) TopupDTO {
	return TopupDTO{
		ID:            t.ID,
		UserID:        t.UserID,
		Amount:        money.Format(t.Amount),
		BankName:      t.BankName,
		ReferenceHint: t.ReferenceHint,
		Note:          t.Note,
		Status:        t.Status,
		AdminComment:  t.AdminComment,
		ProcessedAt:   t.ProcessedAt,
		CreatedAt:     t.CreatedAt,
	}
}

func toOverview(user *models.User, rows []models.WalletTransaction) *OverviewDTO {
	out := &OverviewDTO{
		UserID:       user.ID,
		Balance:      money.Format(user.WalletBalance),
		Currency:     enums.DefaultCurrency,
		Transactions: make([]TransactionDTO, 0, len(rows)),
	}
	for _, row := range rows {
		out.Transactions = append(out.Transactions, TransactionDTO{
			ID:           row.ID,
			Type:         row.Type,
			Amount:       money.Format(row.Amount),
			BalanceAfter: money.Format(row.BalanceAfter),
			Reference:    row.Reference,
			Metadata:     row.Metadata,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out
}
