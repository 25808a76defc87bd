package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/premiumcity-backend/internal/ledger"
	"github.com/angelmondragon/premiumcity-backend/internal/users"
	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/db"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/dbtest"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/pagination"
)

type recordingAlerts struct {
	mu        sync.Mutex
	submitted []uuid.UUID
	decided   []enums.TopupStatus
}

func (r *recordingAlerts) TopupSubmitted(_ context.Context, topup *models.TopupRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, topup.ID)
}

func (r *recordingAlerts) TopupDecided(_ context.Context, _ *models.User, topup *models.TopupRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decided = append(r.decided, topup.Status)
}

type harness struct {
	client  *db.Client
	service Service
	users   users.Repository
	ledger  ledger.Service
	alerts  *recordingAlerts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	usersRepo := users.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	alerts := &recordingAlerts{}

	svc, err := NewService(ServiceParams{
		DB:     client,
		Topups: NewTopupRepository(conn),
		Users:  usersRepo,
		Ledger: ledgerSvc,
		Alerts: alerts,
		Logger: logger.Nop(),
		Config: config.WalletConfig{TopupMinAmount: "1.00", TopupMaxAmount: "10000.00"},
	})
	require.NoError(t, err)

	return &harness{client: client, service: svc, users: usersRepo, ledger: ledgerSvc, alerts: alerts}
}

func (h *harness) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	user, err := h.users.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return user.WalletBalance
}

func (h *harness) requireLedgerInSync(t *testing.T, userID uuid.UUID) {
	t.Helper()
	res, err := h.ledger.Reconcile(context.Background(), userID, h.balance(t, userID))
	require.NoError(t, err)
	require.True(t, res.InSync, "ledger drift: %+v", res)
}

func (h *harness) submit(t *testing.T, userID uuid.UUID, amount string) *models.TopupRequest {
	t.Helper()
	topup, err := h.service.Submit(context.Background(), SubmitTopupInput{
		UserID:        userID,
		Amount:        decimal.RequireFromString(amount),
		BankName:      "First Bank",
		ReferenceHint: "TX1234",
		Note:          "sent friday",
	})
	require.NoError(t, err)
	return topup
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestApproveCreditsWalletOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "0")
	admin := dbtest.SeedAdmin(t, h.client)

	topup := h.submit(t, user.ID, "50")
	require.Equal(t, enums.TopupStatusPending, topup.Status)
	require.Equal(t, []uuid.UUID{topup.ID}, h.alerts.submitted)

	credited, err := h.service.Approve(ctx, topup.ID, admin.ID)
	require.NoError(t, err)
	require.True(t, credited.WalletBalance.Equal(decimal.NewFromInt(50)))

	rows, err := h.ledger.Recent(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.WalletTransactionTopup, rows[0].Type)
	require.True(t, rows[0].Amount.Equal(decimal.NewFromInt(50)))
	require.NotNil(t, rows[0].Reference)
	require.Equal(t, topup.ID.String(), *rows[0].Reference)
	require.Equal(t, "sent friday", rows[0].Metadata["note"])

	_, err = h.service.Approve(ctx, topup.ID, admin.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTopupState)
	_, err = h.service.Reject(ctx, topup.ID, admin.ID, "")
	requireCode(t, err, pkgerrors.CodeInvalidTopupState)

	require.True(t, h.balance(t, user.ID).Equal(decimal.NewFromInt(50)))
	h.requireLedgerInSync(t, user.ID)

	list, err := h.service.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, enums.TopupStatusApproved, list[0].Status)
	require.NotNil(t, list[0].AdminComment)
	require.Equal(t, "Approved by "+admin.ID.String(), *list[0].AdminComment)
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.client, "5")
	admin := dbtest.SeedAdmin(t, h.client)
	topup := h.submit(t, user.ID, "25")

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.service.Approve(context.Background(), topup.ID, admin.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireCode(t, err, pkgerrors.CodeInvalidTopupState)
	}
	require.Equal(t, 1, ok)
	require.True(t, h.balance(t, user.ID).Equal(decimal.NewFromInt(30)))
	h.requireLedgerInSync(t, user.ID)
}

func TestRejectLeavesBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "12.50")
	admin := dbtest.SeedAdmin(t, h.client)

	t.Run("default comment", func(t *testing.T) {
		topup := h.submit(t, user.ID, "40")
		rejected, err := h.service.Reject(ctx, topup.ID, admin.ID, "  ")
		require.NoError(t, err)
		require.Equal(t, enums.TopupStatusRejected, rejected.Status)
		require.Equal(t, "Rejected by "+admin.ID.String(), *rejected.AdminComment)

		_, err = h.service.Approve(ctx, topup.ID, admin.ID)
		requireCode(t, err, pkgerrors.CodeInvalidTopupState)
	})

	t.Run("custom comment", func(t *testing.T) {
		topup := h.submit(t, user.ID, "40")
		rejected, err := h.service.Reject(ctx, topup.ID, admin.ID, "no matching transfer")
		require.NoError(t, err)
		require.Equal(t, "no matching transfer", *rejected.AdminComment)
	})

	require.True(t, h.balance(t, user.ID).Equal(decimal.RequireFromString("12.50")))
	h.requireLedgerInSync(t, user.ID)
	require.Equal(t, []enums.TopupStatus{enums.TopupStatusRejected, enums.TopupStatusRejected}, h.alerts.decided)
}

func TestDecideUnknownTopup(t *testing.T) {
	h := newHarness(t)
	admin := dbtest.SeedAdmin(t, h.client)

	_, err := h.service.Approve(context.Background(), uuid.New(), admin.ID)
	requireCode(t, err, pkgerrors.CodeTopupNotFound)
	_, err = h.service.Reject(context.Background(), uuid.New(), admin.ID, "")
	requireCode(t, err, pkgerrors.CodeTopupNotFound)
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.client, "0")

	valid := SubmitTopupInput{
		UserID:        user.ID,
		Amount:        decimal.NewFromInt(20),
		BankName:      "First Bank",
		ReferenceHint: "ABCD",
	}

	cases := []struct {
		name   string
		mutate func(in *SubmitTopupInput)
		code   pkgerrors.Code
	}{
		{"zero amount", func(in *SubmitTopupInput) { in.Amount = decimal.Zero }, pkgerrors.CodeValidation},
		{"negative amount", func(in *SubmitTopupInput) { in.Amount = decimal.NewFromInt(-5) }, pkgerrors.CodeValidation},
		{"below minimum", func(in *SubmitTopupInput) { in.Amount = decimal.RequireFromString("0.50") }, pkgerrors.CodeValidation},
		{"above maximum", func(in *SubmitTopupInput) { in.Amount = decimal.NewFromInt(10001) }, pkgerrors.CodeValidation},
		{"short bank name", func(in *SubmitTopupInput) { in.BankName = " B " }, pkgerrors.CodeValidation},
		{"short hint", func(in *SubmitTopupInput) { in.ReferenceHint = "ABC" }, pkgerrors.CodeValidation},
		{"long hint", func(in *SubmitTopupInput) { in.ReferenceHint = "ABCDEFGHIJK" }, pkgerrors.CodeValidation},
		{"unknown user", func(in *SubmitTopupInput) { in.UserID = uuid.New() }, pkgerrors.CodeUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := h.service.Submit(context.Background(), in)
			requireCode(t, err, tc.code)
		})
	}

	topup, err := h.service.Submit(context.Background(), valid)
	require.NoError(t, err)
	require.Nil(t, topup.Note)
}

func TestAdjust(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "10")
	admin := dbtest.SeedAdmin(t, h.client)

	updated, err := h.service.Adjust(ctx, AdjustInput{UserID: user.ID, AdminID: admin.ID, Amount: decimal.RequireFromString("-4.25"), Reason: "chargeback"})
	require.NoError(t, err)
	require.True(t, updated.WalletBalance.Equal(decimal.RequireFromString("5.75")))

	_, err = h.service.Adjust(ctx, AdjustInput{UserID: user.ID, AdminID: admin.ID, Amount: decimal.NewFromInt(-6), Reason: "too much"})
	requireCode(t, err, pkgerrors.CodeInsufficientFunds)

	_, err = h.service.Adjust(ctx, AdjustInput{UserID: user.ID, AdminID: admin.ID, Amount: decimal.Zero, Reason: "noop"})
	requireCode(t, err, pkgerrors.CodeValidation)

	overview, err := h.service.Overview(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "5.75", overview.Balance)
	require.Len(t, overview.Transactions, 2)
	require.Equal(t, enums.WalletTransactionAdjustment, overview.Transactions[0].Type)
	require.Equal(t, "chargeback", overview.Transactions[0].Metadata["reason"])
	h.requireLedgerInSync(t, user.ID)
}

func TestListAllPaginatesAndFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client, "0")
	admin := dbtest.SeedAdmin(t, h.client)

	first := h.submit(t, user.ID, "10")
	h.submit(t, user.ID, "20")
	h.submit(t, user.ID, "30")
	_, err := h.service.Approve(ctx, first.ID, admin.ID)
	require.NoError(t, err)

	page, err := h.service.ListAll(ctx, pagination.Params{Limit: 2}, nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)

	rest, err := h.service.ListAll(ctx, pagination.Params{Limit: 2, Cursor: page.Cursor}, nil)
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.Empty(t, rest.Cursor)

	pending := enums.TopupStatusPending
	filtered, err := h.service.ListAll(ctx, pagination.Params{Limit: 10}, &pending)
	require.NoError(t, err)
	require.Len(t, filtered.Items, 2)

	_, err = h.service.ListAll(ctx, pagination.Params{Cursor: "%%%"}, nil)
	requireCode(t, err, pkgerrors.CodeValidation)
}
