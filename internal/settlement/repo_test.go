package settlement

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
)

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	debts := `
CREATE TABLE IF NOT EXISTS carrier_debts (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  carrier_id TEXT NOT NULL,
  order_code TEXT NOT NULL,
  total_order_price TEXT NOT NULL DEFAULT '0',
  commission_amount TEXT NOT NULL DEFAULT '0',
  status TEXT NOT NULL DEFAULT 'pending',
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS commission_payments (
  id TEXT PRIMARY KEY,
  debt_id TEXT,
  order_id TEXT NOT NULL,
  carrier_id TEXT NOT NULL,
  order_code TEXT NOT NULL,
  amount TEXT NOT NULL DEFAULT '0',
  gateway_reference TEXT NOT NULL UNIQUE,
  checkout_url TEXT,
  qr_code TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  gateway_metadata TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(debts).Error)
	require.NoError(t, db.Exec(payments).Error)
	return db
}

func seedDebt(t *testing.T, db *gorm.DB, carrierID uuid.UUID, status enums.DebtStatus) *models.CarrierDebt {
	t.Helper()

	debt := &models.CarrierDebt{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		CarrierID:        carrierID,
		OrderCode:        "ORD-" + uuid.NewString()[:8],
		TotalOrderPrice:  decimal.RequireFromString("300.00"),
		CommissionAmount: decimal.RequireFromString("30.00"),
		Status:           status,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, db.Create(debt).Error)
	return debt
}

func seedPayment(t *testing.T, db *gorm.DB, debt *models.CarrierDebt) *models.CommissionPayment {
	t.Helper()

	payment := &models.CommissionPayment{
		ID:               uuid.New(),
		DebtID:           &debt.ID,
		OrderID:          debt.OrderID,
		CarrierID:        debt.CarrierID,
		OrderCode:        "173" + uuid.NewString()[:8],
		Amount:           debt.CommissionAmount,
		GatewayReference: "pl_" + uuid.NewString()[:12],
		Status:           enums.CommissionPaymentStatusPending,
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func TestSettlementRepoFindActiveDebtByOrder(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	debt := seedDebt(t, db, uuid.New(), enums.DebtStatusPending)

	found, err := repo.FindActiveDebtByOrder(ctx, debt.OrderID)
	require.NoError(t, err)
	require.Equal(t, debt.ID, found.ID)

	// A cancelled debt no longer blocks the order.
	cancelled := seedDebt(t, db, uuid.New(), enums.DebtStatusCancelled)
	_, err = repo.FindActiveDebtByOrder(ctx, cancelled.OrderID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSettlementRepoUpdateDebtStatusCAS(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	debt := seedDebt(t, db, uuid.New(), enums.DebtStatusPending)
	paidAt := time.Now().UTC()

	updated, err := repo.UpdateDebtStatusCAS(ctx, debt.ID, enums.DebtStatusPending, enums.DebtStatusPaid, &paidAt)
	require.NoError(t, err)
	require.True(t, updated)

	// A replay against the stale status is a no-op.
	updated, err = repo.UpdateDebtStatusCAS(ctx, debt.ID, enums.DebtStatusPending, enums.DebtStatusPaid, &paidAt)
	require.NoError(t, err)
	require.False(t, updated)

	reloaded, err := repo.FindDebtByID(ctx, debt.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DebtStatusPaid, reloaded.Status)
	require.NotNil(t, reloaded.PaidAt)
}

func TestSettlementRepoPaymentLookups(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	debt := seedDebt(t, db, uuid.New(), enums.DebtStatusPending)
	payment := seedPayment(t, db, debt)

	byRef, err := repo.FindPaymentByGatewayReference(ctx, payment.GatewayReference)
	require.NoError(t, err)
	require.Equal(t, payment.ID, byRef.ID)

	byCode, err := repo.FindPaymentByOrderCode(ctx, payment.OrderCode)
	require.NoError(t, err)
	require.Equal(t, payment.ID, byCode.ID)

	_, err = repo.FindPaymentByGatewayReference(ctx, "pl_missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSettlementRepoUpdatePaymentStatusCAS(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	debt := seedDebt(t, db, uuid.New(), enums.DebtStatusPending)
	payment := seedPayment(t, db, debt)
	now := time.Now().UTC()

	updated, err := repo.UpdatePaymentStatusCAS(ctx, payment.ID,
		enums.CommissionPaymentStatusPending, enums.CommissionPaymentStatusPaid,
		map[string]any{
			"paid_at":          now,
			"gateway_metadata": []byte(`{"code":"00"}`),
		})
	require.NoError(t, err)
	require.True(t, updated)

	updated, err = repo.UpdatePaymentStatusCAS(ctx, payment.ID,
		enums.CommissionPaymentStatusPending, enums.CommissionPaymentStatusFailed, nil)
	require.NoError(t, err)
	require.False(t, updated)

	reloaded, err := repo.FindPaymentByGatewayReference(ctx, payment.GatewayReference)
	require.NoError(t, err)
	require.Equal(t, enums.CommissionPaymentStatusPaid, reloaded.Status)
	require.NotNil(t, reloaded.PaidAt)
	require.JSONEq(t, `{"code":"00"}`, string(reloaded.GatewayMetadata))
}

func TestSettlementRepoListDebtsByCarrierCursor(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	carrierID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	var seeded []*models.CarrierDebt
	for i := 0; i < 4; i++ {
		debt := seedDebt(t, db, carrierID, enums.DebtStatusPending)
		debt.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Model(debt).Update("created_at", debt.CreatedAt).Error)
		seeded = append(seeded, debt)
	}
	seedDebt(t, db, uuid.New(), enums.DebtStatusPending)

	first, err := repo.ListDebtsByCarrier(ctx, DebtListQuery{CarrierID: carrierID, Limit: 2})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(first), 3)
	require.Equal(t, seeded[3].ID, first[0].ID)

	window, err := repo.ListDebtsByCarrier(ctx, DebtListQuery{
		CarrierID: carrierID,
		Limit:     10,
		Cursor: &pagination.Cursor{
			CreatedAt: seeded[2].CreatedAt,
			ID:        seeded[2].ID,
		},
	})
	require.NoError(t, err)
	for _, debt := range window {
		require.True(t, debt.CreatedAt.Before(seeded[2].CreatedAt))
	}

	pending := enums.DebtStatusPending
	filtered, err := repo.ListDebtsByCarrier(ctx, DebtListQuery{CarrierID: carrierID, Status: &pending, Limit: 10})
	require.NoError(t, err)
	for _, debt := range filtered {
		require.Equal(t, enums.DebtStatusPending, debt.Status)
	}
}

func TestSettlementServicePaginatesDebts(t *testing.T) {
	db := setupSettlementTestDB(t)
	ctx := context.Background()

	svc, err := NewService(NewRepository(db),
		&fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}},
		&fakeGateway{}, fakeTx{},
		config.CommissionConfig{RatePercent: 10},
		logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard}))
	require.NoError(t, err)

	carrierID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	var seeded []*models.CarrierDebt
	for i := 0; i < 4; i++ {
		debt := seedDebt(t, db, carrierID, enums.DebtStatusPending)
		debt.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Model(debt).Update("created_at", debt.CreatedAt).Error)
		seeded = append(seeded, debt)
	}

	first, err := svc.ListDebts(ctx, carrierID, nil, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.ListDebts(ctx, carrierID, nil, pagination.Params{Limit: 3, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.Cursor)

	seen := map[uuid.UUID]bool{}
	for _, debt := range append(first.Items, second.Items...) {
		require.False(t, seen[debt.ID], "debt %s returned twice", debt.ID)
		seen[debt.ID] = true
	}
	for _, debt := range seeded {
		require.True(t, seen[debt.ID], "debt %s lost at the page boundary", debt.ID)
	}
}
