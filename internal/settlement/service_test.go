package settlement

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/payos"
)

type fakeRepo struct {
	debts    map[uuid.UUID]*models.CarrierDebt
	payments map[uuid.UUID]*models.CommissionPayment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		debts:    map[uuid.UUID]*models.CarrierDebt{},
		payments: map[uuid.UUID]*models.CommissionPayment{},
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) CreateDebt(ctx context.Context, debt *models.CarrierDebt) (*models.CarrierDebt, error) {
	if debt.ID == uuid.Nil {
		debt.ID = uuid.New()
	}
	debt.CreatedAt = time.Now().UTC()
	f.debts[debt.ID] = debt
	return debt, nil
}

func (f *fakeRepo) FindDebtByID(ctx context.Context, debtID uuid.UUID) (*models.CarrierDebt, error) {
	debt, ok := f.debts[debtID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *debt
	return &clone, nil
}

func (f *fakeRepo) FindActiveDebtByOrder(ctx context.Context, orderID uuid.UUID) (*models.CarrierDebt, error) {
	for _, debt := range f.debts {
		if debt.OrderID == orderID && debt.Status != enums.DebtStatusCancelled {
			clone := *debt
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListDebtsByCarrier(ctx context.Context, query DebtListQuery) ([]models.CarrierDebt, error) {
	var debts []models.CarrierDebt
	for _, debt := range f.debts {
		if debt.CarrierID != query.CarrierID {
			continue
		}
		if query.Status != nil && debt.Status != *query.Status {
			continue
		}
		debts = append(debts, *debt)
	}
	return debts, nil
}

func (f *fakeRepo) UpdateDebtStatusCAS(ctx context.Context, debtID uuid.UUID, from, to enums.DebtStatus, paidAt *time.Time) (bool, error) {
	debt, ok := f.debts[debtID]
	if !ok || debt.Status != from {
		return false, nil
	}
	debt.Status = to
	debt.PaidAt = paidAt
	return true, nil
}

func (f *fakeRepo) CreatePayment(ctx context.Context, payment *models.CommissionPayment) (*models.CommissionPayment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now().UTC()
	f.payments[payment.ID] = payment
	return payment, nil
}

func (f *fakeRepo) FindPaymentByGatewayReference(ctx context.Context, reference string) (*models.CommissionPayment, error) {
	for _, payment := range f.payments {
		if payment.GatewayReference == reference {
			clone := *payment
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindPaymentByOrderCode(ctx context.Context, orderCode string) (*models.CommissionPayment, error) {
	for _, payment := range f.payments {
		if payment.OrderCode == orderCode {
			clone := *payment
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) UpdatePaymentStatusCAS(ctx context.Context, paymentID uuid.UUID, from, to enums.CommissionPaymentStatus, updates map[string]any) (bool, error) {
	payment, ok := f.payments[paymentID]
	if !ok || payment.Status != from {
		return false, nil
	}
	payment.Status = to
	if raw, ok := updates["paid_at"]; ok {
		if at, ok := raw.(time.Time); ok {
			payment.PaidAt = &at
		}
	}
	if raw, ok := updates["gateway_metadata"]; ok {
		if meta, ok := raw.([]byte); ok {
			payment.GatewayMetadata = meta
		}
	}
	return true, nil
}

type fakeOrders struct {
	orders map[uuid.UUID]*models.DeliveryOrder
}

func (f *fakeOrders) FindByID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

type fakeGateway struct {
	calls int
	link  *payos.PaymentLink
	err   error
}

func (f *fakeGateway) CreatePaymentLink(ctx context.Context, req payos.PaymentLinkRequest) (*payos.PaymentLink, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	link := *f.link
	link.OrderCode = req.OrderCode
	return &link, nil
}

func (f *fakeGateway) VerifyWebhook(payload []byte) (*payos.WebhookEvent, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *fakeRepo, orders *fakeOrders, gateway *fakeGateway) Service {
	t.Helper()

	if gateway.link == nil {
		gateway.link = &payos.PaymentLink{
			PaymentLinkID: "pl_" + uuid.NewString()[:8],
			CheckoutURL:   "https://pay.test/checkout",
			QRCode:        "qr-data",
		}
	}
	svc, err := NewService(repo, orders, gateway, fakeTx{},
		config.CommissionConfig{RatePercent: 10},
		logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedCompletedOrder(orders *fakeOrders, total string) *models.DeliveryOrder {
	carrierID := uuid.New()
	order := &models.DeliveryOrder{
		ID:         uuid.New(),
		OrderCode:  "ORD-" + uuid.NewString()[:8],
		CustomerID: uuid.New(),
		CarrierID:  &carrierID,
		Status:     enums.OrderStatusCompleted,
		TotalPrice: decimal.RequireFromString(total),
	}
	orders.orders[order.ID] = order
	return order
}

func TestCreateDebtComputesCommission(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	order := seedCompletedOrder(orders, "1250.55")

	debt, err := svc.CreateDebt(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}
	if !debt.CommissionAmount.Equal(decimal.RequireFromString("125.06")) {
		t.Fatalf("expected commission 125.06, got %s", debt.CommissionAmount)
	}
	if debt.Status != enums.DebtStatusPending {
		t.Fatalf("expected pending debt, got %s", debt.Status)
	}
	if debt.OrderCode != order.OrderCode {
		t.Fatal("expected denormalized order code on debt")
	}
}

func TestCreateDebtRequiresCompletedOrder(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	order := seedCompletedOrder(orders, "100")
	order.Status = enums.OrderStatusDelivering

	_, err := svc.CreateDebt(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestCreateDebtIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	order := seedCompletedOrder(orders, "200")

	first, err := svc.CreateDebt(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.CreateDebt(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("expected the existing debt back")
	}
	if len(repo.debts) != 1 {
		t.Fatalf("expected one stored debt, got %d", len(repo.debts))
	}
}

func TestCreateDebtAfterCancellation(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	order := seedCompletedOrder(orders, "400")

	cancelled := &models.CarrierDebt{
		ID:        uuid.New(),
		OrderID:   order.ID,
		CarrierID: *order.CarrierID,
		OrderCode: order.OrderCode,
		Status:    enums.DebtStatusCancelled,
	}
	repo.debts[cancelled.ID] = cancelled

	// A cancelled debt must not block a fresh one for the same order.
	debt, err := svc.CreateDebt(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}
	if debt.ID == cancelled.ID {
		t.Fatal("expected a new debt, got the cancelled one back")
	}
	if debt.Status != enums.DebtStatusPending {
		t.Fatalf("expected pending debt, got %s", debt.Status)
	}
	if len(repo.debts) != 2 {
		t.Fatalf("expected two stored debts, got %d", len(repo.debts))
	}
}

func TestInitiatePaymentAlreadySettled(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	gateway := &fakeGateway{}
	svc := newTestService(t, repo, orders, gateway)

	carrierID := uuid.New()
	debt := &models.CarrierDebt{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		CarrierID: carrierID,
		OrderCode: "ORD-1",
		Status:    enums.DebtStatusPaid,
	}
	repo.debts[debt.ID] = debt

	result, err := svc.InitiatePayment(context.Background(), debt.ID, carrierID)
	if err != nil {
		t.Fatalf("initiate payment: %v", err)
	}
	if !result.AlreadySettled {
		t.Fatal("expected already-settled result")
	}
	if gateway.calls != 0 {
		t.Fatal("gateway must not be called for a paid debt")
	}
}

func TestInitiatePaymentGatewayFailureLeavesNoState(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	gateway := &fakeGateway{err: pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "payment gateway unavailable")}
	svc := newTestService(t, repo, orders, gateway)

	carrierID := uuid.New()
	debt := &models.CarrierDebt{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		CarrierID:        carrierID,
		OrderCode:        "ORD-2",
		CommissionAmount: decimal.RequireFromString("20.00"),
		Status:           enums.DebtStatusPending,
	}
	repo.debts[debt.ID] = debt

	_, err := svc.InitiatePayment(context.Background(), debt.ID, carrierID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeGatewayUnavailable {
		t.Fatalf("expected GATEWAY_UNAVAILABLE, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatal("no payment must be persisted when the gateway fails")
	}
}

func TestInitiatePaymentPersistsPendingPayment(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	gateway := &fakeGateway{}
	svc := newTestService(t, repo, orders, gateway)

	carrierID := uuid.New()
	debt := &models.CarrierDebt{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		CarrierID:        carrierID,
		OrderCode:        "ORD-3",
		CommissionAmount: decimal.RequireFromString("35.50"),
		Status:           enums.DebtStatusPending,
	}
	repo.debts[debt.ID] = debt

	result, err := svc.InitiatePayment(context.Background(), debt.ID, carrierID)
	if err != nil {
		t.Fatalf("initiate payment: %v", err)
	}
	payment := result.Payment
	if payment == nil {
		t.Fatal("expected a persisted payment")
	}
	if payment.Status != enums.CommissionPaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", payment.Status)
	}
	if payment.GatewayReference == "" {
		t.Fatal("expected gateway reference")
	}
	if !payment.Amount.Equal(debt.CommissionAmount) {
		t.Fatal("payment amount must match the commission")
	}
	if payment.CheckoutURL == nil || *payment.CheckoutURL == "" {
		t.Fatal("expected checkout url")
	}
}

func TestInitiatePaymentForbiddenForOtherCarrier(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	debt := &models.CarrierDebt{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		CarrierID: uuid.New(),
		Status:    enums.DebtStatusPending,
	}
	repo.debts[debt.ID] = debt

	_, err := svc.InitiatePayment(context.Background(), debt.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func settledEvent(payment *models.CommissionPayment, success bool) *payos.WebhookEvent {
	event := &payos.WebhookEvent{
		Code:    "00",
		Success: success,
		Data: payos.WebhookData{
			PaymentLinkID: payment.GatewayReference,
			Reference:     "FT456",
		},
	}
	return event
}

func seedPendingPayment(repo *fakeRepo) (*models.CarrierDebt, *models.CommissionPayment) {
	carrierID := uuid.New()
	debt := &models.CarrierDebt{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		CarrierID:        carrierID,
		OrderCode:        "ORD-9",
		CommissionAmount: decimal.RequireFromString("50.00"),
		Status:           enums.DebtStatusPending,
	}
	repo.debts[debt.ID] = debt

	payment := &models.CommissionPayment{
		ID:               uuid.New(),
		DebtID:           &debt.ID,
		OrderID:          debt.OrderID,
		CarrierID:        carrierID,
		OrderCode:        "1735000000000",
		Amount:           debt.CommissionAmount,
		GatewayReference: "pl_" + uuid.NewString()[:8],
		Status:           enums.CommissionPaymentStatusPending,
	}
	repo.payments[payment.ID] = payment
	return debt, payment
}

func TestHandleWebhookSettlesDebt(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	debt, payment := seedPendingPayment(repo)

	if err := svc.HandleWebhook(context.Background(), settledEvent(payment, true)); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}

	if repo.payments[payment.ID].Status != enums.CommissionPaymentStatusPaid {
		t.Fatalf("expected paid payment, got %s", repo.payments[payment.ID].Status)
	}
	if repo.payments[payment.ID].PaidAt == nil {
		t.Fatal("expected paid_at on payment")
	}
	if repo.debts[debt.ID].Status != enums.DebtStatusPaid {
		t.Fatalf("expected paid debt, got %s", repo.debts[debt.ID].Status)
	}
	if repo.debts[debt.ID].PaidAt == nil {
		t.Fatal("expected paid_at on debt")
	}
}

func TestHandleWebhookIsReplaySafe(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	debt, payment := seedPendingPayment(repo)
	event := settledEvent(payment, true)

	for i := 0; i < 3; i++ {
		if err := svc.HandleWebhook(context.Background(), event); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	if repo.payments[payment.ID].Status != enums.CommissionPaymentStatusPaid {
		t.Fatal("payment must stay paid")
	}
	if repo.debts[debt.ID].Status != enums.DebtStatusPaid {
		t.Fatal("debt must stay paid")
	}
}

func TestHandleWebhookUnknownReferenceIsNoop(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	event := &payos.WebhookEvent{
		Success: true,
		Data:    payos.WebhookData{PaymentLinkID: "pl_unknown", OrderCode: 999},
	}
	if err := svc.HandleWebhook(context.Background(), event); err != nil {
		t.Fatalf("unknown reference must be acknowledged: %v", err)
	}
}

func TestHandleWebhookFailureKeepsDebtPending(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	debt, payment := seedPendingPayment(repo)

	if err := svc.HandleWebhook(context.Background(), settledEvent(payment, false)); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}

	if repo.payments[payment.ID].Status != enums.CommissionPaymentStatusFailed {
		t.Fatalf("expected failed payment, got %s", repo.payments[payment.ID].Status)
	}
	if repo.debts[debt.ID].Status != enums.DebtStatusPending {
		t.Fatal("debt must stay pending after a failed payment")
	}
}

func TestHandleWebhookLeavesCancelledDebtAlone(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	debt, payment := seedPendingPayment(repo)
	debt.Status = enums.DebtStatusCancelled

	// The payment still settles; the cancelled debt must not flip to paid.
	if err := svc.HandleWebhook(context.Background(), settledEvent(payment, true)); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}

	if repo.payments[payment.ID].Status != enums.CommissionPaymentStatusPaid {
		t.Fatalf("expected paid payment, got %s", repo.payments[payment.ID].Status)
	}
	if repo.debts[debt.ID].Status != enums.DebtStatusCancelled {
		t.Fatalf("expected cancelled debt untouched, got %s", repo.debts[debt.ID].Status)
	}
}

func TestHandleWebhookFallsBackToOrderCode(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	_, payment := seedPendingPayment(repo)

	event := &payos.WebhookEvent{
		Success: true,
		Data:    payos.WebhookData{OrderCode: 1735000000000},
	}
	if err := svc.HandleWebhook(context.Background(), event); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	if repo.payments[payment.ID].Status != enums.CommissionPaymentStatusPaid {
		t.Fatal("expected fallback lookup to settle the payment")
	}
}

func TestListDebtsScopedToCarrier(t *testing.T) {
	repo := newFakeRepo()
	orders := &fakeOrders{orders: map[uuid.UUID]*models.DeliveryOrder{}}
	svc := newTestService(t, repo, orders, &fakeGateway{})

	carrierID := uuid.New()
	for i := 0; i < 2; i++ {
		debt := &models.CarrierDebt{
			ID:        uuid.New(),
			OrderID:   uuid.New(),
			CarrierID: carrierID,
			Status:    enums.DebtStatusPending,
			CreatedAt: time.Now().UTC(),
		}
		repo.debts[debt.ID] = debt
	}
	other := &models.CarrierDebt{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		CarrierID: uuid.New(),
		Status:    enums.DebtStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	repo.debts[other.ID] = other

	list, err := svc.ListDebts(context.Background(), carrierID, nil, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list debts: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 debts, got %d", len(list.Items))
	}
}
