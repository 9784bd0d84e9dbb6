package settlement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/payos"
)

const debtOrderUniqueConstraint = "uq_carrier_debts_order_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderReader is the slice of the dispatch repository the ledger needs.
type OrderReader interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error)
}

// Service defines the settlement operations.
type Service interface {
	CreateDebtForOrder(ctx context.Context, orderID uuid.UUID) error
	CreateDebt(ctx context.Context, orderID uuid.UUID) (*models.CarrierDebt, error)
	InitiatePayment(ctx context.Context, debtID, carrierID uuid.UUID) (*PaymentInitiation, error)
	ListDebts(ctx context.Context, carrierID uuid.UUID, status *enums.DebtStatus, params pagination.Params) (*DebtList, error)
	HandleWebhook(ctx context.Context, event *payos.WebhookEvent) error
}

// PaymentInitiation is the outcome of one checkout attempt.
type PaymentInitiation struct {
	AlreadySettled bool                      `json:"already_settled"`
	Payment        *models.CommissionPayment `json:"payment,omitempty"`
}

// DebtList is one page of carrier debts, newest first.
type DebtList struct {
	Items  []models.CarrierDebt `json:"items"`
	Cursor string               `json:"cursor,omitempty"`
}

type service struct {
	repo    Repository
	orders  OrderReader
	gateway payos.Gateway
	tx      txRunner
	rate    decimal.Decimal
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a settlement service with the required dependencies.
func NewService(repo Repository, orders OrderReader, gateway payos.Gateway, tx txRunner, cfg config.CommissionConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.RatePercent <= 0 || cfg.RatePercent >= 100 {
		return nil, fmt.Errorf("commission rate percent must be between 1 and 99, got %d", cfg.RatePercent)
	}
	return &service{
		repo:    repo,
		orders:  orders,
		gateway: gateway,
		tx:      tx,
		rate:    decimal.NewFromInt(int64(cfg.RatePercent)).Div(decimal.NewFromInt(100)),
		logg:    logg,
		now:     time.Now,
	}, nil
}

// CreateDebtForOrder is the post-completion hook the dispatch service fires.
func (s *service) CreateDebtForOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.CreateDebt(ctx, orderID)
	return err
}

func (s *service) CreateDebt(ctx context.Context, orderID uuid.UUID) (*models.CarrierDebt, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order is %s, commission applies to completed orders only", order.Status))
	}
	if order.CarrierID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "completed order has no carrier")
	}

	existing, err := s.repo.FindActiveDebtByOrder(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing debt")
	}

	debt := &models.CarrierDebt{
		OrderID:          order.ID,
		CarrierID:        *order.CarrierID,
		OrderCode:        order.OrderCode,
		TotalOrderPrice:  order.TotalPrice,
		CommissionAmount: order.TotalPrice.Mul(s.rate).Round(2),
		Status:           enums.DebtStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreateDebt(ctx, debt)
		return err
	})
	if err != nil {
		// Another writer opened the debt first; hand theirs back.
		if db.IsUniqueViolation(err, debtOrderUniqueConstraint) {
			if existing, findErr := s.repo.FindActiveDebtByOrder(ctx, orderID); findErr == nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create debt")
	}
	return debt, nil
}

func (s *service) InitiatePayment(ctx context.Context, debtID, carrierID uuid.UUID) (*PaymentInitiation, error) {
	if debtID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debt id required")
	}
	if carrierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier identity missing")
	}

	debt, err := s.repo.FindDebtByID(ctx, debtID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "debt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load debt")
	}
	if debt.CarrierID != carrierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "debt belongs to another carrier")
	}
	if debt.Status == enums.DebtStatusPaid {
		return &PaymentInitiation{AlreadySettled: true}, nil
	}
	if debt.Status == enums.DebtStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "debt is cancelled")
	}

	// The gateway call runs outside any transaction; a timeout leaves no
	// local state behind and the carrier simply retries.
	gatewayCode := s.now().UTC().UnixMilli()
	link, err := s.gateway.CreatePaymentLink(ctx, payos.PaymentLinkRequest{
		OrderCode:   gatewayCode,
		Amount:      debt.CommissionAmount,
		Description: fmt.Sprintf("commission %s", debt.OrderCode),
	})
	if err != nil {
		return nil, err
	}

	payment := &models.CommissionPayment{
		DebtID:           &debt.ID,
		OrderID:          debt.OrderID,
		CarrierID:        debt.CarrierID,
		OrderCode:        strconv.FormatInt(gatewayCode, 10),
		Amount:           debt.CommissionAmount,
		GatewayReference: link.PaymentLinkID,
		CheckoutURL:      &link.CheckoutURL,
		Status:           enums.CommissionPaymentStatusPending,
	}
	if link.QRCode != "" {
		qr := link.QRCode
		payment.QRCode = &qr
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreatePayment(ctx, payment)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist commission payment")
	}

	return &PaymentInitiation{Payment: payment}, nil
}

func (s *service) ListDebts(ctx context.Context, carrierID uuid.UUID, status *enums.DebtStatus, params pagination.Params) (*DebtList, error) {
	if carrierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier identity missing")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown debt status %q", *status))
	}

	limit := pagination.NormalizeLimit(params.Limit)
	query := DebtListQuery{
		CarrierID: carrierID,
		Status:    status,
		Limit:     params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	debts, err := s.repo.ListDebtsByCarrier(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list debts")
	}

	nextCursor := ""
	if len(debts) > limit {
		debts = debts[:limit]
		// The repo filters strictly below the cursor, so it must point at the
		// last row handed back.
		last := debts[limit-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &DebtList{Items: debts, Cursor: nextCursor}, nil
}

// HandleWebhook reconciles one gateway notification. The controller has
// already verified the payload signature; everything here is replay-safe.
func (s *service) HandleWebhook(ctx context.Context, event *payos.WebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	payment, err := s.lookupPayment(ctx, event)
	if err != nil {
		return err
	}
	if payment == nil {
		// Unknown correlation id. Acknowledge so the gateway stops retrying.
		s.logg.Warn(ctx, "webhook for unknown payment ignored")
		return nil
	}
	if payment.Status.IsTerminal() {
		return nil
	}

	now := s.now().UTC()
	if event.Success {
		return s.settle(ctx, payment, event.RawData(), now)
	}
	return s.markFailed(ctx, payment, event.RawData())
}

func (s *service) lookupPayment(ctx context.Context, event *payos.WebhookEvent) (*models.CommissionPayment, error) {
	if ref := event.Data.PaymentLinkID; ref != "" {
		payment, err := s.repo.FindPaymentByGatewayReference(ctx, ref)
		if err == nil {
			return payment, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment by reference")
		}
	}

	// Partial payloads may omit the link id; the numeric gateway order code
	// is the fallback correlation.
	if event.Data.OrderCode > 0 {
		payment, err := s.repo.FindPaymentByOrderCode(ctx, strconv.FormatInt(event.Data.OrderCode, 10))
		if err == nil {
			return payment, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment by order code")
		}
	}
	return nil, nil
}

func (s *service) settle(ctx context.Context, payment *models.CommissionPayment, metadata []byte, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updated, err := repo.UpdatePaymentStatusCAS(ctx, payment.ID,
			enums.CommissionPaymentStatusPending, enums.CommissionPaymentStatusPaid,
			map[string]any{
				"paid_at":          now,
				"gateway_metadata": metadata,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment paid")
		}
		if !updated {
			// A concurrent delivery of the same webhook won the race.
			return nil
		}

		if payment.DebtID != nil {
			debtUpdated, err := repo.UpdateDebtStatusCAS(ctx, *payment.DebtID,
				enums.DebtStatusPending, enums.DebtStatusPaid, &now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark debt paid")
			}
			if !debtUpdated {
				// The debt left pending before the payment settled, e.g. an
				// operator cancelled it. The payment stays paid; flag the
				// mismatch for reconciliation.
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"order_id": payment.OrderID.String(),
					"debt_id":  payment.DebtID.String(),
				}), "settled payment left debt untouched")
			}
		}

		logCtx := s.logg.WithOrderID(ctx, payment.OrderID.String())
		s.logg.Info(logCtx, "commission payment settled")
		return nil
	})
}

func (s *service) markFailed(ctx context.Context, payment *models.CommissionPayment, metadata []byte) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).UpdatePaymentStatusCAS(ctx, payment.ID,
			enums.CommissionPaymentStatusPending, enums.CommissionPaymentStatusFailed,
			map[string]any{"gateway_metadata": metadata})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		return nil
	})
}
