package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
)

// Repository defines persistence operations for carrier debts and commission
// payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateDebt(ctx context.Context, debt *models.CarrierDebt) (*models.CarrierDebt, error)
	FindDebtByID(ctx context.Context, debtID uuid.UUID) (*models.CarrierDebt, error)
	FindActiveDebtByOrder(ctx context.Context, orderID uuid.UUID) (*models.CarrierDebt, error)
	ListDebtsByCarrier(ctx context.Context, query DebtListQuery) ([]models.CarrierDebt, error)
	UpdateDebtStatusCAS(ctx context.Context, debtID uuid.UUID, from, to enums.DebtStatus, paidAt *time.Time) (bool, error)

	CreatePayment(ctx context.Context, payment *models.CommissionPayment) (*models.CommissionPayment, error)
	FindPaymentByGatewayReference(ctx context.Context, reference string) (*models.CommissionPayment, error)
	FindPaymentByOrderCode(ctx context.Context, orderCode string) (*models.CommissionPayment, error)
	UpdatePaymentStatusCAS(ctx context.Context, paymentID uuid.UUID, from, to enums.CommissionPaymentStatus, updates map[string]any) (bool, error)
}

// DebtListQuery carries the cursor window for one page of carrier debts.
type DebtListQuery struct {
	CarrierID uuid.UUID
	Status    *enums.DebtStatus
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDebt(ctx context.Context, debt *models.CarrierDebt) (*models.CarrierDebt, error) {
	if err := r.db.WithContext(ctx).Create(debt).Error; err != nil {
		return nil, err
	}
	return debt, nil
}

func (r *repository) FindDebtByID(ctx context.Context, debtID uuid.UUID) (*models.CarrierDebt, error) {
	var debt models.CarrierDebt
	err := r.db.WithContext(ctx).
		Where("id = ?", debtID).
		First(&debt).Error
	if err != nil {
		return nil, err
	}
	return &debt, nil
}

func (r *repository) FindActiveDebtByOrder(ctx context.Context, orderID uuid.UUID) (*models.CarrierDebt, error) {
	var debt models.CarrierDebt
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status <> ?", orderID, enums.DebtStatusCancelled).
		First(&debt).Error
	if err != nil {
		return nil, err
	}
	return &debt, nil
}

func (r *repository) ListDebtsByCarrier(ctx context.Context, query DebtListQuery) ([]models.CarrierDebt, error) {
	limit := pagination.LimitWithBuffer(query.Limit)

	q := r.db.WithContext(ctx).
		Model(&models.CarrierDebt{}).
		Where("carrier_id = ?", query.CarrierID)
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var debts []models.CarrierDebt
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&debts).Error; err != nil {
		return nil, err
	}
	return debts, nil
}

func (r *repository) UpdateDebtStatusCAS(ctx context.Context, debtID uuid.UUID, from, to enums.DebtStatus, paidAt *time.Time) (bool, error) {
	values := map[string]any{"status": to}
	if paidAt != nil {
		values["paid_at"] = *paidAt
	}

	res := r.db.WithContext(ctx).
		Model(&models.CarrierDebt{}).
		Where("id = ? AND status = ?", debtID, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.CommissionPayment) (*models.CommissionPayment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindPaymentByGatewayReference(ctx context.Context, reference string) (*models.CommissionPayment, error) {
	var payment models.CommissionPayment
	err := r.db.WithContext(ctx).
		Where("gateway_reference = ?", reference).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPaymentByOrderCode(ctx context.Context, orderCode string) (*models.CommissionPayment, error) {
	var payment models.CommissionPayment
	err := r.db.WithContext(ctx).
		Where("order_code = ?", orderCode).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdatePaymentStatusCAS(ctx context.Context, paymentID uuid.UUID, from, to enums.CommissionPaymentStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}

	res := r.db.WithContext(ctx).
		Model(&models.CommissionPayment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
