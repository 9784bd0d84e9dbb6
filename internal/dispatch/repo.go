package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
)

// Repository defines persistence operations for delivery orders and their
// audit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error)
	FindByOrderCode(ctx context.Context, orderCode string) (*models.DeliveryOrder, error)
	UpdateStatusCAS(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	CreateAuditEntry(ctx context.Context, entry *models.OrderAuditEntry) error
	ListAuditEntries(ctx context.Context, orderID uuid.UUID) ([]models.OrderAuditEntry, error)
	FindEarliestAuditAt(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*time.Time, error)
	FindConfirmedUnassigned(ctx context.Context, limit int) ([]models.DeliveryOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByOrderCode(ctx context.Context, orderCode string) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("order_code = ?", orderCode).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusCAS writes the status conditionally on the row still holding the
// status the caller read. A false return means another writer got there first.
func (r *repository) UpdateStatusCAS(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}

	res := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateAuditEntry(ctx context.Context, entry *models.OrderAuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListAuditEntries(ctx context.Context, orderID uuid.UUID) ([]models.OrderAuditEntry, error) {
	var entries []models.OrderAuditEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FindEarliestAuditAt returns when the order first entered the given status,
// or nil when no such entry exists.
func (r *repository) FindEarliestAuditAt(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*time.Time, error) {
	var entry models.OrderAuditEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, status).
		Order("created_at ASC").
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry.CreatedAt, nil
}

func (r *repository) FindConfirmedUnassigned(ctx context.Context, limit int) ([]models.DeliveryOrder, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND carrier_id IS NULL", enums.OrderStatusConfirmed).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var orders []models.DeliveryOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
