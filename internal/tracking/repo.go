package tracking

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
)

// Repository defines persistence operations for the tracking log. Entries are
// append-only; there are no update or delete paths.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error)
	ListByOrder(ctx context.Context, params ListQuery) ([]models.TrackingEntry, error)
}

// ListQuery carries the cursor window for one page of tracking entries.
type ListQuery struct {
	OrderID uuid.UUID
	Limit   int
	Cursor  *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tracking repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) ListByOrder(ctx context.Context, params ListQuery) ([]models.TrackingEntry, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.TrackingEntry{}).
		Where("order_id = ?", params.OrderID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.TrackingEntry
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
