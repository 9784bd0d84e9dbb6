package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
)

// DeliveryOrder is the central aggregate for one delivery job.
// Status writes go through the transition guard and are persisted with a
// compare-and-swap on the previous status; the audit trail lives in
// order_audit_entries and is appended in the same transaction.
type DeliveryOrder struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode  string            `gorm:"column:order_code;not null;unique"`
	CustomerID uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	SellerID   *uuid.UUID        `gorm:"column:seller_id;type:uuid"`
	CarrierID  *uuid.UUID        `gorm:"column:carrier_id;type:uuid"`
	Status     enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'assigned'"`
	TotalPrice decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Note       *string           `gorm:"column:note"`
	AuditLog   []OrderAuditEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (DeliveryOrder) TableName() string {
	return "delivery_orders"
}
