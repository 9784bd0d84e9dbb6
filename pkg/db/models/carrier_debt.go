package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
)

// CarrierDebt records the commission a carrier owes the platform for one
// completed order. At most one non-cancelled debt exists per order; the
// commission amount is fixed at creation and never recomputed.
type CarrierDebt struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	CarrierID        uuid.UUID        `gorm:"column:carrier_id;type:uuid;not null;index"`
	OrderCode        string           `gorm:"column:order_code;not null"`
	TotalOrderPrice  decimal.Decimal  `gorm:"column:total_order_price;type:numeric(12,2);not null"`
	CommissionAmount decimal.Decimal  `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	Status           enums.DebtStatus `gorm:"column:status;type:debt_status;not null;default:'pending'"`
	PaidAt           *time.Time       `gorm:"column:paid_at"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (CarrierDebt) TableName() string {
	return "carrier_debts"
}
