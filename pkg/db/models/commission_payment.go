package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
)

// CommissionPayment tracks one checkout attempt against a carrier debt.
// GatewayReference is the gateway's correlation id; a payment leaves pending
// exactly once, and terminal payments are never written again.
type CommissionPayment struct {
	ID               uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DebtID           *uuid.UUID                    `gorm:"column:debt_id;type:uuid;index"`
	OrderID          uuid.UUID                     `gorm:"column:order_id;type:uuid;not null;index"`
	CarrierID        uuid.UUID                     `gorm:"column:carrier_id;type:uuid;not null"`
	OrderCode        string                        `gorm:"column:order_code;not null;index"`
	Amount           decimal.Decimal               `gorm:"column:amount;type:numeric(12,2);not null"`
	GatewayReference string                        `gorm:"column:gateway_reference;not null;unique"`
	CheckoutURL      *string                       `gorm:"column:checkout_url"`
	QRCode           *string                       `gorm:"column:qr_code"`
	Status           enums.CommissionPaymentStatus `gorm:"column:status;type:commission_payment_status;not null;default:'pending'"`
	GatewayMetadata  json.RawMessage               `gorm:"column:gateway_metadata;type:jsonb"`
	PaidAt           *time.Time                    `gorm:"column:paid_at"`
	CreatedAt        time.Time                     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (CommissionPayment) TableName() string {
	return "commission_payments"
}
