package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TrackingEntry is a customer/seller-visible progress record. Entries are
// immutable once created; display order is created_at descending.
type TrackingEntry struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	CarrierID *uuid.UUID      `gorm:"column:carrier_id;type:uuid"`
	Status    string          `gorm:"column:status;not null"`
	Note      *string         `gorm:"column:note"`
	Meta      json.RawMessage `gorm:"column:meta;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (TrackingEntry) TableName() string {
	return "tracking_entries"
}
