package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
)

// OrderAuditEntry records one mutation of a delivery order. Entries are
// append-only; nothing updates or deletes them.
type OrderAuditEntry struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	ActorType enums.AuditActorType `gorm:"column:actor_type;type:audit_actor_type;not null;default:'carrier'"`
	ActorID   *uuid.UUID           `gorm:"column:actor_id;type:uuid"`
	Action    enums.AuditAction    `gorm:"column:action;type:audit_action;not null"`
	Status    enums.OrderStatus    `gorm:"column:status;type:order_status;not null"`
	Note      *string              `gorm:"column:note"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (OrderAuditEntry) TableName() string {
	return "order_audit_entries"
}
