package enums

import "fmt"

// AuditActorType distinguishes human carriers from system-attributed writes.
type AuditActorType string

const (
	AuditActorTypeCarrier AuditActorType = "carrier"
	AuditActorTypeSystem  AuditActorType = "system"
)

// IsValid reports whether the value is a known AuditActorType.
func (a AuditActorType) IsValid() bool {
	return a == AuditActorTypeCarrier || a == AuditActorTypeSystem
}

// AuditAction names the mutation recorded by an audit entry.
type AuditAction string

const (
	AuditActionAccepted      AuditAction = "accepted"
	AuditActionDeclined      AuditAction = "declined"
	AuditActionConfirmed     AuditAction = "confirmed"
	AuditActionStatusChanged AuditAction = "status_changed"
	AuditActionCompleted     AuditAction = "completed"
	AuditActionEscalated     AuditAction = "escalated"
)

var validAuditActions = []AuditAction{
	AuditActionAccepted,
	AuditActionDeclined,
	AuditActionConfirmed,
	AuditActionStatusChanged,
	AuditActionCompleted,
	AuditActionEscalated,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
