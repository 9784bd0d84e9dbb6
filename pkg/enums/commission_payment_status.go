package enums

import "fmt"

// CommissionPaymentStatus tracks the lifecycle of a commission payment attempt.
type CommissionPaymentStatus string

const (
	CommissionPaymentStatusPending   CommissionPaymentStatus = "pending"
	CommissionPaymentStatusPaid      CommissionPaymentStatus = "paid"
	CommissionPaymentStatusFailed    CommissionPaymentStatus = "failed"
	CommissionPaymentStatusCancelled CommissionPaymentStatus = "cancelled"
)

var validCommissionPaymentStatuses = []CommissionPaymentStatus{
	CommissionPaymentStatusPending,
	CommissionPaymentStatusPaid,
	CommissionPaymentStatusFailed,
	CommissionPaymentStatusCancelled,
}

// String implements fmt.Stringer.
func (c CommissionPaymentStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionPaymentStatus.
func (c CommissionPaymentStatus) IsValid() bool {
	for _, candidate := range validCommissionPaymentStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payment can no longer change state.
// Terminal payments are the idempotency boundary for webhook replays.
func (c CommissionPaymentStatus) IsTerminal() bool {
	switch c {
	case CommissionPaymentStatusPaid, CommissionPaymentStatusFailed, CommissionPaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseCommissionPaymentStatus converts raw input into a CommissionPaymentStatus.
func ParseCommissionPaymentStatus(value string) (CommissionPaymentStatus, error) {
	for _, candidate := range validCommissionPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission payment status %q", value)
}
