package enums

import "fmt"

// DebtStatus tracks the lifecycle of a carrier commission debt.
type DebtStatus string

const (
	DebtStatusPending   DebtStatus = "pending"
	DebtStatusPaid      DebtStatus = "paid"
	DebtStatusCancelled DebtStatus = "cancelled"
)

var validDebtStatuses = []DebtStatus{
	DebtStatusPending,
	DebtStatusPaid,
	DebtStatusCancelled,
}

// String implements fmt.Stringer.
func (d DebtStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DebtStatus.
func (d DebtStatus) IsValid() bool {
	for _, candidate := range validDebtStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDebtStatus converts raw input into a DebtStatus.
func ParseDebtStatus(value string) (DebtStatus, error) {
	for _, candidate := range validDebtStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid debt status %q", value)
}
