package enums

import "fmt"

// OrderStatus tracks the lifecycle of a delivery order.
type OrderStatus string

const (
	OrderStatusAssigned      OrderStatus = "assigned"
	OrderStatusAccepted      OrderStatus = "accepted"
	OrderStatusDeclined      OrderStatus = "declined"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusPickupPending OrderStatus = "pickup_pending"
	OrderStatusOnTheWay      OrderStatus = "on_the_way"
	OrderStatusArrived       OrderStatus = "arrived"
	OrderStatusDelivering    OrderStatus = "delivering"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusAssigned,
	OrderStatusAccepted,
	OrderStatusDeclined,
	OrderStatusConfirmed,
	OrderStatusPickupPending,
	OrderStatusOnTheWay,
	OrderStatusArrived,
	OrderStatusDelivering,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status freezes the order against further writes.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusDeclined, OrderStatusCancelled, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderStatuses returns every known status in declaration order.
func OrderStatuses() []OrderStatus {
	statuses := make([]OrderStatus, len(validOrderStatuses))
	copy(statuses, validOrderStatuses)
	return statuses
}
