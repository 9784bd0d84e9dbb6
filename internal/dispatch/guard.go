package dispatch

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
)

// allowedTransitions is the complete edge table of the order state machine.
// Absent edges are rejected; there are no implicit transitions.
var allowedTransitions = map[enums.OrderStatus]map[enums.OrderStatus]struct{}{
	enums.OrderStatusAssigned: {
		enums.OrderStatusAccepted: {},
		enums.OrderStatusDeclined: {},
	},
	enums.OrderStatusAccepted: {
		enums.OrderStatusConfirmed: {},
		enums.OrderStatusOnTheWay:  {},
		enums.OrderStatusDeclined:  {},
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusOnTheWay: {},
	},
	enums.OrderStatusOnTheWay: {
		enums.OrderStatusArrived:    {},
		enums.OrderStatusDelivering: {},
	},
	enums.OrderStatusArrived: {
		enums.OrderStatusDelivering: {},
	},
	enums.OrderStatusDelivering: {
		enums.OrderStatusDelivered: {},
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusCompleted: {},
	},
}

// CanTransition reports whether the edge table contains from→to.
func CanTransition(from, to enums.OrderStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// CheckTransition applies the access and state rules for one requested move
// and reports whether the request is an allowed same-state no-op.
//
// Rule order: carrier ownership, terminal freeze, same-state no-op, edge
// table. A system actor skips the ownership check but never the freeze.
func CheckTransition(order *models.DeliveryOrder, actorType enums.AuditActorType, carrierID uuid.UUID, next enums.OrderStatus) (bool, error) {
	if order == nil {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "order is required")
	}
	if !next.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", next))
	}

	if actorType != enums.AuditActorTypeSystem {
		if carrierID == uuid.Nil {
			return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier identity missing")
		}
		if order.CarrierID != nil && *order.CarrierID != carrierID {
			return false, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another carrier")
		}
		if order.CarrierID == nil && next != enums.OrderStatusAccepted && next != enums.OrderStatusDeclined {
			return false, pkgerrors.New(pkgerrors.CodeForbidden, "order has no assigned carrier")
		}
	}

	if order.Status.IsTerminal() {
		return false, pkgerrors.New(pkgerrors.CodeOrderNotUpdatable,
			fmt.Sprintf("order is %s and can no longer change", order.Status)).
			WithDetails(map[string]string{"from": order.Status.String(), "to": next.String()})
	}

	if order.Status == next {
		return true, nil
	}

	if !CanTransition(order.Status, next) {
		return false, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move from %s to %s", order.Status, next)).
			WithDetails(map[string]string{"from": order.Status.String(), "to": next.String()})
	}

	return false, nil
}
