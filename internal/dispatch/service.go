package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/tracking"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
)

const (
	casMaxRetries   = 2
	casRetryBackoff = 25 * time.Millisecond

	noteTrackingStatus = "NOTE"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DebtCreator opens the settlement ledger entry once delivery is confirmed.
type DebtCreator interface {
	CreateDebtForOrder(ctx context.Context, orderID uuid.UUID) error
}

// Service defines the carrier-facing dispatch operations.
type Service interface {
	Accept(ctx context.Context, orderID, carrierID uuid.UUID) (*models.DeliveryOrder, error)
	Decline(ctx context.Context, orderID, carrierID uuid.UUID, reason *string) (*models.DeliveryOrder, error)
	ConfirmContract(ctx context.Context, orderID, carrierID uuid.UUID) (*models.DeliveryOrder, error)
	Progress(ctx context.Context, orderID, carrierID uuid.UUID, next enums.OrderStatus, note *string) (*models.DeliveryOrder, error)
	ConfirmDelivery(ctx context.Context, orderID, carrierID uuid.UUID, signatureRef *string) (*models.DeliveryOrder, error)
	AddTracking(ctx context.Context, orderID, carrierID uuid.UUID, status string, note *string) (*models.TrackingEntry, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
}

// OrderDetail bundles an order with its full audit history.
type OrderDetail struct {
	Order    models.DeliveryOrder     `json:"order"`
	AuditLog []models.OrderAuditEntry `json:"audit_log"`
}

type service struct {
	repo      Repository
	trackings tracking.Repository
	tx        txRunner
	debts     DebtCreator
	logg      *logger.Logger
}

// NewService builds a dispatch service with the required dependencies. The
// debt creator is optional; without it delivery confirmation skips the
// settlement hook.
func NewService(repo Repository, trackings tracking.Repository, tx txRunner, debts DebtCreator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if trackings == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		trackings: trackings,
		tx:        tx,
		debts:     debts,
		logg:      logg,
	}, nil
}

func (s *service) Accept(ctx context.Context, orderID, carrierID uuid.UUID) (*models.DeliveryOrder, error) {
	res, err := s.transition(ctx, transitionRequest{
		orderID:   orderID,
		carrierID: carrierID,
		next:      enums.OrderStatusAccepted,
		action:    enums.AuditActionAccepted,
		// Accept claims the order when no carrier is bound yet.
		extraUpdates: map[string]any{"carrier_id": carrierID},
	})
	if err != nil {
		return nil, err
	}
	return res.order, nil
}

func (s *service) Decline(ctx context.Context, orderID, carrierID uuid.UUID, reason *string) (*models.DeliveryOrder, error) {
	res, err := s.transition(ctx, transitionRequest{
		orderID:   orderID,
		carrierID: carrierID,
		next:      enums.OrderStatusDeclined,
		action:    enums.AuditActionDeclined,
		note:      reason,
	})
	if err != nil {
		return nil, err
	}
	return res.order, nil
}

func (s *service) ConfirmContract(ctx context.Context, orderID, carrierID uuid.UUID) (*models.DeliveryOrder, error) {
	note := "contract confirmed"
	res, err := s.transition(ctx, transitionRequest{
		orderID:      orderID,
		carrierID:    carrierID,
		next:         enums.OrderStatusConfirmed,
		action:       enums.AuditActionConfirmed,
		note:         &note,
		withTracking: true,
		expectFrom:   enums.OrderStatusAccepted,
	})
	if err != nil {
		return nil, err
	}
	return res.order, nil
}

func (s *service) Progress(ctx context.Context, orderID, carrierID uuid.UUID, next enums.OrderStatus, note *string) (*models.DeliveryOrder, error) {
	res, err := s.transition(ctx, transitionRequest{
		orderID:      orderID,
		carrierID:    carrierID,
		next:         next,
		action:       enums.AuditActionStatusChanged,
		note:         note,
		withTracking: true,
	})
	if err != nil {
		return nil, err
	}
	return res.order, nil
}

func (s *service) ConfirmDelivery(ctx context.Context, orderID, carrierID uuid.UUID, signatureRef *string) (*models.DeliveryOrder, error) {
	res, err := s.transition(ctx, transitionRequest{
		orderID:      orderID,
		carrierID:    carrierID,
		next:         enums.OrderStatusCompleted,
		action:       enums.AuditActionCompleted,
		note:         signatureRef,
		withTracking: true,
		expectFrom:   enums.OrderStatusDelivered,
	})
	if err != nil {
		return nil, err
	}

	// The debt opens after the completion commit. A hook failure is logged,
	// never surfaced; settlement owns its own retry path.
	if s.debts != nil {
		if hookErr := s.debts.CreateDebtForOrder(ctx, orderID); hookErr != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), "dispatch.debt_hook_failed", hookErr)
		}
	}
	return res.order, nil
}

func (s *service) AddTracking(ctx context.Context, orderID, carrierID uuid.UUID, status string, note *string) (*models.TrackingEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if carrierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier identity missing")
	}

	// A recognized progress status advances the order through the same path
	// as Progress; anything else is a note-only entry.
	if parsed, parseErr := enums.ParseOrderStatus(status); parseErr == nil {
		res, err := s.transition(ctx, transitionRequest{
			orderID:      orderID,
			carrierID:    carrierID,
			next:         parsed,
			action:       enums.AuditActionStatusChanged,
			note:         note,
			withTracking: true,
		})
		if err != nil {
			return nil, err
		}
		if res.tracking != nil {
			return res.tracking, nil
		}
		// Same-state replay: the status write was a no-op but the log still
		// records the ping.
		entry := &models.TrackingEntry{
			OrderID:   orderID,
			CarrierID: &carrierID,
			Status:    parsed.String(),
			Note:      note,
		}
		created, err := s.trackings.Create(ctx, entry)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking entry")
		}
		return created, nil
	}

	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotUpdatable,
			fmt.Sprintf("order is %s and can no longer change", order.Status))
	}
	if order.CarrierID == nil || *order.CarrierID != carrierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another carrier")
	}

	entry := &models.TrackingEntry{
		OrderID:   orderID,
		CarrierID: &carrierID,
		Status:    noteTrackingStatus,
		Note:      note,
	}
	created, err := s.trackings.Create(ctx, entry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking entry")
	}
	return created, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListAuditEntries(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load audit log")
	}

	return &OrderDetail{
		Order:    *order,
		AuditLog: entries,
	}, nil
}

type transitionRequest struct {
	orderID   uuid.UUID
	carrierID uuid.UUID
	next      enums.OrderStatus
	action    enums.AuditAction
	note      *string

	// withTracking appends a customer-visible tracking entry in the same
	// transaction as the status write.
	withTracking bool

	// expectFrom, when set, pins the operation to one source state so a
	// misrouted call surfaces as INVALID_TRANSITION instead of silently
	// reusing another edge.
	expectFrom enums.OrderStatus

	extraUpdates map[string]any
}

// transitionResult carries what the transaction persisted: the updated order
// and, when the request asked for one, the stored tracking entry. tracking is
// nil on a same-state no-op.
type transitionResult struct {
	order    *models.DeliveryOrder
	tracking *models.TrackingEntry
}

func (s *service) transition(ctx context.Context, req transitionRequest) (*transitionResult, error) {
	if req.orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if req.carrierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier identity missing")
	}

	var result *transitionResult
	backoff := retry.WithMaxRetries(casMaxRetries, retry.NewConstant(casRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.applyTransition(ctx, req)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConcurrentModified {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) applyTransition(ctx context.Context, req transitionRequest) (*transitionResult, error) {
	result := &transitionResult{}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, req.orderID)
		if err != nil {
			return err
		}

		noop, err := CheckTransition(order, enums.AuditActorTypeCarrier, req.carrierID, req.next)
		if err != nil {
			return err
		}
		if noop {
			result.order = order
			return nil
		}
		if req.expectFrom != "" && order.Status != req.expectFrom {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move from %s to %s", order.Status, req.next)).
				WithDetails(map[string]string{"from": order.Status.String(), "to": req.next.String()})
		}

		updated, err := repo.UpdateStatusCAS(ctx, order.ID, order.Status, req.next, req.extraUpdates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConcurrentModified, "state changed, please retry")
		}

		audit := &models.OrderAuditEntry{
			OrderID:   order.ID,
			ActorType: enums.AuditActorTypeCarrier,
			ActorID:   &req.carrierID,
			Action:    req.action,
			Status:    req.next,
			Note:      req.note,
		}
		if err := repo.CreateAuditEntry(ctx, audit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit entry")
		}

		if req.withTracking {
			entry := &models.TrackingEntry{
				OrderID:   order.ID,
				CarrierID: &req.carrierID,
				Status:    req.next.String(),
				Note:      req.note,
			}
			created, err := s.trackings.WithTx(tx).Create(ctx, entry)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking entry")
			}
			result.tracking = created
		}

		order.Status = req.next
		if req.extraUpdates != nil {
			if _, ok := req.extraUpdates["carrier_id"]; ok {
				order.CarrierID = &req.carrierID
			}
		}
		result.order = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.DeliveryOrder, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
