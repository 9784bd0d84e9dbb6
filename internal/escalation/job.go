package escalation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/dispatch"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/tracking"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
)

const reassignmentNote = "carrier unresponsive, order returned to the assignment pool"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// JobParams configure the stalled-order monitor.
type JobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    dispatch.Repository
	Trackings tracking.Repository
	Threshold time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewJob builds the cron job that pulls stalled confirmed orders back into the
// assignment pool.
func NewJob(params JobParams) (*Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if params.Trackings == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	if params.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Job{
		logg:      params.Logger,
		db:        params.DB,
		orders:    params.Orders,
		trackings: params.Trackings,
		threshold: params.Threshold,
		now:       now,
	}, nil
}

// Job escalates confirmed orders that no carrier picked up in time.
type Job struct {
	logg      *logger.Logger
	db        txRunner
	orders    dispatch.Repository
	trackings tracking.Repository
	threshold time.Duration
	now       func() time.Time
}

func (j *Job) Name() string { return "order-escalation" }

// Run processes one batch. Per-order failures are collected, never fatal for
// the rest of the batch.
func (j *Job) Run(ctx context.Context) error {
	candidates, err := j.orders.FindConfirmedUnassigned(ctx, 0)
	if err != nil {
		return fmt.Errorf("query stalled orders: %w", err)
	}

	var errs []error
	escalated := 0
	for _, order := range candidates {
		ok, err := j.escalateOrder(ctx, order)
		if err != nil {
			errs = append(errs, fmt.Errorf("escalate order %s: %w", order.ID, err))
			continue
		}
		if ok {
			escalated++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"escalated":  escalated,
		"failures":   len(errs),
	})
	j.logg.Info(logCtx, "escalation sweep complete")
	return multierr.Combine(errs...)
}

func (j *Job) escalateOrder(ctx context.Context, order models.DeliveryOrder) (bool, error) {
	confirmedAt, err := j.orders.FindEarliestAuditAt(ctx, order.ID, enums.OrderStatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("load confirmation time: %w", err)
	}
	if confirmedAt == nil {
		// No recorded entry into confirmed; nothing to measure against.
		return false, nil
	}
	if j.now().UTC().Sub(confirmedAt.UTC()) < j.threshold {
		return false, nil
	}

	var escalated bool
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)

		current, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		// Terminal orders are frozen even for the monitor.
		if current.Status.IsTerminal() {
			return nil
		}
		if current.Status != enums.OrderStatusConfirmed || current.CarrierID != nil {
			return nil
		}

		// The conditional write keeps two monitor instances (or a racing
		// carrier call) from both escalating the same order.
		updated, err := repo.UpdateStatusCAS(ctx, current.ID, enums.OrderStatusConfirmed, enums.OrderStatusAssigned, nil)
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}

		note := reassignmentNote
		audit := &models.OrderAuditEntry{
			OrderID:   current.ID,
			ActorType: enums.AuditActorTypeSystem,
			Action:    enums.AuditActionEscalated,
			Status:    enums.OrderStatusAssigned,
			Note:      &note,
		}
		if err := repo.CreateAuditEntry(ctx, audit); err != nil {
			return err
		}

		entry := &models.TrackingEntry{
			OrderID: current.ID,
			Status:  enums.OrderStatusAssigned.String(),
			Note:    &note,
		}
		if _, err := j.trackings.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}

		escalated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if escalated {
		logCtx := j.logg.WithOrderID(ctx, order.ID.String())
		j.logg.Info(logCtx, "order escalated back to assignment pool")
	}
	return escalated, nil
}

