package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
)

// Service exposes the read side of the tracking log.
type Service interface {
	ListTrackings(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*List, error)
}

// List is one page of tracking entries, newest first.
type List struct {
	Items  []models.TrackingEntry `json:"items"`
	Cursor string                 `json:"cursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService builds a tracking service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListTrackings(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*List, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	query := ListQuery{
		OrderID: orderID,
		Limit:   params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	entries, err := s.repo.ListByOrder(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking entries")
	}

	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		// The repo filters strictly below the cursor, so it must point at the
		// last row handed back.
		last := entries[limit-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &List{
		Items:  entries,
		Cursor: nextCursor,
	}, nil
}
