package settlement

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/middleware"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/responses"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/validators"
	internalsettlement "github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/settlement"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
)

type createDebtRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid4"`
}

func carrierIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.CarrierIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier identity missing")
	}
	carrierID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid carrier identity")
	}
	return carrierID, nil
}

// CreateDebt opens the commission debt for a completed order. The call is
// idempotent; repeats hand back the existing debt.
func CreateDebt(svc internalsettlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var body createDebtRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		debt, err := svc.CreateDebt(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, debt)
	}
}

// InitiatePayment asks the gateway for a checkout link against one debt.
func InitiatePayment(svc internalsettlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawDebtID := strings.TrimSpace(chi.URLParam(r, "debtId"))
		if rawDebtID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "debt id is required"))
			return
		}
		debtID, err := uuid.Parse(rawDebtID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid debt id"))
			return
		}

		result, err := svc.InitiatePayment(r.Context(), debtID, carrierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListDebts pages the calling carrier's commission ledger, newest first.
func ListDebts(svc internalsettlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.DebtStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseDebtStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListDebts(r.Context(), carrierID, status, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
