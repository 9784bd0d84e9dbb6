package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/middleware"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/responses"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/validators"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/dispatch"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/tracking"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
)

type declineRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type progressRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type confirmDeliveryRequest struct {
	SignatureRef *string `json:"signature_ref,omitempty" validate:"omitempty,max=200"`
}

type trackingRequest struct {
	Status string  `json:"status" validate:"required,max=50"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
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

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

// Accept lets a carrier claim an assigned order.
func Accept(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Accept(r.Context(), orderID, carrierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Decline(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body declineRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Decline(r.Context(), orderID, carrierID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ConfirmContract moves an accepted order into the contractual confirmed state.
func ConfirmContract(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmContract(r.Context(), orderID, carrierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Progress(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body progressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.Progress(r.Context(), orderID, carrierID, next, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ConfirmDelivery closes out a delivered order and opens the commission debt.
func ConfirmDelivery(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmDeliveryRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.ConfirmDelivery(r.Context(), orderID, carrierID, body.SignatureRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AddTracking appends a tracking entry; a recognized order status also
// advances the order itself.
func AddTracking(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body trackingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.AddTracking(r.Context(), orderID, carrierID, body.Status, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// Detail returns the order plus its audit history, scoped to the owning carrier.
func Detail(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}
		carrierID, err := carrierIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if detail.Order.CarrierID != nil && *detail.Order.CarrierID != carrierID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another carrier"))
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func ListTrackings(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracking service unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListTrackings(r.Context(), orderID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
