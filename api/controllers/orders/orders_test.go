package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/middleware"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/dispatch"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/internal/tracking"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db/models"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/enums"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/pagination"
)

type stubDispatchService struct {
	accept          func(ctx context.Context, orderID, carrierID uuid.UUID) (*models.DeliveryOrder, error)
	decline         func(ctx context.Context, orderID, carrierID uuid.UUID, reason *string) (*models.DeliveryOrder, error)
	confirmContract func(ctx context.Context, orderID, carrierID uuid.UUID) (*models.DeliveryOrder, error)
	progress        func(ctx context.Context, orderID, carrierID uuid.UUID, next enums.OrderStatus, note *string) (*models.DeliveryOrder, error)
	confirmDelivery func(ctx context.Context, orderID, carrierID uuid.UUID, signatureRef *string) (*models.DeliveryOrder, error)
	addTracking     func(ctx context.Context, orderID, carrierID uuid.UUID, status string, note *string) (*models.TrackingEntry, error)
	getOrder        func(ctx context.Context, orderID uuid.UUID) (*dispatch.OrderDetail, error)
}

func (s *stubDispatchService) Accept(ctx context.Context, orderID, carrierID uuid.UUID) (*models.DeliveryOrder, error) {
	if s.accept != nil {
		return s.accept(ctx, orderID, carrierID)
	}
	return &models.DeliveryOrder{ID: orderID}, nil
}

func (s *stubDispatchService) Decline(ctx context.Context, orderID, carrierID uuid.UUID, reason *string) (*models.DeliveryOrder, error) {
	if s.decline != nil {
		return s.decline(ctx, orderID, carrierID, reason)
	}
	return &models.DeliveryOrder{ID: orderID}, nil
}

func (s *stubDispatchService) ConfirmContract(ctx context.Context, orderID, carrierID uuid.UUID) (*models.DeliveryOrder, error) {
	if s.confirmContract != nil {
		return s.confirmContract(ctx, orderID, carrierID)
	}
	return &models.DeliveryOrder{ID: orderID}, nil
}

func (s *stubDispatchService) Progress(ctx context.Context, orderID, carrierID uuid.UUID, next enums.OrderStatus, note *string) (*models.DeliveryOrder, error) {
	if s.progress != nil {
		return s.progress(ctx, orderID, carrierID, next, note)
	}
	return &models.DeliveryOrder{ID: orderID, Status: next}, nil
}

func (s *stubDispatchService) ConfirmDelivery(ctx context.Context, orderID, carrierID uuid.UUID, signatureRef *string) (*models.DeliveryOrder, error) {
	if s.confirmDelivery != nil {
		return s.confirmDelivery(ctx, orderID, carrierID, signatureRef)
	}
	return &models.DeliveryOrder{ID: orderID}, nil
}

func (s *stubDispatchService) AddTracking(ctx context.Context, orderID, carrierID uuid.UUID, status string, note *string) (*models.TrackingEntry, error) {
	if s.addTracking != nil {
		return s.addTracking(ctx, orderID, carrierID, status, note)
	}
	return &models.TrackingEntry{OrderID: orderID, Status: status}, nil
}

func (s *stubDispatchService) GetOrder(ctx context.Context, orderID uuid.UUID) (*dispatch.OrderDetail, error) {
	if s.getOrder != nil {
		return s.getOrder(ctx, orderID)
	}
	return &dispatch.OrderDetail{Order: models.DeliveryOrder{ID: orderID}}, nil
}

type stubTrackingService struct {
	list func(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*tracking.List, error)
}

func (s *stubTrackingService) ListTrackings(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*tracking.List, error) {
	if s.list != nil {
		return s.list(ctx, orderID, params)
	}
	return &tracking.List{}, nil
}

func newOrderRequest(method, target string, body string, carrierID uuid.UUID, orderID uuid.UUID) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(middleware.WithCarrierID(req.Context(), carrierID.String()))

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestAcceptPassesIdentity(t *testing.T) {
	carrierID := uuid.New()
	orderID := uuid.New()

	svc := &stubDispatchService{
		accept: func(ctx context.Context, gotOrder, gotCarrier uuid.UUID) (*models.DeliveryOrder, error) {
			if gotOrder != orderID {
				t.Fatalf("unexpected order id %s", gotOrder)
			}
			if gotCarrier != carrierID {
				t.Fatalf("unexpected carrier id %s", gotCarrier)
			}
			return &models.DeliveryOrder{ID: gotOrder, Status: enums.OrderStatusAccepted}, nil
		},
	}

	handler := Accept(svc, nil)
	req := newOrderRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/accept", "", carrierID, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAcceptWithoutCarrierIdentity(t *testing.T) {
	orderID := uuid.New()

	handler := Accept(&stubDispatchService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/accept", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestDeclineForwardsReason(t *testing.T) {
	carrierID := uuid.New()
	orderID := uuid.New()

	svc := &stubDispatchService{
		decline: func(ctx context.Context, gotOrder, gotCarrier uuid.UUID, reason *string) (*models.DeliveryOrder, error) {
			if reason == nil || *reason != "truck is full" {
				t.Fatalf("reason not forwarded: %v", reason)
			}
			return &models.DeliveryOrder{ID: gotOrder, Status: enums.OrderStatusDeclined}, nil
		},
	}

	handler := Decline(svc, nil)
	req := newOrderRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/decline",
		`{"reason":"truck is full"}`, carrierID, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProgressRejectsUnknownStatus(t *testing.T) {
	carrierID := uuid.New()
	orderID := uuid.New()

	handler := Progress(&stubDispatchService{}, nil)
	req := newOrderRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/progress",
		`{"status":"teleported"}`, carrierID, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProgressParsesStatus(t *testing.T) {
	carrierID := uuid.New()
	orderID := uuid.New()

	svc := &stubDispatchService{
		progress: func(ctx context.Context, gotOrder, gotCarrier uuid.UUID, next enums.OrderStatus, note *string) (*models.DeliveryOrder, error) {
			if next != enums.OrderStatusArrived {
				t.Fatalf("unexpected status %s", next)
			}
			return &models.DeliveryOrder{ID: gotOrder, Status: next}, nil
		},
	}

	handler := Progress(svc, nil)
	req := newOrderRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/progress",
		`{"status":"arrived"}`, carrierID, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAddTrackingCreated(t *testing.T) {
	carrierID := uuid.New()
	orderID := uuid.New()

	handler := AddTracking(&stubDispatchService{}, nil)
	req := newOrderRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/trackings",
		`{"status":"WAITING_AT_GATE","note":"dock 4"}`, carrierID, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDetailBlocksForeignCarrier(t *testing.T) {
	carrierID := uuid.New()
	orderID := uuid.New()
	owner := uuid.New()

	svc := &stubDispatchService{
		getOrder: func(ctx context.Context, gotOrder uuid.UUID) (*dispatch.OrderDetail, error) {
			return &dispatch.OrderDetail{Order: models.DeliveryOrder{ID: gotOrder, CarrierID: &owner}}, nil
		},
	}

	handler := Detail(svc, nil)
	req := newOrderRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", carrierID, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestListTrackingsPassesPagination(t *testing.T) {
	carrierID := uuid.New()
	orderID := uuid.New()

	svc := &stubTrackingService{
		list: func(ctx context.Context, gotOrder uuid.UUID, params pagination.Params) (*tracking.List, error) {
			if gotOrder != orderID {
				t.Fatalf("unexpected order id %s", gotOrder)
			}
			if params.Limit != 5 || params.Cursor != "abc" {
				t.Fatalf("pagination not forwarded: %+v", params)
			}
			return &tracking.List{Items: []models.TrackingEntry{{OrderID: gotOrder, Status: "arrived"}}}, nil
		},
	}

	handler := ListTrackings(svc, nil)
	req := newOrderRequest(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/trackings?limit=5&cursor=abc", "", carrierID, orderID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data tracking.List `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("unexpected tracking items in response")
	}
}
