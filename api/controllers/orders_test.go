package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/furima-app/furima-backend/internal/orders"
	"github.com/furima-app/furima-backend/internal/pricing"
	"github.com/furima-app/furima-backend/pkg/db/models"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/types"
)

type stubOrdersService struct {
	createFn func(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
	getFn    func(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error)
	listFn   func(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
}

func (s *stubOrdersService) Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &models.Order{ID: uuid.New()}, nil
}

func (s *stubOrdersService) GetForBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID, buyerID)
	}
	return &models.Order{ID: orderID, BuyerID: buyerID}, nil
}

func (s *stubOrdersService) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, buyerID)
	}
	return nil, nil
}

type stubPricer struct {
	fn func(ctx context.Context, rawItems []pricing.RawItem, shippingAddress *types.Address) (*pricing.Quote, error)
}

func (s *stubPricer) ValidateAndPrice(ctx context.Context, rawItems []pricing.RawItem, shippingAddress *types.Address) (*pricing.Quote, error) {
	if s.fn != nil {
		return s.fn(ctx, rawItems, shippingAddress)
	}
	return &pricing.Quote{}, nil
}

type stubNameResolver struct {
	name string
	err  error
}

func (s *stubNameResolver) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.name, s.err
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateOrderRecomputesFromCatalog(t *testing.T) {
	buyerID := uuid.New()
	orderID := uuid.New()
	productID := uuid.New()

	quote := &pricing.Quote{
		Items:       []pricing.LineItem{{Product: models.Product{ID: productID, Price: 4800}, Quantity: 1}},
		Subtotal:    4800,
		ShippingFee: 400,
		Total:       5200,
	}
	pricer := &stubPricer{
		fn: func(ctx context.Context, rawItems []pricing.RawItem, shippingAddress *types.Address) (*pricing.Quote, error) {
			if len(rawItems) != 1 || rawItems[0].ProductID != productID.String() {
				t.Fatalf("unexpected raw items %+v", rawItems)
			}
			return quote, nil
		},
	}
	svc := &stubOrdersService{
		createFn: func(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
			if input.BuyerID != buyerID {
				t.Fatalf("unexpected buyer %s", input.BuyerID)
			}
			if input.Quote != quote {
				t.Fatal("expected server-side quote to be forwarded")
			}
			if input.PaymentIntentID != "pi_123" {
				t.Fatalf("unexpected intent id %q", input.PaymentIntentID)
			}
			return &models.Order{ID: orderID}, nil
		},
	}

	body := []byte(`{"buyerName":"Hanako","items":[{"productId":"` + productID.String() + `","quantity":1}],"paymentIntentId":"pi_123"}`)
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, buyerID)
	rec := httptest.NewRecorder()
	CreateOrder(svc, pricer, nil, controllerTestLogger())(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Data["orderId"] != orderID.String() {
		t.Fatalf("unexpected order id %q", envelope.Data["orderId"])
	}
}

func TestCreateOrderResolvesMissingBuyerName(t *testing.T) {
	buyerID := uuid.New()
	var captured string
	svc := &stubOrdersService{
		createFn: func(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
			captured = input.BuyerName
			return &models.Order{ID: uuid.New()}, nil
		},
	}

	body := []byte(`{"items":[{"productId":"` + uuid.NewString() + `","quantity":1}]}`)
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, buyerID)
	rec := httptest.NewRecorder()
	CreateOrder(svc, &stubPricer{}, &stubNameResolver{name: "Taro"}, controllerTestLogger())(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if captured != "Taro" {
		t.Fatalf("expected resolved display name, got %q", captured)
	}
}

func TestCreateOrderRejectsMissingItems(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/orders", []byte(`{"buyerName":"Hanako"}`), uuid.New())
	rec := httptest.NewRecorder()
	CreateOrder(&stubOrdersService{}, &stubPricer{}, nil, controllerTestLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestOrderDetailHidesForeignOrders(t *testing.T) {
	svc := &stubOrdersService{
		getFn: func(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}

	orderID := uuid.New()
	req := authedRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil, uuid.New())
	req = addRouteParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()
	OrderDetail(svc, controllerTestLogger())(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestOrderDetailInvalidID(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil, uuid.New())
	req = addRouteParam(req, "orderId", "not-a-uuid")
	rec := httptest.NewRecorder()
	OrderDetail(&stubOrdersService{}, controllerTestLogger())(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListOrdersReturnsHistory(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubOrdersService{
		listFn: func(ctx context.Context, id uuid.UUID) ([]models.Order, error) {
			if id != buyerID {
				t.Fatalf("unexpected buyer %s", id)
			}
			return []models.Order{
				{ID: uuid.New(), TotalAmount: 5200},
				{ID: uuid.New(), TotalAmount: 900},
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/orders", nil, buyerID)
	rec := httptest.NewRecorder()
	ListOrders(svc, controllerTestLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			Orders []orderResponse `json:"orders"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(envelope.Data.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(envelope.Data.Orders))
	}
}
