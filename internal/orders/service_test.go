package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/internal/pricing"
	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/outbox"
	"github.com/furima-app/furima-backend/pkg/outbox/payloads"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOrdersRepo struct {
	created  *models.Order
	orders   map[uuid.UUID]*models.Order
	byBuyer  map[uuid.UUID][]models.Order
	createFn func(order *models.Order) (*models.Order, error)
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createFn != nil {
		return s.createFn(order)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := s.orders[id]; ok {
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrdersRepo) FindByPaymentIntentID(ctx context.Context, id string) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	return s.byBuyer[buyerID], nil
}

func (s *stubOrdersRepo) ApplyStatusUpdate(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return nil
}

type capturingOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func quoteWithItems(items ...pricing.LineItem) *pricing.Quote {
	quote := &pricing.Quote{Items: items}
	for _, item := range items {
		quote.Subtotal += item.Product.Price * item.Quantity
		if item.Product.ShippingPayer == enums.ShippingPayerBuyer {
			quote.BuyerPaysShipping = true
		}
	}
	if quote.BuyerPaysShipping {
		quote.ShippingFee = 700
	}
	quote.Total = quote.Subtotal + quote.ShippingFee
	return quote
}

func lineItem(price, quantity int) pricing.LineItem {
	return pricing.LineItem{
		Product: models.Product{
			ID:            uuid.New(),
			SellerID:      uuid.New(),
			Title:         "Film camera",
			Price:         price,
			Images:        []string{"https://cdn.furima.example/p/1.jpg"},
			Category:      "electronics",
			Condition:     enums.ProductConditionLikeNew,
			ShippingPayer: enums.ShippingPayerBuyer,
		},
		Quantity: quantity,
	}
}

func TestServiceCreate_SnapshotsItems(t *testing.T) {
	repo := &stubOrdersRepo{}
	publisher := &capturingOutbox{}
	svc, err := NewService(stubTxRunner{}, repo, publisher)
	require.NoError(t, err)

	buyerID := uuid.New()
	line := lineItem(5800, 1)
	order, err := svc.Create(context.Background(), CreateOrderInput{
		BuyerID:         buyerID,
		BuyerName:       "Suzuki Ren",
		Quote:           quoteWithItems(line),
		PaymentIntentID: "pi_snapshot",
	})
	require.NoError(t, err)

	assert.Equal(t, 5800, order.Subtotal)
	assert.Equal(t, 700, order.ShippingFee)
	assert.Equal(t, 6500, order.TotalAmount)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, order.OrderStatus)
	require.NotNil(t, order.PaymentIntentID)
	assert.Equal(t, "pi_snapshot", *order.PaymentIntentID)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, line.Product.ID, item.ProductID)
	assert.Equal(t, line.Product.SellerID, item.SellerID)
	assert.Equal(t, "Film camera", item.Title)
	require.NotNil(t, item.ImageURL)
	assert.Equal(t, "https://cdn.furima.example/p/1.jpg", *item.ImageURL)
	assert.Equal(t, 5800, item.Price)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, enums.EventOrderCreated, event.EventType)
	assert.Equal(t, order.ID, event.AggregateID)
	data, ok := event.Data.(payloads.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(6500), data.TotalAmount)
	assert.Equal(t, "pi_snapshot", data.PaymentIntentID)
}

func TestServiceCreate_Validation(t *testing.T) {
	svc, err := NewService(stubTxRunner{}, &stubOrdersRepo{}, &capturingOutbox{})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateOrderInput{
		Quote: quoteWithItems(lineItem(1000, 1)),
	})
	require.Error(t, err, "buyer id required")

	_, err = svc.Create(context.Background(), CreateOrderInput{
		BuyerID: uuid.New(),
		Quote:   &pricing.Quote{},
	})
	require.Error(t, err, "items required")
}

func TestServiceCreate_OutboxFailureAborts(t *testing.T) {
	repo := &stubOrdersRepo{}
	publisher := &capturingOutbox{err: pkgerrors.New(pkgerrors.CodeInternal, "emit failed")}
	svc, err := NewService(stubTxRunner{}, repo, publisher)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateOrderInput{
		BuyerID: uuid.New(),
		Quote:   quoteWithItems(lineItem(1000, 1)),
	})
	require.Error(t, err)
}

func TestServiceGetForBuyer_Ownership(t *testing.T) {
	buyerID := uuid.New()
	orderID := uuid.New()
	repo := &stubOrdersRepo{orders: map[uuid.UUID]*models.Order{
		orderID: {ID: orderID, BuyerID: buyerID},
	}}
	svc, err := NewService(stubTxRunner{}, repo, &capturingOutbox{})
	require.NoError(t, err)

	order, err := svc.GetForBuyer(context.Background(), orderID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)

	_, err = svc.GetForBuyer(context.Background(), orderID, uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
