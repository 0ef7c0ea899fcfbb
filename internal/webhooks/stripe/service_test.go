package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/internal/orders"
	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOrdersRepo struct {
	order     *models.Order
	findErr   error
	updateErr error
	updates   map[string]any
	updatedID uuid.UUID
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.order, s.findErr
}

func (s *stubOrdersRepo) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.order, nil
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) ApplyStatusUpdate(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updatedID = orderID
	s.updates = updates
	return nil
}

type stubInventory struct {
	finalized []uuid.UUID
}

func (s *stubInventory) Finalize(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	s.finalized = append(s.finalized, ids...)
	return nil
}

type capturingOutbox struct {
	events []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type stubGuard struct {
	duplicate bool
	markErr   error
	deleted   []string
}

func (s *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	return s.duplicate, s.markErr
}

func (s *stubGuard) Delete(ctx context.Context, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo *stubOrdersRepo, inv *stubInventory, box *capturingOutbox, guard *stubGuard) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		OrdersRepo:        repo,
		Inventory:         inv,
		Outbox:            box,
		TransactionRunner: stubTxRunner{},
		Guard:             guard,
		Logger:            testLogger(),
	})
	require.NoError(t, err)
	return svc
}

func pendingOrder(intentID string) *models.Order {
	intent := intentID
	return &models.Order{
		ID:              uuid.New(),
		BuyerID:         uuid.New(),
		Currency:        enums.CurrencyJPY,
		Subtotal:        4500,
		ShippingFee:     700,
		TotalAmount:     5200,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderStatus:     enums.OrderStatusConfirmed,
		PaymentIntentID: &intent,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), SellerID: uuid.New(), Title: "Denim jacket", Price: 4500, Quantity: 1},
		},
	}
}

func intentEvent(t *testing.T, eventType stripe.EventType, intentID string, extra map[string]any) *stripe.Event {
	t.Helper()
	payload := map[string]any{"id": intentID}
	for k, v := range extra {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &stripe.Event{
		ID:      "evt_" + uuid.NewString(),
		Type:    eventType,
		Created: time.Now().Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventPaymentSucceeded(t *testing.T) {
	order := pendingOrder("pi_100")
	repo := &stubOrdersRepo{order: order}
	inv := &stubInventory{}
	box := &capturingOutbox{}
	svc := newTestService(t, repo, inv, box, &stubGuard{})

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_100", nil)
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, order.ID, repo.updatedID)
	assert.Equal(t, enums.PaymentStatusCompleted, repo.updates["payment_status"])
	assert.Equal(t, enums.OrderStatusConfirmed, repo.updates["order_status"])
	assert.Equal(t, event.ID, repo.updates["last_event_id"])
	assert.NotNil(t, repo.updates["paid_at"])
	assert.Equal(t, []uuid.UUID{order.Items[0].ProductID}, inv.finalized)

	require.Len(t, box.events, 2)
	assert.Equal(t, enums.EventReservationFinalized, box.events[0].EventType)
	assert.Equal(t, enums.EventOrderPaid, box.events[1].EventType)
}

func TestHandleEventPaymentFailedKeepsOrderStatus(t *testing.T) {
	order := pendingOrder("pi_200")
	repo := &stubOrdersRepo{order: order}
	inv := &stubInventory{}
	box := &capturingOutbox{}
	svc := newTestService(t, repo, inv, box, &stubGuard{})

	event := intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, "pi_200", map[string]any{
		"last_payment_error": map[string]any{"message": "card declined"},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, enums.PaymentStatusFailed, repo.updates["payment_status"])
	assert.Equal(t, "card declined", repo.updates["failure_reason"])
	assert.NotContains(t, repo.updates, "order_status")
	assert.Empty(t, inv.finalized)

	require.Len(t, box.events, 1)
	assert.Equal(t, enums.EventOrderPaymentFailed, box.events[0].EventType)
}

func TestHandleEventRetriedPaymentAfterFailure(t *testing.T) {
	order := pendingOrder("pi_250")
	repo := &stubOrdersRepo{order: order}
	inv := &stubInventory{}
	box := &capturingOutbox{}
	svc := newTestService(t, repo, inv, box, &stubGuard{})

	failed := intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, "pi_250", map[string]any{
		"last_payment_error": map[string]any{"message": "insufficient funds"},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), failed))
	order.PaymentStatus = enums.PaymentStatusFailed

	succeeded := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_250", nil)
	require.NoError(t, svc.HandleEvent(context.Background(), succeeded))

	assert.Equal(t, enums.PaymentStatusCompleted, repo.updates["payment_status"])
	assert.Equal(t, enums.OrderStatusConfirmed, repo.updates["order_status"])
	assert.NotNil(t, repo.updates["paid_at"])
	assert.Equal(t, []uuid.UUID{order.Items[0].ProductID}, inv.finalized)
}

func TestHandleEventChargeRefunded(t *testing.T) {
	order := pendingOrder("pi_300")
	order.PaymentStatus = enums.PaymentStatusCompleted
	repo := &stubOrdersRepo{order: order}
	inv := &stubInventory{}
	box := &capturingOutbox{}
	svc := newTestService(t, repo, inv, box, &stubGuard{})

	event := intentEvent(t, stripe.EventTypeChargeRefunded, "ch_1", map[string]any{
		"payment_intent": map[string]any{"id": "pi_300"},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	assert.Equal(t, enums.PaymentStatusRefunded, repo.updates["payment_status"])
	assert.Equal(t, enums.OrderStatusCancelled, repo.updates["order_status"])
	assert.NotNil(t, repo.updates["refunded_at"])
	assert.Empty(t, inv.finalized)

	require.Len(t, box.events, 1)
	assert.Equal(t, enums.EventOrderRefunded, box.events[0].EventType)
}

func TestHandleEventDuplicateDelivery(t *testing.T) {
	repo := &stubOrdersRepo{order: pendingOrder("pi_400")}
	svc := newTestService(t, repo, &stubInventory{}, &capturingOutbox{}, &stubGuard{duplicate: true})

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_400", nil)
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Nil(t, repo.updates)
}

func TestHandleEventBenignMiss(t *testing.T) {
	repo := &stubOrdersRepo{findErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newTestService(t, repo, &stubInventory{}, &capturingOutbox{}, &stubGuard{})

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_unknown", nil)
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Nil(t, repo.updates)
}

func TestHandleEventStaleEventIgnored(t *testing.T) {
	order := pendingOrder("pi_500")
	order.PaymentStatus = enums.PaymentStatusCompleted
	repo := &stubOrdersRepo{order: order}
	svc := newTestService(t, repo, &stubInventory{}, &capturingOutbox{}, &stubGuard{})

	event := intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, "pi_500", nil)
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Nil(t, repo.updates)
}

func TestHandleEventStoreFailureUnmarksEvent(t *testing.T) {
	repo := &stubOrdersRepo{
		order:     pendingOrder("pi_600"),
		updateErr: errors.New("connection reset"),
	}
	guard := &stubGuard{}
	svc := newTestService(t, repo, &stubInventory{}, &capturingOutbox{}, guard)

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_600", nil)
	require.Error(t, svc.HandleEvent(context.Background(), event))
	assert.Equal(t, []string{event.ID}, guard.deleted)
}

func TestHandleEventUnhandledTypeIsNoOp(t *testing.T) {
	repo := &stubOrdersRepo{}
	guard := &stubGuard{}
	svc := newTestService(t, repo, &stubInventory{}, &capturingOutbox{}, guard)

	event := &stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventTypeCustomerCreated,
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Nil(t, repo.updates)
}
