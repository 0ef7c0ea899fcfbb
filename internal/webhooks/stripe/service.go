package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/internal/orders"
	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/metrics"
	"github.com/furima-app/furima-backend/pkg/outbox"
	"github.com/furima-app/furima-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type inventoryController interface {
	Finalize(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type dedupGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type ServiceParams struct {
	OrdersRepo        orders.Repository
	Inventory         inventoryController
	Outbox            outboxPublisher
	TransactionRunner txRunner
	Guard             dedupGuard
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service reconciles Stripe payment events onto stored orders. The order
// row is the source of truth for order state; Stripe is the source of truth
// for payment state, and this service folds the latter into the former.
type Service struct {
	ordersRepo orders.Repository
	inventory  inventoryController
	outbox     outboxPublisher
	txRunner   txRunner
	guard      dedupGuard
	metrics    *metrics.WebhookMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory service required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		ordersRepo: params.OrdersRepo,
		inventory:  params.Inventory,
		outbox:     params.Outbox,
		txRunner:   params.TransactionRunner,
		guard:      params.Guard,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// HandleEvent applies one verified Stripe event. A nil return means the
// delivery is settled and Stripe should receive a 2xx; a non-nil return
// means the event must be redelivered.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	eventType := string(event.Type)
	start := time.Now()
	defer func() {
		s.metrics.ObserveProcessing(eventType, time.Since(start))
	}()

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypeChargeRefunded:
	default:
		s.metrics.IncEvent(eventType, metrics.WebhookOutcomeIgnored)
		return nil
	}

	duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		s.metrics.IncEvent(eventType, metrics.WebhookOutcomeError)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
	}
	if duplicate {
		s.metrics.IncEvent(eventType, metrics.WebhookOutcomeDuplicate)
		s.logg.Info(s.logg.WithField(ctx, "event_id", event.ID), "webhook event already processed")
		return nil
	}

	outcome, err := s.reconcile(ctx, event)
	if err != nil {
		// Clear the mark so Stripe's redelivery gets another attempt.
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
			s.logg.Error(s.logg.WithField(ctx, "event_id", event.ID), "unmark webhook event failed", delErr)
		}
		s.metrics.IncEvent(eventType, metrics.WebhookOutcomeError)
		return err
	}
	s.metrics.IncEvent(eventType, outcome)
	return nil
}

func (s *Service) reconcile(ctx context.Context, event *stripe.Event) (string, error) {
	intentID, failureReason, err := extractIntent(event)
	if err != nil {
		return "", err
	}
	if intentID == "" {
		// Charges created outside a payment intent flow have nothing to
		// reconcile against.
		s.logg.Warn(s.logg.WithField(ctx, "event_id", event.ID), "webhook event carries no payment intent")
		return metrics.WebhookOutcomeBenignMiss, nil
	}

	logCtx := s.logg.WithPaymentIntentID(s.logg.WithField(ctx, "event_id", event.ID), intentID)

	order, err := s.ordersRepo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			// Intent was issued but the client never confirmed an order,
			// or the event belongs to another system sharing the account.
			s.logg.Warn(logCtx, "no order for payment intent")
			return metrics.WebhookOutcomeBenignMiss, nil
		}
		return "", err
	}

	target := targetPaymentStatus(event.Type)
	if !order.PaymentStatus.CanTransitionTo(target) {
		s.logg.Info(s.logg.WithOrderID(logCtx, order.ID.String()), "webhook event is stale for order")
		return metrics.WebhookOutcomeStale, nil
	}

	occurredAt := time.Unix(event.Created, 0).UTC()
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		updates := map[string]any{
			"payment_status": target,
			"last_event_id":  event.ID,
		}

		switch event.Type {
		case stripe.EventTypePaymentIntentSucceeded:
			// Set explicitly, not assumed: a retried payment arrives on an
			// order whose last event was a failure, and it must land paid
			// and confirmed.
			updates["order_status"] = enums.OrderStatusConfirmed
			updates["paid_at"] = occurredAt
			if err := repo.ApplyStatusUpdate(ctx, order.ID, updates); err != nil {
				return err
			}
			ids := productIDs(order.Items)
			if err := s.inventory.Finalize(ctx, tx, ids); err != nil {
				return err
			}
			if err := s.emitFinalized(ctx, tx, order, ids, occurredAt); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderPaidEvent{
					OrderID:         order.ID,
					BuyerID:         order.BuyerID,
					SellerIDs:       sellerIDs(order.Items),
					PaymentIntentID: intentID,
					TotalAmount:     int64(order.TotalAmount),
					Currency:        string(order.Currency),
					PaidAt:          occurredAt,
				},
			})

		case stripe.EventTypePaymentIntentPaymentFailed:
			// Order status stays as it is and the listings stay reserved,
			// so a retried payment on the same intent can still complete.
			// The reservation sweep frees the listings if no retry lands
			// within the TTL.
			if failureReason != "" {
				updates["failure_reason"] = failureReason
			}
			if err := repo.ApplyStatusUpdate(ctx, order.ID, updates); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaymentFailed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderPaymentFailedEvent{
					OrderID:         order.ID,
					BuyerID:         order.BuyerID,
					PaymentIntentID: intentID,
					FailureReason:   failureReason,
				},
			})

		case stripe.EventTypeChargeRefunded:
			updates["order_status"] = enums.OrderStatusCancelled
			updates["refunded_at"] = occurredAt
			if err := repo.ApplyStatusUpdate(ctx, order.ID, updates); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderRefunded,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderRefundedEvent{
					OrderID:         order.ID,
					BuyerID:         order.BuyerID,
					PaymentIntentID: intentID,
					TotalAmount:     int64(order.TotalAmount),
					RefundedAt:      occurredAt,
				},
			})
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logg.Info(s.logg.WithOrderID(logCtx, order.ID.String()), "webhook event applied to order")
	return metrics.WebhookOutcomeApplied, nil
}

func (s *Service) emitFinalized(ctx context.Context, tx *gorm.DB, order *models.Order, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReservationFinalized,
		AggregateType: enums.AggregateProduct,
		AggregateID:   order.ID,
		Data: payloads.ReservationFinalizedEvent{
			ProductIDs:  ids,
			OrderID:     order.ID,
			FinalizedAt: at,
		},
	})
}

// extractIntent pulls the payment intent id, and for failures the human
// readable reason, out of the event payload.
func extractIntent(event *stripe.Event) (string, string, error) {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
		}
		reason := ""
		if intent.LastPaymentError != nil {
			reason = intent.LastPaymentError.Msg
		}
		return intent.ID, reason, nil
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge event")
		}
		if charge.PaymentIntent == nil {
			return "", "", nil
		}
		return charge.PaymentIntent.ID, "", nil
	}
	return "", "", nil
}

func targetPaymentStatus(eventType stripe.EventType) enums.PaymentStatus {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return enums.PaymentStatusCompleted
	case stripe.EventTypePaymentIntentPaymentFailed:
		return enums.PaymentStatusFailed
	case stripe.EventTypeChargeRefunded:
		return enums.PaymentStatusRefunded
	}
	return enums.PaymentStatusPending
}

func productIDs(items []models.OrderItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func sellerIDs(items []models.OrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		ids = append(ids, item.SellerID)
	}
	return ids
}
