package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/outbox"
	"github.com/furima-app/furima-backend/pkg/outbox/idempotency"
	"github.com/furima-app/furima-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches published order events and fans them out into in-app
// notifications for buyers and sellers.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("order events subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	switch eventType {
	case enums.EventOrderPaid, enums.EventOrderPaymentFailed, enums.EventOrderRefunded:
	default:
		c.logg.Info(logCtx, "skipping event with no notification fanout")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if envelope.EventID == "" {
		c.logg.Warn(logCtx, "envelope missing event id")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, envelope.EventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderPaid:
		var payload payloads.OrderPaidEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order paid payload: %w", err)
		}
		return c.notifyOrderPaid(ctx, payload, logCtx)
	case enums.EventOrderPaymentFailed:
		var payload payloads.OrderPaymentFailedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment failed payload: %w", err)
		}
		return c.notifyPaymentFailed(ctx, payload, logCtx)
	case enums.EventOrderRefunded:
		var payload payloads.OrderRefundedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order refunded payload: %w", err)
		}
		return c.notifyOrderRefunded(ctx, payload, logCtx)
	}
	return nil
}

func (c *Consumer) notifyOrderPaid(ctx context.Context, payload payloads.OrderPaidEvent, logCtx context.Context) error {
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	buyer := &models.Notification{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypeOrderConfirmed,
		Title:   "Payment received",
		Message: fmt.Sprintf("Your payment of ¥%d was confirmed. The seller will ship your item soon.", payload.TotalAmount),
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, buyer); err != nil {
		return err
	}

	for _, sellerID := range payload.SellerIDs {
		seller := &models.Notification{
			UserID:  sellerID,
			Type:    enums.NotificationTypeItemSold,
			Title:   "Your item sold",
			Message: "A buyer completed payment. Please ship the item.",
			Link:    stringPtr(link),
		}
		if err := c.repo.Create(ctx, seller); err != nil {
			return err
		}
	}

	c.logg.Info(logCtx, "order paid notifications created")
	return nil
}

func (c *Consumer) notifyPaymentFailed(ctx context.Context, payload payloads.OrderPaymentFailedEvent, logCtx context.Context) error {
	message := "Your payment could not be completed. The items have been released."
	if payload.FailureReason != "" {
		message = fmt.Sprintf("Your payment could not be completed: %s. The items have been released.", payload.FailureReason)
	}
	notification := &models.Notification{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypePaymentFailed,
		Title:   "Payment failed",
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "payment failed notification created")
	return nil
}

func (c *Consumer) notifyOrderRefunded(ctx context.Context, payload payloads.OrderRefundedEvent, logCtx context.Context) error {
	notification := &models.Notification{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypeOrderRefunded,
		Title:   "Order refunded",
		Message: fmt.Sprintf("¥%d has been refunded to your payment method.", payload.TotalAmount),
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "order refunded notification created")
	return nil
}

func stringPtr(value string) *string {
	return &value
}
