package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/internal/pricing"
	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/outbox"
	"github.com/furima-app/furima-backend/pkg/outbox/payloads"
	"github.com/furima-app/furima-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateOrderInput carries everything needed to persist an order from a
// priced quote.
type CreateOrderInput struct {
	BuyerID         uuid.UUID
	BuyerName       string
	Quote           *pricing.Quote
	PaymentIntentID string
	ShippingAddress *types.Address
}

// Service owns order creation and buyer-facing reads.
type Service struct {
	tx     txRunner
	repo   Repository
	outbox outboxPublisher
}

// NewService builds the orders service.
func NewService(tx txRunner, repo Repository, publisher outboxPublisher) (*Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	return &Service{tx: tx, repo: repo, outbox: publisher}, nil
}

// Create persists the order with denormalized item snapshots. The snapshot
// freezes title, image, seller and price at purchase time so later catalog
// edits never rewrite order history.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.Quote == nil || len(input.Quote.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	order := &models.Order{
		BuyerID:         input.BuyerID,
		BuyerName:       strings.TrimSpace(input.BuyerName),
		Currency:        enums.CurrencyJPY,
		Subtotal:        input.Quote.Subtotal,
		ShippingFee:     input.Quote.ShippingFee,
		TotalAmount:     input.Quote.Subtotal + input.Quote.ShippingFee,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderStatus:     enums.OrderStatusConfirmed,
		PaymentMethod:   "card",
		ShippingAddress: input.ShippingAddress,
	}
	if intentID := strings.TrimSpace(input.PaymentIntentID); intentID != "" {
		order.PaymentIntentID = &intentID
	}
	for _, line := range input.Quote.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:     line.Product.ID,
			SellerID:      line.Product.SellerID,
			Title:         line.Product.Title,
			ImageURL:      line.Product.PrimaryImage(),
			Category:      line.Product.Category,
			Condition:     line.Product.Condition,
			ShippingPayer: line.Product.ShippingPayer,
			Price:         line.Product.Price,
			Quantity:      line.Quantity,
		})
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stored, err := repo.Create(ctx, order)
		if err != nil {
			return err
		}

		sellerIDs := make([]uuid.UUID, 0, len(stored.Items))
		productIDs := make([]uuid.UUID, 0, len(stored.Items))
		for _, item := range stored.Items {
			sellerIDs = append(sellerIDs, item.SellerID)
			productIDs = append(productIDs, item.ProductID)
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   stored.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: "buyer"},
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:         stored.ID,
				BuyerID:         stored.BuyerID,
				SellerIDs:       sellerIDs,
				ProductIDs:      productIDs,
				Subtotal:        int64(stored.Subtotal),
				ShippingFee:     int64(stored.ShippingFee),
				TotalAmount:     int64(stored.TotalAmount),
				Currency:        string(stored.Currency),
				PaymentIntentID: input.PaymentIntentID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		created = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetForBuyer loads one order and enforces ownership. Foreign orders read as
// not-found so order ids cannot be probed.
func (s *Service) GetForBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// ListForBuyer returns the buyer's order history, newest first.
func (s *Service) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	return s.repo.ListByBuyer(ctx, buyerID)
}
