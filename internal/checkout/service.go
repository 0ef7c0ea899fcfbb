package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/internal/inventory"
	"github.com/furima-app/furima-backend/internal/payments"
	"github.com/furima-app/furima-backend/internal/pricing"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type quoteBuilder interface {
	ValidateAndPrice(ctx context.Context, rawItems []pricing.RawItem, shippingAddress *types.Address) (*pricing.Quote, error)
}

type inventoryGate interface {
	CheckAvailability(ctx context.Context, ids []uuid.UUID) ([]inventory.Unavailable, error)
	Reserve(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, now time.Time) error
	Release(ctx context.Context, db *gorm.DB, ids []uuid.UUID) error
}

type paymentIssuer interface {
	CreateIntent(ctx context.Context, input payments.CreateInput) (*payments.IntentResult, error)
	CreateCheckoutSession(ctx context.Context, input payments.CreateInput) (*payments.SessionResult, error)
}

// Input is a raw checkout request before validation.
type Input struct {
	BuyerID         uuid.UUID
	Items           []pricing.RawItem
	ShippingAddress *types.Address
}

// Service runs the checkout pipeline: price the cart, gate availability,
// reserve the listings, then open a processor handle. Orders appear later,
// after the client confirms payment.
type Service struct {
	tx        txRunner
	pricing   quoteBuilder
	inventory inventoryGate
	payments  paymentIssuer
	logg      *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(tx txRunner, quotes quoteBuilder, gate inventoryGate, issuer paymentIssuer, logg *logger.Logger) (*Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if quotes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing service required")
	}
	if gate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory gate required")
	}
	if issuer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{tx: tx, pricing: quotes, inventory: gate, payments: issuer, logg: logg}, nil
}

// CreateIntent prices and reserves the cart, then opens a payment intent.
// The quote is returned alongside so the caller can snapshot it into an
// order once payment is confirmed.
func (s *Service) CreateIntent(ctx context.Context, input Input) (*payments.IntentResult, *pricing.Quote, error) {
	quote, err := s.prepare(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.payments.CreateIntent(ctx, payments.CreateInput{
		BuyerID:         input.BuyerID,
		Quote:           quote,
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		s.rollbackReservation(ctx, quote)
		return nil, nil, err
	}
	return result, quote, nil
}

// CreateSession prices and reserves the cart, then opens a hosted checkout
// session.
func (s *Service) CreateSession(ctx context.Context, input Input) (*payments.SessionResult, *pricing.Quote, error) {
	quote, err := s.prepare(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.payments.CreateCheckoutSession(ctx, payments.CreateInput{
		BuyerID:         input.BuyerID,
		Quote:           quote,
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		s.rollbackReservation(ctx, quote)
		return nil, nil, err
	}
	return result, quote, nil
}

func (s *Service) prepare(ctx context.Context, input Input) (*pricing.Quote, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	quote, err := s.pricing.ValidateAndPrice(ctx, input.Items, input.ShippingAddress)
	if err != nil {
		return nil, err
	}
	ids := quote.ProductIDs()

	unavailable, err := s.inventory.CheckAvailability(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(unavailable) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "products unavailable").
			WithDetails(map[string]any{"unavailableProducts": unavailable})
	}

	// Reserve is conditional, so a cart that raced past the check still
	// cannot double-sell.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.inventory.Reserve(ctx, tx, ids, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *Service) rollbackReservation(ctx context.Context, quote *pricing.Quote) {
	if err := s.inventory.Release(ctx, nil, quote.ProductIDs()); err != nil && s.logg != nil {
		s.logg.Error(ctx, "releasing reservation after processor failure", err)
	}
}
