package payments

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/furima-app/furima-backend/internal/pricing"
	"github.com/furima-app/furima-backend/pkg/config"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/types"
)

// IntentResult is what the client needs to confirm a card payment.
type IntentResult struct {
	ClientSecret    string
	PaymentIntentID string
	Amount          int
}

// SessionResult identifies a hosted checkout session.
type SessionResult struct {
	SessionID string
	URL       string
}

// CreateInput carries the priced cart into a processor call.
type CreateInput struct {
	BuyerID         uuid.UUID
	Quote           *pricing.Quote
	ShippingAddress *types.Address
}

// Service issues payment intents and hosted checkout sessions. It never
// creates orders; the order row appears only after the client confirms.
type Service struct {
	stripe StripePaymentClient
	cfg    config.CheckoutConfig
	logg   *logger.Logger
}

// NewService builds the payments service.
func NewService(client StripePaymentClient, cfg config.CheckoutConfig, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	return &Service{stripe: client, cfg: cfg, logg: logg}, nil
}

// CreateIntent opens a JPY payment intent for the quoted total. Amounts are
// already integer yen so no unit conversion happens here.
func (s *Service) CreateIntent(ctx context.Context, input CreateInput) (*IntentResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(input.Quote.Total)),
		Currency: stripe.String(string(stripe.CurrencyJPY)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("buyer_id", input.BuyerID.String())
	params.AddMetadata("item_count", strconv.Itoa(len(input.Quote.Items)))
	if input.ShippingAddress.HasDestination() {
		params.Shipping = shippingParams(input.ShippingAddress)
	}

	intent, err := s.stripe.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithPaymentIntentID(ctx, intent.ID), "payment intent created")
	}
	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          input.Quote.Total,
	}, nil
}

// CreateCheckoutSession opens a hosted checkout session with one line per
// cart item plus the shipping fee.
func (s *Service) CreateCheckoutSession(ctx context.Context, input CreateInput) (*SessionResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(input.Quote.Items)+1)
	for _, line := range input.Quote.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(line.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyJPY)),
				UnitAmount: stripe.Int64(int64(line.Product.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Product.Title),
				},
			},
		})
	}
	if input.Quote.ShippingFee > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyJPY)),
				UnitAmount: stripe.Int64(int64(input.Quote.ShippingFee)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping fee"),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems:  lineItems,
	}
	params.AddMetadata("buyer_id", input.BuyerID.String())
	params.AddMetadata("item_count", strconv.Itoa(len(input.Quote.Items)))

	created, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "session_id", created.ID), "checkout session created")
	}
	return &SessionResult{SessionID: created.ID, URL: created.URL}, nil
}

func validateInput(input CreateInput) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.Quote == nil || len(input.Quote.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quote with items required")
	}
	return nil
}

func shippingParams(address *types.Address) *stripe.ShippingDetailsParams {
	name := address.Recipient
	if name == "" {
		name = "Recipient"
	}
	params := &stripe.ShippingDetailsParams{
		Name: stripe.String(name),
		Address: &stripe.AddressParams{
			Country:    stripe.String("JP"),
			PostalCode: stripe.String(address.PostalCode),
			State:      stripe.String(address.Prefecture),
			City:       stripe.String(address.City),
			Line1:      stripe.String(address.Line1),
		},
	}
	if address.Line2 != nil {
		params.Address.Line2 = stripe.String(*address.Line2)
	}
	if address.Phone != nil {
		params.Phone = stripe.String(*address.Phone)
	}
	return params
}
