package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/furima-app/furima-backend/internal/pricing"
	"github.com/furima-app/furima-backend/pkg/config"
	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/types"
)

type stubStripeClient struct {
	intentParams  *stripe.PaymentIntentParams
	sessionParams *stripe.CheckoutSessionParams
	intentErr     error
	sessionErr    error
}

func (s *stubStripeClient) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.intentParams = params
	if s.intentErr != nil {
		return nil, s.intentErr
	}
	return &stripe.PaymentIntent{
		ID:           "pi_test_123",
		ClientSecret: "pi_test_123_secret_abc",
		Amount:       *params.Amount,
	}, nil
}

func (s *stubStripeClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.sessionParams = params
	if s.sessionErr != nil {
		return nil, s.sessionErr
	}
	return &stripe.CheckoutSession{
		ID:  "cs_test_456",
		URL: "https://checkout.stripe.com/c/pay/cs_test_456",
	}, nil
}

func testQuote(prices ...int) *pricing.Quote {
	quote := &pricing.Quote{}
	for _, price := range prices {
		quote.Items = append(quote.Items, pricing.LineItem{
			Product: models.Product{
				ID:            uuid.New(),
				SellerID:      uuid.New(),
				Title:         "Wool coat",
				Price:         price,
				Category:      "fashion",
				ShippingPayer: enums.ShippingPayerBuyer,
			},
			Quantity: 1,
		})
		quote.Subtotal += price
	}
	quote.BuyerPaysShipping = true
	quote.ShippingFee = 700
	quote.Total = quote.Subtotal + quote.ShippingFee
	return quote
}

func checkoutCfg() config.CheckoutConfig {
	return config.CheckoutConfig{
		MinChargeAmount: 50,
		SuccessURL:      "https://furima.example/checkout/success",
		CancelURL:       "https://furima.example/checkout/cancel",
	}
}

func TestCreateIntent(t *testing.T) {
	client := &stubStripeClient{}
	svc, err := NewService(client, checkoutCfg(), nil)
	require.NoError(t, err)

	buyerID := uuid.New()
	quote := testQuote(4300)
	address := &types.Address{
		Prefecture: "Tokyo",
		City:       "Meguro",
		Line1:      "4-5-6 Nakameguro",
		PostalCode: "153-0061",
		Recipient:  "Ito Ren",
	}

	result, err := svc.CreateIntent(context.Background(), CreateInput{
		BuyerID:         buyerID,
		Quote:           quote,
		ShippingAddress: address,
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_test_123", result.PaymentIntentID)
	assert.Equal(t, "pi_test_123_secret_abc", result.ClientSecret)
	assert.Equal(t, 5000, result.Amount)

	require.NotNil(t, client.intentParams)
	assert.Equal(t, int64(5000), *client.intentParams.Amount)
	assert.Equal(t, "jpy", *client.intentParams.Currency)
	assert.Equal(t, buyerID.String(), client.intentParams.Metadata["buyer_id"])
	assert.Equal(t, "1", client.intentParams.Metadata["item_count"])
	require.NotNil(t, client.intentParams.Shipping)
	assert.Equal(t, "Tokyo", *client.intentParams.Shipping.Address.State)
	assert.Equal(t, "JP", *client.intentParams.Shipping.Address.Country)
}

func TestCreateIntent_NoAddressNoShippingBlock(t *testing.T) {
	client := &stubStripeClient{}
	svc, err := NewService(client, checkoutCfg(), nil)
	require.NoError(t, err)

	_, err = svc.CreateIntent(context.Background(), CreateInput{
		BuyerID: uuid.New(),
		Quote:   testQuote(980),
	})
	require.NoError(t, err)
	assert.Nil(t, client.intentParams.Shipping)
}

func TestCreateIntent_ProcessorFailure(t *testing.T) {
	client := &stubStripeClient{intentErr: errors.New("stripe: rate limited")}
	svc, err := NewService(client, checkoutCfg(), nil)
	require.NoError(t, err)

	_, err = svc.CreateIntent(context.Background(), CreateInput{
		BuyerID: uuid.New(),
		Quote:   testQuote(980),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestCreateIntent_Validation(t *testing.T) {
	svc, err := NewService(&stubStripeClient{}, checkoutCfg(), nil)
	require.NoError(t, err)

	_, err = svc.CreateIntent(context.Background(), CreateInput{Quote: testQuote(980)})
	require.Error(t, err)

	_, err = svc.CreateIntent(context.Background(), CreateInput{BuyerID: uuid.New()})
	require.Error(t, err)
}

func TestCreateCheckoutSession(t *testing.T) {
	client := &stubStripeClient{}
	svc, err := NewService(client, checkoutCfg(), nil)
	require.NoError(t, err)

	result, err := svc.CreateCheckoutSession(context.Background(), CreateInput{
		BuyerID: uuid.New(),
		Quote:   testQuote(1500, 2800),
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_456", result.SessionID)
	assert.NotEmpty(t, result.URL)

	require.NotNil(t, client.sessionParams)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *client.sessionParams.Mode)
	assert.Equal(t, "https://furima.example/checkout/success", *client.sessionParams.SuccessURL)

	// two item lines plus the shipping fee line
	require.Len(t, client.sessionParams.LineItems, 3)
	shippingLine := client.sessionParams.LineItems[2]
	assert.Equal(t, int64(700), *shippingLine.PriceData.UnitAmount)
	assert.Equal(t, "Shipping fee", *shippingLine.PriceData.ProductData.Name)
}

func TestCreateCheckoutSession_ProcessorFailure(t *testing.T) {
	client := &stubStripeClient{sessionErr: errors.New("stripe: unavailable")}
	svc, err := NewService(client, checkoutCfg(), nil)
	require.NoError(t, err)

	_, err = svc.CreateCheckoutSession(context.Background(), CreateInput{
		BuyerID: uuid.New(),
		Quote:   testQuote(1500),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}
