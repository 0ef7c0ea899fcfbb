package controllers

import (
	"net/http"

	"github.com/furima-app/furima-backend/api/responses"
	"github.com/furima-app/furima-backend/api/validators"
	checkoutsvc "github.com/furima-app/furima-backend/internal/checkout"
	"github.com/furima-app/furima-backend/internal/pricing"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/types"
)

type createIntentRequest struct {
	Items           []pricing.RawItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *types.Address    `json:"shippingAddress,omitempty"`
}

type createIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int    `json:"amount"`
}

// CreateIntent prices the cart server-side, reserves the listings and opens
// a payment intent. The client confirms the charge with the returned secret.
func CreateIntent(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, _, err := svc.CreateIntent(r.Context(), checkoutsvc.Input{
			BuyerID:         buyerID,
			Items:           payload.Items,
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createIntentResponse{
			ClientSecret:    result.ClientSecret,
			PaymentIntentID: result.PaymentIntentID,
			Amount:          result.Amount,
		})
	}
}
