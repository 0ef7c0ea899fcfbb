package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/furima-app/furima-backend/api/middleware"
	"github.com/furima-app/furima-backend/api/responses"
	"github.com/furima-app/furima-backend/api/validators"
	checkoutsvc "github.com/furima-app/furima-backend/internal/checkout"
	"github.com/furima-app/furima-backend/internal/payments"
	"github.com/furima-app/furima-backend/internal/pricing"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/types"
)

type checkoutService interface {
	CreateIntent(ctx context.Context, input checkoutsvc.Input) (*payments.IntentResult, *pricing.Quote, error)
	CreateSession(ctx context.Context, input checkoutsvc.Input) (*payments.SessionResult, *pricing.Quote, error)
}

type checkoutRequest struct {
	Items           []pricing.RawItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *types.Address    `json:"shippingAddress,omitempty"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// Checkout prices the submitted cart, reserves the listings and opens a
// hosted checkout session.
func Checkout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
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

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, _, err := svc.CreateSession(r.Context(), checkoutsvc.Input{
			BuyerID:         buyerID,
			Items:           payload.Items,
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			SessionID: result.SessionID,
			URL:       result.URL,
		})
	}
}

func buyerIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	buyerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return buyerID, nil
}
