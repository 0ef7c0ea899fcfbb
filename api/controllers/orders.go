package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/furima-app/furima-backend/api/responses"
	"github.com/furima-app/furima-backend/api/validators"
	"github.com/furima-app/furima-backend/internal/orders"
	"github.com/furima-app/furima-backend/internal/pricing"
	"github.com/furima-app/furima-backend/pkg/db/models"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/types"
)

type ordersService interface {
	Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
	GetForBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
}

type quotePricer interface {
	ValidateAndPrice(ctx context.Context, rawItems []pricing.RawItem, shippingAddress *types.Address) (*pricing.Quote, error)
}

type buyerNameResolver interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

type createOrderRequest struct {
	BuyerName       string            `json:"buyerName,omitempty"`
	Items           []pricing.RawItem `json:"items" validate:"required,min=1,dive"`
	PaymentIntentID string            `json:"paymentIntentId,omitempty"`
	ShippingAddress *types.Address    `json:"shippingAddress,omitempty"`
}

type orderItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	SellerID  uuid.UUID `json:"sellerId"`
	Title     string    `json:"title"`
	ImageURL  *string   `json:"imageUrl,omitempty"`
	Price     int       `json:"price"`
	Quantity  int       `json:"quantity"`
}

type orderResponse struct {
	OrderID         uuid.UUID           `json:"orderId"`
	PaymentStatus   string              `json:"paymentStatus"`
	OrderStatus     string              `json:"orderStatus"`
	Subtotal        int                 `json:"subtotal"`
	ShippingFee     int                 `json:"shippingFee"`
	TotalAmount     int                 `json:"totalAmount"`
	PaymentIntentID *string             `json:"paymentIntentId,omitempty"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// CreateOrder persists the order after the client observed processor-side
// success. Amounts are recomputed from the catalog, never taken from the
// request.
func CreateOrder(svc ordersService, pricer quotePricer, names buyerNameResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || pricer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := pricer.ValidateAndPrice(r.Context(), payload.Items, payload.ShippingAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		buyerName := payload.BuyerName
		if buyerName == "" && names != nil {
			if resolved, nameErr := names.DisplayName(r.Context(), buyerID); nameErr == nil {
				buyerName = resolved
			}
		}

		order, err := svc.Create(r.Context(), orders.CreateOrderInput{
			BuyerID:         buyerID,
			BuyerName:       buyerName,
			Quote:           quote,
			PaymentIntentID: payload.PaymentIntentID,
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"orderId": order.ID.String()})
	}
}

// OrderDetail returns one of the buyer's orders.
func OrderDetail(svc ordersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.GetForBuyer(r.Context(), orderID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ListOrders returns the buyer's order history, newest first.
func ListOrders(svc ordersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(list))
		for i := range list {
			items = append(items, newOrderResponse(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": items})
	}
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		OrderID:         order.ID,
		PaymentStatus:   string(order.PaymentStatus),
		OrderStatus:     string(order.OrderStatus),
		Subtotal:        order.Subtotal,
		ShippingFee:     order.ShippingFee,
		TotalAmount:     order.TotalAmount,
		PaymentIntentID: order.PaymentIntentID,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Title:     item.Title,
			ImageURL:  item.ImageURL,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return resp
}
