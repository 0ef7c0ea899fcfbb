package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/furima-app/furima-backend/internal/inventory"
	"github.com/furima-app/furima-backend/internal/products"
	"github.com/furima-app/furima-backend/internal/shipping"
	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/types"
)

// RawItem is an unvalidated cart line as the client sent it.
type RawItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// LineItem is one priced cart line backed by a catalog row.
type LineItem struct {
	Product  models.Product
	Quantity int
}

// Quote is the server-side priced cart. Amounts are integer yen; client
// declared prices are never consulted.
type Quote struct {
	Items             []LineItem
	Subtotal          int
	ShippingFee       int
	Total             int
	BuyerPaysShipping bool
}

// ProductIDs returns the resolved catalog ids in cart order.
func (q *Quote) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(q.Items))
	for i, item := range q.Items {
		ids[i] = item.Product.ID
	}
	return ids
}

// Service normalizes, validates and prices carts.
type Service struct {
	productRepo     products.Repository
	minChargeAmount int
}

// NewService builds the pricing engine.
func NewService(productRepo products.Repository, minChargeAmount int) (*Service, error) {
	if productRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	if minChargeAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "min charge amount must be non-negative")
	}
	return &Service{
		productRepo:     productRepo,
		minChargeAmount: minChargeAmount,
	}, nil
}

// ValidateAndPrice normalizes the raw cart and produces a quote from catalog
// prices plus the destination shipping fee. The catalog is read once for the
// whole cart, and ids that match no catalog row fail the quote with the full
// missing list.
func (s *Service) ValidateAndPrice(ctx context.Context, rawItems []RawItem, shippingAddress *types.Address) (*Quote, error) {
	ids := normalize(rawItems)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	ordered := make([]uuid.UUID, 0, len(ids))
	quantities := make(map[uuid.UUID]int, len(ids))
	for _, entry := range ids {
		if _, dup := quantities[entry.id]; !dup {
			ordered = append(ordered, entry.id)
		}
		quantities[entry.id] += entry.quantity
	}

	found, err := s.productRepo.FindByIDs(ctx, ordered)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, product := range found {
		byID[product.ID] = product
	}

	quote := &Quote{}
	var missing []inventory.Unavailable
	for _, id := range ordered {
		product, ok := byID[id]
		if !ok {
			missing = append(missing, inventory.Unavailable{ProductID: id, Reason: enums.UnavailabilityReasonNotFound})
			continue
		}
		quantity := quantities[id]
		quote.Items = append(quote.Items, LineItem{Product: product, Quantity: quantity})
		quote.Subtotal += product.Price * quantity
		if product.ShippingPayer == enums.ShippingPayerBuyer {
			quote.BuyerPaysShipping = true
		}
	}
	if len(missing) > 0 {
		// A cart line that no longer resolves must block the quote, not
		// silently shrink it and have the buyer charged for the remainder.
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "products unavailable").
			WithDetails(map[string]any{"unavailableProducts": missing})
	}

	if quote.BuyerPaysShipping {
		if !shippingAddress.HasDestination() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
		}
		quote.ShippingFee = shipping.Fee(shippingAddress.Region(), true)
	}
	quote.Total = quote.Subtotal + quote.ShippingFee

	if quote.Total < s.minChargeAmount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order total %d is below the minimum chargeable amount %d", quote.Total, s.minChargeAmount))
	}
	return quote, nil
}

type normalizedItem struct {
	id       uuid.UUID
	quantity int
}

// normalize drops lines with no resolvable product id and defaults missing
// or non-positive quantities to 1. Duplicate ids are merged by the caller.
func normalize(rawItems []RawItem) []normalizedItem {
	out := make([]normalizedItem, 0, len(rawItems))
	for _, raw := range rawItems {
		id, err := uuid.Parse(raw.ProductID)
		if err != nil || id == uuid.Nil {
			continue
		}
		quantity := raw.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		out = append(out, normalizedItem{id: id, quantity: quantity})
	}
	return out
}
