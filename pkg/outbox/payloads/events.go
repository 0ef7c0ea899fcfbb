package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent signals that checkout completed and a pending order exists.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID   `json:"order_id"`
	BuyerID         uuid.UUID   `json:"buyer_id"`
	SellerIDs       []uuid.UUID `json:"seller_ids"`
	ProductIDs      []uuid.UUID `json:"product_ids"`
	Subtotal        int64       `json:"subtotal"`
	ShippingFee     int64       `json:"shipping_fee"`
	TotalAmount     int64       `json:"total_amount"`
	Currency        string      `json:"currency"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
}

// OrderPaidEvent is emitted when the processor confirms payment.
type OrderPaidEvent struct {
	OrderID         uuid.UUID   `json:"order_id"`
	BuyerID         uuid.UUID   `json:"buyer_id"`
	SellerIDs       []uuid.UUID `json:"seller_ids"`
	PaymentIntentID string      `json:"payment_intent_id"`
	TotalAmount     int64       `json:"total_amount"`
	Currency        string      `json:"currency"`
	PaidAt          time.Time   `json:"paid_at"`
}

// OrderPaymentFailedEvent reports an authorization or capture failure.
type OrderPaymentFailedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	BuyerID         uuid.UUID `json:"buyer_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	FailureReason   string    `json:"failure_reason,omitempty"`
}

// OrderRefundedEvent is emitted when a paid order is refunded.
type OrderRefundedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	BuyerID         uuid.UUID `json:"buyer_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	TotalAmount     int64     `json:"total_amount"`
	RefundedAt      time.Time `json:"refunded_at"`
}

// ReservationReleasedEvent reports products returned to the available pool.
type ReservationReleasedEvent struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
	OrderID    *uuid.UUID  `json:"order_id,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	ReleasedAt time.Time   `json:"released_at"`
}

// ReservationFinalizedEvent reports products marked sold after payment.
type ReservationFinalizedEvent struct {
	ProductIDs  []uuid.UUID `json:"product_ids"`
	OrderID     uuid.UUID   `json:"order_id"`
	FinalizedAt time.Time   `json:"finalized_at"`
}
