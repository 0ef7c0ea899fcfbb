package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/furima-app/furima-backend/pkg/enums"
	"github.com/furima-app/furima-backend/pkg/types"
)

// Order is the durable record of a purchase. It is written once by the
// client-confirmed path and mutated only by the webhook reconciler after
// that. TotalAmount = Subtotal + ShippingFee is fixed at creation and never
// recomputed.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	BuyerName       string              `gorm:"column:buyer_name;not null"`
	Currency        enums.Currency      `gorm:"column:currency;type:text;not null;default:'jpy'"`
	Subtotal        int                 `gorm:"column:subtotal;not null"`
	ShippingFee     int                 `gorm:"column:shipping_fee;not null;default:0"`
	TotalAmount     int                 `gorm:"column:total_amount;not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	OrderStatus     enums.OrderStatus   `gorm:"column:order_status;type:order_status;not null;default:'confirmed'"`
	PaymentMethod   string              `gorm:"column:payment_method;not null;default:'card'"`
	PaymentIntentID *string             `gorm:"column:payment_intent_id;uniqueIndex:orders_payment_intent_id_key"`
	ShippingAddress *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	LastEventID     *string             `gorm:"column:last_event_id"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	RefundedAt      *time.Time          `gorm:"column:refunded_at"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
