package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/furima-app/furima-backend/pkg/enums"
)

// OrderItem is a denormalized snapshot of one purchased listing taken at
// order creation. Later catalog edits never alter a historical order.
type OrderItem struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID     uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	SellerID      uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	Title         string                  `gorm:"column:title;not null"`
	ImageURL      *string                 `gorm:"column:image_url"`
	Category      string                  `gorm:"column:category;not null"`
	Condition     enums.ProductCondition  `gorm:"column:condition;type:text;not null"`
	ShippingPayer enums.ShippingPayer     `gorm:"column:shipping_payer;type:text;not null"`
	Price         int                     `gorm:"column:price;not null"`
	Quantity      int                     `gorm:"column:quantity;not null;default:1"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
