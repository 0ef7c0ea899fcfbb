package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/furima-app/furima-backend/pkg/enums"
)

// Product is the canonical catalog listing. The checkout core reads and
// gates on Status; listing lifecycle beyond the reservation transitions is
// owned by the catalog service.
type Product struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index"`
	Title         string                 `gorm:"column:title;not null"`
	Description   *string                `gorm:"column:description"`
	Price         int                    `gorm:"column:price;not null"`
	Images        pq.StringArray         `gorm:"column:images;type:text[];not null;default:ARRAY[]::text[]"`
	Category      string                 `gorm:"column:category;not null"`
	Condition     enums.ProductCondition `gorm:"column:condition;type:text;not null;default:'good'"`
	Status        enums.ProductStatus    `gorm:"column:status;type:product_status;not null;default:'available';index"`
	ShippingPayer enums.ShippingPayer    `gorm:"column:shipping_payer;type:text;not null;default:'seller'"`
	ReservedAt    *time.Time             `gorm:"column:reserved_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// PrimaryImage returns the first catalog image, if any.
func (p *Product) PrimaryImage() *string {
	if p == nil || len(p.Images) == 0 {
		return nil
	}
	img := p.Images[0]
	return &img
}
