package enums

// ProductStatus is the authoritative availability state in the catalog.
// This service reads and gates on it; listing lifecycle is owned elsewhere.
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusReserved  ProductStatus = "reserved"
	ProductStatusSold      ProductStatus = "sold"
)

// ShippingPayer marks who bears the delivery cost for a listing.
type ShippingPayer string

const (
	ShippingPayerSeller ShippingPayer = "seller"
	ShippingPayerBuyer  ShippingPayer = "buyer"
)

// ProductCondition is the seller-declared condition snapshot copied onto
// order items.
type ProductCondition string

const (
	ProductConditionNew      ProductCondition = "new"
	ProductConditionLikeNew  ProductCondition = "like_new"
	ProductConditionGood     ProductCondition = "good"
	ProductConditionFair     ProductCondition = "fair"
	ProductConditionPoor     ProductCondition = "poor"
)
