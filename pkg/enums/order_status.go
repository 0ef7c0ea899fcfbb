package enums

// OrderStatus is the buyer-visible lifecycle state of a persisted order.
// Orders are only written after the processor reports a successful intent,
// so there is no persisted pre-confirmation state.
type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)
