package enums

// PaymentStatus tracks funds movement on an order as reported by the
// payment processor.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// paymentStatusRank orders statuses so reconciliation never moves an order
// backwards when webhook events arrive out of order.
var paymentStatusRank = map[PaymentStatus]int{
	PaymentStatusPending:   0,
	PaymentStatusFailed:    1,
	PaymentStatusCompleted: 2,
	PaymentStatusRefunded:  3,
}

// Rank returns the monotonic ordering weight for the status. Unknown values
// rank lowest so they can never displace a terminal state.
func (s PaymentStatus) Rank() int {
	if rank, ok := paymentStatusRank[s]; ok {
		return rank
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is a forward
// transition.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return next.Rank() > s.Rank()
}
