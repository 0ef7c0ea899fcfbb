package enums

// UnavailabilityReason explains why a cart item failed the availability gate.
type UnavailabilityReason string

const (
	UnavailabilityReasonSold     UnavailabilityReason = "sold"
	UnavailabilityReasonReserved UnavailabilityReason = "reserved"
	UnavailabilityReasonNotFound UnavailabilityReason = "not_found"
)
