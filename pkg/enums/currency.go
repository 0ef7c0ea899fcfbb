package enums

// Currency is the settlement currency. Amounts are integers in the smallest
// denomination; JPY has no fractional unit.
type Currency string

const (
	CurrencyJPY Currency = "jpy"
)
