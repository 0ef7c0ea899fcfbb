package types

import "strings"

// Address is a Japanese shipping destination. It is stored as jsonb on the
// order row; the prefecture drives the shipping fee lookup.
type Address struct {
	PostalCode string  `json:"postal_code"`
	Prefecture string  `json:"prefecture"`
	City       string  `json:"city"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	Recipient  string  `json:"recipient,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// Region returns the normalized prefecture used for fee lookup. Empty when
// the address carries no usable destination.
func (a *Address) Region() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.Prefecture)
}

// HasDestination reports whether the address names a deliverable region.
func (a *Address) HasDestination() bool {
	return a.Region() != ""
}
