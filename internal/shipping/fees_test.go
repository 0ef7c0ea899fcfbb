package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFee(t *testing.T) {
	tests := []struct {
		name      string
		region    string
		buyerPays bool
		want      int
	}{
		{name: "tokyo buyer pays", region: "Tokyo", buyerPays: true, want: 700},
		{name: "tokyo with suffix", region: "Tokyo-to", buyerPays: true, want: 700},
		{name: "osaka with suffix", region: "Osaka-fu", buyerPays: true, want: 700},
		{name: "hokkaido", region: "Hokkaido", buyerPays: true, want: 1200},
		{name: "okinawa", region: "Okinawa", buyerPays: true, want: 1400},
		{name: "case and spacing", region: "  kanagawa ", buyerPays: true, want: 700},
		{name: "unknown region falls back", region: "Atlantis", buyerPays: true, want: DefaultFee},
		{name: "empty region falls back", region: "", buyerPays: true, want: DefaultFee},
		{name: "seller pays always zero", region: "Okinawa", buyerPays: false, want: 0},
		{name: "seller pays unknown region", region: "", buyerPays: false, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fee(tc.region, tc.buyerPays))
		})
	}
}

func TestFeeTableCoversAllPrefectures(t *testing.T) {
	assert.Len(t, feeByPrefecture, 47)
	for prefecture, fee := range feeByPrefecture {
		assert.Greater(t, fee, 0, "prefecture %s", prefecture)
	}
}
