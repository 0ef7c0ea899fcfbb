package shipping

import "strings"

// DefaultFee applies when the destination prefecture is missing or unknown.
const DefaultFee = 800

// feeByPrefecture maps each of the 47 prefectures to a flat shipping fee in yen.
// Rates follow the carrier zone table: Kanto/Kansai core 700, outlying
// regions step up, Okinawa and Hokkaido highest.
var feeByPrefecture = map[string]int{
	"hokkaido":  1200,
	"aomori":    1000,
	"iwate":     1000,
	"miyagi":    900,
	"akita":     1000,
	"yamagata":  900,
	"fukushima": 900,
	"ibaraki":   700,
	"tochigi":   700,
	"gunma":     700,
	"saitama":   700,
	"chiba":     700,
	"tokyo":     700,
	"kanagawa":  700,
	"niigata":   800,
	"toyama":    800,
	"ishikawa":  800,
	"fukui":     800,
	"yamanashi": 700,
	"nagano":    800,
	"gifu":      800,
	"shizuoka":  700,
	"aichi":     800,
	"mie":       800,
	"shiga":     700,
	"kyoto":     700,
	"osaka":     700,
	"hyogo":     700,
	"nara":      700,
	"wakayama":  800,
	"tottori":   900,
	"shimane":   900,
	"okayama":   900,
	"hiroshima": 900,
	"yamaguchi": 900,
	"tokushima": 900,
	"kagawa":    900,
	"ehime":     900,
	"kochi":     1000,
	"fukuoka":   1000,
	"saga":      1000,
	"nagasaki":  1000,
	"kumamoto":  1000,
	"oita":      1000,
	"miyazaki":  1100,
	"kagoshima": 1100,
	"okinawa":   1400,
}

// Fee returns the shipping fee in yen for a destination prefecture.
// Seller-pays carts ship free for the buyer regardless of destination.
func Fee(region string, buyerPaysShipping bool) int {
	if !buyerPaysShipping {
		return 0
	}
	key := normalizeRegion(region)
	if fee, ok := feeByPrefecture[key]; ok {
		return fee
	}
	return DefaultFee
}

func normalizeRegion(region string) string {
	key := strings.ToLower(strings.TrimSpace(region))
	for _, suffix := range []string{"-to", "-fu", "-ken", "-dō", "-do"} {
		if trimmed, ok := strings.CutSuffix(key, suffix); ok {
			key = trimmed
			break
		}
	}
	return key
}
