package domain

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatStat renders a number with thousands separators, rounded to an
// integer. NaN and infinities render as "0".
func FormatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return printer.Sprintf("%d", int64(math.Round(v)))
}

// FormatCount renders an integer counter.
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatOptional renders a possibly absent counter; nil renders as "0".
func FormatOptional(n *int64) string {
	if n == nil {
		return "0"
	}
	return FormatCount(*n)
}
