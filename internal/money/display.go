package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var displayPrinter = message.NewPrinter(language.LatinAmericanSpanish)

// FormatAmount renders an amount with locale-aware digit grouping for
// receipts and listings, e.g. 1234.5 -> "1.234,50".
func FormatAmount(v float64) string {
	return displayPrinter.Sprintf("%.2f", Round2(v))
}
