package lib

import "fmt"

// Totals is the money breakdown of a cart or order, all in cents
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// ComputeTotals charges flat shipping on any non-empty subtotal and tax in
// basis points of the subtotal, rounded half up to the cent.
func ComputeTotals(subtotal, shippingFlat, taxBps int64) Totals {
	if subtotal <= 0 {
		return Totals{}
	}

	tax := (subtotal*taxBps + 5000) / 10000

	return Totals{
		Subtotal: subtotal,
		Shipping: shippingFlat,
		Tax:      tax,
		Total:    subtotal + shippingFlat + tax,
	}
}

// FormatCents renders cents as a decimal amount, e.g. 12345 -> "123.45"
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
