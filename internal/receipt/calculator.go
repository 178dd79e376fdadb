package receipt

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ItemInput is one editable item row. Quantity and UnitPrice hold raw user text.
type ItemInput struct {
	Name      string `json:"name"`
	Quantity  string `json:"qty"`
	Unit      string `json:"unit"`
	UnitPrice string `json:"price"`
}

// Blank reports whether every field of the row is empty
func (it ItemInput) Blank() bool {
	return strings.TrimSpace(it.Name) == "" && strings.TrimSpace(it.Quantity) == "" &&
		strings.TrimSpace(it.Unit) == "" && strings.TrimSpace(it.UnitPrice) == ""
}

// Adjustments are the editable amounts applied on top of the items subtotal
type Adjustments struct {
	DiscountTotal string `json:"discount_total"`
	ServiceCharge string `json:"service_charge"`
	ShippingFee   string `json:"shipping_fee"`
	VATAmount     string `json:"vat_amount"`
}

// Totals is the result of a full recomputation
type Totals struct {
	Lines         []decimal.Decimal
	ItemsSubtotal decimal.Decimal
	NetTotal      decimal.Decimal
}

// Amounts outside these bounds are treated as malformed input
const (
	maxAmountLength   = 64
	maxAmountDigits   = 20
	maxAmountExponent = 20
)

// parseSignedAmount parses decimal text, keeping its sign. It reports false for
// empty, malformed or out-of-range input.
func parseSignedAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || len(s) > maxAmountLength {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent || d.NumDigits() > maxAmountDigits {
		return decimal.Zero, false
	}
	return d, true
}

// ParseAmount parses user-entered decimal text. Thousands separators are ignored.
// Empty, malformed, out-of-range and negative input all yield zero so a
// half-typed field never breaks the running totals.
func ParseAmount(s string) decimal.Decimal {
	d, ok := parseSignedAmount(s)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Calculate recomputes every line total, the items subtotal and the net total.
// Lines are summed at full precision; rounding happens only in the Display helpers.
// VAT is informational and does not enter the net total.
func Calculate(items []ItemInput, adj Adjustments) Totals {
	t := Totals{
		Lines:         make([]decimal.Decimal, len(items)),
		ItemsSubtotal: decimal.Zero,
	}
	for i, it := range items {
		line := ParseAmount(it.Quantity).Mul(ParseAmount(it.UnitPrice))
		t.Lines[i] = line
		t.ItemsSubtotal = t.ItemsSubtotal.Add(line)
	}
	t.NetTotal = t.ItemsSubtotal.
		Add(ParseAmount(adj.ServiceCharge)).
		Add(ParseAmount(adj.ShippingFee)).
		Sub(ParseAmount(adj.DiscountTotal))
	return t
}

// DisplayAmount renders d with two decimal places
func DisplayAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// DisplayNet renders the net total for display, clamped at zero
func DisplayNet(d decimal.Decimal) string {
	if d.IsNegative() {
		return decimal.Zero.StringFixed(2)
	}
	return d.StringFixed(2)
}

// DefaultVATRate is the Thai standard VAT rate in percent
const DefaultVATRate = 7

// VATBreakdown splits a VAT-inclusive total into the VAT portion and the amount before VAT
func VATBreakdown(total decimal.Decimal, ratePercent int64) (vat, beforeVAT decimal.Decimal) {
	rate := decimal.NewFromInt(ratePercent)
	vat = total.Mul(rate).Div(rate.Add(decimal.NewFromInt(100)))
	return vat, total.Sub(vat)
}
