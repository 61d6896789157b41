// Package pricing holds the cart money math shared by checkout and order
// creation.
package pricing

import (
	"errors"
	"regexp"

	"pharmacy-portal/internal/model"

	"github.com/shopspring/decimal"
)

var ErrNoPrice = errors.New("no price in label")

var hundred = decimal.NewFromInt(100)

// Line is the priced input of one cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// ComputeTotals prices lines: tax is rounded to cents, discount is always zero.
func ComputeTotals(lines []Line, taxRate, shipping decimal.Decimal) model.Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.UnitPrice, l.Quantity))
	}
	tax := subtotal.Mul(taxRate).Round(2)
	discount := decimal.Zero

	return model.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}
}

func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// ToMinorUnits converts a currency amount to integer cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

var labelPrice = regexp.MustCompile(`\(\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)\)`)

// ParseLabelPrice extracts the last "($12.34)" amount from a display label,
// e.g. "Testosterone Cypionate 100 mg/mL ($45.00)".
func ParseLabelPrice(label string) (decimal.Decimal, error) {
	matches := labelPrice.FindAllStringSubmatch(label, -1)
	if len(matches) == 0 {
		return decimal.Zero, ErrNoPrice
	}
	raw := matches[len(matches)-1][1]
	clean := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] != ',' {
			clean = append(clean, raw[i])
		}
	}
	return decimal.NewFromString(string(clean))
}
