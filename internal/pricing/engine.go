// Package pricing computes quote and invoice totals. All computation is
// pure: there is no I/O and the result depends only on the inputs.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	DiscountNone    DiscountKind = "NONE"
	DiscountFlat    DiscountKind = "FLAT"
	DiscountPercent DiscountKind = "PERCENT"
)

// Discount is a header-level discount, either a flat amount or a
// percentage of the subtotal.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// LineItem is one priced line of a quote.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// TaxRate is a named percentage applied to the discounted subtotal.
type TaxRate struct {
	Name    string
	Percent decimal.Decimal
}

// TaxLine is one computed tax amount in a Breakdown.
type TaxLine struct {
	Name    string
	Percent decimal.Decimal
	Amount  decimal.Decimal
}

// Breakdown is the full pricing result. Amounts are kept at full
// precision; call Rounded before displaying or persisting.
type Breakdown struct {
	Subtotal           decimal.Decimal
	DiscountAmount     decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	Taxes              []TaxLine
	TaxTotal           decimal.Decimal
	Shipping           decimal.Decimal
	Total              decimal.Decimal
}

// ValidationError reports malformed numeric input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pricing: invalid %s: %s", e.Field, e.Reason)
}

var hundred = decimal.NewFromInt(100)

// Compute produces a deterministic pricing breakdown. The computation
// order is fixed: line subtotals are summed, the discount is applied to
// the subtotal (clamped at zero), each tax rate is applied to the
// discounted subtotal independently, and shipping is added last.
// Intermediate amounts are not rounded.
func Compute(items []LineItem, discount Discount, taxRates []TaxRate, shipping decimal.Decimal) (Breakdown, error) {
	if err := validate(items, discount, taxRates, shipping); err != nil {
		return Breakdown{}, err
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Quantity.Mul(it.UnitPrice))
	}

	discountAmount := decimal.Zero
	switch discount.Kind {
	case DiscountFlat:
		discountAmount = discount.Value
	case DiscountPercent:
		discountAmount = subtotal.Mul(discount.Value).Div(hundred)
	}
	if discountAmount.GreaterThan(subtotal) {
		discountAmount = subtotal
	}
	discounted := subtotal.Sub(discountAmount)

	taxes := make([]TaxLine, 0, len(taxRates))
	taxTotal := decimal.Zero
	for _, rate := range taxRates {
		amount := discounted.Mul(rate.Percent).Div(hundred)
		taxes = append(taxes, TaxLine{Name: rate.Name, Percent: rate.Percent, Amount: amount})
		taxTotal = taxTotal.Add(amount)
	}

	return Breakdown{
		Subtotal:           subtotal,
		DiscountAmount:     discountAmount,
		DiscountedSubtotal: discounted,
		Taxes:              taxes,
		TaxTotal:           taxTotal,
		Shipping:           shipping,
		Total:              discounted.Add(taxTotal).Add(shipping),
	}, nil
}

// LineSubtotal returns quantity times unit price for a single line.
func LineSubtotal(item LineItem) decimal.Decimal {
	return item.Quantity.Mul(item.UnitPrice)
}

// Rounded returns a copy with every amount rounded to two decimals.
// Rounding happens only here, never between computation steps.
func (b Breakdown) Rounded() Breakdown {
	out := Breakdown{
		Subtotal:           b.Subtotal.Round(2),
		DiscountAmount:     b.DiscountAmount.Round(2),
		DiscountedSubtotal: b.DiscountedSubtotal.Round(2),
		TaxTotal:           b.TaxTotal.Round(2),
		Shipping:           b.Shipping.Round(2),
		Total:              b.Total.Round(2),
	}
	out.Taxes = make([]TaxLine, len(b.Taxes))
	for i, t := range b.Taxes {
		out.Taxes[i] = TaxLine{Name: t.Name, Percent: t.Percent, Amount: t.Amount.Round(2)}
	}
	return out
}

func validate(items []LineItem, discount Discount, taxRates []TaxRate, shipping decimal.Decimal) error {
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			return &ValidationError{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Reason: "must be greater than zero",
			}
		}
		if it.UnitPrice.IsNegative() {
			return &ValidationError{
				Field:  fmt.Sprintf("items[%d].unit_price", i),
				Reason: "must not be negative",
			}
		}
	}
	switch discount.Kind {
	case DiscountNone, "":
	case DiscountFlat:
		if discount.Value.IsNegative() {
			return &ValidationError{Field: "discount.value", Reason: "must not be negative"}
		}
	case DiscountPercent:
		if discount.Value.IsNegative() || discount.Value.GreaterThan(hundred) {
			return &ValidationError{Field: "discount.value", Reason: "must be between 0 and 100"}
		}
	default:
		return &ValidationError{Field: "discount.kind", Reason: fmt.Sprintf("unknown kind %q", discount.Kind)}
	}
	for i, rate := range taxRates {
		if rate.Percent.IsNegative() || rate.Percent.GreaterThan(hundred) {
			return &ValidationError{
				Field:  fmt.Sprintf("tax_rates[%d].percent", i),
				Reason: "must be between 0 and 100",
			}
		}
	}
	if shipping.IsNegative() {
		return &ValidationError{Field: "shipping", Reason: "must not be negative"}
	}
	return nil
}
