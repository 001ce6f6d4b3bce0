package model

import "math"

// DiscountResult is the outcome of applying a code's discount to a subtotal,
// for downstream payment-flow consumption.
type DiscountResult struct {
	Amount        float64
	Percentage    float64
	FinalSubtotal float64
}

// ApplyDiscount computes the discount a code grants on a subtotal. Fixed
// discounts are capped at the subtotal; values are rounded to cents.
func ApplyDiscount(subtotal float64, discountType DiscountType, value float64) DiscountResult {
	if subtotal <= 0 || value <= 0 {
		return DiscountResult{FinalSubtotal: subtotal}
	}
	var amount float64
	switch discountType {
	case DiscountPercent:
		amount = subtotal * value / 100
	case DiscountFixed:
		amount = value
	default:
		return DiscountResult{FinalSubtotal: subtotal}
	}
	amount = math.Min(amount, subtotal)
	round := func(f float64) float64 { return math.Round(f*100) / 100 }
	return DiscountResult{
		Amount:        round(amount),
		Percentage:    round(amount / subtotal * 100),
		FinalSubtotal: round(subtotal - amount),
	}
}
