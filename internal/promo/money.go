package promo

import (
	"promo-engine/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns price * percent / 100 without rounding.
func percentOf(price, percent float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(percent)).Div(hundred)
}

// CommissionAmount is the salon commission for a booking in whole currency units,
// rounded half away from zero.
func CommissionAmount(originalPrice, totalPercent float64) float64 {
	return percentOf(originalPrice, totalPercent).Round(0).InexactFloat64()
}

// SplitCommission divides a commission into its early and final payout parts.
// The parts always sum to the total.
func SplitCommission(originalPrice float64, split model.CommissionSplit) (total, early, final float64) {
	t := percentOf(originalPrice, split.TotalPercent).Round(0)
	e := percentOf(originalPrice, split.EarlyPercent).Round(0)
	if e.GreaterThan(t) {
		e = t
	}
	return t.InexactFloat64(), e.InexactFloat64(), t.Sub(e).InexactFloat64()
}

// Discount is the amount taken off price by code, rounded to cents.
func Discount(code *model.PromoCode, price float64) float64 {
	if price <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(price)

	var d decimal.Decimal
	if s, ok := code.Variant.(*model.SalonReferral); ok && s.ClientDiscountPercent > 0 {
		d = percentOf(price, s.ClientDiscountPercent)
	} else {
		switch code.DiscountType {
		case model.DiscountPercentage:
			d = percentOf(price, code.DiscountValue)
			if code.MaxDiscount != nil {
				d = decimal.Min(d, decimal.NewFromFloat(*code.MaxDiscount))
			}
		case model.DiscountFixed:
			d = decimal.NewFromFloat(code.DiscountValue)
		}
	}

	d = decimal.Min(d, p)
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2).InexactFloat64()
}

// FinalPrice returns price minus discount, rounded to cents and never negative.
func FinalPrice(price, discount float64) float64 {
	f := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(discount)).Round(2)
	if f.IsNegative() {
		return 0
	}
	return f.InexactFloat64()
}

// MeetsMinimum reports whether price satisfies the code's minimum purchase.
// An absent price is not checked.
func MeetsMinimum(code *model.PromoCode, price *float64) bool {
	if price == nil || code.MinPurchase == nil {
		return true
	}
	return decimal.NewFromFloat(*price).GreaterThanOrEqual(decimal.NewFromFloat(*code.MinPurchase))
}

func addMoney(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

func subMoney(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}
