package services

import (
	"math"
	"time"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

// DefaultTaxRate is the PPN rate applied once to the post-coupon subtotal
const DefaultTaxRate = 0.12

// PriceBreakdown is the effective price of a single course at a given instant
type PriceBreakdown struct {
	Base               int64 `json:"base"`
	DiscountAmount     int64 `json:"discount_amount"`
	PriceAfterDiscount int64 `json:"price_after_discount"`
}

// Quote aggregates a set of line items into the amount the buyer pays.
// Tax is computed once on the post-coupon subtotal, never per line item, so
// rounding error does not compound.
type Quote struct {
	Subtotal       int64 `json:"subtotal"`
	CouponDiscount int64 `json:"coupon_discount"`
	Tax            int64 `json:"tax"`
	GrandTotal     int64 `json:"grand_total"`
}

// DiscountInEffect reports whether the course discount applies at now.
// A nil bound is unbounded on that side; both bounds absent means the
// discount is active whenever the flag is set.
func DiscountInEffect(c *models.Course, now time.Time) bool {
	if !c.DiscountActive || c.DiscountType == nil {
		return false
	}
	if c.DiscountStartAt != nil && now.Before(*c.DiscountStartAt) {
		return false
	}
	if c.DiscountEndAt != nil && now.After(*c.DiscountEndAt) {
		return false
	}
	return true
}

// EffectivePrice computes the price of a course at now. Pure function of the
// course pricing fields and the passed-in instant.
func EffectivePrice(c *models.Course, now time.Time) PriceBreakdown {
	var base int64
	if c.Price != nil {
		base = *c.Price
	}
	b := PriceBreakdown{Base: base, PriceAfterDiscount: base}
	if !DiscountInEffect(c, now) {
		return b
	}
	b.DiscountAmount = deduction(*c.DiscountType, c.DiscountValue, base)
	b.PriceAfterDiscount = base - b.DiscountAmount
	return b
}

// CouponDeduction computes how much a coupon takes off the given amount,
// clamped so the result never exceeds the amount.
func CouponDeduction(coupon *models.Coupon, amount int64) int64 {
	if coupon == nil {
		return 0
	}
	return deduction(coupon.Type, coupon.Value, amount)
}

func deduction(typ models.DiscountType, value, amount int64) int64 {
	if amount <= 0 || value <= 0 {
		return 0
	}
	var d int64
	switch typ {
	case models.DiscountPercent:
		// integer division floors for non-negative operands
		d = amount * value / 100
	case models.DiscountNominal:
		d = value
	default:
		return 0
	}
	if d > amount {
		d = amount
	}
	return d
}

// BuildQuote clamps the coupon deduction at the subtotal, applies tax half-up
// on what remains, and sums the grand total.
func BuildQuote(subtotal, couponDiscount int64, taxRate float64) Quote {
	if couponDiscount > subtotal {
		couponDiscount = subtotal
	}
	if couponDiscount < 0 {
		couponDiscount = 0
	}
	total := subtotal - couponDiscount
	tax := int64(math.Round(float64(total) * taxRate))
	return Quote{
		Subtotal:       subtotal,
		CouponDiscount: couponDiscount,
		Tax:            tax,
		GrandTotal:     total + tax,
	}
}
