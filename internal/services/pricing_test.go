package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

func discountedCourse(price int64, typ models.DiscountType, value int64, active bool, start, end *time.Time) *models.Course {
	return &models.Course{
		Price:           &price,
		DiscountType:    &typ,
		DiscountValue:   value,
		DiscountActive:  active,
		DiscountStartAt: start,
		DiscountEndAt:   end,
	}
}

func TestEffectivePriceNoDiscount(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		course *models.Course
	}{
		{
			name:   "no discount configured",
			course: &models.Course{Price: intPtr(100000)},
		},
		{
			name:   "flag off",
			course: discountedCourse(100000, models.DiscountPercent, 10, false, nil, nil),
		},
		{
			name: "window not started",
			course: discountedCourse(100000, models.DiscountPercent, 10, true,
				timePtr(now.Add(24*time.Hour)), nil),
		},
		{
			name: "window ended",
			course: discountedCourse(100000, models.DiscountPercent, 10, true,
				nil, timePtr(now.Add(-24*time.Hour))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := EffectivePrice(tt.course, now)
			assert.Equal(t, int64(100000), b.Base)
			assert.Equal(t, int64(0), b.DiscountAmount)
			assert.Equal(t, int64(100000), b.PriceAfterDiscount)
		})
	}
}

func TestEffectivePricePercent(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		base      int64
		value     int64
		wantDisc  int64
		wantAfter int64
	}{
		{"ten percent", 100000, 10, 10000, 90000},
		{"floors fractional result", 99999, 10, 9999, 90000},
		{"full discount", 100000, 100, 100000, 0},
		{"over 100 percent clamps at base", 100000, 150, 100000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := discountedCourse(tt.base, models.DiscountPercent, tt.value, true, nil, nil)
			b := EffectivePrice(c, now)
			assert.Equal(t, tt.wantDisc, b.DiscountAmount)
			assert.Equal(t, tt.wantAfter, b.PriceAfterDiscount)
			assert.GreaterOrEqual(t, b.DiscountAmount, int64(0))
			assert.LessOrEqual(t, b.DiscountAmount, tt.base)
		})
	}
}

func TestEffectivePriceNominal(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		base      int64
		value     int64
		wantAfter int64
	}{
		{"simple deduction", 100000, 25000, 75000},
		{"exceeds base clamps at zero", 50000, 60000, 0},
		{"exact base", 50000, 50000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := discountedCourse(tt.base, models.DiscountNominal, tt.value, true, nil, nil)
			b := EffectivePrice(c, now)
			assert.Equal(t, tt.wantAfter, b.PriceAfterDiscount)
		})
	}
}

func TestEffectivePriceWindowBounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := discountedCourse(100000, models.DiscountPercent, 10, true,
		timePtr(now.Add(-time.Hour)), timePtr(now.Add(time.Hour)))

	b := EffectivePrice(c, now)
	assert.Equal(t, int64(10000), b.DiscountAmount)

	// open-ended on both sides is always active while flagged
	c2 := discountedCourse(100000, models.DiscountPercent, 10, true, nil, nil)
	assert.Equal(t, int64(10000), EffectivePrice(c2, now).DiscountAmount)
}

func TestEffectivePriceUnsetPrice(t *testing.T) {
	b := EffectivePrice(&models.Course{}, time.Now())
	assert.Equal(t, int64(0), b.Base)
	assert.Equal(t, int64(0), b.PriceAfterDiscount)
}

func TestBuildQuote(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		coupon   int64
		want     Quote
	}{
		{
			// 100000 with 10% discount plus a 5000 nominal coupon
			name:     "discounted course with coupon",
			subtotal: 90000,
			coupon:   5000,
			want:     Quote{Subtotal: 90000, CouponDiscount: 5000, Tax: 10200, GrandTotal: 95200},
		},
		{
			// cart: 100000 at 10% off plus 50000 undiscounted
			name:     "two line cart",
			subtotal: 140000,
			coupon:   0,
			want:     Quote{Subtotal: 140000, CouponDiscount: 0, Tax: 16800, GrandTotal: 156800},
		},
		{
			name:     "coupon clamped at subtotal",
			subtotal: 10000,
			coupon:   50000,
			want:     Quote{Subtotal: 10000, CouponDiscount: 10000, Tax: 0, GrandTotal: 0},
		},
		{
			name:     "tax rounds to nearest",
			subtotal: 104,
			coupon:   0,
			// 104 * 0.12 = 12.48 rounds to 12
			want: Quote{Subtotal: 104, CouponDiscount: 0, Tax: 12, GrandTotal: 116},
		},
		{
			name:     "zero subtotal",
			subtotal: 0,
			coupon:   0,
			want:     Quote{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuote(tt.subtotal, tt.coupon, DefaultTaxRate))
		})
	}
}

func TestCouponDeduction(t *testing.T) {
	percent := &models.Coupon{Type: models.DiscountPercent, Value: 10}
	assert.Equal(t, int64(9000), CouponDeduction(percent, 90000))

	nominal := &models.Coupon{Type: models.DiscountNominal, Value: 5000}
	assert.Equal(t, int64(5000), CouponDeduction(nominal, 90000))
	assert.Equal(t, int64(3000), CouponDeduction(nominal, 3000))

	assert.Equal(t, int64(0), CouponDeduction(nil, 90000))
	assert.Equal(t, int64(0), CouponDeduction(nominal, 0))
}
