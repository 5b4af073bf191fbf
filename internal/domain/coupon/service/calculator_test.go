package service

import (
	"testing"

	"coupon_engine/internal/domain/coupon/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func percentCoupon(value string, maxDiscount *string) *model.Coupon {
	c := &model.Coupon{Code: "PCT", Type: model.DiscountPercentage, Value: dec(value)}
	if maxDiscount != nil {
		c.MaxDiscountAmount = decimal.NewNullDecimal(dec(*maxDiscount))
	}
	return c
}

func fixedCoupon(value string) *model.Coupon {
	return &model.Coupon{Code: "FIX", Type: model.DiscountFixed, Value: dec(value)}
}

func strPtr(s string) *string { return &s }

func TestComputeDiscount(t *testing.T) {
	tests := []struct {
		name         string
		coupon       *model.Coupon
		total        string
		wantDiscount string
		wantTotal    string
	}{
		{"percentage clamped by cap", percentCoupon("10", strPtr("100")), "2000", "100", "1900"},
		{"percentage equal to cap", percentCoupon("10", strPtr("100")), "1000", "100", "900"},
		{"percentage under cap", percentCoupon("10", strPtr("100")), "500", "50", "450"},
		{"percentage without cap", percentCoupon("25", nil), "80", "20", "60"},
		{"fixed larger than order", fixedCoupon("10"), "5", "5", "0"},
		{"fixed smaller than order", fixedCoupon("10"), "35.50", "10", "25.50"},
		{"fixed ignores cap", &model.Coupon{Type: model.DiscountFixed, Value: dec("30"), MaxDiscountAmount: decimal.NewNullDecimal(dec("5"))}, "100", "30", "70"},
		{"hundred percent", percentCoupon("100", nil), "42.42", "42.42", "0"},
		{"zero percent", percentCoupon("0", nil), "42.42", "0", "42.42"},
		{"zero total", percentCoupon("50", nil), "0", "0", "0"},
		{"rounds half up", percentCoupon("12.5", nil), "0.36", "0.05", "0.31"},
		{"rounds half up on cents", percentCoupon("15", nil), "10.01", "1.50", "8.51"},
		{"rounds down below half", percentCoupon("33", nil), "10.01", "3.30", "6.71"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDiscount(tt.coupon, dec(tt.total))
			assert.True(t, dec(tt.wantDiscount).Equal(got.Amount), "discount: want %s got %s", tt.wantDiscount, got.Amount)
			assert.True(t, dec(tt.wantTotal).Equal(got.NewTotal), "total: want %s got %s", tt.wantTotal, got.NewTotal)
		})
	}
}

func TestComputeDiscount_Bounds(t *testing.T) {
	coupons := []*model.Coupon{
		percentCoupon("0", nil),
		percentCoupon("7.5", nil),
		percentCoupon("50", strPtr("12.34")),
		percentCoupon("100", nil),
		fixedCoupon("0"),
		fixedCoupon("19.99"),
		fixedCoupon("1000"),
	}
	totals := []string{"0", "0.01", "0.99", "12.34", "19.99", "100", "99999.99"}

	for _, c := range coupons {
		for _, total := range totals {
			orderTotal := dec(total)
			got := ComputeDiscount(c, orderTotal)

			assert.False(t, got.Amount.IsNegative(), "%s %s on %s", c.Type, c.Value, total)
			assert.True(t, got.Amount.LessThanOrEqual(orderTotal), "%s %s on %s", c.Type, c.Value, total)
			assert.False(t, got.NewTotal.IsNegative(), "%s %s on %s", c.Type, c.Value, total)
			assert.True(t, got.Amount.Add(got.NewTotal).Equal(orderTotal), "%s %s on %s", c.Type, c.Value, total)

			if c.Type == model.DiscountPercentage && c.MaxDiscountAmount.Valid {
				assert.True(t, got.Amount.LessThanOrEqual(c.MaxDiscountAmount.Decimal))
			}
		}
	}
}

func TestComputeDiscount_NegativeTotalTreatedAsZero(t *testing.T) {
	got := ComputeDiscount(fixedCoupon("10"), dec("-5"))
	assert.True(t, got.Amount.IsZero())
	assert.True(t, got.NewTotal.IsZero())
}

func TestComputeDiscount_ClampKeepsCents(t *testing.T) {
	got := ComputeDiscount(fixedCoupon("10"), dec("5.005"))

	assert.True(t, dec("5").Equal(got.Amount), got.Amount.String())
	assert.True(t, hasScale2(got.Amount))
	assert.True(t, got.Amount.LessThanOrEqual(dec("5.005")))
	assert.True(t, dec("0.005").Equal(got.NewTotal))
}
