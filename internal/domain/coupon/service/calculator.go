package service

import (
	"coupon_engine/internal/domain/coupon/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount 折扣计算结果
type Discount struct {
	Amount   decimal.Decimal `json:"discount"`
	NewTotal decimal.Decimal `json:"total"`
}

// ComputeDiscount 计算优惠金额和优惠后总价，纯函数
//
// 百分比券按比例计算并受 MaxDiscountAmount 封顶，固定金额券不受封顶影响。
// 优惠金额保留两位小数（四舍五入），并且不会超过订单总额，新总价不会为负。
// 被订单总额截断时向下取到分。
func ComputeDiscount(coupon *model.Coupon, orderTotal decimal.Decimal) Discount {
	if orderTotal.IsNegative() {
		orderTotal = decimal.Zero
	}

	var amount decimal.Decimal
	switch coupon.Type {
	case model.DiscountPercentage:
		amount = orderTotal.Mul(coupon.Value).Div(hundred)
		if coupon.MaxDiscountAmount.Valid && amount.GreaterThan(coupon.MaxDiscountAmount.Decimal) {
			amount = coupon.MaxDiscountAmount.Decimal
		}
	case model.DiscountFixed:
		amount = coupon.Value
	}

	// 非负数下 Round 即四舍五入（half-up）
	amount = amount.Round(2)

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(orderTotal) {
		// 总额超过两位小数时向下截断，优惠仍不超过总额
		amount = orderTotal.Truncate(2)
	}

	return Discount{
		Amount:   amount,
		NewTotal: orderTotal.Sub(amount),
	}
}
