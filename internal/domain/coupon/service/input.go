package service

import (
	"strings"
	"time"

	"coupon_engine/internal/domain/coupon/model"

	"github.com/shopspring/decimal"
)

const maxCodeLength = 64

// CreateCouponInput 创建优惠券参数
type CreateCouponInput struct {
	Code              string
	Type              model.DiscountType
	Value             decimal.Decimal
	MinPurchaseAmount *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         *time.Time
	EndDate           *time.Time
	UsageLimit        *int64
	CreatedBy         string
}

// Validate 检查全部字段，返回所有违规项
func (in CreateCouponInput) Validate() error {
	var vs []Violation
	add := func(field, msg string) {
		vs = append(vs, Violation{Field: field, Message: msg})
	}

	code := strings.TrimSpace(in.Code)
	switch {
	case code == "":
		add("code", "is required")
	case code != in.Code:
		add("code", "must not have leading or trailing spaces")
	case len(code) > maxCodeLength:
		add("code", "must be at most 64 characters")
	}

	switch in.Type {
	case model.DiscountPercentage:
		if in.Value.IsNegative() || in.Value.GreaterThan(hundred) {
			add("value", "must be between 0 and 100 for PERCENTAGE coupons")
		}
	case model.DiscountFixed:
		if in.Value.IsNegative() {
			add("value", "must not be negative")
		}
	default:
		add("type", "must be PERCENTAGE or FIXED")
	}
	if !hasScale2(in.Value) {
		add("value", "must have at most 2 decimal places")
	}

	if in.MinPurchaseAmount != nil {
		if in.MinPurchaseAmount.IsNegative() {
			add("minPurchaseAmount", "must not be negative")
		} else if !hasScale2(*in.MinPurchaseAmount) {
			add("minPurchaseAmount", "must have at most 2 decimal places")
		}
	}
	if in.MaxDiscountAmount != nil {
		if in.MaxDiscountAmount.IsNegative() {
			add("maxDiscountAmount", "must not be negative")
		} else if !hasScale2(*in.MaxDiscountAmount) {
			add("maxDiscountAmount", "must have at most 2 decimal places")
		}
	}

	if in.StartDate != nil && in.EndDate != nil && !in.StartDate.Before(*in.EndDate) {
		add("endDate", "must be after startDate")
	}

	if in.UsageLimit != nil && *in.UsageLimit < 1 {
		add("usageLimit", "must be at least 1")
	}

	if len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

func (in CreateCouponInput) toCoupon() *model.Coupon {
	c := &model.Coupon{
		Code:              in.Code,
		Type:              in.Type,
		Value:             in.Value,
		MinPurchaseAmount: decimal.Zero,
		CreatedBy:         in.CreatedBy,
	}
	if in.MinPurchaseAmount != nil {
		c.MinPurchaseAmount = *in.MinPurchaseAmount
	}
	if in.MaxDiscountAmount != nil {
		c.MaxDiscountAmount = decimal.NewNullDecimal(*in.MaxDiscountAmount)
	}
	if in.StartDate != nil {
		t := in.StartDate.UTC()
		c.StartDate = &t
	}
	if in.EndDate != nil {
		t := in.EndDate.UTC()
		c.EndDate = &t
	}
	if in.UsageLimit != nil {
		limit := *in.UsageLimit
		c.UsageLimit = &limit
	}
	return c
}

// 数据库列为 decimal(20,2)，超出精度的输入直接拒绝而不是静默截断
func hasScale2(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
