package model

import (
	"time"

	baseModel "coupon_engine/pkg/model"

	"github.com/shopspring/decimal"
)

// DiscountType 优惠类型
type DiscountType string

const (
	// DiscountPercentage 按比例折扣，Value 取值 0-100
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixed 固定金额立减
	DiscountFixed DiscountType = "FIXED"
)

// Valid 是否为受支持的优惠类型
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Coupon 优惠券定义
type Coupon struct {
	baseModel.BaseModel
	Code              string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Type              DiscountType        `gorm:"type:varchar(16);not null" json:"type"`
	Value             decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"value"`
	MinPurchaseAmount decimal.Decimal     `gorm:"type:decimal(20,2);not null;default:0" json:"minPurchaseAmount"`
	MaxDiscountAmount decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"maxDiscountAmount"` // 仅对 PERCENTAGE 生效
	StartDate         *time.Time          `json:"startDate,omitempty"`
	EndDate           *time.Time          `json:"endDate,omitempty"`
	UsageLimit        *int64              `json:"usageLimit,omitempty"` // 为空表示不限次数
	CreatedBy         string              `gorm:"type:varchar(64)" json:"createdBy"`
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// HasUsageLimit 是否设置了总使用次数上限
func (c *Coupon) HasUsageLimit() bool {
	return c.UsageLimit != nil
}

// CouponUsage 优惠券使用记录，只追加不修改
type CouponUsage struct {
	baseModel.BaseModel
	CouponID string    `gorm:"type:uuid;index;not null" json:"couponId"`
	UserID   string    `gorm:"type:varchar(64);index;not null" json:"userId"`
	UsedAt   time.Time `gorm:"not null" json:"usedAt"`
}

// TableName 指定表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
