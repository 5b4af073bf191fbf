package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reason 业务拒绝原因
type Reason string

const (
	ReasonNotFound          Reason = "NOT_FOUND"
	ReasonExpired           Reason = "EXPIRED"
	ReasonNotYetActive      Reason = "NOT_YET_ACTIVE"
	ReasonBelowMinimum      Reason = "BELOW_MINIMUM"
	ReasonUsageLimitReached Reason = "USAGE_LIMIT_REACHED"
)

// 每种拒绝原因对应的哨兵错误，可用 errors.Is 判断
var (
	ErrCouponNotFound          = errors.New("coupon not found")
	ErrCouponExpired           = errors.New("coupon expired")
	ErrCouponNotYetActive      = errors.New("coupon not yet active")
	ErrCouponBelowMinimum      = errors.New("cart value below coupon minimum")
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

var reasonSentinels = map[Reason]error{
	ReasonNotFound:          ErrCouponNotFound,
	ReasonExpired:           ErrCouponExpired,
	ReasonNotYetActive:      ErrCouponNotYetActive,
	ReasonBelowMinimum:      ErrCouponBelowMinimum,
	ReasonUsageLimitReached: ErrCouponUsageLimitReached,
}

// RejectionError 校验未通过。它是预期内的业务结果，不是系统故障。
// 除 Reason 和 Code 外，只填充与该原因相关的上下文字段。
type RejectionError struct {
	Reason Reason
	Code   string
	Now    time.Time

	StartDate *time.Time
	EndDate   *time.Time

	CartValue         decimal.Decimal
	MinPurchaseAmount decimal.Decimal

	UsageCount int64
	UsageLimit int64
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case ReasonNotFound:
		return fmt.Sprintf("coupon %q not found", e.Code)
	case ReasonExpired:
		return fmt.Sprintf("coupon %q expired at %s", e.Code, formatTime(e.EndDate))
	case ReasonNotYetActive:
		return fmt.Sprintf("coupon %q is not active until %s", e.Code, formatTime(e.StartDate))
	case ReasonBelowMinimum:
		return fmt.Sprintf("coupon %q requires a minimum purchase of %s, cart value is %s",
			e.Code, e.MinPurchaseAmount.StringFixed(2), e.CartValue.StringFixed(2))
	case ReasonUsageLimitReached:
		return fmt.Sprintf("coupon %q usage limit reached (%d/%d)", e.Code, e.UsageCount, e.UsageLimit)
	}
	return fmt.Sprintf("coupon %q rejected: %s", e.Code, e.Reason)
}

// Unwrap 返回拒绝原因对应的哨兵错误
func (e *RejectionError) Unwrap() error {
	return reasonSentinels[e.Reason]
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// ConflictError 优惠码重复
type ConflictError struct {
	Code string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("coupon code %q already exists", e.Code)
}

// Violation 单个字段的校验失败
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 输入参数不合法，包含全部违规项
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// AsRejection 提取业务拒绝信息
func AsRejection(err error) (*RejectionError, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
