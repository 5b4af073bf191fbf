package service

import (
	"context"
	"errors"
	"time"

	"coupon_engine/internal/domain/coupon/model"
	"coupon_engine/internal/domain/coupon/repository"

	"github.com/shopspring/decimal"
)

// Validator 优惠券资格校验
type Validator struct {
	lookup func(ctx context.Context, code string) (*model.Coupon, error)
	ledger *Ledger
	now    func() time.Time
}

// NewValidator 创建校验器，now 为空时使用 time.Now
func NewValidator(repo repository.CouponRepository, ledger *Ledger, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{lookup: repo.FindByCode, ledger: ledger, now: now}
}

// within 返回绑定到事务的校验器，读取优惠券时加行锁
func (v *Validator) within(tx repository.CouponRepository) *Validator {
	return &Validator{lookup: tx.LockByCode, ledger: v.ledger.within(tx), now: v.now}
}

// Validate 按顺序校验：存在 -> 未过期 -> 已生效 -> 满足门槛 -> 未超出次数，遇到第一个失败即返回
func (v *Validator) Validate(ctx context.Context, code string, cartValue decimal.Decimal) (*model.Coupon, error) {
	coupon, err := v.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return nil, &RejectionError{Reason: ReasonNotFound, Code: code, Now: v.now()}
		}
		return nil, err
	}

	if err := v.check(ctx, coupon, cartValue); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (v *Validator) check(ctx context.Context, coupon *model.Coupon, cartValue decimal.Decimal) error {
	now := v.now()

	// 到期时刻本身即视为已过期
	if coupon.EndDate != nil && !now.Before(*coupon.EndDate) {
		return &RejectionError{
			Reason:    ReasonExpired,
			Code:      coupon.Code,
			Now:       now,
			StartDate: coupon.StartDate,
			EndDate:   coupon.EndDate,
		}
	}

	if coupon.StartDate != nil && now.Before(*coupon.StartDate) {
		return &RejectionError{
			Reason:    ReasonNotYetActive,
			Code:      coupon.Code,
			Now:       now,
			StartDate: coupon.StartDate,
			EndDate:   coupon.EndDate,
		}
	}

	if cartValue.LessThan(coupon.MinPurchaseAmount) {
		return &RejectionError{
			Reason:            ReasonBelowMinimum,
			Code:              coupon.Code,
			Now:               now,
			CartValue:         cartValue,
			MinPurchaseAmount: coupon.MinPurchaseAmount,
		}
	}

	if coupon.HasUsageLimit() {
		count, err := v.ledger.Count(ctx, coupon.ID)
		if err != nil {
			return err
		}
		if count >= *coupon.UsageLimit {
			return &RejectionError{
				Reason:     ReasonUsageLimitReached,
				Code:       coupon.Code,
				Now:        now,
				UsageCount: count,
				UsageLimit: *coupon.UsageLimit,
			}
		}
	}

	return nil
}
