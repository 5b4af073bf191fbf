package service

import (
	"context"

	"coupon_engine/internal/domain/coupon/model"
	"coupon_engine/internal/domain/coupon/repository"
)

// Ledger 使用记录账本，coupon_usages 的唯一写入方
type Ledger struct {
	repo repository.CouponRepository
}

// NewLedger 创建账本
func NewLedger(repo repository.CouponRepository) *Ledger {
	return &Ledger{repo: repo}
}

// within 返回绑定到事务存储的账本
func (l *Ledger) within(tx repository.CouponRepository) *Ledger {
	return &Ledger{repo: tx}
}

// Count 当前已核销次数
func (l *Ledger) Count(ctx context.Context, couponID string) (int64, error) {
	return l.repo.CountUsages(ctx, couponID)
}

// Redeem 追加一条使用记录。调用方需保证已在同一事务中完成次数校验。
func (l *Ledger) Redeem(ctx context.Context, couponID, userID string) (*model.CouponUsage, error) {
	return l.repo.RecordUsage(ctx, couponID, userID)
}
