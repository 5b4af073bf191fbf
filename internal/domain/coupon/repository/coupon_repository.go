package repository

import (
	"context"
	"errors"
	"time"

	"coupon_engine/internal/domain/coupon/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository 优惠券存储抽象，只负责数据访问，不包含业务规则
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	// LockByCode 在事务内读取并锁定优惠券行，用于串行化同一张券的核销
	LockByCode(ctx context.Context, code string) (*model.Coupon, error)
	Save(ctx context.Context, coupon *model.Coupon) error
	CountUsages(ctx context.Context, couponID string) (int64, error)
	RecordUsage(ctx context.Context, couponID, userID string) (*model.CouponUsage, error)
	ListUsages(ctx context.Context, couponID string, offset, limit int) ([]model.CouponUsage, int64, error)
	// Transaction 在同一事务中执行 fn，fn 返回 nil 时提交，否则回滚
	Transaction(ctx context.Context, fn func(repo CouponRepository) error) error
}

type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 基于 GORM 的实现
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return r.findByCode(ctx, r.db.WithContext(ctx), code, "find_by_code")
}

func (r *couponRepository) LockByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.findByCode(ctx, query, code, "lock_by_code")
}

func (r *couponRepository) findByCode(_ context.Context, query *gorm.DB, code, op string) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := query.Where("code = ?", code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, storageErr(op, err)
	}
	return &coupon, nil
}

func (r *couponRepository) Save(ctx context.Context, coupon *model.Coupon) error {
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return storageErr("save", err)
	}
	return nil
}

func (r *couponRepository) CountUsages(ctx context.Context, couponID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		Count(&count).Error
	if err != nil {
		return 0, storageErr("count_usages", err)
	}
	return count, nil
}

func (r *couponRepository) RecordUsage(ctx context.Context, couponID, userID string) (*model.CouponUsage, error) {
	usage := &model.CouponUsage{
		CouponID: couponID,
		UserID:   userID,
		UsedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(usage).Error; err != nil {
		return nil, storageErr("record_usage", err)
	}
	return usage, nil
}

func (r *couponRepository) ListUsages(ctx context.Context, couponID string, offset, limit int) ([]model.CouponUsage, int64, error) {
	var usages []model.CouponUsage
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CouponUsage{}).Where("coupon_id = ?", couponID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageErr("list_usages", err)
	}

	if err := query.Order("used_at desc").Offset(offset).Limit(limit).Find(&usages).Error; err != nil {
		return nil, 0, storageErr("list_usages", err)
	}
	return usages, total, nil
}

func (r *couponRepository) Transaction(ctx context.Context, fn func(repo CouponRepository) error) error {
	var fnErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&couponRepository{db: tx})
		return fnErr
	})
	if err != nil && !errors.Is(err, fnErr) {
		// begin/commit 失败
		return storageErr("transaction", err)
	}
	return err
}
