package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"coupon_engine/internal/domain/coupon/model"
)

// MemoryCouponRepository 内存实现，用于测试和本地运行
// 事务之间通过 txMu 串行执行，事务内的写入先缓冲，提交时才生效
type MemoryCouponRepository struct {
	txMu sync.Mutex

	mu      sync.RWMutex
	coupons map[string]model.Coupon // key: code
	usages  map[string][]model.CouponUsage
}

// NewMemoryCouponRepository 创建内存存储
func NewMemoryCouponRepository() *MemoryCouponRepository {
	return &MemoryCouponRepository{
		coupons: make(map[string]model.Coupon),
		usages:  make(map[string][]model.CouponUsage),
	}
}

func (r *MemoryCouponRepository) FindByCode(_ context.Context, code string) (*model.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[code]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return cloneCoupon(&c), nil
}

func (r *MemoryCouponRepository) LockByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return r.FindByCode(ctx, code)
}

func (r *MemoryCouponRepository) Save(_ context.Context, coupon *model.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(coupon)
}

func (r *MemoryCouponRepository) saveLocked(coupon *model.Coupon) error {
	if _, ok := r.coupons[coupon.Code]; ok {
		return ErrDuplicateCode
	}
	coupon.Init(time.Now())
	r.coupons[coupon.Code] = *cloneCoupon(coupon)
	return nil
}

func (r *MemoryCouponRepository) CountUsages(_ context.Context, couponID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.usages[couponID])), nil
}

func (r *MemoryCouponRepository) RecordUsage(_ context.Context, couponID, userID string) (*model.CouponUsage, error) {
	usage := newUsage(couponID, userID)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.usages[couponID] = append(r.usages[couponID], usage)
	return &usage, nil
}

func (r *MemoryCouponRepository) ListUsages(_ context.Context, couponID string, offset, limit int) ([]model.CouponUsage, int64, error) {
	r.mu.RLock()
	all := append([]model.CouponUsage(nil), r.usages[couponID]...)
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].UsedAt.After(all[j].UsedAt)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []model.CouponUsage{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *MemoryCouponRepository) Transaction(ctx context.Context, fn func(repo CouponRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return storageErr("transaction", err)
	}

	tx := &memoryTx{parent: r, pending: make(map[string][]model.CouponUsage)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// cloneCoupon 复制指针字段，调用方修改返回值不会影响存储内容
func cloneCoupon(c *model.Coupon) *model.Coupon {
	cp := *c
	if c.StartDate != nil {
		t := *c.StartDate
		cp.StartDate = &t
	}
	if c.EndDate != nil {
		t := *c.EndDate
		cp.EndDate = &t
	}
	if c.UsageLimit != nil {
		n := *c.UsageLimit
		cp.UsageLimit = &n
	}
	return &cp
}

func newUsage(couponID, userID string) model.CouponUsage {
	now := time.Now().UTC()
	usage := model.CouponUsage{CouponID: couponID, UserID: userID, UsedAt: now}
	usage.Init(now)
	return usage
}

// memoryTx 事务视图：读取时合并已提交数据和本事务的待写入数据
type memoryTx struct {
	parent  *MemoryCouponRepository
	coupons []*model.Coupon
	pending map[string][]model.CouponUsage
}

func (t *memoryTx) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	for _, c := range t.coupons {
		if c.Code == code {
			return cloneCoupon(c), nil
		}
	}
	return t.parent.FindByCode(ctx, code)
}

func (t *memoryTx) LockByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return t.FindByCode(ctx, code)
}

func (t *memoryTx) Save(ctx context.Context, coupon *model.Coupon) error {
	if _, err := t.FindByCode(ctx, coupon.Code); err == nil {
		return ErrDuplicateCode
	}
	coupon.Init(time.Now())
	t.coupons = append(t.coupons, cloneCoupon(coupon))
	return nil
}

func (t *memoryTx) CountUsages(ctx context.Context, couponID string) (int64, error) {
	committed, err := t.parent.CountUsages(ctx, couponID)
	if err != nil {
		return 0, err
	}
	return committed + int64(len(t.pending[couponID])), nil
}

func (t *memoryTx) RecordUsage(_ context.Context, couponID, userID string) (*model.CouponUsage, error) {
	usage := newUsage(couponID, userID)
	t.pending[couponID] = append(t.pending[couponID], usage)
	return &usage, nil
}

func (t *memoryTx) ListUsages(ctx context.Context, couponID string, offset, limit int) ([]model.CouponUsage, int64, error) {
	return t.parent.ListUsages(ctx, couponID, offset, limit)
}

// Transaction 不支持嵌套事务，直接复用当前事务
func (t *memoryTx) Transaction(_ context.Context, fn func(repo CouponRepository) error) error {
	return fn(t)
}

func (t *memoryTx) commit() error {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()

	for _, c := range t.coupons {
		if _, ok := t.parent.coupons[c.Code]; ok {
			return ErrDuplicateCode
		}
	}
	for _, c := range t.coupons {
		t.parent.coupons[c.Code] = *c
	}
	for couponID, usages := range t.pending {
		t.parent.usages[couponID] = append(t.parent.usages[couponID], usages...)
	}
	return nil
}

var _ CouponRepository = (*MemoryCouponRepository)(nil)
var _ CouponRepository = (*memoryTx)(nil)
