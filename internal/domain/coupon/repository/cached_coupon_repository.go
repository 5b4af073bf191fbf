package repository

import (
	"context"
	"errors"
	"time"

	"coupon_engine/internal/domain/coupon/model"
	"coupon_engine/pkg/cache"
	"coupon_engine/pkg/metrics"

	"go.uber.org/zap"
)

// 缓存键常量
const (
	CouponCacheKeyPrefix = "coupon:code:"
	CouponCacheTTL       = time.Minute * 10
)

// cachedCouponRepository 为 FindByCode 提供读穿透缓存
// 优惠券定义创建后不可变，缓存内容不会与数据库不一致；使用次数和行锁始终访问底层存储
type cachedCouponRepository struct {
	CouponRepository
	cache   cache.CacheService
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.MetricsCollector
}

// NewCachedCouponRepository 创建带缓存的存储
func NewCachedCouponRepository(inner CouponRepository, c cache.CacheService, ttl time.Duration, log *zap.Logger, m *metrics.MetricsCollector) CouponRepository {
	if ttl <= 0 {
		ttl = CouponCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &cachedCouponRepository{
		CouponRepository: inner,
		cache:            c,
		ttl:              ttl,
		log:              log,
		metrics:          m,
	}
}

func (r *cachedCouponRepository) cacheKey(code string) string {
	return CouponCacheKeyPrefix + code
}

func (r *cachedCouponRepository) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var cached model.Coupon
	err := r.cache.Get(ctx, r.cacheKey(code), &cached)
	if err == nil {
		r.metrics.RecordCacheOperation("find_by_code", true)
		return &cached, nil
	}
	r.metrics.RecordCacheOperation("find_by_code", false)
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.Warn("coupon cache read failed", zap.String("code", code), zap.Error(err))
	}

	coupon, err := r.CouponRepository.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.store(ctx, coupon)
	return coupon, nil
}

func (r *cachedCouponRepository) Save(ctx context.Context, coupon *model.Coupon) error {
	if err := r.CouponRepository.Save(ctx, coupon); err != nil {
		return err
	}
	r.store(ctx, coupon)
	return nil
}

func (r *cachedCouponRepository) store(ctx context.Context, coupon *model.Coupon) {
	if err := r.cache.Set(ctx, r.cacheKey(coupon.Code), coupon, r.ttl); err != nil {
		r.log.Warn("coupon cache write failed", zap.String("code", coupon.Code), zap.Error(err))
	}
}
