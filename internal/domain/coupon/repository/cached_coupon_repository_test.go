package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"coupon_engine/internal/domain/coupon/model"
	"coupon_engine/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCacheService is a mock of cache.CacheService
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestCachedCouponRepository_FindByCode(t *testing.T) {
	ctx := context.Background()

	t.Run("miss loads from store and fills cache", func(t *testing.T) {
		inner := NewMemoryCouponRepository()
		coupon := newCoupon("CACHE")
		require.NoError(t, inner.Save(ctx, coupon))

		c := new(MockCacheService)
		c.On("Get", mock.Anything, "coupon:code:CACHE", mock.Anything).Return(cache.ErrCacheMiss)
		c.On("Set", mock.Anything, "coupon:code:CACHE", mock.AnythingOfType("*model.Coupon"), CouponCacheTTL).Return(nil)
		repo := NewCachedCouponRepository(inner, c, 0, nil, nil)

		found, err := repo.FindByCode(ctx, "CACHE")

		require.NoError(t, err)
		assert.Equal(t, coupon.ID, found.ID)
		c.AssertExpectations(t)
	})

	t.Run("hit skips the store", func(t *testing.T) {
		inner := NewMemoryCouponRepository()
		c := new(MockCacheService)
		c.On("Get", mock.Anything, "coupon:code:HOT", mock.Anything).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*model.Coupon)
				dest.ID = "cached-id"
				dest.Code = "HOT"
			}).
			Return(nil)
		repo := NewCachedCouponRepository(inner, c, time.Minute, nil, nil)

		found, err := repo.FindByCode(ctx, "HOT")

		require.NoError(t, err)
		assert.Equal(t, "cached-id", found.ID)
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache failure falls back to store", func(t *testing.T) {
		inner := NewMemoryCouponRepository()
		require.NoError(t, inner.Save(ctx, newCoupon("FLAKY")))

		c := new(MockCacheService)
		c.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("i/o timeout"))
		c.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("i/o timeout"))
		repo := NewCachedCouponRepository(inner, c, time.Minute, nil, nil)

		found, err := repo.FindByCode(ctx, "FLAKY")

		require.NoError(t, err)
		assert.Equal(t, "FLAKY", found.Code)
	})

	t.Run("not found is not cached", func(t *testing.T) {
		c := new(MockCacheService)
		c.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(cache.ErrCacheMiss)
		repo := NewCachedCouponRepository(NewMemoryCouponRepository(), c, time.Minute, nil, nil)

		_, err := repo.FindByCode(ctx, "NONE")

		assert.ErrorIs(t, err, ErrCouponNotFound)
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCachedCouponRepository_UsagesBypassCache(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryCouponRepository()
	coupon := newCoupon("DIRECT")
	require.NoError(t, inner.Save(ctx, coupon))

	c := new(MockCacheService)
	repo := NewCachedCouponRepository(inner, c, time.Minute, nil, nil)

	err := repo.Transaction(ctx, func(tx CouponRepository) error {
		locked, err := tx.LockByCode(ctx, "DIRECT")
		if err != nil {
			return err
		}
		_, err = tx.RecordUsage(ctx, locked.ID, "user-1")
		return err
	})
	require.NoError(t, err)

	count, err := repo.CountUsages(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	c.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}
