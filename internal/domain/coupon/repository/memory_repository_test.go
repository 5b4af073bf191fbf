package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coupon_engine/internal/domain/coupon/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoupon(code string) *model.Coupon {
	return &model.Coupon{Code: code, Type: model.DiscountFixed, Value: decimal.NewFromInt(5)}
}

func TestMemoryCouponRepository_Save(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCouponRepository()

	coupon := newCoupon("WELCOME")
	require.NoError(t, repo.Save(ctx, coupon))
	assert.NotEmpty(t, coupon.ID)
	assert.False(t, coupon.CreatedAt.IsZero())

	err := repo.Save(ctx, newCoupon("WELCOME"))
	assert.ErrorIs(t, err, ErrDuplicateCode)

	found, err := repo.FindByCode(ctx, "WELCOME")
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, found.ID)

	_, err = repo.FindByCode(ctx, "welcome")
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestMemoryCouponRepository_ReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCouponRepository()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	limit := int64(3)
	coupon := newCoupon("ALIAS")
	coupon.StartDate, coupon.EndDate, coupon.UsageLimit = &start, &end, &limit
	require.NoError(t, repo.Save(ctx, coupon))

	// 修改保存时传入的对象不影响存储
	*coupon.UsageLimit = 100
	*coupon.EndDate = end.Add(time.Hour)

	found, err := repo.FindByCode(ctx, "ALIAS")
	require.NoError(t, err)
	assert.Equal(t, int64(3), *found.UsageLimit)
	assert.True(t, end.Equal(*found.EndDate))

	// 修改读取结果也不影响存储
	*found.UsageLimit = 0
	*found.StartDate = start.Add(-time.Hour)

	again, err := repo.FindByCode(ctx, "ALIAS")
	require.NoError(t, err)
	assert.Equal(t, int64(3), *again.UsageLimit)
	assert.True(t, start.Equal(*again.StartDate))

	err = repo.Transaction(ctx, func(tx CouponRepository) error {
		locked, err := tx.LockByCode(ctx, "ALIAS")
		if err != nil {
			return err
		}
		*locked.UsageLimit = 1
		return nil
	})
	require.NoError(t, err)

	again, err = repo.FindByCode(ctx, "ALIAS")
	require.NoError(t, err)
	assert.Equal(t, int64(3), *again.UsageLimit)
}

func TestMemoryCouponRepository_Transaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commit applies buffered writes", func(t *testing.T) {
		repo := NewMemoryCouponRepository()
		coupon := newCoupon("TX")
		require.NoError(t, repo.Save(ctx, coupon))

		err := repo.Transaction(ctx, func(tx CouponRepository) error {
			if _, err := tx.RecordUsage(ctx, coupon.ID, "user-1"); err != nil {
				return err
			}
			count, err := tx.CountUsages(ctx, coupon.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			// 提交前对外不可见
			outside, err := repo.CountUsages(ctx, coupon.ID)
			require.NoError(t, err)
			assert.Zero(t, outside)
			return nil
		})
		require.NoError(t, err)

		count, err := repo.CountUsages(ctx, coupon.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("error rolls back", func(t *testing.T) {
		repo := NewMemoryCouponRepository()
		coupon := newCoupon("ROLLBACK")
		require.NoError(t, repo.Save(ctx, coupon))
		boom := errors.New("boom")

		err := repo.Transaction(ctx, func(tx CouponRepository) error {
			_, err := tx.RecordUsage(ctx, coupon.ID, "user-1")
			require.NoError(t, err)
			require.NoError(t, tx.Save(ctx, newCoupon("INSIDE")))
			return boom
		})
		assert.Same(t, boom, err)

		count, err := repo.CountUsages(ctx, coupon.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
		_, err = repo.FindByCode(ctx, "INSIDE")
		assert.ErrorIs(t, err, ErrCouponNotFound)
	})

	t.Run("duplicate inside transaction", func(t *testing.T) {
		repo := NewMemoryCouponRepository()
		require.NoError(t, repo.Save(ctx, newCoupon("TAKEN")))

		err := repo.Transaction(ctx, func(tx CouponRepository) error {
			return tx.Save(ctx, newCoupon("TAKEN"))
		})
		assert.ErrorIs(t, err, ErrDuplicateCode)
	})

	t.Run("cancelled context", func(t *testing.T) {
		repo := NewMemoryCouponRepository()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false

		err := repo.Transaction(cctx, func(CouponRepository) error {
			called = true
			return nil
		})

		var se *StorageError
		require.ErrorAs(t, err, &se)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestMemoryCouponRepository_ConcurrentTransactions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCouponRepository()
	coupon := newCoupon("SERIAL")
	require.NoError(t, repo.Save(ctx, coupon))

	const limit, workers = 3, 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Transaction(ctx, func(tx CouponRepository) error {
				count, err := tx.CountUsages(ctx, coupon.ID)
				if err != nil {
					return err
				}
				if count >= limit {
					return errors.New("limit reached")
				}
				_, err = tx.RecordUsage(ctx, coupon.ID, "user")
				return err
			})
		}()
	}
	wg.Wait()

	count, err := repo.CountUsages(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), count)
}

func TestMemoryCouponRepository_ListUsages(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCouponRepository()
	coupon := newCoupon("LIST")
	require.NoError(t, repo.Save(ctx, coupon))
	for i := 0; i < 5; i++ {
		_, err := repo.RecordUsage(ctx, coupon.ID, "user")
		require.NoError(t, err)
	}

	page, total, err := repo.ListUsages(ctx, coupon.ID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 2)

	page, _, err = repo.ListUsages(ctx, coupon.ID, 4, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, _, err = repo.ListUsages(ctx, coupon.ID, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}
