package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var couponColumns = []string{
	"id", "created_at", "code", "type", "value", "min_purchase_amount",
	"max_discount_amount", "start_date", "end_date", "usage_limit", "created_by",
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestCouponRepository_FindByCode(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT * FROM "coupons" WHERE code = $1`)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCouponRepository(db)
		end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows(couponColumns).AddRow(
			"0b7d3c1e-6a51-4a8e-9a57-111111111111", time.Now(), "SUMMER10", "PERCENTAGE", "10.00", "0.00",
			"100.00", nil, end, int64(5), "admin-1",
		))

		coupon, err := repo.FindByCode(ctx, "SUMMER10")

		require.NoError(t, err)
		assert.Equal(t, "SUMMER10", coupon.Code)
		assert.Equal(t, "10", coupon.Value.String())
		assert.True(t, coupon.MaxDiscountAmount.Valid)
		assert.Nil(t, coupon.StartDate)
		require.NotNil(t, coupon.EndDate)
		assert.True(t, end.Equal(*coupon.EndDate))
		require.NotNil(t, coupon.UsageLimit)
		assert.Equal(t, int64(5), *coupon.UsageLimit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCouponRepository(db)
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows(couponColumns))

		_, err := repo.FindByCode(ctx, "MISSING")

		assert.ErrorIs(t, err, ErrCouponNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCouponRepository(db)
		mock.ExpectQuery(query).WillReturnError(errors.New("connection reset by peer"))

		_, err := repo.FindByCode(ctx, "ANY")

		var se *StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "find_by_code", se.Op)
		assert.NotErrorIs(t, err, ErrCouponNotFound)
	})
}

func TestCouponRepository_LockByCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCouponRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "coupons" WHERE code = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(couponColumns).AddRow(
			"0b7d3c1e-6a51-4a8e-9a57-222222222222", time.Now(), "LOCKED", "FIXED", "5.00", "0.00",
			nil, nil, nil, nil, "admin-1",
		))

	coupon, err := repo.LockByCode(context.Background(), "LOCKED")

	require.NoError(t, err)
	assert.False(t, coupon.MaxDiscountAmount.Valid)
	assert.Nil(t, coupon.UsageLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_CountUsages(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCouponRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "coupon_usages" WHERE coupon_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUsages(context.Background(), "coupon-1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Transaction(t *testing.T) {
	ctx := context.Background()

	t.Run("callback error rolls back and is returned unchanged", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCouponRepository(db)
		rejected := errors.New("usage limit reached")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.Transaction(ctx, func(CouponRepository) error { return rejected })

		assert.Same(t, rejected, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure is a storage error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCouponRepository(db)

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("could not serialize access"))

		err := repo.Transaction(ctx, func(CouponRepository) error { return nil })

		var se *StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "transaction", se.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
