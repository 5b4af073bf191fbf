package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrCouponNotFound 优惠码不存在
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrDuplicateCode 优惠码已存在（唯一约束冲突）
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// StorageError 底层存储故障，与业务上的“不存在”区分开
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("coupon storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
