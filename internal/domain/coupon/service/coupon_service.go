package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coupon_engine/internal/domain/coupon/model"
	"coupon_engine/internal/domain/coupon/repository"
	"coupon_engine/pkg/metrics"
	"coupon_engine/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultRedeemTimeout 核销事务默认超时时间
const DefaultRedeemTimeout = 5 * time.Second

// CouponService 优惠券服务接口
type CouponService interface {
	CreateCoupon(ctx context.Context, input CreateCouponInput) (*model.Coupon, error)
	ValidateCoupon(ctx context.Context, code string, cartValue decimal.Decimal) (*model.Coupon, error)
	ApplyCouponToOrder(ctx context.Context, order Order, code, userID string) (*ApplyResult, error)
	GetCoupon(ctx context.Context, code string) (*CouponDetail, error)
	ListUsages(ctx context.Context, code string, page, limit int) ([]model.CouponUsage, int64, error)
}

// Order 订单模块传入的最小信息，引擎不读取订单明细
type Order struct {
	ID    string
	Total decimal.Decimal
}

// ApplyResult 核销结果，订单总价由订单模块自行落库
type ApplyResult struct {
	ID       string          `json:"id"`
	Total    decimal.Decimal `json:"total"`
	Discount decimal.Decimal `json:"discount"`
}

// CouponDetail 管理端查看的优惠券详情
type CouponDetail struct {
	model.Coupon
	UsedCount int64  `json:"usedCount"`
	Remaining *int64 `json:"remaining,omitempty"` // 不限次数时为空
}

// RedemptionState 单次核销尝试的状态
type RedemptionState string

const (
	StatePending   RedemptionState = "PENDING"
	StateValidated RedemptionState = "VALIDATED"
	StateRedeemed  RedemptionState = "REDEEMED"
	StateRejected  RedemptionState = "REJECTED"
	// StateFailed 存储故障，不属于业务拒绝
	StateFailed RedemptionState = "FAILED"
)

type couponService struct {
	repo          repository.CouponRepository
	validator     *Validator
	ledger        *Ledger
	log           *zap.Logger
	metrics       *metrics.MetricsCollector
	now           func() time.Time
	redeemTimeout time.Duration
}

// Option 服务可选配置
type Option func(*couponService)

// WithLogger 设置日志
func WithLogger(log *zap.Logger) Option {
	return func(s *couponService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(m *metrics.MetricsCollector) Option {
	return func(s *couponService) { s.metrics = m }
}

// WithClock 注入时钟，便于测试有效期边界
func WithClock(now func() time.Time) Option {
	return func(s *couponService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRedeemTimeout 设置核销事务超时时间
func WithRedeemTimeout(d time.Duration) Option {
	return func(s *couponService) {
		if d > 0 {
			s.redeemTimeout = d
		}
	}
}

// NewCouponService 创建优惠券服务
func NewCouponService(repo repository.CouponRepository, opts ...Option) CouponService {
	s := &couponService{
		repo:          repo,
		log:           zap.NewNop(),
		now:           time.Now,
		redeemTimeout: DefaultRedeemTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = NewLedger(repo)
	s.validator = NewValidator(repo, s.ledger, s.now)
	return s
}

// CreateCoupon 创建优惠券
func (s *couponService) CreateCoupon(ctx context.Context, input CreateCouponInput) (*model.Coupon, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// 1. 预检查优惠码是否已存在
	if _, err := s.repo.FindByCode(ctx, input.Code); err == nil {
		return nil, &ConflictError{Code: input.Code}
	} else if !errors.Is(err, repository.ErrCouponNotFound) {
		s.recordStorageError(err)
		s.log.Error("coupon lookup failed", zap.String("code", input.Code), zap.Error(err))
		return nil, fmt.Errorf("create coupon %q: %w", input.Code, err)
	}

	// 2. 写入，并发创建时依赖唯一索引兜底
	coupon := input.toCoupon()
	if err := s.repo.Save(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, &ConflictError{Code: input.Code}
		}
		s.recordStorageError(err)
		s.log.Error("coupon save failed", zap.String("code", input.Code), zap.Error(err))
		return nil, fmt.Errorf("create coupon %q: %w", input.Code, err)
	}

	s.log.Info("coupon created",
		zap.String("coupon_id", coupon.ID),
		zap.String("code", coupon.Code),
		zap.String("type", string(coupon.Type)),
		zap.String("created_by", coupon.CreatedBy),
	)
	return coupon, nil
}

// ValidateCoupon 只读校验，不产生任何写入
func (s *couponService) ValidateCoupon(ctx context.Context, code string, cartValue decimal.Decimal) (*model.Coupon, error) {
	if cartValue.IsNegative() {
		return nil, &ValidationError{Violations: []Violation{{Field: "cartValue", Message: "must not be negative"}}}
	}
	if !hasScale2(cartValue) {
		return nil, &ValidationError{Violations: []Violation{{Field: "cartValue", Message: "must have at most 2 decimal places"}}}
	}

	coupon, err := s.validator.Validate(ctx, code, cartValue)
	if err != nil {
		if rej, ok := AsRejection(err); ok {
			s.metrics.RecordValidation(string(rej.Reason))
			s.log.Info("coupon validation rejected", zap.String("code", code), zap.String("reason", string(rej.Reason)))
			return nil, err
		}
		s.recordStorageError(err)
		s.log.Error("coupon validation failed", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("validate coupon %q: %w", code, err)
	}

	s.metrics.RecordValidation("valid")
	return coupon, nil
}

// ApplyCouponToOrder 校验、计算、核销在同一事务中完成
// 任何拒绝或失败都不会留下使用记录
func (s *couponService) ApplyCouponToOrder(ctx context.Context, order Order, code, userID string) (*ApplyResult, error) {
	if err := validateApply(order, code, userID); err != nil {
		return nil, err
	}

	start := time.Now()
	state := StatePending

	ctx, cancel := context.WithTimeout(ctx, s.redeemTimeout)
	defer cancel()

	var result *ApplyResult
	var usage *model.CouponUsage
	err := s.repo.Transaction(ctx, func(tx repository.CouponRepository) error {
		coupon, err := s.validator.within(tx).Validate(ctx, code, order.Total)
		if err != nil {
			return err
		}
		state = StateValidated

		discount := ComputeDiscount(coupon, order.Total)

		usage, err = s.ledger.within(tx).Redeem(ctx, coupon.ID, userID)
		if err != nil {
			return err
		}

		result = &ApplyResult{ID: order.ID, Total: discount.NewTotal, Discount: discount.Amount}
		return nil
	})

	logFields := []zap.Field{
		zap.String("code", code),
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
	}

	if err != nil {
		if rej, ok := AsRejection(err); ok {
			state = StateRejected
			s.metrics.RecordRedemption(string(state), string(rej.Reason), time.Since(start), 0)
			s.log.Info("coupon redemption rejected", append(logFields, zap.String("reason", string(rej.Reason)))...)
			return nil, err
		}
		s.metrics.RecordRedemption(string(StateFailed), string(state), time.Since(start), 0)
		s.recordStorageError(err)
		s.log.Error("coupon redemption failed", append(logFields, zap.String("state", string(state)), zap.Error(err))...)
		return nil, fmt.Errorf("apply coupon %q to order %q: %w", code, order.ID, err)
	}

	state = StateRedeemed
	s.metrics.RecordRedemption(string(state), "", time.Since(start), result.Discount.InexactFloat64())
	s.log.Info("coupon redeemed", append(logFields,
		zap.String("usage_id", usage.ID),
		zap.String("discount", result.Discount.StringFixed(2)),
		zap.String("total", result.Total.StringFixed(2)),
	)...)
	return result, nil
}

// GetCoupon 查询优惠券及其使用情况
func (s *couponService) GetCoupon(ctx context.Context, code string) (*CouponDetail, error) {
	coupon, err := s.findCoupon(ctx, code)
	if err != nil {
		return nil, err
	}

	used, err := s.ledger.Count(ctx, coupon.ID)
	if err != nil {
		return nil, fmt.Errorf("count usages of %q: %w", code, err)
	}

	detail := &CouponDetail{Coupon: *coupon, UsedCount: used}
	if coupon.HasUsageLimit() {
		remaining := *coupon.UsageLimit - used
		if remaining < 0 {
			remaining = 0
		}
		detail.Remaining = &remaining
	}
	return detail, nil
}

// ListUsages 分页查询使用记录
func (s *couponService) ListUsages(ctx context.Context, code string, page, limit int) ([]model.CouponUsage, int64, error) {
	coupon, err := s.findCoupon(ctx, code)
	if err != nil {
		return nil, 0, err
	}

	p := utils.Pagination{Page: page, Limit: limit}
	offset, size := p.Normalize(utils.UsageHistoryBounds)
	usages, total, err := s.repo.ListUsages(ctx, coupon.ID, offset, size)
	if err != nil {
		return nil, 0, fmt.Errorf("list usages of %q: %w", code, err)
	}
	return usages, total, nil
}

func (s *couponService) findCoupon(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return nil, &RejectionError{Reason: ReasonNotFound, Code: code, Now: s.now()}
		}
		return nil, fmt.Errorf("find coupon %q: %w", code, err)
	}
	return coupon, nil
}

func (s *couponService) recordStorageError(err error) {
	var se *repository.StorageError
	if errors.As(err, &se) {
		s.metrics.RecordDBError(se.Op, "storage")
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordDBError("transaction", "timeout")
	}
}

func validateApply(order Order, code, userID string) error {
	var violations []Violation
	if strings.TrimSpace(code) == "" {
		violations = append(violations, Violation{Field: "code", Message: "is required"})
	}
	if strings.TrimSpace(userID) == "" {
		violations = append(violations, Violation{Field: "userId", Message: "is required"})
	}
	if order.Total.IsNegative() {
		violations = append(violations, Violation{Field: "orderTotal", Message: "must not be negative"})
	} else if !hasScale2(order.Total) {
		violations = append(violations, Violation{Field: "orderTotal", Message: "must have at most 2 decimal places"})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
