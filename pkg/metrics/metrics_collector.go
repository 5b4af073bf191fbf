package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
// 所有方法允许 nil 接收者，未启用指标时直接传 nil
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 数据库指标
	dbErrorsTotal *prometheus.CounterVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// 优惠券指标
	couponValidationsTotal *prometheus.CounterVec
	couponRedemptionsTotal *prometheus.CounterVec
	couponRedeemDuration   prometheus.Histogram
	couponDiscountAmount   prometheus.Histogram
}

// NewMetricsCollector 创建指标收集器并注册到 reg
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		dbErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_errors_total",
				Help: "Total number of database errors",
			},
			[]string{"operation", "error_type"},
		),

		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"operation"},
		),

		cacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"operation"},
		),

		couponValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coupon_validations_total",
				Help: "Total number of coupon validations by result",
			},
			[]string{"result"},
		),

		couponRedemptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coupon_redemptions_total",
				Help: "Total number of coupon redemption attempts by final state",
			},
			[]string{"state", "reason"},
		),

		couponRedeemDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coupon_redeem_duration_seconds",
				Help:    "Duration of the apply-to-order transaction in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
		),

		couponDiscountAmount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coupon_discount_amount",
				Help:    "Discount granted per successful redemption",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCacheOperation 记录缓存命中情况
func (m *MetricsCollector) RecordCacheOperation(operation string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHitsTotal.WithLabelValues(operation).Inc()
	} else {
		m.cacheMissesTotal.WithLabelValues(operation).Inc()
	}
}

// RecordDBError 记录数据库错误
func (m *MetricsCollector) RecordDBError(operation, errorType string) {
	if m == nil {
		return
	}
	m.dbErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordValidation 记录一次只读校验的结果（valid 或拒绝原因）
func (m *MetricsCollector) RecordValidation(result string) {
	if m == nil {
		return
	}
	m.couponValidationsTotal.WithLabelValues(result).Inc()
}

// RecordRedemption 记录一次核销尝试
func (m *MetricsCollector) RecordRedemption(state, reason string, duration time.Duration, discount float64) {
	if m == nil {
		return
	}
	m.couponRedemptionsTotal.WithLabelValues(state, reason).Inc()
	m.couponRedeemDuration.Observe(duration.Seconds())
	if discount > 0 {
		m.couponDiscountAmount.Observe(discount)
	}
}
