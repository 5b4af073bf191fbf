package coupon

import (
	"coupon_engine/internal/domain/coupon/handler"
	"coupon_engine/internal/domain/coupon/repository"
	"coupon_engine/internal/domain/coupon/service"
	"coupon_engine/internal/pkg/middleware"
	"coupon_engine/internal/pkg/registry"
	"coupon_engine/pkg/cache"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CouponModule 优惠券模块
type CouponModule struct{}

func init() {
	registry.Register(&CouponModule{})
}

func (m *CouponModule) Name() string {
	return "coupon"
}

func (m *CouponModule) Priority() int {
	return 10
}

func (m *CouponModule) Init(ctx *registry.ModuleContext) error {
	cfg := ctx.Config.Coupon

	// 1. 依赖注入
	var cRepo repository.CouponRepository = repository.NewCouponRepository(ctx.DB)
	if ctx.Redis != nil {
		cRepo = repository.NewCachedCouponRepository(cRepo, cache.NewRedisCache(ctx.Redis, ""), cfg.CacheTTL, ctx.Logger, ctx.Metrics)
	}
	cService := service.NewCouponService(cRepo,
		service.WithLogger(ctx.Logger.Named("coupon")),
		service.WithMetrics(ctx.Metrics),
		service.WithRedeemTimeout(cfg.RedeemTimeout),
	)
	cHandler := handler.NewCouponHandler(cService)

	// 2. 路由注册
	applyLimiter := middleware.NewKeyedRateLimiter(rate.Limit(cfg.ApplyRateLimit), cfg.ApplyBurst)
	setupRoutes(ctx.Router, cHandler, ctx.Config.JWT.Secret, applyLimiter)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CouponHandler, secret string, applyLimiter *middleware.KeyedRateLimiter) {
	g := r.Group("/coupons")

	// 需要认证的路由组
	authorized := g.Group("")
	authorized.Use(middleware.AuthMiddleware(secret))
	{
		// 购物车预览，只读
		authorized.POST("/validate", h.ValidateCoupon)
		// 下单时核销，按用户限流
		authorized.POST("/apply", applyLimiter.Middleware(), h.ApplyCoupon)

		// 需要管理员权限的路由组
		admin := authorized.Group("")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.POST("", h.CreateCoupon)
			admin.GET("/:code", h.GetCoupon)
			admin.GET("/:code/usages", h.ListUsages)
		}
	}
}
