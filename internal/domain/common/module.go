package common

import (
	commonHandler "coupon_engine/internal/pkg/common"
	"coupon_engine/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	h := commonHandler.NewHealthHandler(ctx.DB, ctx.Redis)
	setupRoutes(ctx.Router, h, ctx)
	return nil
}

func setupRoutes(r *gin.Engine, h *commonHandler.HealthHandler, ctx *registry.ModuleContext) {
	r.GET("/health", h.Health)
	if ctx.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(ctx.Gatherer, promhttp.HandlerOpts{})))
	}
}
