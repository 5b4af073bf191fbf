package handler

import (
	"errors"
	"net/http"
	"time"

	"coupon_engine/internal/domain/coupon/model"
	"coupon_engine/internal/domain/coupon/service"
	"coupon_engine/internal/pkg/middleware"
	"coupon_engine/pkg/response"
	"coupon_engine/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CouponHandler struct {
	service service.CouponService
}

func NewCouponHandler(service service.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

// CreateCouponRequest 创建优惠券请求，金额可传数字或字符串
type CreateCouponRequest struct {
	Code              string           `json:"code" binding:"required"`
	Type              string           `json:"type" binding:"required"`
	Value             *decimal.Decimal `json:"value" binding:"required"`
	MinPurchaseAmount *decimal.Decimal `json:"minPurchaseAmount"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount"`
	StartDate         *time.Time       `json:"startDate"`
	EndDate           *time.Time       `json:"endDate"`
	UsageLimit        *int64           `json:"usageLimit"`
}

// ValidateCouponRequest 校验请求
type ValidateCouponRequest struct {
	Code      string           `json:"code" binding:"required"`
	CartValue *decimal.Decimal `json:"cartValue" binding:"required"`
}

// ApplyCouponRequest 核销请求
type ApplyCouponRequest struct {
	OrderID    string           `json:"orderId" binding:"required"`
	OrderTotal *decimal.Decimal `json:"orderTotal" binding:"required"`
	Code       string           `json:"code" binding:"required"`
}

// CreateCoupon 创建优惠券
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	coupon, err := h.service.CreateCoupon(c.Request.Context(), service.CreateCouponInput{
		Code:              req.Code,
		Type:              model.DiscountType(req.Type),
		Value:             *req.Value,
		MinPurchaseAmount: req.MinPurchaseAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		UsageLimit:        req.UsageLimit,
		CreatedBy:         middleware.CurrentUserID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, coupon)
}

// GetCoupon 查询优惠券详情
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	detail, err := h.service.GetCoupon(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, detail)
}

// ListUsages 分页查询使用记录
func (h *CouponHandler) ListUsages(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	p.Normalize(utils.UsageHistoryBounds)

	usages, total, err := h.service.ListUsages(c.Request.Context(), c.Param("code"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, utils.NewPageResult(usages, total, p))
}

// ValidateCoupon 只校验不核销，用于购物车预览
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	coupon, err := h.service.ValidateCoupon(c.Request.Context(), req.Code, *req.CartValue)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, coupon)
}

// ApplyCoupon 对订单使用优惠券，返回新的订单总价
func (h *CouponHandler) ApplyCoupon(c *gin.Context) {
	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.ApplyCouponToOrder(c.Request.Context(),
		service.Order{ID: req.OrderID, Total: *req.OrderTotal},
		req.Code,
		middleware.CurrentUserID(c),
	)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

var reasonCodes = map[service.Reason]int{
	service.ReasonNotFound:          response.ErrCouponNotFound,
	service.ReasonExpired:           response.ErrCouponExpired,
	service.ReasonNotYetActive:      response.ErrCouponNotYetActive,
	service.ReasonBelowMinimum:      response.ErrCouponBelowMinimum,
	service.ReasonUsageLimitReached: response.ErrCouponUsageLimitReached,
}

// writeError 业务拒绝返回 HTTP 200 + 业务码，其余按错误类型映射状态码
func writeError(c *gin.Context, err error) {
	if rej, ok := service.AsRejection(err); ok {
		response.FailWithData(c, reasonCodes[rej.Reason], rej.Error(), rejectionData(rej))
		return
	}

	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		response.Error(c, http.StatusConflict, response.ErrCouponCodeExists, conflict.Error())
		return
	}

	var invalid *service.ValidationError
	if errors.As(err, &invalid) {
		response.ErrorWithData(c, http.StatusBadRequest, response.ErrInvalidParam, invalid.Error(), invalid.Violations)
		return
	}

	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Internal server error")
}

func rejectionData(rej *service.RejectionError) gin.H {
	data := gin.H{
		"reason": rej.Reason,
		"code":   rej.Code,
	}
	switch rej.Reason {
	case service.ReasonExpired:
		data["endDate"] = rej.EndDate
		data["now"] = rej.Now
	case service.ReasonNotYetActive:
		data["startDate"] = rej.StartDate
		data["now"] = rej.Now
	case service.ReasonBelowMinimum:
		data["cartValue"] = rej.CartValue
		data["minPurchaseAmount"] = rej.MinPurchaseAmount
	case service.ReasonUsageLimitReached:
		data["usageCount"] = rej.UsageCount
		data["usageLimit"] = rej.UsageLimit
	}
	return data
}
