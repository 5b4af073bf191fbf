package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 认证错误 100xx
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 优惠券模块错误 200xx
	ErrCouponNotFound          = 20001
	ErrCouponExpired           = 20002
	ErrCouponNotYetActive      = 20003
	ErrCouponBelowMinimum      = 20004
	ErrCouponUsageLimitReached = 20005
	ErrCouponCodeExists        = 20006

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
