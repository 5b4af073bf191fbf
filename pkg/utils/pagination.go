package utils

// PageBounds 列表的默认页大小和上限，每类列表单独设置
type PageBounds struct {
	DefaultLimit int
	MaxLimit     int
}

// UsageHistoryBounds 优惠券使用记录每页默认 20 条，最多 50 条
var UsageHistoryBounds = PageBounds{DefaultLimit: 20, MaxLimit: 50}

// Pagination 分页请求参数
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// Normalize 按 bounds 修正页码和页大小，返回 offset 和 limit
func (p *Pagination) Normalize(b PageBounds) (int, int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = b.DefaultLimit
	}
	if b.MaxLimit > 0 && p.Limit > b.MaxLimit {
		p.Limit = b.MaxLimit
	}
	return (p.Page - 1) * p.Limit, p.Limit
}

// PageResult 分页响应结果
type PageResult struct {
	List    interface{} `json:"list"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"hasMore"`
}

// NewPageResult p 需已经 Normalize
func NewPageResult(list interface{}, total int64, p Pagination) PageResult {
	return PageResult{
		List:    list,
		Total:   total,
		Page:    p.Page,
		Limit:   p.Limit,
		HasMore: int64(p.Page*p.Limit) < total,
	}
}
