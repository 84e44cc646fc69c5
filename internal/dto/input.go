package dto

// ── 输入维护 DTO ──

// MasterEntryItem 固定排班表一行
type MasterEntryItem struct {
	Person    string `json:"person"     binding:"required,max=64"`
	WeekLabel string `json:"week_label" binding:"omitempty,max=16"` // 空 = every
	Weekday   int    `json:"weekday"    binding:"required,min=1,max=5"`
	Value     string `json:"value"      binding:"required,max=16"`
}

// ReplaceMasterRequest 整表替换固定排班
type ReplaceMasterRequest struct {
	Entries []MasterEntryItem `json:"entries" binding:"required,max=2000,dive"`
}

// RawRequestItem 个人请求一行
type RawRequestItem struct {
	Person   string `json:"person"   binding:"required,max=64"`
	Category string `json:"category" binding:"required,max=64"`
	Dates    string `json:"dates"    binding:"required,max=500"`
}

// CreateRequestsRequest 批量录入个人请求
type CreateRequestsRequest struct {
	Month string           `json:"month" binding:"required,yyyymm"`
	Rows  []RawRequestItem `json:"rows"  binding:"required,min=1,max=500,dive"`
}

// RoomRequestItem 房间放置请求一行；Slot 例：room:3、3번방、08:30、not_early
type RoomRequestItem struct {
	Person string `json:"person" binding:"required,max=64"`
	Kind   string `json:"kind"   binding:"required,oneof=fixed priority"`
	Slot   string `json:"slot"   binding:"required,max=64"`
	Dates  string `json:"dates"  binding:"required,max=500"`
}

// CreateRoomRequestsRequest 批量录入房间请求
type CreateRoomRequestsRequest struct {
	Month string            `json:"month" binding:"required,yyyymm"`
	Rows  []RoomRequestItem `json:"rows"  binding:"required,min=1,max=500,dive"`
}

// PutSaturdayRequest 周六名单（最多 10 人）
type PutSaturdayRequest struct {
	Persons []string `json:"persons" binding:"max=10,dive,required,max=64"`
}

// HolidayItem 休馆日
type HolidayItem struct {
	Date string `json:"date" binding:"required,isodate"`
	Name string `json:"name" binding:"omitempty,max=200"`
}

// CreateHolidaysRequest 手工录入休馆日
type CreateHolidaysRequest struct {
	Holidays []HolidayItem `json:"holidays" binding:"required,min=1,max=100,dive"`
}

// ImportHolidaysRequest 以 URL 方式导入 ICS（文件上传走 multipart）
type ImportHolidaysRequest struct {
	URL string `json:"url" binding:"required,url,max=1000"`
}

// ── 响应 ──

// CreatedCountResponse 批量写入结果
type CreatedCountResponse struct {
	Created  int               `json:"created"`
	Warnings []WarningResponse `json:"warnings,omitempty"`
}

// HolidayImportResponse ICS 导入结果
type HolidayImportResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Dates    []string `json:"dates"`
}

// [自证通过] internal/dto/input.go
