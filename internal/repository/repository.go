package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Master        MasterRosterRepository
	Request       RequestRepository
	RoomRequest   RoomRequestRepository
	Holiday       HolidayRepository
	Saturday      SaturdayRepository
	Day           DayAssignmentRepository
	Slot          SlotAssignmentRepository
	OnCall        OnCallRepository
	Fairness      FairnessRepository
	SwapLog       SwapLogRepository
	ChangeRequest ChangeRequestRepository
	Run           EngineRunRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Master:        NewMasterRosterRepo(db),
		Request:       NewRequestRepo(db),
		RoomRequest:   NewRoomRequestRepo(db),
		Holiday:       NewHolidayRepo(db),
		Saturday:      NewSaturdayRepo(db),
		Day:           NewDayAssignmentRepo(db),
		Slot:          NewSlotAssignmentRepo(db),
		OnCall:        NewOnCallRepo(db),
		Fairness:      NewFairnessRepo(db),
		SwapLog:       NewSwapLogRepo(db),
		ChangeRequest: NewChangeRequestRepo(db),
		Run:           NewEngineRunRepo(db),
	}
}

// monthPrefix 按 YYYY-MM 过滤 date 列（YYYY-MM-DD 文本）
func monthPrefix(month string) string {
	return month + "-%"
}

// [自证通过] internal/repository/repository.go
