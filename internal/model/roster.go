package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MasterRosterEntry 固定排班表，对应 master_roster_entries
type MasterRosterEntry struct {
	EntryID   string `gorm:"type:varchar(36);primaryKey"                 json:"entry_id"`
	Person    string `gorm:"type:varchar(64);not null;index"             json:"person"`
	WeekLabel string `gorm:"type:varchar(16);not null;default:'every'"   json:"week_label"` // every | week N
	Weekday   int    `gorm:"type:smallint;not null"                      json:"weekday"`    // 1=周一 … 5=周五
	Value     string `gorm:"type:varchar(16);not null"                   json:"value"`      // morning | afternoon | both | none
	BaseModel
}

func (MasterRosterEntry) TableName() string { return "master_roster_entries" }

func (e *MasterRosterEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.EntryID)
	return nil
}

// RawRequest 个人请求原始行，对应 raw_requests
type RawRequest struct {
	RequestID string `gorm:"type:varchar(36);primaryKey"      json:"request_id"`
	Month     string `gorm:"type:char(7);not null;index"       json:"month"`
	Person    string `gorm:"type:varchar(64);not null"         json:"person"`
	Category  string `gorm:"type:varchar(64);not null"         json:"category"`
	Dates     string `gorm:"type:varchar(500);not null"        json:"dates"`
	BaseModel
}

func (RawRequest) TableName() string { return "raw_requests" }

func (r *RawRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.RequestID)
	return nil
}

// RoomRequest 房间放置请求，对应 room_requests
type RoomRequest struct {
	RoomRequestID string `gorm:"type:varchar(36);primaryKey"  json:"room_request_id"`
	Month         string `gorm:"type:char(7);not null;index"   json:"month"`
	Person        string `gorm:"type:varchar(64);not null"     json:"person"`
	Kind          string `gorm:"type:varchar(16);not null"     json:"kind"` // fixed | priority
	Category      string `gorm:"type:varchar(64);not null"     json:"category"`
	Dates         string `gorm:"type:varchar(500);not null"    json:"dates"`
	BaseModel
}

func (RoomRequest) TableName() string { return "room_requests" }

func (r *RoomRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.RoomRequestID)
	return nil
}

// Holiday 休馆日，对应 holidays
type Holiday struct {
	HolidayID string `gorm:"type:varchar(36);primaryKey"                json:"holiday_id"`
	Date      string `gorm:"type:varchar(10);not null;uniqueIndex"      json:"date"`
	Name      string `gorm:"type:varchar(200);not null;default:''"      json:"name"`
	Source    string `gorm:"type:varchar(16);not null;default:'manual'" json:"source"` // manual | ics
	BaseModel
}

func (Holiday) TableName() string { return "holidays" }

func (h *Holiday) BeforeCreate(*gorm.DB) error {
	ensureID(&h.HolidayID)
	return nil
}

// SaturdayOverride 周六手工名单，对应 saturday_overrides
type SaturdayOverride struct {
	Date    string                      `gorm:"type:varchar(10);primaryKey"     json:"date"`
	Persons datatypes.JSONSlice[string] `gorm:"type:text;not null;default:'[]'" json:"persons"`
	BaseModel
}

func (SaturdayOverride) TableName() string { return "saturday_overrides" }

// [自证通过] internal/model/roster.go
