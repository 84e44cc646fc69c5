package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/HUI135/gc-endoscopy-room-sub001/config"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/repository"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/scheduler"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/metrics"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/retry"
)

// ── 运行模块业务错误 ──

var (
	ErrInvalidMonth     = errors.New("月份格式无效")
	ErrNoDayAssignments = errors.New("该月份尚未生成班次排班，请先运行班次分配")
	ErrPersistFailed    = errors.New("部分排班结果写入失败")
)

const (
	runKindShifts = "shifts"
	runKindRooms  = "rooms"

	runStatusRunning   = "running"
	runStatusSucceeded = "succeeded"
	runStatusFailed    = "failed"
)

// RunService 排班运行业务接口
type RunService interface {
	// 班次分配 + 值班分配
	RunShifts(ctx context.Context, req *dto.RunShiftsRequest, callerID string) (*dto.RunResponse, error)
	// 房间分配
	RunRooms(ctx context.Context, req *dto.RunRoomsRequest, callerID string) (*dto.RunResponse, error)
	// 运行记录
	ListRuns(ctx context.Context, month string) ([]dto.EngineRunResponse, error)
}

// storePolicy 持久化重试参数
type storePolicy struct {
	attempts int
	delay    time.Duration
}

func (p storePolicy) do(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, p.attempts, p.delay, fn)
}

type runService struct {
	repo    *repository.Repository
	live    *config.Live
	catalog *scheduler.RoomCatalog
	locker  RunLocker
	store   storePolicy
	metrics metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewRunService 创建 RunService 实例
func NewRunService(
	repo *repository.Repository,
	live *config.Live,
	catalog *scheduler.RoomCatalog,
	locker RunLocker,
	store storePolicy,
	rec metrics.Recorder,
	logger *zap.Logger,
) RunService {
	return &runService{
		repo:    repo,
		live:    live,
		catalog: catalog,
		locker:  locker,
		store:   store,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
	}
}

// monthLockKey 班次与房间运行、换班对账共用同一把月份锁
func monthLockKey(month string) string {
	return "month:" + month
}

// ════════════════════════════════════════════════════════════
// RunShifts 加载快照 → 平衡 → 值班 → 分别持久化
// ════════════════════════════════════════════════════════════

// shiftInputs 运行开始时的输入快照
type shiftInputs struct {
	master    []model.MasterRosterEntry
	requests  []model.RawRequest
	holidays  []model.Holiday
	saturdays []model.SaturdayOverride
	prior     []model.FairnessCounter
	current   []model.FairnessCounter
}

func (s *runService) RunShifts(ctx context.Context, req *dto.RunShiftsRequest, callerID string) (*dto.RunResponse, error) {
	month, err := scheduler.ParseMonth(req.Month)
	if err != nil {
		return nil, ErrInvalidMonth
	}
	key := month.String()

	release, err := s.locker.Acquire(ctx, monthLockKey(key))
	if err != nil {
		return nil, err
	}
	defer release()

	started := s.now()
	seed := s.seed(req.Seed)
	run, err := s.startRun(ctx, key, runKindShifts, seed, callerID)
	if err != nil {
		return nil, err
	}

	// 1. 并行加载输入快照
	var in shiftInputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { in.master, err = s.repo.Master.List(gctx); return })
	g.Go(func() (err error) { in.requests, err = s.repo.Request.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { in.holidays, err = s.repo.Holiday.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { in.saturdays, err = s.repo.Saturday.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { in.prior, err = s.repo.Fairness.ListByPeriod(gctx, month.Prev().String()); return })
	g.Go(func() (err error) { in.current, err = s.repo.Fairness.ListByPeriod(gctx, key); return })
	if err := g.Wait(); err != nil {
		s.logger.Error("加载排班输入失败", zap.String("month", key), zap.Error(err))
		s.finishRun(ctx, run, started, nil, err)
		return nil, err
	}

	// 2. 规范化
	entries, warnings := toMasterEntries(in.master)
	requests, w := scheduler.Normalize(toRawRequests(in.requests))
	warnings = append(warnings, w...)

	cfg := s.live.Engine()
	result := scheduler.RunShiftAssignment(scheduler.ShiftRunInput{
		Month:             month,
		Requests:          requests,
		Master:            scheduler.NewMasterRoster(entries),
		Prior:             scheduler.CarryForward(toCounters(in.prior)),
		Holidays:          toHolidayDates(in.holidays),
		SaturdayOverrides: toSaturdayOverrides(in.saturdays),
		Config: scheduler.BalanceConfig{
			MaxIterations:         cfg.MaxIterations,
			WeekdayMorningTarget:  cfg.WeekdayMorningTarget,
			SaturdayMorningTarget: cfg.SaturdayMorningTarget,
			AfternoonTarget:       cfg.AfternoonTarget,
			SaturdayCap:           cfg.SaturdayCap,
		},
		Rand: rand.New(rand.NewSource(seed)),
	})
	warnings = append(warnings, result.Warnings...)

	// 3. 分别持久化；单个产物失败不影响其他产物
	var failed []string
	if err := s.store.do(ctx, func() error {
		return s.repo.Day.ReplaceMonth(ctx, key, dayRows(key, result.Days, callerID))
	}); err != nil {
		s.logger.Error("写入班次排班失败", zap.String("month", key), zap.Error(err))
		failed = append(failed, "day_assignments")
	}
	if err := s.store.do(ctx, func() error {
		return s.repo.OnCall.ReplaceMonth(ctx, key, onCallRows(key, result.OnCall, callerID))
	}); err != nil {
		s.logger.Error("写入值班失败", zap.String("month", key), zap.Error(err))
		failed = append(failed, "on_call")
	}
	// 旧的房间分配基于上一版班次，需重新运行房间分配
	if err := s.store.do(ctx, func() error {
		return s.repo.Slot.ReplaceMonth(ctx, key, nil)
	}); err != nil {
		s.logger.Error("清除房间分配失败", zap.String("month", key), zap.Error(err))
		failed = append(failed, "slot_assignments")
	}
	if err := s.store.do(ctx, func() error {
		return s.repo.Fairness.SavePeriod(ctx, key, counterRows(key, result.Counters, in.current, callerID))
	}); err != nil {
		s.logger.Error("写入公平性台账失败", zap.String("month", key), zap.Error(err))
		failed = append(failed, "fairness_counters")
	}

	var runErr error
	if len(failed) > 0 {
		runErr = fmt.Errorf("%w: %s", ErrPersistFailed, strings.Join(failed, ", "))
	}
	s.reportWarnings(key, runKindShifts, warnings)
	s.finishRun(ctx, run, started, warnings, runErr)
	if runErr != nil {
		return nil, runErr
	}

	confirmed := 0
	for _, d := range result.Days {
		if d.Status.Confirmed() {
			confirmed++
		}
	}
	s.logger.Info("班次分配完成",
		zap.String("month", key),
		zap.String("run_id", run.RunID),
		zap.Int64("seed", seed),
		zap.Int("records", len(result.Days)),
		zap.Int("warnings", len(warnings)),
	)

	return &dto.RunResponse{
		RunID:    run.RunID,
		Month:    key,
		Kind:     runKindShifts,
		Seed:     seed,
		Warnings: warningResponses(warnings),
		Counts: map[string]int{
			"day_assignments": len(result.Days),
			"confirmed":       confirmed,
			"on_call":         len(result.OnCall),
			"persons":         len(result.Counters),
		},
	}, nil
}

// ════════════════════════════════════════════════════════════
// RunRooms 基于已持久化的班次与值班分配房间
// ════════════════════════════════════════════════════════════

func (s *runService) RunRooms(ctx context.Context, req *dto.RunRoomsRequest, callerID string) (*dto.RunResponse, error) {
	month, err := scheduler.ParseMonth(req.Month)
	if err != nil {
		return nil, ErrInvalidMonth
	}
	key := month.String()

	release, err := s.locker.Acquire(ctx, monthLockKey(key))
	if err != nil {
		return nil, err
	}
	defer release()

	started := s.now()
	seed := s.seed(req.Seed)
	run, err := s.startRun(ctx, key, runKindRooms, seed, callerID)
	if err != nil {
		return nil, err
	}

	var (
		days     []model.DayAssignment
		oncall   []model.OnCallAssignment
		roomReqs []model.RoomRequest
		prior    []model.FairnessCounter
		current  []model.FairnessCounter
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { days, err = s.repo.Day.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { oncall, err = s.repo.OnCall.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { roomReqs, err = s.repo.RoomRequest.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { prior, err = s.repo.Fairness.ListByPeriod(gctx, month.Prev().String()); return })
	g.Go(func() (err error) { current, err = s.repo.Fairness.ListByPeriod(gctx, key); return })
	if err := g.Wait(); err != nil {
		s.logger.Error("加载房间分配输入失败", zap.String("month", key), zap.Error(err))
		s.finishRun(ctx, run, started, nil, err)
		return nil, err
	}
	if len(days) == 0 {
		s.finishRun(ctx, run, started, nil, ErrNoDayAssignments)
		return nil, ErrNoDayAssignments
	}

	reqs, warnings := scheduler.Normalize(toRoomRawRequests(roomReqs))
	fixed, priority := scheduler.Placements(reqs)

	// 起始台账由上期结转与本期班次记录重建，重复运行结果一致
	dayRecs := toDayAssignments(days)
	onCallRecs := toOnCall(oncall)
	seedCounters := scheduler.DeriveCounters(scheduler.CarryForward(toCounters(prior)), dayRecs, onCallRecs, nil, nil)

	result := scheduler.RunRoomAssignment(scheduler.RoomRunInput{
		Month:    month,
		Days:     dayRecs,
		OnCall:   onCallRecs,
		Fixed:    fixed,
		Priority: priority,
		Catalog:  s.catalog,
		Seed:     seedCounters,
		Rand:     rand.New(rand.NewSource(seed)),
	})
	warnings = append(warnings, result.Warnings...)

	var failed []string
	if err := s.store.do(ctx, func() error {
		return s.repo.Slot.ReplaceMonth(ctx, key, slotRows(key, result.Slots, callerID))
	}); err != nil {
		s.logger.Error("写入房间分配失败", zap.String("month", key), zap.Error(err))
		failed = append(failed, "slot_assignments")
	}
	if err := s.store.do(ctx, func() error {
		return s.repo.Fairness.SavePeriod(ctx, key, counterRows(key, result.Counters, current, callerID))
	}); err != nil {
		s.logger.Error("写入公平性台账失败", zap.String("month", key), zap.Error(err))
		failed = append(failed, "fairness_counters")
	}

	var runErr error
	if len(failed) > 0 {
		runErr = fmt.Errorf("%w: %s", ErrPersistFailed, strings.Join(failed, ", "))
	}
	s.reportWarnings(key, runKindRooms, warnings)
	s.finishRun(ctx, run, started, warnings, runErr)
	if runErr != nil {
		return nil, runErr
	}

	s.logger.Info("房间分配完成",
		zap.String("month", key),
		zap.String("run_id", run.RunID),
		zap.Int("slots", len(result.Slots)),
		zap.Int("warnings", len(warnings)),
	)

	return &dto.RunResponse{
		RunID:    run.RunID,
		Month:    key,
		Kind:     runKindRooms,
		Seed:     seed,
		Warnings: warningResponses(warnings),
		Counts: map[string]int{
			"slot_assignments":  len(result.Slots),
			"fixed_requests":    len(fixed),
			"priority_requests": len(priority),
		},
	}, nil
}

// ════════════════════════════════════════════════════════════
// ListRuns
// ════════════════════════════════════════════════════════════

func (s *runService) ListRuns(ctx context.Context, month string) ([]dto.EngineRunResponse, error) {
	runs, err := s.repo.Run.ListByMonth(ctx, month)
	if err != nil {
		s.logger.Error("查询运行记录失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.EngineRunResponse, 0, len(runs))
	for _, r := range runs {
		resp := dto.EngineRunResponse{
			RunID:        r.RunID,
			Month:        r.Month,
			Kind:         r.Kind,
			Status:       r.Status,
			Seed:         r.Seed,
			WarningCount: r.WarningCount,
			Warnings:     []string(r.Warnings),
			Error:        r.Error,
			StartedAt:    r.StartedAt.Format(time.RFC3339),
		}
		if r.FinishedAt != nil {
			f := r.FinishedAt.Format(time.RFC3339)
			resp.FinishedAt = &f
		}
		out = append(out, resp)
	}
	return out, nil
}

// ── 辅助 ──

func (s *runService) seed(requested *int64) int64 {
	if requested != nil {
		return *requested
	}
	return s.now().UnixNano()
}

func (s *runService) startRun(ctx context.Context, month, kind string, seed int64, callerID string) (*model.EngineRun, error) {
	run := &model.EngineRun{
		Month:     month,
		Kind:      kind,
		Status:    runStatusRunning,
		Seed:      seed,
		StartedAt: s.now(),
	}
	if callerID != "" {
		run.CreatedBy = &callerID
	}
	if err := s.repo.Run.Create(ctx, run); err != nil {
		s.logger.Error("创建运行记录失败", zap.Error(err))
		return nil, err
	}
	return run, nil
}

func (s *runService) finishRun(ctx context.Context, run *model.EngineRun, started time.Time, warnings []scheduler.Warning, runErr error) {
	finished := s.now()
	run.FinishedAt = &finished
	run.WarningCount = len(warnings)
	run.Warnings = make(datatypes.JSONSlice[string], 0, len(warnings))
	for _, w := range warnings {
		run.Warnings = append(run.Warnings, w.String())
	}
	run.Status = runStatusSucceeded
	if runErr != nil {
		run.Status = runStatusFailed
		run.Error = runErr.Error()
	}
	if err := s.repo.Run.Finish(ctx, run); err != nil {
		s.logger.Warn("更新运行记录失败", zap.String("run_id", run.RunID), zap.Error(err))
	}
	s.metrics.RunFinished(run.Kind, run.Status, finished.Sub(started))
}

// reportWarnings 运行结束时统一输出全部非致命警告
func (s *runService) reportWarnings(month, kind string, warnings []scheduler.Warning) {
	for _, w := range warnings {
		s.metrics.Warning(string(w.Kind))
		fields := []zap.Field{
			zap.String("month", month),
			zap.String("run", kind),
			zap.String("kind", string(w.Kind)),
		}
		if w.Date != nil {
			fields = append(fields, zap.String("date", scheduler.FormatDate(*w.Date)))
		}
		if w.Shift != "" {
			fields = append(fields, zap.String("shift", string(w.Shift)))
		}
		if w.Person != "" {
			fields = append(fields, zap.String("person", w.Person))
		}
		if w.Err != nil {
			fields = append(fields, zap.Error(w.Err))
		}
		s.logger.Warn(w.Message, fields...)
	}
}

// [自证通过] internal/service/run_service.go
