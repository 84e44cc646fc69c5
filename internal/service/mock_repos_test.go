package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/repository"
	pkgerrors "github.com/HUI135/gc-endoscopy-room-sub001/pkg/errors"
)

// ── Mock MasterRosterRepository ──

type mockMasterRepo struct {
	entries []model.MasterRosterEntry
}

func (m *mockMasterRepo) List(_ context.Context) ([]model.MasterRosterEntry, error) {
	return append([]model.MasterRosterEntry(nil), m.entries...), nil
}

func (m *mockMasterRepo) Replace(_ context.Context, entries []model.MasterRosterEntry) error {
	m.entries = append([]model.MasterRosterEntry(nil), entries...)
	return nil
}

// ── Mock RequestRepository ──

type mockRequestRepo struct {
	rows []model.RawRequest
	seq  int
}

func (m *mockRequestRepo) BatchCreate(_ context.Context, rows []model.RawRequest) error {
	for _, r := range rows {
		m.seq++
		if r.RequestID == "" {
			r.RequestID = fmt.Sprintf("req-%d", m.seq)
		}
		m.rows = append(m.rows, r)
	}
	return nil
}

func (m *mockRequestRepo) ListByMonth(_ context.Context, month string) ([]model.RawRequest, error) {
	var out []model.RawRequest
	for _, r := range m.rows {
		if r.Month == month {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*model.RawRequest, error) {
	for i := range m.rows {
		if m.rows[i].RequestID == id {
			return &m.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestRepo) Delete(_ context.Context, id string) error {
	for i := range m.rows {
		if m.rows[i].RequestID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock RoomRequestRepository ──

type mockRoomRequestRepo struct {
	rows []model.RoomRequest
}

func (m *mockRoomRequestRepo) BatchCreate(_ context.Context, rows []model.RoomRequest) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *mockRoomRequestRepo) ListByMonth(_ context.Context, month string) ([]model.RoomRequest, error) {
	var out []model.RoomRequest
	for _, r := range m.rows {
		if r.Month == month {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRoomRequestRepo) Delete(_ context.Context, id string) error {
	for i := range m.rows {
		if m.rows[i].RoomRequestID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock HolidayRepository ──

type mockHolidayRepo struct {
	byDate map[string]model.Holiday
}

func newMockHolidayRepo() *mockHolidayRepo {
	return &mockHolidayRepo{byDate: make(map[string]model.Holiday)}
}

func (m *mockHolidayRepo) Upsert(_ context.Context, holidays []model.Holiday) error {
	for _, h := range holidays {
		m.byDate[h.Date] = h
	}
	return nil
}

func (m *mockHolidayRepo) ListByMonth(_ context.Context, month string) ([]model.Holiday, error) {
	var out []model.Holiday
	for d, h := range m.byDate {
		if strings.HasPrefix(d, month+"-") {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// ── Mock SaturdayRepository ──

type mockSaturdayRepo struct {
	byDate map[string]model.SaturdayOverride
}

func newMockSaturdayRepo() *mockSaturdayRepo {
	return &mockSaturdayRepo{byDate: make(map[string]model.SaturdayOverride)}
}

func (m *mockSaturdayRepo) Upsert(_ context.Context, o *model.SaturdayOverride) error {
	m.byDate[o.Date] = *o
	return nil
}

func (m *mockSaturdayRepo) ListByMonth(_ context.Context, month string) ([]model.SaturdayOverride, error) {
	var out []model.SaturdayOverride
	for d, o := range m.byDate {
		if strings.HasPrefix(d, month+"-") {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// ── Mock DayAssignmentRepository ──

type mockDayRepo struct {
	byMonth     map[string][]model.DayAssignment
	replaceErr  error
	replaceCall int
}

func newMockDayRepo() *mockDayRepo {
	return &mockDayRepo{byMonth: make(map[string][]model.DayAssignment)}
}

func (m *mockDayRepo) ListByMonth(_ context.Context, month string) ([]model.DayAssignment, error) {
	return append([]model.DayAssignment(nil), m.byMonth[month]...), nil
}

func (m *mockDayRepo) ListByPerson(_ context.Context, month, person string) ([]model.DayAssignment, error) {
	var out []model.DayAssignment
	for _, d := range m.byMonth[month] {
		if d.Person == person {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDayRepo) Find(_ context.Context, date, shift, person string) (*model.DayAssignment, error) {
	month := date[:7]
	for _, d := range m.byMonth[month] {
		if d.Date == date && d.Shift == shift && d.Person == person {
			d := d
			return &d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDayRepo) ReplaceMonth(_ context.Context, month string, rows []model.DayAssignment) error {
	m.replaceCall++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.byMonth[month] = append([]model.DayAssignment(nil), rows...)
	return nil
}

// ── Mock SlotAssignmentRepository ──

type mockSlotRepo struct {
	byMonth map[string][]model.SlotAssignment
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{byMonth: make(map[string][]model.SlotAssignment)}
}

func (m *mockSlotRepo) ListByMonth(_ context.Context, month string) ([]model.SlotAssignment, error) {
	return append([]model.SlotAssignment(nil), m.byMonth[month]...), nil
}

func (m *mockSlotRepo) ReplaceMonth(_ context.Context, month string, rows []model.SlotAssignment) error {
	m.byMonth[month] = append([]model.SlotAssignment(nil), rows...)
	return nil
}

// ── Mock OnCallRepository ──

type mockOnCallRepo struct {
	byMonth map[string][]model.OnCallAssignment
}

func newMockOnCallRepo() *mockOnCallRepo {
	return &mockOnCallRepo{byMonth: make(map[string][]model.OnCallAssignment)}
}

func (m *mockOnCallRepo) ListByMonth(_ context.Context, month string) ([]model.OnCallAssignment, error) {
	return append([]model.OnCallAssignment(nil), m.byMonth[month]...), nil
}

func (m *mockOnCallRepo) ReplaceMonth(_ context.Context, month string, rows []model.OnCallAssignment) error {
	m.byMonth[month] = append([]model.OnCallAssignment(nil), rows...)
	return nil
}

// ── Mock FairnessRepository（带版本校验） ──

type mockFairnessRepo struct {
	byPeriod map[string][]model.FairnessCounter
	seq      int
}

func newMockFairnessRepo() *mockFairnessRepo {
	return &mockFairnessRepo{byPeriod: make(map[string][]model.FairnessCounter)}
}

func (m *mockFairnessRepo) ListByPeriod(_ context.Context, period string) ([]model.FairnessCounter, error) {
	return append([]model.FairnessCounter(nil), m.byPeriod[period]...), nil
}

func (m *mockFairnessRepo) SavePeriod(_ context.Context, period string, rows []model.FairnessCounter) error {
	existing := make(map[string]model.FairnessCounter)
	for _, e := range m.byPeriod[period] {
		existing[e.CounterID] = e
	}
	out := make([]model.FairnessCounter, 0, len(rows))
	for _, r := range rows {
		if r.CounterID == "" {
			m.seq++
			r.CounterID = fmt.Sprintf("fc-%d", m.seq)
			r.Version = 1
		} else {
			e, ok := existing[r.CounterID]
			if !ok || e.Version != r.Version {
				return pkgerrors.ErrOptimisticLock
			}
			r.Version++
		}
		out = append(out, r)
	}
	m.byPeriod[period] = out
	return nil
}

// ── Mock SwapLogRepository ──

type mockSwapLogRepo struct {
	logs []model.SwapLog
}

func (m *mockSwapLogRepo) BatchCreate(_ context.Context, logs []model.SwapLog) error {
	m.logs = append(m.logs, logs...)
	return nil
}

func (m *mockSwapLogRepo) ListByMonth(_ context.Context, month string, offset, limit int) ([]model.SwapLog, int64, error) {
	var all []model.SwapLog
	for _, l := range m.logs {
		if l.Month == month {
			all = append(all, l)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock ChangeRequestRepository ──

type mockChangeRequestRepo struct {
	byID map[string]*model.ChangeRequest
	seq  int
}

func newMockChangeRequestRepo() *mockChangeRequestRepo {
	return &mockChangeRequestRepo{byID: make(map[string]*model.ChangeRequest)}
}

func (m *mockChangeRequestRepo) Create(_ context.Context, req *model.ChangeRequest) error {
	m.seq++
	if req.ChangeRequestID == "" {
		req.ChangeRequestID = fmt.Sprintf("cr-%d", m.seq)
	}
	m.byID[req.ChangeRequestID] = req
	return nil
}

func (m *mockChangeRequestRepo) GetByID(_ context.Context, id string) (*model.ChangeRequest, error) {
	if r, ok := m.byID[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChangeRequestRepo) ListByMonth(_ context.Context, month, person string) ([]model.ChangeRequest, error) {
	var out []model.ChangeRequest
	for _, r := range m.byID {
		if r.Month == month && (person == "" || r.Person == person) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangeRequestID < out[j].ChangeRequestID })
	return out, nil
}

func (m *mockChangeRequestRepo) UpdateStatus(_ context.Context, id, status string, updatedBy *string) error {
	r, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Status = status
	r.UpdatedBy = updatedBy
	return nil
}

// ── Mock EngineRunRepository ──

type mockRunRepo struct {
	mu   sync.Mutex
	runs []*model.EngineRun
	seq  int
}

func (m *mockRunRepo) Create(_ context.Context, run *model.EngineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if run.RunID == "" {
		run.RunID = fmt.Sprintf("run-%d", m.seq)
	}
	cp := *run
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *mockRunRepo) Finish(_ context.Context, run *model.EngineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.RunID == run.RunID {
			*r = *run
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockRunRepo) ListByMonth(_ context.Context, month string) ([]model.EngineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.EngineRun
	for _, r := range m.runs {
		if r.Month == month {
			out = append(out, *r)
		}
	}
	return out, nil
}

// ── 聚合 ──

type mockRepos struct {
	master        *mockMasterRepo
	request       *mockRequestRepo
	roomRequest   *mockRoomRequestRepo
	holiday       *mockHolidayRepo
	saturday      *mockSaturdayRepo
	day           *mockDayRepo
	slot          *mockSlotRepo
	oncall        *mockOnCallRepo
	fairness      *mockFairnessRepo
	swapLog       *mockSwapLogRepo
	changeRequest *mockChangeRequestRepo
	run           *mockRunRepo
}

func newMockRepos() (*mockRepos, *repository.Repository) {
	m := &mockRepos{
		master:        &mockMasterRepo{},
		request:       &mockRequestRepo{},
		roomRequest:   &mockRoomRequestRepo{},
		holiday:       newMockHolidayRepo(),
		saturday:      newMockSaturdayRepo(),
		day:           newMockDayRepo(),
		slot:          newMockSlotRepo(),
		oncall:        newMockOnCallRepo(),
		fairness:      newMockFairnessRepo(),
		swapLog:       &mockSwapLogRepo{},
		changeRequest: newMockChangeRequestRepo(),
		run:           &mockRunRepo{},
	}
	repo := &repository.Repository{
		Master:        m.master,
		Request:       m.request,
		RoomRequest:   m.roomRequest,
		Holiday:       m.holiday,
		Saturday:      m.saturday,
		Day:           m.day,
		Slot:          m.slot,
		OnCall:        m.oncall,
		Fairness:      m.fairness,
		SwapLog:       m.swapLog,
		ChangeRequest: m.changeRequest,
		Run:           m.run,
	}
	return m, repo
}
