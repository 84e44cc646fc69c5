package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/repository"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/scheduler"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSchedule   = errors.New("该月份暂无排班结果")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 工作簿包含 schedule / rooms / fairness 三个 Sheet。
type ExportService interface {
	// ExportMonth 导出月度排班为 Excel
	ExportMonth(ctx context.Context, month string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	catalog *scheduler.RoomCatalog
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, catalog *scheduler.RoomCatalog, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, catalog: catalog, logger: logger}
}

const (
	sheetSchedule = "schedule"
	sheetRooms    = "rooms"
	sheetFairness = "fairness"
)

// colorFills 颜色标记 → 单元格填充色
var colorFills = map[string]string{
	string(scheduler.ColorMust):  "#F8CBAD",
	string(scheduler.ColorSupp):  "#C6EFCE",
	string(scheduler.ColorExtra): "#FFEB9C",
	string(scheduler.ColorVac):   "#FFC7CE",
	string(scheduler.ColorMoved): "#BDD7EE",
	string(scheduler.ColorTrim):  "#D9C3E9",
}

var weekdayNames = map[int]string{1: "월", 2: "화", 3: "수", 4: "목", 5: "금", 6: "토", 0: "일"}

// ═══════════════════════════════════════════════════════════
// ExportMonth
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - schedule：每日一行，上午 / 下午各占一组列，单元格按颜色标记填充
//   - rooms：每日一行，列为目录中的 slot_id
//   - fairness：每人一行，列为各项计数与房间次数

func (s *exportService) ExportMonth(ctx context.Context, month string) (*bytes.Buffer, string, error) {
	m, err := scheduler.ParseMonth(month)
	if err != nil {
		return nil, "", ErrInvalidMonth
	}
	key := m.String()

	var (
		days     []model.DayAssignment
		slots    []model.SlotAssignment
		oncall   []model.OnCallAssignment
		counters []model.FairnessCounter
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { days, err = s.repo.Day.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { slots, err = s.repo.Slot.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { oncall, err = s.repo.OnCall.ListByMonth(gctx, key); return })
	g.Go(func() (err error) { counters, err = s.repo.Fairness.ListByPeriod(gctx, key); return })
	if err := g.Wait(); err != nil {
		s.logger.Error("查询导出数据失败", zap.String("month", key), zap.Error(err))
		return nil, "", err
	}
	if len(days) == 0 {
		return nil, "", ErrExportNoSchedule
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, name := range []string{sheetSchedule, sheetRooms, sheetFairness} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(sheetSchedule); err == nil {
		f.SetActiveSheet(idx)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	if err := s.writeSchedule(f, headerStyle, days, oncall); err != nil {
		s.logger.Error("写入 schedule Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	if err := s.writeRooms(f, headerStyle, days, slots); err != nil {
		s.logger.Error("写入 rooms Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	if err := s.writeFairness(f, headerStyle, counters); err != nil {
		s.logger.Error("写入 fairness Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("roster_%s.xlsx", key)
	return buf, filename, nil
}

// ── schedule ──

func (s *exportService) writeSchedule(f *excelize.File, headerStyle int, days []model.DayAssignment, oncall []model.OnCallAssignment) error {
	type dayRow struct {
		morning   []model.DayAssignment
		afternoon []model.DayAssignment
	}
	byDate := make(map[string]*dayRow)
	var dates []string
	for _, d := range days {
		r, ok := byDate[d.Date]
		if !ok {
			r = &dayRow{}
			byDate[d.Date] = r
			dates = append(dates, d.Date)
		}
		if d.Shift == string(scheduler.Morning) {
			r.morning = append(r.morning, d)
		} else {
			r.afternoon = append(r.afternoon, d)
		}
	}
	sort.Strings(dates)

	onCallBy := make(map[string]string, len(oncall))
	for _, o := range oncall {
		onCallBy[o.Date] = o.Person
	}

	// 在岗记录在前，其余按人名
	ordered := func(recs []model.DayAssignment) []model.DayAssignment {
		sort.SliceStable(recs, func(i, j int) bool {
			ci, cj := scheduler.Status(recs[i].Status).Confirmed(), scheduler.Status(recs[j].Status).Confirmed()
			if ci != cj {
				return ci
			}
			return recs[i].Person < recs[j].Person
		})
		return recs
	}
	amCols, pmCols := 1, 1
	for _, d := range dates {
		r := byDate[d]
		r.morning = ordered(r.morning)
		r.afternoon = ordered(r.afternoon)
		if len(r.morning) > amCols {
			amCols = len(r.morning)
		}
		if len(r.afternoon) > pmCols {
			pmCols = len(r.afternoon)
		}
	}

	styles := make(map[string]int)
	styleFor := func(tag string, confirmed bool) (int, error) {
		k := fmt.Sprintf("%s:%t", tag, confirmed)
		if id, ok := styles[k]; ok {
			return id, nil
		}
		st := &excelize.Style{Font: &excelize.Font{Strike: !confirmed}}
		if fill, ok := colorFills[tag]; ok {
			st.Fill = excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1}
		}
		id, err := f.NewStyle(st)
		if err != nil {
			return 0, err
		}
		styles[k] = id
		return id, nil
	}

	// 表头
	f.SetCellValue(sheetSchedule, cell("A", 1), "날짜")
	f.SetCellValue(sheetSchedule, cell("B", 1), "요일")
	for i := 0; i < amCols; i++ {
		f.SetCellValue(sheetSchedule, cell(colName(2+i), 1), fmt.Sprintf("오전%d", i+1))
	}
	for i := 0; i < pmCols; i++ {
		f.SetCellValue(sheetSchedule, cell(colName(2+amCols+i), 1), fmt.Sprintf("오후%d", i+1))
	}
	onCallCol := colName(2 + amCols + pmCols)
	f.SetCellValue(sheetSchedule, cell(onCallCol, 1), "오전당직(온콜)")
	f.SetCellStyle(sheetSchedule, "A1", cell(onCallCol, 1), headerStyle)
	f.SetColWidth(sheetSchedule, "A", "A", 12)
	f.SetColWidth(sheetSchedule, "C", onCallCol, 10)

	row := 2
	for _, d := range dates {
		f.SetCellValue(sheetSchedule, cell("A", row), d)
		if t, err := parseDate(d); err == nil {
			f.SetCellValue(sheetSchedule, cell("B", row), weekdayNames[int(t.Weekday())])
		}
		write := func(startCol int, recs []model.DayAssignment) error {
			for i, rec := range recs {
				c := cell(colName(startCol+i), row)
				f.SetCellValue(sheetSchedule, c, rec.Person)
				id, err := styleFor(rec.ColorTag, scheduler.Status(rec.Status).Confirmed())
				if err != nil {
					return err
				}
				f.SetCellStyle(sheetSchedule, c, c, id)
			}
			return nil
		}
		r := byDate[d]
		if err := write(2, r.morning); err != nil {
			return err
		}
		if err := write(2+amCols, r.afternoon); err != nil {
			return err
		}
		f.SetCellValue(sheetSchedule, cell(onCallCol, row), onCallBy[d])
		row++
	}
	return nil
}

// ── rooms ──

func (s *exportService) writeRooms(f *excelize.File, headerStyle int, days []model.DayAssignment, slots []model.SlotAssignment) error {
	catalogSlots := s.catalog.Slots("")
	colOf := make(map[string]int, len(catalogSlots))
	f.SetCellValue(sheetRooms, "A1", "날짜")
	for i, sl := range catalogSlots {
		colOf[sl.ID] = 1 + i
		f.SetCellValue(sheetRooms, cell(colName(1+i), 1), sl.ID)
	}
	lastCol := colName(len(catalogSlots))
	f.SetCellStyle(sheetRooms, "A1", cell(lastCol, 1), headerStyle)
	f.SetColWidth(sheetRooms, "A", "A", 12)
	f.SetColWidth(sheetRooms, "B", lastCol, 13)

	dateSet := make(map[string]bool)
	for _, d := range days {
		dateSet[d.Date] = true
	}
	byDate := make(map[string][]model.SlotAssignment)
	for _, sa := range slots {
		dateSet[sa.Date] = true
		byDate[sa.Date] = append(byDate[sa.Date], sa)
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for i, d := range dates {
		row := 2 + i
		f.SetCellValue(sheetRooms, cell("A", row), d)
		for _, sa := range byDate[d] {
			col, ok := colOf[sa.SlotID]
			if !ok {
				continue
			}
			f.SetCellValue(sheetRooms, cell(colName(col), row), sa.Person)
		}
	}
	return nil
}

// ── fairness ──

func (s *exportService) writeFairness(f *excelize.File, headerStyle int, counters []model.FairnessCounter) error {
	roomSet := make(map[string]bool)
	for _, c := range counters {
		for room := range c.PerRoom.Data() {
			roomSet[room] = true
		}
	}
	rooms := make([]string, 0, len(roomSet))
	for r := range roomSet {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)

	headers := []string{"이름", "오전", "오후", "이른방", "늦은방", "오전당직", "오후당직", "온콜 배정", "온콜 사용"}
	for _, r := range rooms {
		headers = append(headers, r+"번방")
	}
	for i, h := range headers {
		f.SetCellValue(sheetFairness, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetFairness, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(sheetFairness, "A", "A", 14)

	sorted := make([]model.FairnessCounter, len(counters))
	copy(sorted, counters)
	sort.Slice(sorted, func(i, j int) bool { return strings.Compare(sorted[i].Person, sorted[j].Person) < 0 })

	for i, c := range sorted {
		row := 2 + i
		values := []interface{}{c.Person, c.Morning, c.Afternoon, c.Early, c.Late, c.Duty, c.AfternoonDuty, c.OnCallOwed, c.OnCallUsed}
		for _, r := range rooms {
			values = append(values, c.PerRoom.Data()[r])
		}
		if err := f.SetSheetRow(sheetFairness, cell("A", row), &values); err != nil {
			return err
		}
	}
	return nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
