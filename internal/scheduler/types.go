package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ── 班次 ──

// Shift 半日班次
type Shift string

const (
	Morning   Shift = "morning"
	Afternoon Shift = "afternoon"
)

// Valid 是否为合法班次
func (s Shift) Valid() bool {
	return s == Morning || s == Afternoon
}

// ParseShift 解析班次（兼容韩文标签 오전/오후）
func ParseShift(s string) (Shift, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "morning", "am", "오전":
		return Morning, nil
	case "afternoon", "pm", "오후":
		return Afternoon, nil
	}
	return "", fmt.Errorf("未知班次: %q", s)
}

// ── 排班状态 ──

// Status 单元格状态
type Status string

const (
	StatusBase              Status = "base"
	StatusSupplemented      Status = "supplemented"
	StatusExcluded          Status = "excluded"
	StatusExtraSupplemented Status = "extra_supplemented"
	StatusExtraExcluded     Status = "extra_excluded"
	StatusVacationExcluded  Status = "vacation_excluded"
)

// Confirmed 该状态是否计入当日在岗人数
func (s Status) Confirmed() bool {
	return s == StatusBase || s == StatusSupplemented || s == StatusExtraSupplemented
}

// ColorTag 导出与日历展示使用的颜色标记
type ColorTag string

const (
	ColorDefault ColorTag = "default"
	ColorMust    ColorTag = "orange"
	ColorSupp    ColorTag = "green"
	ColorExtra   ColorTag = "yellow"
	ColorVac     ColorTag = "red"
	ColorMoved   ColorTag = "blue"
	ColorTrim    ColorTag = "purple"
)

// 备注文本（持久化后供日历与导出展示）
const (
	MemoMoved       = "moved to cover shortage elsewhere"
	MemoSupplied    = "supplemented from surplus"
	MemoExtraSupp   = "extra supplement for residual shortfall"
	MemoExtraTrim   = "extra exclusion for residual surplus"
	MemoCascaded    = "cascaded from morning exclusion"
	MemoVacation    = "vacation"
	MemoMustWork    = "must-work request"
	MemoSwappedWith = "swapped with"
)

// DayAssignment 某日某班次某人的排班记录
type DayAssignment struct {
	Date     time.Time `json:"date"`
	Shift    Shift     `json:"shift"`
	Person   string    `json:"person"`
	Status   Status    `json:"status"`
	Memo     string    `json:"memo,omitempty"`
	ColorTag ColorTag  `json:"color_tag"`
}

// SlotAssignment 某日某时段房间的人员
type SlotAssignment struct {
	Date   time.Time `json:"date"`
	SlotID string    `json:"slot_id"`
	Person string    `json:"person"`
}

// OnCallAssignment 当日值班
type OnCallAssignment struct {
	Date   time.Time `json:"date"`
	Person string    `json:"person"`
	Source string    `json:"source"` // quota | lottery
}

const (
	OnCallSourceQuota   = "quota"
	OnCallSourceLottery = "lottery"
)

// DaySnapshot 单日某班次在岗名单（手动调整后的日历快照）
type DaySnapshot struct {
	Date    time.Time `json:"date"`
	Persons []string  `json:"persons"`
}

// SwapLogEntry 换班审计记录（只追加）
type SwapLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Shift     Shift     `json:"shift"`
	Date1     time.Time `json:"date1"`
	PersonA   string    `json:"person_a"`
	Date2     time.Time `json:"date2"`
	PersonB   string    `json:"person_b"`
}

// SaturdayOverride 周六手工名单
type SaturdayOverride struct {
	Date    time.Time `json:"date"`
	Persons []string  `json:"persons"`
}

// ── 日期工具 ──

// DateLayout 全局日期格式
const DateLayout = "2006-01-02"

// Day 截断到 UTC 零点，用作 map 键
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsWeekday 周一至周五
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// WeekOfMonth 月内周次：1-7 日为第 1 周，依此类推
func WeekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

func sortDates(ds []time.Time) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}

// Month 排班周期（自然月）
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth 解析 YYYY-MM
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("月份格式无效 %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Days 当月所有日期
func (m Month) Days() []time.Time {
	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	var out []time.Time
	for d := first; d.Month() == m.Month; d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Prev 上一个月
func (m Month) Prev() Month {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Contains 日期是否落在当月
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// ── 警告 ──

// WarningKind 非致命问题分类
type WarningKind string

const (
	WarnValidation     WarningKind = "validation"
	WarnCapacity       WarningKind = "capacity"
	WarnNonConvergence WarningKind = "non_convergence"
	WarnConflict       WarningKind = "conflict"
	WarnSurplus        WarningKind = "surplus"
	WarnOnCallEmpty    WarningKind = "oncall_empty"
	WarnNotice         WarningKind = "notice"
	WarnUnresolved     WarningKind = "unresolved"
	WarnUnplaced       WarningKind = "unplaced"
)

// Warning 运行结束时统一汇报的非致命信息
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Date    *time.Time  `json:"date,omitempty"`
	Shift   Shift       `json:"shift,omitempty"`
	Person  string      `json:"person,omitempty"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(string(w.Kind))
	if w.Date != nil {
		b.WriteString(" " + FormatDate(*w.Date))
	}
	if w.Shift != "" {
		b.WriteString(" " + string(w.Shift))
	}
	if w.Person != "" {
		b.WriteString(" " + w.Person)
	}
	b.WriteString(": " + w.Message)
	return b.String()
}

func newWarning(kind WarningKind, date time.Time, shift Shift, person, msg string) Warning {
	d := Day(date)
	return Warning{Kind: kind, Date: &d, Shift: shift, Person: person, Message: msg}
}

// ── 错误类型 ──

// ValidationError 单行输入或单个放置失败，不影响整次运行
type ValidationError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("第 %d 行 %s=%q 校验失败: %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s=%q 校验失败: %s", e.Field, e.Value, e.Reason)
}

// CapacityError 某必填位置无合格候选人
type CapacityError struct {
	Date   time.Time
	Shift  Shift
	SlotID string
	Need   int
	Have   int
}

func (e *CapacityError) Error() string {
	if e.SlotID != "" {
		return fmt.Sprintf("%s %s 无可用人员", FormatDate(e.Date), e.SlotID)
	}
	return fmt.Sprintf("%s %s 人数不足: 目标 %d, 实际 %d", FormatDate(e.Date), e.Shift, e.Need, e.Have)
}

func warningFromValidation(row int, err *ValidationError) Warning {
	return Warning{Kind: WarnValidation, Message: "第 " + strconv.Itoa(row) + " 行已跳过: " + err.Reason, Err: err}
}
