package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ShiftValue 周模板中的出勤取值
type ShiftValue string

const (
	ValueMorning   ShiftValue = "morning"
	ValueAfternoon ShiftValue = "afternoon"
	ValueBoth      ShiftValue = "both"
	ValueNone      ShiftValue = "none"
)

// Includes 该取值是否包含指定班次
func (v ShiftValue) Includes(s Shift) bool {
	switch v {
	case ValueBoth:
		return true
	case ValueMorning:
		return s == Morning
	case ValueAfternoon:
		return s == Afternoon
	}
	return false
}

// ParseShiftValue 解析出勤取值（兼容 오전 / 오후 / 오전 & 오후 / 근무없음）
func ParseShiftValue(s string) (ShiftValue, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "morning", "오전":
		return ValueMorning, nil
	case "afternoon", "오후":
		return ValueAfternoon, nil
	case "both", "오전 & 오후", "오전&오후":
		return ValueBoth, nil
	case "none", "", "근무없음":
		return ValueNone, nil
	}
	return "", fmt.Errorf("未知出勤取值: %q", s)
}

// EveryWeek 周次标签 "every"
const EveryWeek = 0

// ParseWeekLabel 解析周次标签："every" / "매주" → 0，"week 2" / "2주" → 2
func ParseWeekLabel(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "every", "every week", "매주":
		return EveryWeek, nil
	}
	num := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "week"), "주"))
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > 5 {
		return 0, fmt.Errorf("未知周次标签: %q", s)
	}
	return n, nil
}

// MasterEntry 周模板的一行
type MasterEntry struct {
	Person  string
	Week    int // 0 = 每周
	Weekday time.Weekday
	Value   ShiftValue
}

type masterKey struct {
	person  string
	week    int
	weekday time.Weekday
}

// MasterRoster 周模板，只读
type MasterRoster struct {
	values  map[masterKey]ShiftValue
	persons []string
}

// NewMasterRoster 由模板行构建。重复行以后出现者为准。
func NewMasterRoster(entries []MasterEntry) *MasterRoster {
	m := &MasterRoster{values: make(map[masterKey]ShiftValue)}
	seen := make(map[string]bool)
	for _, e := range entries {
		name := strings.TrimSpace(e.Person)
		if name == "" {
			continue
		}
		m.values[masterKey{person: name, week: e.Week, weekday: e.Weekday}] = e.Value
		if !seen[name] {
			seen[name] = true
			m.persons = append(m.persons, name)
		}
	}
	sort.Strings(m.persons)
	return m
}

// Persons 模板中出现的全部人员（排序）
func (m *MasterRoster) Persons() []string {
	out := make([]string, len(m.persons))
	copy(out, m.persons)
	return out
}

// Value 某人某日的模板取值，特定周次优先于每周
func (m *MasterRoster) Value(person string, date time.Time) ShiftValue {
	wd := date.Weekday()
	if v, ok := m.values[masterKey{person: person, week: WeekOfMonth(date), weekday: wd}]; ok {
		return v
	}
	if v, ok := m.values[masterKey{person: person, week: EveryWeek, weekday: wd}]; ok {
		return v
	}
	return ValueNone
}

// BaseRoster 某日某班次的基础名单（排序）
func (m *MasterRoster) BaseRoster(date time.Time, shift Shift) []string {
	var out []string
	for _, p := range m.persons {
		if m.Value(p, date).Includes(shift) {
			out = append(out, p)
		}
	}
	return out
}

// ScheduleDates 当月需排班的日期：非休馆的工作日，以及带手工名单的周六
func ScheduleDates(month Month, holidays []time.Time, saturdays []SaturdayOverride) (weekdays, sats []time.Time) {
	closed := make(map[time.Time]bool, len(holidays))
	for _, h := range holidays {
		closed[Day(h)] = true
	}
	hasRoster := make(map[time.Time]bool, len(saturdays))
	for _, s := range saturdays {
		if len(s.Persons) > 0 {
			hasRoster[Day(s.Date)] = true
		}
	}
	for _, d := range month.Days() {
		if closed[d] {
			continue
		}
		switch {
		case IsWeekday(d):
			weekdays = append(weekdays, d)
		case d.Weekday() == time.Saturday && hasRoster[d]:
			sats = append(sats, d)
		}
	}
	return weekdays, sats
}
