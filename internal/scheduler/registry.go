package scheduler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Category 请求类别（封闭集合）
type Category string

const (
	CatVacation          Category = "vacation"
	CatMustWork          Category = "must_work"
	CatNoSupplement      Category = "no_supplement"
	CatHardSupplement    Category = "hard_supplement"
	CatFixedPlacement    Category = "fixed_placement"
	CatPriorityPlacement Category = "priority_placement"
)

// IsPlacement 是否为房间放置类请求
func (c Category) IsPlacement() bool {
	return c == CatFixedPlacement || c == CatPriorityPlacement
}

// RawRequest 请求存储中的原始行
type RawRequest struct {
	Row      int
	Person   string
	Category string
	Dates    string
}

// Request 规范化后的请求
//
// Shift 仅对 must_work / no_supplement / hard_supplement 有意义；
// vacation 覆盖全天；放置类请求的班次由 Slot 决定。
type Request struct {
	Person   string
	Category Category
	Shift    Shift
	Slot     SlotCategory
	Dates    []time.Time
}

// Covers 请求是否覆盖指定日期
func (r Request) Covers(date time.Time) bool {
	d := Day(date)
	for _, x := range r.Dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

// ════════════════════════════════════════════════════════════
// Normalize 原始请求行 → 类型化请求
// ════════════════════════════════════════════════════════════

// Normalize 规范化原始请求。
// 无法解析的日期或未知类别只跳过该行并记录警告。
func Normalize(rows []RawRequest) ([]Request, []Warning) {
	var (
		out      []Request
		warnings []Warning
	)
	for i, row := range rows {
		rowNo := row.Row
		if rowNo == 0 {
			rowNo = i + 1
		}
		person := strings.TrimSpace(row.Person)
		if person == "" {
			warnings = append(warnings, warningFromValidation(rowNo, &ValidationError{
				Row: rowNo, Field: "person", Value: row.Person, Reason: "姓名为空",
			}))
			continue
		}

		parsed, err := ParseCategory(row.Category)
		if err != nil {
			warnings = append(warnings, warningFromValidation(rowNo, &ValidationError{
				Row: rowNo, Field: "category", Value: row.Category, Reason: err.Error(),
			}))
			continue
		}

		dates, err := ParseDates(row.Dates)
		if err != nil {
			warnings = append(warnings, warningFromValidation(rowNo, &ValidationError{
				Row: rowNo, Field: "dates", Value: row.Dates, Reason: err.Error(),
			}))
			continue
		}
		if len(dates) == 0 {
			// 全部落在周末，无需处理
			continue
		}

		for _, p := range parsed {
			p.Person = person
			p.Dates = dates
			out = append(out, p)
		}
	}
	return out, warnings
}

// ── 日期解析 ──

// ParseDates 解析 "YYYY-MM-DD"、逗号分隔列表以及 "a ~ b" 区间，只保留工作日。
func ParseDates(s string) ([]time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("日期为空")
	}

	seen := make(map[time.Time]bool)
	var out []time.Time
	add := func(d time.Time) {
		d = Day(d)
		if !IsWeekday(d) || seen[d] {
			return
		}
		seen[d] = true
		out = append(out, d)
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "~") {
			bounds := strings.SplitN(part, "~", 2)
			from, err := parseOneDate(bounds[0])
			if err != nil {
				return nil, err
			}
			to, err := parseOneDate(bounds[1])
			if err != nil {
				return nil, err
			}
			if to.Before(from) {
				return nil, fmt.Errorf("区间结束早于开始: %s", part)
			}
			for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
				add(d)
			}
			continue
		}
		d, err := parseOneDate(part)
		if err != nil {
			return nil, err
		}
		add(d)
	}
	sortDates(out)
	return out, nil
}

func parseOneDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效: %q", s)
	}
	return t, nil
}

// ── 类别解析 ──

var canonicalCategory = regexp.MustCompile(`^([a-z_]+)\s*(?:\((.*)\))?$`)

// koreanCategories 诊所沿用的韩文标签
var koreanCategories = map[string]Category{
	"휴가":     CatVacation,
	"학회":     CatVacation,
	"꼭 근무":   CatMustWork,
	"보충 불가":  CatNoSupplement,
	"보충 어려움": CatHardSupplement,
	"고정":     CatFixedPlacement,
	"우선":     CatPriorityPlacement,
}

// ParseCategory 解析类别字符串。
// 同时接受 "must_work(morning)" 与 "꼭 근무(오전)" 两种写法；
// 未指定班次的班次类请求展开为上午、下午两条。
func ParseCategory(s string) ([]Request, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("类别为空")
	}

	name, arg := splitCategory(s)
	cat, ok := lookupCategory(name)
	if !ok {
		// 裸房间标签视为优先放置
		if slot, err := ParseSlotCategory(s); err == nil {
			return []Request{{Category: CatPriorityPlacement, Slot: slot}}, nil
		}
		return nil, fmt.Errorf("未知类别: %q", s)
	}

	switch cat {
	case CatVacation:
		return []Request{{Category: cat}}, nil
	case CatFixedPlacement, CatPriorityPlacement:
		slot, err := ParseSlotCategory(arg)
		if err != nil {
			return nil, err
		}
		return []Request{{Category: cat, Slot: slot}}, nil
	default:
		if arg == "" || arg == "both" || arg == "오전 & 오후" {
			return []Request{{Category: cat, Shift: Morning}, {Category: cat, Shift: Afternoon}}, nil
		}
		shift, err := ParseShift(arg)
		if err != nil {
			return nil, err
		}
		return []Request{{Category: cat, Shift: shift}}, nil
	}
}

func splitCategory(s string) (string, string) {
	if m := canonicalCategory.FindStringSubmatch(s); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	if i := strings.Index(s, "("); i >= 0 && strings.HasSuffix(s, ")") {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1 : len(s)-1])
	}
	return s, ""
}

func lookupCategory(name string) (Category, bool) {
	switch Category(name) {
	case CatVacation, CatMustWork, CatNoSupplement, CatHardSupplement, CatFixedPlacement, CatPriorityPlacement:
		return Category(name), true
	}
	c, ok := koreanCategories[name]
	return c, ok
}

// ── 查询索引 ──

// requestIndex 按 (人, 日期, 班次) 检索班次类请求
type requestIndex struct {
	vacation map[string]map[time.Time]bool
	shiftReq map[Category]map[string]map[time.Time]map[Shift]bool
}

func indexRequests(reqs []Request) *requestIndex {
	idx := &requestIndex{
		vacation: make(map[string]map[time.Time]bool),
		shiftReq: make(map[Category]map[string]map[time.Time]map[Shift]bool),
	}
	for _, r := range reqs {
		if r.Category == CatVacation {
			m := idx.vacation[r.Person]
			if m == nil {
				m = make(map[time.Time]bool)
				idx.vacation[r.Person] = m
			}
			for _, d := range r.Dates {
				m[Day(d)] = true
			}
			continue
		}
		if r.Category.IsPlacement() {
			continue
		}
		byPerson := idx.shiftReq[r.Category]
		if byPerson == nil {
			byPerson = make(map[string]map[time.Time]map[Shift]bool)
			idx.shiftReq[r.Category] = byPerson
		}
		byDate := byPerson[r.Person]
		if byDate == nil {
			byDate = make(map[time.Time]map[Shift]bool)
			byPerson[r.Person] = byDate
		}
		for _, d := range r.Dates {
			d = Day(d)
			if byDate[d] == nil {
				byDate[d] = make(map[Shift]bool)
			}
			byDate[d][r.Shift] = true
		}
	}
	return idx
}

func (x *requestIndex) onVacation(person string, date time.Time) bool {
	return x.vacation[person][Day(date)]
}

func (x *requestIndex) has(cat Category, person string, date time.Time, shift Shift) bool {
	return x.shiftReq[cat][person][Day(date)][shift]
}

// mustWorkers 某日某班次的必须到岗人员（按姓名排序）
func (x *requestIndex) mustWorkers(date time.Time, shift Shift) []string {
	var out []string
	for person, byDate := range x.shiftReq[CatMustWork] {
		if byDate[Day(date)][shift] {
			out = append(out, person)
		}
	}
	sort.Strings(out)
	return out
}

// Placements 拆出放置类请求
func Placements(reqs []Request) (fixed, priority []Request) {
	for _, r := range reqs {
		switch r.Category {
		case CatFixedPlacement:
			fixed = append(fixed, r)
		case CatPriorityPlacement:
			priority = append(priority, r)
		}
	}
	return fixed, priority
}
