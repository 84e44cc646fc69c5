package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// BalanceConfig 人数平衡参数
type BalanceConfig struct {
	MaxIterations         int
	WeekdayMorningTarget  int
	SaturdayMorningTarget int
	AfternoonTarget       int
	SaturdayCap           int
}

// DefaultBalanceConfig 诊所现行参数
func DefaultBalanceConfig() BalanceConfig {
	return BalanceConfig{
		MaxIterations:         500,
		WeekdayMorningTarget:  12,
		SaturdayMorningTarget: 10,
		AfternoonTarget:       5,
		SaturdayCap:           10,
	}
}

// BalanceInput 平衡器输入（运行开始时的快照）
type BalanceInput struct {
	Weekdays  []time.Time
	Saturdays []SaturdayOverride
	Master    *MasterRoster
	Requests  []Request
	Config    BalanceConfig
}

// ── 内部状态 ──

type cell struct {
	person   string
	status   Status
	memo     string
	color    ColorTag
	mustWork bool
	inBase   bool
	moved    bool
}

type dayRoster struct {
	date   time.Time
	shift  Shift
	target int
	cells  []*cell
	index  map[string]*cell
}

func (r *dayRoster) confirmedCount() int {
	n := 0
	for _, c := range r.cells {
		if c.status.Confirmed() {
			n++
		}
	}
	return n
}

func (r *dayRoster) confirmed(person string) bool {
	c, ok := r.index[person]
	return ok && c.status.Confirmed()
}

type rosterKey struct {
	date  time.Time
	shift Shift
}

type balancer struct {
	cfg      BalanceConfig
	master   *MasterRoster
	req      *requestIndex
	ledger   *Ledger
	rosters  map[Shift][]*dayRoster
	byKey    map[rosterKey]*dayRoster
	warnings []Warning
}

// set 改变单元格状态，并按"在岗与否"的变化同步台账
func (b *balancer) set(r *dayRoster, c *cell, status Status, memo string, color ColorTag) {
	was := c.status.Confirmed()
	c.status, c.memo, c.color = status, memo, color
	now := status.Confirmed()
	switch {
	case !was && now:
		b.ledger.AddShift(c.person, r.shift, 1)
	case was && !now:
		b.ledger.AddShift(c.person, r.shift, -1)
	}
}

func (b *balancer) add(r *dayRoster, person string, status Status, memo string, color ColorTag) *cell {
	c := &cell{person: person}
	r.cells = append(r.cells, c)
	r.index[person] = c
	b.set(r, c, status, memo, color)
	return c
}

// ════════════════════════════════════════════════════════════
// BalanceShifts 基础名单 → 平衡循环 → 补充轮
// ════════════════════════════════════════════════════════════

// BalanceShifts 生成全月上午/下午在岗名单并更新台账。
//
// 顺序：全部上午（构建 + 平衡），全部下午（构建 + 平衡），
// 随后上午补充轮（含对下午的级联剔除），最后下午补充轮。
func BalanceShifts(in BalanceInput, ledger *Ledger) ([]DayAssignment, []Warning) {
	b := &balancer{
		cfg:     in.Config,
		master:  in.Master,
		req:     indexRequests(in.Requests),
		ledger:  ledger,
		rosters: make(map[Shift][]*dayRoster),
		byKey:   make(map[rosterKey]*dayRoster),
	}
	if b.cfg.MaxIterations <= 0 {
		b.cfg.MaxIterations = DefaultBalanceConfig().MaxIterations
	}

	overrides := make(map[time.Time][]string, len(in.Saturdays))
	dates := make([]time.Time, 0, len(in.Weekdays)+len(in.Saturdays))
	for _, d := range in.Weekdays {
		dates = append(dates, Day(d))
	}
	for _, s := range in.Saturdays {
		d := Day(s.Date)
		persons := s.Persons
		if b.cfg.SaturdayCap > 0 && len(persons) > b.cfg.SaturdayCap {
			b.warnings = append(b.warnings, newWarning(WarnValidation, d, Morning, "",
				fmt.Sprintf("周六名单 %d 人超过上限 %d，已截断", len(persons), b.cfg.SaturdayCap)))
			persons = persons[:b.cfg.SaturdayCap]
		}
		overrides[d] = persons
		dates = append(dates, d)
	}
	sortDates(dates)

	// 上午
	for _, d := range dates {
		persons, isSat := overrides[d]
		target := b.cfg.WeekdayMorningTarget
		if isSat {
			target = b.cfg.SaturdayMorningTarget
		} else {
			persons = b.master.BaseRoster(d, Morning)
		}
		b.build(d, Morning, target, persons)
	}
	b.balance(Morning)

	// 下午（周六无下午）
	for _, d := range dates {
		if _, isSat := overrides[d]; isSat {
			continue
		}
		b.build(d, Afternoon, b.cfg.AfternoonTarget, b.master.BaseRoster(d, Afternoon))
	}
	b.balance(Afternoon)

	b.extra(Morning)
	b.extra(Afternoon)

	return b.output(), b.warnings
}

// build 基础名单构建与休假预剔除
func (b *balancer) build(date time.Time, shift Shift, target int, base []string) {
	r := &dayRoster{date: date, shift: shift, target: target, index: make(map[string]*cell)}
	b.rosters[shift] = append(b.rosters[shift], r)
	b.byKey[rosterKey{date: date, shift: shift}] = r

	for _, p := range base {
		if _, dup := r.index[p]; dup {
			continue
		}
		var c *cell
		if b.req.onVacation(p, date) {
			c = b.add(r, p, StatusVacationExcluded, MemoVacation, ColorVac)
		} else {
			c = b.add(r, p, StatusBase, "", ColorDefault)
		}
		c.inBase = true
	}

	for _, p := range b.req.mustWorkers(date, shift) {
		if b.req.onVacation(p, date) {
			b.warnings = append(b.warnings, newWarning(WarnConflict, date, shift, p, "休假与必须到岗请求冲突，以休假为准"))
			continue
		}
		if c, ok := r.index[p]; ok {
			c.mustWork = true
			c.memo, c.color = MemoMustWork, ColorMust
			continue
		}
		c := b.add(r, p, StatusBase, MemoMustWork, ColorMust)
		c.mustWork = true
	}
}

// ── 候选人 ──

// eligible 是否可被补入该日该班次
func (b *balancer) eligible(r *dayRoster, person string) bool {
	if _, ok := r.index[person]; ok {
		return false
	}
	if b.req.onVacation(person, r.date) || b.req.has(CatNoSupplement, person, r.date, r.shift) {
		return false
	}
	if r.shift == Afternoon {
		// 下午只从当日上午已在岗者中补充
		m := b.byKey[rosterKey{date: r.date, shift: Morning}]
		if m == nil || !m.confirmed(person) {
			return false
		}
	}
	return true
}

// lowPriority 补充困难者；下午另含当周模板上午不上班者
func (b *balancer) lowPriority(r *dayRoster, person string) bool {
	if b.req.has(CatHardSupplement, person, r.date, r.shift) {
		return true
	}
	return r.shift == Afternoon && !b.master.Value(person, r.date).Includes(Morning)
}

type candidate struct {
	person string
	count  int
	low    bool
}

func (b *balancer) candidates(r *dayRoster) []candidate {
	var out []candidate
	for _, p := range b.master.Persons() {
		if !b.eligible(r, p) {
			continue
		}
		out = append(out, candidate{person: p, count: b.ledger.ShiftCount(p, r.shift), low: b.lowPriority(r, p)})
	}
	return out
}

// movable 可被调出的在岗人员，按累计降序
func (b *balancer) movable(r *dayRoster) []string {
	var out []string
	for _, c := range r.cells {
		if c.status.Confirmed() && !c.mustWork && !c.moved {
			out = append(out, c.person)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := b.ledger.ShiftCount(out[i], r.shift), b.ledger.ShiftCount(out[j], r.shift)
		if ci != cj {
			return ci > cj
		}
		return out[i] < out[j]
	})
	return out
}

// ── 平衡循环 ──

func (b *balancer) balance(shift Shift) {
	for iter := 0; ; iter++ {
		if iter >= b.cfg.MaxIterations {
			if balanced(b.rosters[shift]) {
				return
			}
			b.warnings = append(b.warnings, Warning{
				Kind:    WarnNonConvergence,
				Shift:   shift,
				Message: fmt.Sprintf("平衡循环达到上限 %d 次，保留当前状态", b.cfg.MaxIterations),
			})
			return
		}
		if !b.step(b.rosters[shift]) {
			return
		}
	}
}

func balanced(rosters []*dayRoster) bool {
	for _, r := range rosters {
		if r.confirmedCount() != r.target {
			return false
		}
	}
	return true
}

// step 执行一次移动；无可移动时返回 false
func (b *balancer) step(rosters []*dayRoster) bool {
	var surplus, shortage []*dayRoster
	for _, r := range rosters {
		n := r.confirmedCount()
		switch {
		case n > r.target:
			surplus = append(surplus, r)
		case n < r.target:
			shortage = append(shortage, r)
		}
	}

	for _, r := range surplus {
		if b.moveOut(r, shortage) {
			return true
		}
	}
	for _, r := range shortage {
		if b.supplement(r) {
			return true
		}
	}
	return false
}

// moveOut 从超员日调出一人；优先调往其可补入的缺员日
func (b *balancer) moveOut(src *dayRoster, shortage []*dayRoster) bool {
	donors := b.movable(src)
	if len(donors) == 0 {
		return false
	}
	for _, p := range donors {
		for _, dst := range shortage {
			if b.eligible(dst, p) {
				b.transfer(src, dst, p)
				return true
			}
		}
	}

	c := src.index[donors[0]]
	b.set(src, c, StatusExcluded, MemoMoved, ColorMoved)
	c.moved = true
	return true
}

func (b *balancer) transfer(src, dst *dayRoster, person string) {
	c := src.index[person]
	b.set(src, c, StatusExcluded, fmt.Sprintf("%s (%s)", MemoMoved, FormatDate(dst.date)), ColorMoved)
	c.moved = true

	in := b.add(dst, person, StatusSupplemented, fmt.Sprintf("%s (%s)", MemoSupplied, FormatDate(src.date)), ColorSupp)
	in.moved = true
}

// supplement 缺员日从候选池补入累计最少者
func (b *balancer) supplement(r *dayRoster) bool {
	cands := b.candidates(r)
	if len(cands) == 0 {
		return false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].count != cands[j].count {
			return cands[i].count < cands[j].count
		}
		if cands[i].low != cands[j].low {
			return !cands[i].low
		}
		return cands[i].person < cands[j].person
	})
	c := b.add(r, cands[0].person, StatusSupplemented, MemoSupplied, ColorSupp)
	c.moved = true
	return true
}

// ── 补充轮 ──

func (b *balancer) extra(shift Shift) {
	for _, r := range b.rosters[shift] {
		for r.confirmedCount() < r.target {
			cands := b.candidates(r)
			if len(cands) == 0 {
				have := r.confirmedCount()
				b.warnings = append(b.warnings, Warning{
					Kind:    WarnCapacity,
					Date:    datePtr(r.date),
					Shift:   shift,
					Message: fmt.Sprintf("无可补充人员，目标 %d 实际 %d", r.target, have),
					Err:     &CapacityError{Date: r.date, Shift: shift, Need: r.target, Have: have},
				})
				break
			}
			sort.SliceStable(cands, func(i, j int) bool {
				if cands[i].low != cands[j].low {
					return !cands[i].low
				}
				if cands[i].count != cands[j].count {
					return cands[i].count < cands[j].count
				}
				return cands[i].person < cands[j].person
			})
			c := b.add(r, cands[0].person, StatusExtraSupplemented, MemoExtraSupp, ColorExtra)
			c.moved = true
		}

		for r.confirmedCount() > r.target {
			c := b.trimCandidate(r)
			if c == nil {
				b.warnings = append(b.warnings, newWarning(WarnSurplus, r.date, shift, "",
					fmt.Sprintf("剩余在岗人员均为必须到岗，超员 %d 人", r.confirmedCount()-r.target)))
				break
			}
			b.set(r, c, StatusExtraExcluded, MemoExtraTrim, ColorTrim)
			c.moved = true
			if shift == Morning {
				b.cascade(r.date, c.person)
			}
		}
	}
}

// trimCandidate 优先剔除不在基础名单中的非必须人员，其次任一非必须人员
func (b *balancer) trimCandidate(r *dayRoster) *cell {
	pick := func(outsideBaseOnly bool) *cell {
		var best *cell
		bestCount := 0
		for _, c := range r.cells {
			if !c.status.Confirmed() || c.mustWork || (outsideBaseOnly && c.inBase) {
				continue
			}
			n := b.ledger.ShiftCount(c.person, r.shift)
			if best == nil || n > bestCount || (n == bestCount && c.person < best.person) {
				best, bestCount = c, n
			}
		}
		return best
	}
	if c := pick(true); c != nil {
		return c
	}
	return pick(false)
}

// cascade 上午补充轮剔除后，同日下午同步剔除
func (b *balancer) cascade(date time.Time, person string) {
	r := b.byKey[rosterKey{date: date, shift: Afternoon}]
	if r == nil {
		return
	}
	c, ok := r.index[person]
	if !ok || !c.status.Confirmed() || c.mustWork {
		return
	}
	b.set(r, c, StatusExtraExcluded, MemoCascaded, ColorTrim)
	c.moved = true
}

func (b *balancer) output() []DayAssignment {
	var keys []rosterKey
	for k := range b.byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].shift == Morning && keys[j].shift == Afternoon
	})

	var out []DayAssignment
	for _, k := range keys {
		r := b.byKey[k]
		for _, c := range r.cells {
			out = append(out, DayAssignment{
				Date:     r.date,
				Shift:    r.shift,
				Person:   c.person,
				Status:   c.status,
				Memo:     c.memo,
				ColorTag: c.color,
			})
		}
	}
	return out
}

func datePtr(t time.Time) *time.Time {
	d := Day(t)
	return &d
}
