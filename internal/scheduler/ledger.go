package scheduler

import (
	"sort"
)

// Counters 个人累计计数
type Counters struct {
	Morning       int            `json:"morning"`
	Afternoon     int            `json:"afternoon"`
	Early         int            `json:"early"`
	Late          int            `json:"late"`
	Duty          int            `json:"duty"`
	AfternoonDuty int            `json:"afternoon_duty"`
	PerRoom       map[string]int `json:"per_room"`
	OnCallOwed    int            `json:"on_call_owed"`
	OnCallUsed    int            `json:"on_call_used"`
}

func (c Counters) clone() Counters {
	out := c
	out.PerRoom = make(map[string]int, len(c.PerRoom))
	for k, v := range c.PerRoom {
		out.PerRoom[k] = v
	}
	return out
}

// Shift 指定班次累计
func (c Counters) Shift(s Shift) int {
	if s == Afternoon {
		return c.Afternoon
	}
	return c.Morning
}

// Ledger 公平性台账
//
// 所有变更都由对应的排班记录变更驱动，因此可由记录完整重建（见 DeriveCounters）。
type Ledger struct {
	counters map[string]*Counters
}

// NewLedger 以上期结转值为起点创建台账（深拷贝）
func NewLedger(seed map[string]Counters) *Ledger {
	l := &Ledger{counters: make(map[string]*Counters, len(seed))}
	for p, c := range seed {
		cc := c.clone()
		l.counters[p] = &cc
	}
	return l
}

func (l *Ledger) entry(person string) *Counters {
	c, ok := l.counters[person]
	if !ok {
		c = &Counters{PerRoom: make(map[string]int)}
		l.counters[person] = c
	}
	if c.PerRoom == nil {
		c.PerRoom = make(map[string]int)
	}
	return c
}

// Get 返回副本
func (l *Ledger) Get(person string) Counters {
	if c, ok := l.counters[person]; ok {
		return c.clone()
	}
	return Counters{PerRoom: map[string]int{}}
}

// ShiftCount 班次累计
func (l *Ledger) ShiftCount(person string, s Shift) int {
	c, ok := l.counters[person]
	if !ok {
		return 0
	}
	return c.Shift(s)
}

// AddShift 班次计数增减
func (l *Ledger) AddShift(person string, s Shift, delta int) {
	c := l.entry(person)
	if s == Afternoon {
		c.Afternoon += delta
	} else {
		c.Morning += delta
	}
}

// AddSlot 房间类计数增减
func (l *Ledger) AddSlot(person string, slot Slot, delta int) {
	c := l.entry(person)
	c.PerRoom[slot.Room] += delta
	if c.PerRoom[slot.Room] == 0 {
		delete(c.PerRoom, slot.Room)
	}
	if slot.Early {
		c.Early += delta
	}
	if slot.Late {
		c.Late += delta
	}
	if slot.Duty {
		if slot.Shift == Afternoon {
			c.AfternoonDuty += delta
		} else {
			c.Duty += delta
		}
	}
}

// AddOnCall 值班使用次数增减
func (l *Ledger) AddOnCall(person string, delta int) {
	l.entry(person).OnCallUsed += delta
}

// SlotMetric 某人在该房间位置上的公平性指标
func (l *Ledger) SlotMetric(person string, slot Slot) int {
	c, ok := l.counters[person]
	if !ok {
		return 0
	}
	switch {
	case slot.Duty && slot.Shift == Afternoon:
		return c.AfternoonDuty
	case slot.Duty:
		return c.Duty
	case slot.Early:
		return c.Early
	case slot.Late:
		return c.Late
	}
	return c.PerRoom[slot.Room]
}

// Remaining 剩余值班配额
func (l *Ledger) Remaining(person string) int {
	c, ok := l.counters[person]
	if !ok {
		return 0
	}
	if n := c.OnCallOwed - c.OnCallUsed; n > 0 {
		return n
	}
	return 0
}

// Persons 台账中出现的全部人员（排序）
func (l *Ledger) Persons() []string {
	out := make([]string, 0, len(l.counters))
	for p := range l.counters {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Snapshot 当前全部计数（深拷贝）
func (l *Ledger) Snapshot() map[string]Counters {
	out := make(map[string]Counters, len(l.counters))
	for p, c := range l.counters {
		out[p] = c.clone()
	}
	return out
}

// ════════════════════════════════════════════════════════════
// 结转与重建
// ════════════════════════════════════════════════════════════

// CarryForward 生成下一期的起始台账：累计值保留，值班配额扣除已用部分
func CarryForward(final map[string]Counters) map[string]Counters {
	out := make(map[string]Counters, len(final))
	for p, c := range final {
		next := c.clone()
		next.OnCallOwed = c.OnCallOwed - c.OnCallUsed
		if next.OnCallOwed < 0 {
			next.OnCallOwed = 0
		}
		next.OnCallUsed = 0
		out[p] = next
	}
	return out
}

// DeriveCounters 由起始台账和本期全部记录重建计数。
// 对同一份记录重复调用结果相同。slots 中无法在目录里找到的 slot_id 被忽略。
func DeriveCounters(seed map[string]Counters, days []DayAssignment, oncall []OnCallAssignment, slots []SlotAssignment, catalog *RoomCatalog) map[string]Counters {
	l := NewLedger(seed)
	for _, d := range days {
		if d.Status.Confirmed() {
			l.AddShift(d.Person, d.Shift, 1)
		}
	}
	for _, o := range oncall {
		l.AddOnCall(o.Person, 1)
	}
	if catalog != nil {
		for _, s := range slots {
			if s.Person == "" {
				continue
			}
			if slot, ok := catalog.Lookup(s.SlotID); ok {
				l.AddSlot(s.Person, slot, 1)
			}
		}
	}
	return l.Snapshot()
}

// Equal 比较两份计数（忽略空 PerRoom 与零值人员的差异）
func Equal(a, b map[string]Counters) bool {
	keys := make(map[string]bool)
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}
	for k := range keys {
		if !countersEqual(a[k], b[k]) {
			return false
		}
	}
	return true
}

func countersEqual(x, y Counters) bool {
	if x.Morning != y.Morning || x.Afternoon != y.Afternoon || x.Early != y.Early || x.Late != y.Late ||
		x.Duty != y.Duty || x.AfternoonDuty != y.AfternoonDuty || x.OnCallOwed != y.OnCallOwed || x.OnCallUsed != y.OnCallUsed {
		return false
	}
	for k, v := range x.PerRoom {
		if y.PerRoom[k] != v {
			return false
		}
	}
	for k, v := range y.PerRoom {
		if x.PerRoom[k] != v {
			return false
		}
	}
	return true
}
