package scheduler

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ── 房间目录 ──

// Band 时间段，按顺序排列；DutyRoom 为空表示该段无值班房
type Band struct {
	Label    string   `json:"label"`
	Shift    Shift    `json:"shift"`
	Rooms    []string `json:"rooms"`
	DutyRoom string   `json:"duty_room,omitempty"`
}

// Slot 具体的时间段 + 房间
type Slot struct {
	ID    string `json:"slot_id"`
	Band  string `json:"band"`
	Shift Shift  `json:"shift"`
	Room  string `json:"room"`
	Duty  bool   `json:"duty"`
	Early bool   `json:"early"`
	Late  bool   `json:"late"`
}

// RoomCatalog 房间目录
type RoomCatalog struct {
	Bands                  []Band
	MorningTotal           int
	OnCallFillsMorningDuty bool

	slots []Slot
	byID  map[string]Slot
}

// SlotID 形如 "08:30(3)"、值班房为 "08:30(1)_duty"
func SlotID(band, room string, duty bool) string {
	id := fmt.Sprintf("%s(%s)", band, room)
	if duty {
		id += "_duty"
	}
	return id
}

var bandLabelRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// NormalizeBand "8:30" → "08:30"
func NormalizeBand(s string) string {
	s = strings.TrimSpace(s)
	m := bandLabelRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	h, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", h, m[2])
}

// NewRoomCatalog 校验并展开房间目录
func NewRoomCatalog(bands []Band, morningTotal int, onCallFillsMorningDuty bool) (*RoomCatalog, error) {
	c := &RoomCatalog{MorningTotal: morningTotal, OnCallFillsMorningDuty: onCallFillsMorningDuty}
	for _, b := range bands {
		nb := Band{Label: NormalizeBand(b.Label), Shift: b.Shift, DutyRoom: strings.TrimSpace(b.DutyRoom)}
		for _, r := range b.Rooms {
			nb.Rooms = append(nb.Rooms, strings.TrimSpace(r))
		}
		c.Bands = append(c.Bands, nb)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.expand()
	return c, nil
}

// Validate 上午房间总数必须等于 MorningTotal
func (c *RoomCatalog) Validate() error {
	morning := 0
	hasMorningDuty := false
	labels := make(map[string]bool)
	for _, b := range c.Bands {
		if b.Label == "" {
			return &ValidationError{Field: "rooms.bands.label", Reason: "时间段标签为空"}
		}
		if labels[b.Label] {
			return &ValidationError{Field: "rooms.bands.label", Value: b.Label, Reason: "时间段重复"}
		}
		labels[b.Label] = true
		if !b.Shift.Valid() {
			return &ValidationError{Field: "rooms.bands.shift", Value: string(b.Shift), Reason: "班次无效"}
		}
		if len(b.Rooms) == 0 {
			return &ValidationError{Field: "rooms.bands.rooms", Value: b.Label, Reason: "房间列表为空"}
		}
		seen := make(map[string]bool)
		for _, r := range b.Rooms {
			if r == "" || seen[r] {
				return &ValidationError{Field: "rooms.bands.rooms", Value: b.Label, Reason: "房间为空或重复"}
			}
			seen[r] = true
		}
		if b.DutyRoom != "" && !seen[b.DutyRoom] {
			return &ValidationError{Field: "rooms.bands.duty_room", Value: b.DutyRoom, Reason: "值班房不在该时间段房间列表中"}
		}
		if b.Shift == Morning {
			morning += len(b.Rooms)
			if b.DutyRoom != "" {
				hasMorningDuty = true
			}
		}
	}
	if morning == 0 {
		return &ValidationError{Field: "rooms.bands", Reason: "缺少上午时间段"}
	}
	if c.MorningTotal > 0 && morning != c.MorningTotal {
		return &ValidationError{
			Field:  "rooms.morning_total",
			Value:  strconv.Itoa(morning),
			Reason: fmt.Sprintf("上午房间合计 %d，应为 %d", morning, c.MorningTotal),
		}
	}
	if c.OnCallFillsMorningDuty && !hasMorningDuty {
		return &ValidationError{Field: "rooms.oncall_fills_morning_duty", Reason: "未配置上午值班房"}
	}
	return nil
}

func (c *RoomCatalog) expand() {
	first, last := -1, -1
	for i, b := range c.Bands {
		if b.Shift != Morning {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	c.byID = make(map[string]Slot)
	c.slots = c.slots[:0]
	for i, b := range c.Bands {
		for _, r := range b.Rooms {
			duty := r == b.DutyRoom
			s := Slot{
				ID:    SlotID(b.Label, r, duty),
				Band:  b.Label,
				Shift: b.Shift,
				Room:  r,
				Duty:  duty,
				Early: i == first && !duty,
				Late:  i == last && !duty,
			}
			c.slots = append(c.slots, s)
			c.byID[s.ID] = s
		}
	}
}

// Slots 指定班次的全部位置（目录顺序）；shift 为空返回全部
func (c *RoomCatalog) Slots(shift Shift) []Slot {
	var out []Slot
	for _, s := range c.slots {
		if shift == "" || s.Shift == shift {
			out = append(out, s)
		}
	}
	return out
}

// Lookup 按 slot_id 查找
func (c *RoomCatalog) Lookup(id string) (Slot, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// ── 房间请求类别 ──

// SlotKind 房间请求的封闭种类
type SlotKind string

const (
	SlotRoom             SlotKind = "room"
	SlotBand             SlotKind = "band"
	SlotEarlyNonDuty     SlotKind = "early_non_duty"
	SlotNotEarly         SlotKind = "not_early"
	SlotNotLate          SlotKind = "not_late"
	SlotAfternoonNonDuty SlotKind = "afternoon_non_duty"
)

// SlotCategory 房间请求目标
type SlotCategory struct {
	Kind  SlotKind `json:"kind"`
	Value string   `json:"value,omitempty"`
}

// slotPredicates 类别 → 可放置位置判定
var slotPredicates = map[SlotKind]func(s Slot, value string) bool{
	SlotRoom:             func(s Slot, v string) bool { return s.Room == v && !s.Duty },
	SlotBand:             func(s Slot, v string) bool { return s.Band == v && !s.Duty },
	SlotEarlyNonDuty:     func(s Slot, _ string) bool { return s.Early },
	SlotNotEarly:         func(s Slot, _ string) bool { return s.Shift == Morning && !s.Early && !s.Duty },
	SlotNotLate:          func(s Slot, _ string) bool { return s.Shift == Morning && !s.Late && !s.Duty },
	SlotAfternoonNonDuty: func(s Slot, _ string) bool { return s.Shift == Afternoon && !s.Duty },
}

// Matches 位置是否满足该类别
func (c SlotCategory) Matches(s Slot) bool {
	pred, ok := slotPredicates[c.Kind]
	return ok && pred(s, c.Value)
}

func (c SlotCategory) String() string {
	if c.Value == "" {
		return string(c.Kind)
	}
	return string(c.Kind) + ":" + c.Value
}

var (
	roomKoRe = regexp.MustCompile(`^(\d+)\s*번방$`)
	slotKo   = map[string]SlotKind{
		"당직 아닌 이른방": SlotEarlyNonDuty,
		"이른방 제외":    SlotNotEarly,
		"늦은방 제외":    SlotNotLate,
		"오후 당직 제외":  SlotAfternoonNonDuty,
	}
)

// ParseSlotCategory 解析 "room:3" / "3번방"、"band:08:30" / "8:30" 以及各类标签
func ParseSlotCategory(s string) (SlotCategory, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SlotCategory{}, fmt.Errorf("房间类别为空")
	}
	if k, ok := slotKo[s]; ok {
		return SlotCategory{Kind: k}, nil
	}
	if m := roomKoRe.FindStringSubmatch(s); m != nil {
		return SlotCategory{Kind: SlotRoom, Value: m[1]}, nil
	}
	if bandLabelRe.MatchString(s) {
		return SlotCategory{Kind: SlotBand, Value: NormalizeBand(s)}, nil
	}
	kind, value, _ := strings.Cut(s, ":")
	k := SlotKind(strings.TrimSpace(kind))
	if _, ok := slotPredicates[k]; !ok {
		return SlotCategory{}, fmt.Errorf("未知房间类别: %q", s)
	}
	value = strings.TrimSpace(value)
	switch k {
	case SlotRoom:
		if value == "" {
			return SlotCategory{}, fmt.Errorf("房间号为空: %q", s)
		}
	case SlotBand:
		if !bandLabelRe.MatchString(value) {
			return SlotCategory{}, fmt.Errorf("时间段无效: %q", s)
		}
		value = NormalizeBand(value)
	default:
		value = ""
	}
	return SlotCategory{Kind: k, Value: value}, nil
}

// ════════════════════════════════════════════════════════════
// AssignRooms 固定 → 优先 → 值班 → 上午 → 下午 → 兜底
// ════════════════════════════════════════════════════════════

// RoomInput 房间分配输入
type RoomInput struct {
	Days     []DayAssignment
	OnCall   []OnCallAssignment
	Fixed    []Request
	Priority []Request
	Catalog  *RoomCatalog
	Rand     *rand.Rand
}

type dayPlan struct {
	date    time.Time
	roster  map[Shift][]string
	inShift map[Shift]map[string]bool
	onCall  string
	filled  map[string]string
	placed  map[Shift]map[string]bool
}

func (p *dayPlan) free(personShift Shift, person string) bool {
	return p.inShift[personShift][person] && !p.placed[personShift][person]
}

type roomAssigner struct {
	catalog  *RoomCatalog
	ledger   *Ledger
	rng      *rand.Rand
	warnings []Warning
}

// AssignRooms 将每日在岗名单映射到具体房间，并更新台账。
// 同一日同一半日内一人最多占一个位置。
func AssignRooms(in RoomInput, ledger *Ledger) ([]SlotAssignment, []Warning) {
	a := &roomAssigner{catalog: in.Catalog, ledger: ledger, rng: in.Rand}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(1))
	}

	plans := make(map[time.Time]*dayPlan)
	var dates []time.Time
	planFor := func(d time.Time) *dayPlan {
		d = Day(d)
		p, ok := plans[d]
		if !ok {
			p = &dayPlan{
				date:    d,
				roster:  make(map[Shift][]string),
				inShift: map[Shift]map[string]bool{Morning: {}, Afternoon: {}},
				filled:  make(map[string]string),
				placed:  map[Shift]map[string]bool{Morning: {}, Afternoon: {}},
			}
			plans[d] = p
			dates = append(dates, d)
		}
		return p
	}
	for _, d := range in.Days {
		if !d.Status.Confirmed() || !d.Shift.Valid() {
			continue
		}
		p := planFor(d.Date)
		if p.inShift[d.Shift][d.Person] {
			continue
		}
		p.inShift[d.Shift][d.Person] = true
		p.roster[d.Shift] = append(p.roster[d.Shift], d.Person)
	}
	for _, o := range in.OnCall {
		if p, ok := plans[Day(o.Date)]; ok {
			p.onCall = o.Person
		}
	}
	sortDates(dates)

	var out []SlotAssignment
	for _, d := range dates {
		p := plans[d]
		for _, s := range []Shift{Morning, Afternoon} {
			sort.Strings(p.roster[s])
		}
		a.fixed(p, in.Fixed)
		a.priority(p, in.Priority)
		a.duty(p)
		a.fill(p, Morning)
		a.fill(p, Afternoon)
		a.fallback(p)
		a.reportUnplaced(p)

		for _, s := range a.catalog.Slots("") {
			if person, ok := p.filled[s.ID]; ok {
				out = append(out, SlotAssignment{Date: d, SlotID: s.ID, Person: person})
			}
		}
	}
	return out, a.warnings
}

func (a *roomAssigner) place(p *dayPlan, s Slot, person string) {
	p.filled[s.ID] = person
	p.placed[s.Shift][person] = true
	a.ledger.AddSlot(person, s, 1)
}

// matchingSlots 请求人可用的空位置（目录顺序）
func (a *roomAssigner) matchingSlots(p *dayPlan, r Request) []Slot {
	var out []Slot
	for _, s := range a.catalog.Slots("") {
		if _, taken := p.filled[s.ID]; taken {
			continue
		}
		if r.Slot.Matches(s) && p.free(s.Shift, r.Person) {
			out = append(out, s)
		}
	}
	return out
}

func (a *roomAssigner) requestsFor(p *dayPlan, reqs []Request) []Request {
	var out []Request
	for _, r := range reqs {
		if r.Covers(p.date) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Person < out[j].Person })
	return out
}

func (a *roomAssigner) inAnyShift(p *dayPlan, person string) bool {
	return p.inShift[Morning][person] || p.inShift[Afternoon][person]
}

// fixed 固定放置；冲突只作废该条请求
func (a *roomAssigner) fixed(p *dayPlan, reqs []Request) {
	for _, r := range a.requestsFor(p, reqs) {
		if !a.inAnyShift(p, r.Person) {
			a.warnings = append(a.warnings, a.validation(p, r, "当日不在岗，无法固定放置"))
			continue
		}
		slots := a.matchingSlots(p, r)
		if len(slots) == 0 {
			a.warnings = append(a.warnings, a.validation(p, r, "目标位置已被占用"))
			continue
		}
		a.place(p, slots[0], r.Person)
	}
}

func (a *roomAssigner) validation(p *dayPlan, r Request, reason string) Warning {
	err := &ValidationError{Field: "placement", Value: r.Slot.String(), Reason: reason}
	return Warning{Kind: WarnValidation, Date: datePtr(p.date), Person: r.Person, Message: err.Error(), Err: err}
}

// priority 优先放置：在匹配位置中选本人使用最少的房间
func (a *roomAssigner) priority(p *dayPlan, reqs []Request) {
	for _, r := range a.requestsFor(p, reqs) {
		slots := a.matchingSlots(p, r)
		if len(slots) == 0 {
			if a.inAnyShift(p, r.Person) {
				a.warnings = append(a.warnings, newWarning(WarnNotice, p.date, "", r.Person,
					fmt.Sprintf("优先请求 %s 无可用位置，按常规分配", r.Slot)))
			}
			continue
		}
		usage := a.ledger.Get(r.Person).PerRoom
		best := slots[0]
		for _, s := range slots[1:] {
			if usage[s.Room] < usage[best.Room] {
				best = s
			}
		}
		a.place(p, best, r.Person)
	}
}

// duty 上午值班房：按约定由当日值班人担任，否则取值班次数最少者
func (a *roomAssigner) duty(p *dayPlan) {
	for _, s := range a.catalog.Slots(Morning) {
		if !s.Duty {
			continue
		}
		if _, taken := p.filled[s.ID]; taken {
			continue
		}
		if a.catalog.OnCallFillsMorningDuty && p.onCall != "" && p.free(Morning, p.onCall) {
			a.place(p, s, p.onCall)
			continue
		}
		if person, ok := a.best(p, s, a.candidatesFor(p, Morning)); ok {
			a.place(p, s, person)
		}
	}
}

func (a *roomAssigner) candidatesFor(p *dayPlan, shift Shift) []string {
	var out []string
	for _, person := range p.roster[shift] {
		if p.placed[shift][person] {
			continue
		}
		if shift == Afternoon && a.catalog.OnCallFillsMorningDuty && person == p.onCall {
			continue
		}
		out = append(out, person)
	}
	return out
}

// best 指标最小者，同分按姓名
func (a *roomAssigner) best(p *dayPlan, s Slot, cands []string) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}
	pick := cands[0]
	m := a.ledger.SlotMetric(pick, s)
	for _, c := range cands[1:] {
		if cm := a.ledger.SlotMetric(c, s); cm < m || (cm == m && c < pick) {
			pick, m = c, cm
		}
	}
	return pick, true
}

// fill 逐个填充空位；下午值班房优先
func (a *roomAssigner) fill(p *dayPlan, shift Shift) {
	slots := a.catalog.Slots(shift)
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Duty && !slots[j].Duty })
	for _, s := range slots {
		if _, taken := p.filled[s.ID]; taken {
			continue
		}
		if person, ok := a.best(p, s, a.candidatesFor(p, shift)); ok {
			a.place(p, s, person)
		}
	}
}

// fallback 空位复用当日另一半日已安排者，同分随机；当日无该半日名单（如周六下午）时不开诊
func (a *roomAssigner) fallback(p *dayPlan) {
	for _, s := range a.catalog.Slots("") {
		if _, taken := p.filled[s.ID]; taken {
			continue
		}
		if len(p.roster[s.Shift]) == 0 {
			continue
		}
		other := Afternoon
		if s.Shift == Afternoon {
			other = Morning
		}
		var cands []string
		for person := range p.placed[other] {
			if !p.placed[s.Shift][person] {
				cands = append(cands, person)
			}
		}
		// 上午已满但下午人员尚未占位时，也可借用
		for _, person := range p.roster[other] {
			if !p.placed[other][person] && !p.placed[s.Shift][person] && !contains(cands, person) {
				cands = append(cands, person)
			}
		}
		sort.Strings(cands)

		capErr := &CapacityError{Date: p.date, Shift: s.Shift, SlotID: s.ID}
		if len(cands) == 0 {
			a.warnings = append(a.warnings, Warning{
				Kind: WarnCapacity, Date: datePtr(p.date), Shift: s.Shift,
				Message: fmt.Sprintf("%s 无可用人员，保持空缺", s.ID), Err: capErr,
			})
			continue
		}

		minMetric := a.ledger.SlotMetric(cands[0], s)
		for _, c := range cands[1:] {
			if m := a.ledger.SlotMetric(c, s); m < minMetric {
				minMetric = m
			}
		}
		var tied []string
		for _, c := range cands {
			if a.ledger.SlotMetric(c, s) == minMetric {
				tied = append(tied, c)
			}
		}
		person := tied[a.rng.Intn(len(tied))]
		a.place(p, s, person)
		a.warnings = append(a.warnings, Warning{
			Kind: WarnCapacity, Date: datePtr(p.date), Shift: s.Shift, Person: person,
			Message: fmt.Sprintf("%s 人员不足，复用 %s", s.ID, person), Err: capErr,
		})
	}
}

func (a *roomAssigner) reportUnplaced(p *dayPlan) {
	for _, shift := range []Shift{Morning, Afternoon} {
		for _, person := range p.roster[shift] {
			if p.placed[shift][person] {
				continue
			}
			if shift == Afternoon && a.catalog.OnCallFillsMorningDuty && person == p.onCall {
				continue
			}
			a.warnings = append(a.warnings, newWarning(WarnUnplaced, p.date, shift, person, "房间数不足，未分配位置"))
		}
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
