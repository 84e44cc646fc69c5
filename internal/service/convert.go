package service

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/scheduler"
)

// ── model ↔ scheduler 转换 ──

func parseDate(s string) (time.Time, error) {
	return time.Parse(scheduler.DateLayout, s)
}

func toMasterEntries(rows []model.MasterRosterEntry) ([]scheduler.MasterEntry, []scheduler.Warning) {
	var (
		out      []scheduler.MasterEntry
		warnings []scheduler.Warning
	)
	for i, r := range rows {
		e, err := masterEntryFrom(r.Person, r.WeekLabel, r.Weekday, r.Value)
		if err != nil {
			warnings = append(warnings, scheduler.Warning{
				Kind:    scheduler.WarnValidation,
				Person:  r.Person,
				Message: fmt.Sprintf("固定排班第 %d 行已跳过: %v", i+1, err),
				Err:     err,
			})
			continue
		}
		out = append(out, e)
	}
	return out, warnings
}

func masterEntryFrom(person, weekLabel string, weekday int, value string) (scheduler.MasterEntry, error) {
	if weekLabel == "" {
		weekLabel = "every"
	}
	week, err := scheduler.ParseWeekLabel(weekLabel)
	if err != nil {
		return scheduler.MasterEntry{}, err
	}
	if weekday < int(time.Monday) || weekday > int(time.Friday) {
		return scheduler.MasterEntry{}, fmt.Errorf("星期取值无效: %d", weekday)
	}
	v, err := scheduler.ParseShiftValue(value)
	if err != nil {
		return scheduler.MasterEntry{}, err
	}
	return scheduler.MasterEntry{Person: person, Week: week, Weekday: time.Weekday(weekday), Value: v}, nil
}

func toRawRequests(rows []model.RawRequest) []scheduler.RawRequest {
	out := make([]scheduler.RawRequest, 0, len(rows))
	for i, r := range rows {
		out = append(out, scheduler.RawRequest{Row: i + 1, Person: r.Person, Category: r.Category, Dates: r.Dates})
	}
	return out
}

// roomCategory 房间请求的完整类别串，如 fixed_placement(room:3)
func roomCategory(kind, slot string) string {
	return fmt.Sprintf("%s_placement(%s)", kind, slot)
}

func toRoomRawRequests(rows []model.RoomRequest) []scheduler.RawRequest {
	out := make([]scheduler.RawRequest, 0, len(rows))
	for i, r := range rows {
		out = append(out, scheduler.RawRequest{Row: i + 1, Person: r.Person, Category: roomCategory(r.Kind, r.Category), Dates: r.Dates})
	}
	return out
}

func toHolidayDates(rows []model.Holiday) []time.Time {
	out := make([]time.Time, 0, len(rows))
	for _, h := range rows {
		if d, err := parseDate(h.Date); err == nil {
			out = append(out, d)
		}
	}
	return out
}

func toSaturdayOverrides(rows []model.SaturdayOverride) []scheduler.SaturdayOverride {
	out := make([]scheduler.SaturdayOverride, 0, len(rows))
	for _, o := range rows {
		d, err := parseDate(o.Date)
		if err != nil {
			continue
		}
		out = append(out, scheduler.SaturdayOverride{Date: d, Persons: []string(o.Persons)})
	}
	return out
}

func toCounters(rows []model.FairnessCounter) map[string]scheduler.Counters {
	out := make(map[string]scheduler.Counters, len(rows))
	for _, r := range rows {
		per := make(map[string]int, len(r.PerRoom.Data()))
		for k, v := range r.PerRoom.Data() {
			per[k] = v
		}
		out[r.Person] = scheduler.Counters{
			Morning:       r.Morning,
			Afternoon:     r.Afternoon,
			Early:         r.Early,
			Late:          r.Late,
			Duty:          r.Duty,
			AfternoonDuty: r.AfternoonDuty,
			PerRoom:       per,
			OnCallOwed:    r.OnCallOwed,
			OnCallUsed:    r.OnCallUsed,
		}
	}
	return out
}

// perRoomColumn 房间计数列；空表存为 {}
func perRoomColumn(per map[string]int) datatypes.JSONType[map[string]int] {
	if per == nil {
		per = map[string]int{}
	}
	return datatypes.NewJSONType(per)
}

// counterRows 新台账 → 持久化行；沿用现有记录的主键与版本号
func counterRows(period string, counters map[string]scheduler.Counters, existing []model.FairnessCounter, callerID string) []model.FairnessCounter {
	byPerson := make(map[string]model.FairnessCounter, len(existing))
	for _, e := range existing {
		byPerson[e.Person] = e
	}
	persons := make([]string, 0, len(counters))
	for p := range counters {
		persons = append(persons, p)
	}
	sort.Strings(persons)

	out := make([]model.FairnessCounter, 0, len(persons))
	for _, p := range persons {
		c := counters[p]
		row := model.FairnessCounter{
			Period:        period,
			Person:        p,
			Morning:       c.Morning,
			Afternoon:     c.Afternoon,
			Early:         c.Early,
			Late:          c.Late,
			Duty:          c.Duty,
			AfternoonDuty: c.AfternoonDuty,
			OnCallOwed:    c.OnCallOwed,
			OnCallUsed:    c.OnCallUsed,
			PerRoom:       perRoomColumn(c.PerRoom),
		}
		if e, ok := byPerson[p]; ok {
			row.CounterID = e.CounterID
			row.Version = e.Version
		}
		if callerID != "" {
			row.UpdatedBy = &callerID
		}
		out = append(out, row)
	}
	return out
}

func toDayAssignments(rows []model.DayAssignment) []scheduler.DayAssignment {
	out := make([]scheduler.DayAssignment, 0, len(rows))
	for _, r := range rows {
		d, err := parseDate(r.Date)
		if err != nil {
			continue
		}
		out = append(out, scheduler.DayAssignment{
			Date:     d,
			Shift:    scheduler.Shift(r.Shift),
			Person:   r.Person,
			Status:   scheduler.Status(r.Status),
			Memo:     r.Memo,
			ColorTag: scheduler.ColorTag(r.ColorTag),
		})
	}
	return out
}

func dayRows(month string, days []scheduler.DayAssignment, callerID string) []model.DayAssignment {
	out := make([]model.DayAssignment, 0, len(days))
	for _, d := range days {
		row := model.DayAssignment{
			Month:    month,
			Date:     scheduler.FormatDate(d.Date),
			Shift:    string(d.Shift),
			Person:   d.Person,
			Status:   string(d.Status),
			Memo:     d.Memo,
			ColorTag: string(d.ColorTag),
		}
		if row.ColorTag == "" {
			row.ColorTag = string(scheduler.ColorDefault)
		}
		if callerID != "" {
			row.CreatedBy = &callerID
		}
		out = append(out, row)
	}
	return out
}

func toSlotAssignments(rows []model.SlotAssignment) []scheduler.SlotAssignment {
	out := make([]scheduler.SlotAssignment, 0, len(rows))
	for _, r := range rows {
		d, err := parseDate(r.Date)
		if err != nil {
			continue
		}
		out = append(out, scheduler.SlotAssignment{Date: d, SlotID: r.SlotID, Person: r.Person})
	}
	return out
}

func slotRows(month string, slots []scheduler.SlotAssignment, callerID string) []model.SlotAssignment {
	out := make([]model.SlotAssignment, 0, len(slots))
	for _, s := range slots {
		row := model.SlotAssignment{Month: month, Date: scheduler.FormatDate(s.Date), SlotID: s.SlotID, Person: s.Person}
		if callerID != "" {
			row.CreatedBy = &callerID
		}
		out = append(out, row)
	}
	return out
}

func toOnCall(rows []model.OnCallAssignment) []scheduler.OnCallAssignment {
	out := make([]scheduler.OnCallAssignment, 0, len(rows))
	for _, r := range rows {
		d, err := parseDate(r.Date)
		if err != nil {
			continue
		}
		out = append(out, scheduler.OnCallAssignment{Date: d, Person: r.Person, Source: r.Source})
	}
	return out
}

func onCallRows(month string, oncall []scheduler.OnCallAssignment, callerID string) []model.OnCallAssignment {
	out := make([]model.OnCallAssignment, 0, len(oncall))
	for _, o := range oncall {
		row := model.OnCallAssignment{Month: month, Date: scheduler.FormatDate(o.Date), Person: o.Person, Source: o.Source}
		if callerID != "" {
			row.CreatedBy = &callerID
		}
		out = append(out, row)
	}
	return out
}

// ── 响应转换 ──

func warningResponses(ws []scheduler.Warning) []dto.WarningResponse {
	out := make([]dto.WarningResponse, 0, len(ws))
	for _, w := range ws {
		r := dto.WarningResponse{Kind: string(w.Kind), Shift: string(w.Shift), Person: w.Person, Message: w.Message}
		if w.Date != nil {
			r.Date = scheduler.FormatDate(*w.Date)
		}
		out = append(out, r)
	}
	return out
}

func swapLogResponse(l model.SwapLog) dto.SwapLogResponse {
	return dto.SwapLogResponse{
		SwappedAt: l.SwappedAt.Format(time.RFC3339),
		Shift:     l.Shift,
		Date1:     l.Date1,
		PersonA:   l.PersonA,
		Date2:     l.Date2,
		PersonB:   l.PersonB,
	}
}

// [自证通过] internal/service/convert.go
