// Package scheduler 诊所排班引擎：人数平衡、值班分配、房间分配与换班对账。
//
// 包内只有纯函数与显式输入结构，不持有任何进程级可变状态；
// 随机决策全部通过调用方注入的 *rand.Rand 完成。
package scheduler

import (
	"math/rand"
	"time"
)

// ShiftRunInput 班次分配输入
type ShiftRunInput struct {
	Month             Month
	Requests          []Request
	Master            *MasterRoster
	Prior             map[string]Counters
	Holidays          []time.Time
	SaturdayOverrides []SaturdayOverride
	Config            BalanceConfig
	Rand              *rand.Rand
}

// ShiftRunResult 班次分配输出
type ShiftRunResult struct {
	Days     []DayAssignment
	OnCall   []OnCallAssignment
	Counters map[string]Counters
	Warnings []Warning
}

// RunShiftAssignment 人数平衡 + 值班分配
func RunShiftAssignment(in ShiftRunInput) ShiftRunResult {
	ledger := NewLedger(in.Prior)
	weekdays, sats := ScheduleDates(in.Month, in.Holidays, in.SaturdayOverrides)

	var overrides []SaturdayOverride
	satSet := make(map[time.Time]bool, len(sats))
	for _, d := range sats {
		satSet[d] = true
	}
	var warnings []Warning
	for _, o := range in.SaturdayOverrides {
		d := Day(o.Date)
		if satSet[d] {
			overrides = append(overrides, SaturdayOverride{Date: d, Persons: o.Persons})
			delete(satSet, d)
		} else if in.Month.Contains(d) && d.Weekday() == time.Saturday && len(o.Persons) > 0 && isHoliday(d, in.Holidays) {
			warnings = append(warnings, newWarning(WarnNotice, d, Morning, "", "休馆日的周六名单被忽略"))
		}
	}

	cfg := in.Config
	if cfg == (BalanceConfig{}) {
		cfg = DefaultBalanceConfig()
	}

	days, w := BalanceShifts(BalanceInput{
		Weekdays:  weekdays,
		Saturdays: overrides,
		Master:    in.Master,
		Requests:  in.Requests,
		Config:    cfg,
	}, ledger)
	warnings = append(warnings, w...)

	oncall, w := AssignOnCall(weekdays, days, ledger, in.Rand)
	warnings = append(warnings, w...)

	return ShiftRunResult{
		Days:     days,
		OnCall:   oncall,
		Counters: ledger.Snapshot(),
		Warnings: warnings,
	}
}

// RoomRunInput 房间分配输入；Seed 为班次分配后的台账
type RoomRunInput struct {
	Month    Month
	Days     []DayAssignment
	OnCall   []OnCallAssignment
	Fixed    []Request
	Priority []Request
	Catalog  *RoomCatalog
	Seed     map[string]Counters
	Rand     *rand.Rand
}

// RoomRunResult 房间分配输出
type RoomRunResult struct {
	Slots    []SlotAssignment
	Counters map[string]Counters
	Warnings []Warning
}

// RunRoomAssignment 房间分配；只处理当月记录
func RunRoomAssignment(in RoomRunInput) RoomRunResult {
	ledger := NewLedger(in.Seed)

	var days []DayAssignment
	for _, d := range in.Days {
		if in.Month.Contains(d.Date) {
			days = append(days, d)
		}
	}

	slots, warnings := AssignRooms(RoomInput{
		Days:     days,
		OnCall:   in.OnCall,
		Fixed:    in.Fixed,
		Priority: in.Priority,
		Catalog:  in.Catalog,
		Rand:     in.Rand,
	}, ledger)

	return RoomRunResult{Slots: slots, Counters: ledger.Snapshot(), Warnings: warnings}
}

func isHoliday(d time.Time, holidays []time.Time) bool {
	for _, h := range holidays {
		if Day(h).Equal(d) {
			return true
		}
	}
	return false
}
