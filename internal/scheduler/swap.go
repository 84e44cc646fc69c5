package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// ReconcileResult 对账结果
type ReconcileResult struct {
	Days       []DayAssignment
	Swaps      []SwapLogEntry
	Unresolved []Warning
}

type dayDiff struct {
	date    time.Time
	added   []string
	removed []string
}

// Reconcile 比对持久化名单与手动调整后的快照，识别并应用两两换班。
//
// 对每个日期 added = current − original，removed = original − current；
// 若 A ∈ added(d1) ∩ removed(d2) 且 B ∈ added(d2) ∩ removed(d1)（d1 < d2），视为一次换班。
// 无法配对的增删以 Unresolved 报告，不做应用。
func Reconcile(original []DayAssignment, current []DaySnapshot, shift Shift, now time.Time) ReconcileResult {
	before := make(map[time.Time]map[string]bool)
	for _, d := range original {
		if d.Shift != shift || !d.Status.Confirmed() {
			continue
		}
		k := Day(d.Date)
		if before[k] == nil {
			before[k] = make(map[string]bool)
		}
		before[k][d.Person] = true
	}
	after := make(map[time.Time]map[string]bool)
	for _, snap := range current {
		k := Day(snap.Date)
		if after[k] == nil {
			after[k] = make(map[string]bool)
		}
		for _, p := range snap.Persons {
			if p != "" {
				after[k][p] = true
			}
		}
	}

	var diffs []*dayDiff
	byDate := make(map[time.Time]*dayDiff)
	collect := func(k time.Time) {
		if _, ok := byDate[k]; ok {
			return
		}
		if _, inCurrent := after[k]; !inCurrent {
			// 快照未覆盖的日期视为未改动
			return
		}
		dd := &dayDiff{date: k}
		for p := range after[k] {
			if !before[k][p] {
				dd.added = append(dd.added, p)
			}
		}
		for p := range before[k] {
			if !after[k][p] {
				dd.removed = append(dd.removed, p)
			}
		}
		if len(dd.added) == 0 && len(dd.removed) == 0 {
			return
		}
		sort.Strings(dd.added)
		sort.Strings(dd.removed)
		byDate[k] = dd
		diffs = append(diffs, dd)
	}
	for k := range before {
		collect(k)
	}
	for k := range after {
		collect(k)
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].date.Before(diffs[j].date) })

	var swaps []SwapLogEntry
	for i := 0; i < len(diffs); i++ {
		d1 := diffs[i]
		for j := i + 1; j < len(diffs); j++ {
			d2 := diffs[j]
			for {
				a, b, ok := findPair(d1, d2)
				if !ok {
					break
				}
				d1.added = remove(d1.added, a)
				d2.removed = remove(d2.removed, a)
				d2.added = remove(d2.added, b)
				d1.removed = remove(d1.removed, b)
				swaps = append(swaps, SwapLogEntry{
					Timestamp: now,
					Shift:     shift,
					Date1:     d1.date,
					PersonA:   a,
					Date2:     d2.date,
					PersonB:   b,
				})
			}
		}
	}

	var unresolved []Warning
	for _, dd := range diffs {
		for _, p := range dd.added {
			unresolved = append(unresolved, newWarning(WarnUnresolved, dd.date, shift, p, "新增但无法配对换班，请手动修正"))
		}
		for _, p := range dd.removed {
			unresolved = append(unresolved, newWarning(WarnUnresolved, dd.date, shift, p, "移除但无法配对换班，请手动修正"))
		}
	}

	return ReconcileResult{
		Days:       ApplySwaps(original, swaps),
		Swaps:      swaps,
		Unresolved: unresolved,
	}
}

// findPair 在 d1、d2 之间找出第一组 (A, B)
func findPair(d1, d2 *dayDiff) (string, string, bool) {
	for _, a := range d1.added {
		if !contains(d2.removed, a) {
			continue
		}
		for _, b := range d2.added {
			if b != a && contains(d1.removed, b) {
				return a, b, true
			}
		}
	}
	return "", "", false
}

// ApplySwaps 在原记录上原位替换人员，状态与颜色保持不变。
// 被换入者在该日若留有非在岗记录（如已剔除），该记录被换入记录取代。
func ApplySwaps(days []DayAssignment, swaps []SwapLogEntry) []DayAssignment {
	out := make([]DayAssignment, len(days))
	copy(out, days)

	for _, s := range swaps {
		out = swapInto(out, s.Shift, s.Date1, s.PersonB, s.PersonA, s.Date2)
		out = swapInto(out, s.Shift, s.Date2, s.PersonA, s.PersonB, s.Date1)
	}
	return out
}

// swapInto 将 date 上 from 的在岗记录改为 to
func swapInto(days []DayAssignment, shift Shift, date time.Time, from, to string, otherDate time.Time) []DayAssignment {
	d := Day(date)
	target := -1
	stale := -1
	for i, rec := range days {
		if rec.Shift != shift || !Day(rec.Date).Equal(d) {
			continue
		}
		if rec.Person == from && rec.Status.Confirmed() && target < 0 {
			target = i
		}
		if rec.Person == to && !rec.Status.Confirmed() {
			stale = i
		}
	}
	if target < 0 {
		return days
	}
	days[target].Person = to
	days[target].Memo = fmt.Sprintf("%s %s (%s)", MemoSwappedWith, from, FormatDate(otherDate))
	if stale >= 0 {
		days = append(days[:stale], days[stale+1:]...)
	}
	return days
}

func remove(xs []string, x string) []string {
	out := xs[:0]
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}
