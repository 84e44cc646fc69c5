package scheduler

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// AssignOnCall 为每个下午有人的日期指定一名值班。
//
// 先按 (剩余配额降序, 下午累计升序, 姓名) 轮流消耗配额，每轮每人至多一天；
// 配额用尽后剩余日期从当日下午名单中随机抽取。
func AssignOnCall(dates []time.Time, days []DayAssignment, ledger *Ledger, rng *rand.Rand) ([]OnCallAssignment, []Warning) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	var warnings []Warning

	afternoon := make(map[time.Time][]string)
	for _, d := range days {
		if d.Shift == Afternoon && d.Status.Confirmed() {
			k := Day(d.Date)
			afternoon[k] = append(afternoon[k], d.Person)
		}
	}

	open := make(map[time.Time]bool)
	var ordered []time.Time
	for _, d := range dates {
		d = Day(d)
		if len(afternoon[d]) == 0 {
			warnings = append(warnings, newWarning(WarnOnCallEmpty, d, Afternoon, "", "下午无人在岗，未指定值班"))
			continue
		}
		sort.Strings(afternoon[d])
		if !open[d] {
			open[d] = true
			ordered = append(ordered, d)
		}
	}
	sortDates(ordered)

	assigned := make(map[time.Time]OnCallAssignment)

	// 配额轮
	for {
		var people []string
		for _, p := range ledger.Persons() {
			if ledger.Remaining(p) > 0 {
				people = append(people, p)
			}
		}
		if len(people) == 0 {
			break
		}
		sort.SliceStable(people, func(i, j int) bool {
			ri, rj := ledger.Remaining(people[i]), ledger.Remaining(people[j])
			if ri != rj {
				return ri > rj
			}
			ai, aj := ledger.ShiftCount(people[i], Afternoon), ledger.ShiftCount(people[j], Afternoon)
			if ai != aj {
				return ai < aj
			}
			return people[i] < people[j]
		})

		progressed := false
		for _, p := range people {
			var eligible []time.Time
			for _, d := range ordered {
				if open[d] && contains(afternoon[d], p) {
					eligible = append(eligible, d)
				}
			}
			if len(eligible) == 0 {
				continue
			}
			d := eligible[rng.Intn(len(eligible))]
			delete(open, d)
			assigned[d] = OnCallAssignment{Date: d, Person: p, Source: OnCallSourceQuota}
			ledger.AddOnCall(p, 1)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	// 抽签
	for _, d := range ordered {
		if !open[d] {
			continue
		}
		roster := afternoon[d]
		p := roster[rng.Intn(len(roster))]
		assigned[d] = OnCallAssignment{Date: d, Person: p, Source: OnCallSourceLottery}
		ledger.AddOnCall(p, 1)
	}

	out := make([]OnCallAssignment, 0, len(assigned))
	for _, d := range ordered {
		out = append(out, assigned[d])
	}

	for _, p := range ledger.Persons() {
		c := ledger.Get(p)
		if c.OnCallUsed > c.OnCallOwed {
			warnings = append(warnings, Warning{
				Kind:    WarnNotice,
				Person:  p,
				Message: fmt.Sprintf("值班 %d 次，超出配额 %d", c.OnCallUsed, c.OnCallOwed),
			})
		}
	}
	return out, warnings
}
