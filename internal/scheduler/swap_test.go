package scheduler

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(t *testing.T, date string, persons ...string) DaySnapshot {
	return DaySnapshot{Date: mustDate(t, date), Persons: persons}
}

func confirmedOn(days []DayAssignment, date string, shift Shift) []string {
	var out []string
	for _, d := range days {
		if FormatDate(d.Date) == date && d.Shift == shift && d.Status.Confirmed() {
			out = append(out, d.Person)
		}
	}
	sort.Strings(out)
	return out
}

func TestReconcile_SingleSwap(t *testing.T) {
	original := confirmedDay(t, "2025-04-07", Morning, []string{"A", "B", "C"})
	original = append(original, confirmedDay(t, "2025-04-08", Morning, []string{"D", "E", "F"})...)
	original = append(original, confirmedDay(t, "2025-04-07", Afternoon, []string{"A"})...)
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	res := Reconcile(original, []DaySnapshot{
		snapshot(t, "2025-04-07", "D", "B", "C"),
		snapshot(t, "2025-04-08", "A", "E", "F"),
	}, Morning, now)

	require.Len(t, res.Swaps, 1)
	assert.Empty(t, res.Unresolved)
	s := res.Swaps[0]
	assert.Equal(t, "2025-04-07", FormatDate(s.Date1))
	assert.Equal(t, "2025-04-08", FormatDate(s.Date2))
	assert.Equal(t, "D", s.PersonA)
	assert.Equal(t, "A", s.PersonB)
	assert.Equal(t, now, s.Timestamp)

	assert.Equal(t, []string{"B", "C", "D"}, confirmedOn(res.Days, "2025-04-07", Morning))
	assert.Equal(t, []string{"A", "E", "F"}, confirmedOn(res.Days, "2025-04-08", Morning))
	assert.Equal(t, []string{"A"}, confirmedOn(res.Days, "2025-04-07", Afternoon))

	for _, d := range res.Days {
		if d.Person == "D" && FormatDate(d.Date) == "2025-04-07" {
			assert.Equal(t, MemoSwappedWith+" A (2025-04-08)", d.Memo)
		}
	}
	// 原记录不被修改
	assert.Equal(t, []string{"A", "B", "C"}, confirmedOn(original, "2025-04-07", Morning))
}

func TestReconcile_Unresolved(t *testing.T) {
	original := confirmedDay(t, "2025-04-07", Morning, []string{"A", "B", "C"})
	original = append(original, confirmedDay(t, "2025-04-08", Morning, []string{"D", "E", "F"})...)

	res := Reconcile(original, []DaySnapshot{snapshot(t, "2025-04-07", "A", "B", "C", "E")}, Morning, time.Now())

	assert.Empty(t, res.Swaps)
	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, WarnUnresolved, res.Unresolved[0].Kind)
	assert.Equal(t, "E", res.Unresolved[0].Person)
	assert.Equal(t, []string{"D", "E", "F"}, confirmedOn(res.Days, "2025-04-08", Morning))
}

func TestReconcile_NoChanges(t *testing.T) {
	original := confirmedDay(t, "2025-04-07", Morning, []string{"A", "B"})
	res := Reconcile(original, []DaySnapshot{snapshot(t, "2025-04-07", "B", "A")}, Morning, time.Now())
	assert.Empty(t, res.Swaps)
	assert.Empty(t, res.Unresolved)
	assert.Equal(t, original, res.Days)
}

func TestApplySwaps_DropsStaleRecord(t *testing.T) {
	days := confirmedDay(t, "2025-04-07", Morning, []string{"A"})
	days = append(days, DayAssignment{Date: mustDate(t, "2025-04-07"), Shift: Morning, Person: "B", Status: StatusExcluded})
	days = append(days, confirmedDay(t, "2025-04-08", Morning, []string{"B"})...)

	out := ApplySwaps(days, []SwapLogEntry{{
		Shift: Morning, Date1: mustDate(t, "2025-04-07"), PersonA: "B", Date2: mustDate(t, "2025-04-08"), PersonB: "A",
	}})

	assert.Len(t, out, 2)
	assert.Equal(t, []string{"B"}, confirmedOn(out, "2025-04-07", Morning))
	assert.Equal(t, []string{"A"}, confirmedOn(out, "2025-04-08", Morning))
}
