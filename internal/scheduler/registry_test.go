package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestParseDates(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "single", input: "2025-04-07", want: []string{"2025-04-07"}},
		{name: "weekend dropped", input: "2025-04-05", want: nil},
		{name: "comma list", input: "2025-04-08, 2025-04-07,2025-04-07", want: []string{"2025-04-07", "2025-04-08"}},
		{name: "range skips weekend", input: "2025-04-04 ~ 2025-04-08", want: []string{"2025-04-04", "2025-04-07", "2025-04-08"}},
		{name: "range and single", input: "2025-04-07 ~ 2025-04-08, 2025-04-10", want: []string{"2025-04-07", "2025-04-08", "2025-04-10"}},
		{name: "reversed range", input: "2025-04-08 ~ 2025-04-07", wantErr: true},
		{name: "garbage", input: "04/07", wantErr: true},
		{name: "empty", input: " ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDates(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			var formatted []string
			for _, d := range got {
				formatted = append(formatted, FormatDate(d))
			}
			assert.Equal(t, tt.want, formatted)
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input string
		want  []Request
	}{
		{"vacation", []Request{{Category: CatVacation}}},
		{"휴가", []Request{{Category: CatVacation}}},
		{"must_work(morning)", []Request{{Category: CatMustWork, Shift: Morning}}},
		{"꼭 근무(오후)", []Request{{Category: CatMustWork, Shift: Afternoon}}},
		{"보충 불가(오전)", []Request{{Category: CatNoSupplement, Shift: Morning}}},
		{"hard_supplement", []Request{{Category: CatHardSupplement, Shift: Morning}, {Category: CatHardSupplement, Shift: Afternoon}}},
		{"fixed_placement(room:3)", []Request{{Category: CatFixedPlacement, Slot: SlotCategory{Kind: SlotRoom, Value: "3"}}}},
		{"priority_placement(8:30)", []Request{{Category: CatPriorityPlacement, Slot: SlotCategory{Kind: SlotBand, Value: "08:30"}}}},
		{"우선(이른방 제외)", []Request{{Category: CatPriorityPlacement, Slot: SlotCategory{Kind: SlotNotEarly}}}},
		{"3번방", []Request{{Category: CatPriorityPlacement, Slot: SlotCategory{Kind: SlotRoom, Value: "3"}}}},
		{"오후 당직 제외", []Request{{Category: CatPriorityPlacement, Slot: SlotCategory{Kind: SlotAfternoonNonDuty}}}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "sick_leave", "must_work(evening)", "fixed_placement(room:)", "fixed_placement(lunch)"} {
		_, err := ParseCategory(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalize_SkipsInvalidRows(t *testing.T) {
	rows := []RawRequest{
		{Person: "Kim", Category: "vacation", Dates: "2025-04-07 ~ 2025-04-08"},
		{Person: "Lee", Category: "sick", Dates: "2025-04-07"},
		{Person: "Park", Category: "must_work(morning)", Dates: "2025-13-01"},
		{Person: "", Category: "vacation", Dates: "2025-04-07"},
		{Person: "Choi", Category: "must_work", Dates: "2025-04-09"},
		{Person: "Jung", Category: "vacation", Dates: "2025-04-12"},
	}

	reqs, warnings := Normalize(rows)

	require.Len(t, warnings, 3)
	for _, w := range warnings {
		assert.Equal(t, WarnValidation, w.Kind)
		var ve *ValidationError
		assert.True(t, errors.As(w.Err, &ve))
	}
	assert.Equal(t, 2, warnings[0].Err.(*ValidationError).Row)

	require.Len(t, reqs, 3)
	assert.Equal(t, "Kim", reqs[0].Person)
	assert.Len(t, reqs[0].Dates, 2)
	assert.Equal(t, Morning, reqs[1].Shift)
	assert.Equal(t, Afternoon, reqs[2].Shift)
}

func TestMasterRoster_WeekOverride(t *testing.T) {
	m := NewMasterRoster([]MasterEntry{
		{Person: "Kim", Week: EveryWeek, Weekday: time.Monday, Value: ValueMorning},
		{Person: "Kim", Week: 2, Weekday: time.Monday, Value: ValueNone},
		{Person: "Lee", Week: EveryWeek, Weekday: time.Monday, Value: ValueBoth},
	})

	assert.Equal(t, []string{"Kim", "Lee"}, m.BaseRoster(mustDate(t, "2025-04-07"), Morning))
	assert.Equal(t, []string{"Lee"}, m.BaseRoster(mustDate(t, "2025-04-14"), Morning))
	assert.Equal(t, []string{"Lee"}, m.BaseRoster(mustDate(t, "2025-04-07"), Afternoon))
	assert.Empty(t, m.BaseRoster(mustDate(t, "2025-04-08"), Morning))
}

func TestParseWeekLabel(t *testing.T) {
	for in, want := range map[string]int{"every": 0, "매주": 0, "week 2": 2, "3주": 3} {
		got, err := ParseWeekLabel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseWeekLabel("week 9")
	assert.Error(t, err)
}

func TestScheduleDates(t *testing.T) {
	month := Month{Year: 2025, Month: time.April}
	weekdays, sats := ScheduleDates(month,
		[]time.Time{mustDate(t, "2025-04-07")},
		[]SaturdayOverride{
			{Date: mustDate(t, "2025-04-05"), Persons: []string{"Kim"}},
			{Date: mustDate(t, "2025-04-12")},
		})

	assert.Len(t, weekdays, 21)
	for _, d := range weekdays {
		assert.NotEqual(t, "2025-04-07", FormatDate(d))
	}
	require.Len(t, sats, 1)
	assert.Equal(t, "2025-04-05", FormatDate(sats[0]))
}
