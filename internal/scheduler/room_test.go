package scheduler

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clinicBands() []Band {
	return []Band{
		{Label: "8:30", Shift: Morning, Rooms: []string{"1", "2", "4", "7"}, DutyRoom: "1"},
		{Label: "09:00", Shift: Morning, Rooms: []string{"10", "11", "12"}},
		{Label: "09:30", Shift: Morning, Rooms: []string{"3", "5", "6"}},
		{Label: "10:00", Shift: Morning, Rooms: []string{"8", "9"}},
		{Label: "13:30", Shift: Afternoon, Rooms: []string{"2", "3", "4", "7"}, DutyRoom: "2"},
	}
}

func clinicCatalog(t *testing.T) *RoomCatalog {
	t.Helper()
	c, err := NewRoomCatalog(clinicBands(), 12, true)
	require.NoError(t, err)
	return c
}

func confirmedDay(t *testing.T, date string, shift Shift, persons []string) []DayAssignment {
	var out []DayAssignment
	for _, p := range persons {
		out = append(out, DayAssignment{Date: mustDate(t, date), Shift: shift, Person: p, Status: StatusBase})
	}
	return out
}

func slotOwners(slots []SlotAssignment) map[string]string {
	out := make(map[string]string, len(slots))
	for _, s := range slots {
		out[s.SlotID] = s.Person
	}
	return out
}

func TestRoomCatalog_Expand(t *testing.T) {
	c := clinicCatalog(t)

	assert.Len(t, c.Slots(Morning), 12)
	assert.Len(t, c.Slots(Afternoon), 4)
	assert.Len(t, c.Slots(""), 16)

	duty, ok := c.Lookup("08:30(1)_duty")
	require.True(t, ok)
	assert.True(t, duty.Duty)
	assert.False(t, duty.Early)

	early, ok := c.Lookup("08:30(2)")
	require.True(t, ok)
	assert.True(t, early.Early)

	late, ok := c.Lookup("10:00(8)")
	require.True(t, ok)
	assert.True(t, late.Late)

	pmDuty, ok := c.Lookup("13:30(2)_duty")
	require.True(t, ok)
	assert.Equal(t, Afternoon, pmDuty.Shift)
	assert.False(t, pmDuty.Early || pmDuty.Late)
}

func TestRoomCatalog_Validate(t *testing.T) {
	short := clinicBands()
	short[3].Rooms = []string{"8"}
	_, err := NewRoomCatalog(short, 12, true)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "rooms.morning_total", ve.Field)

	badDuty := clinicBands()
	badDuty[0].DutyRoom = "9"
	_, err = NewRoomCatalog(badDuty, 12, true)
	assert.Error(t, err)

	noDuty := clinicBands()
	noDuty[0].DutyRoom = ""
	_, err = NewRoomCatalog(noDuty, 12, true)
	assert.Error(t, err)
	_, err = NewRoomCatalog(noDuty, 12, false)
	assert.NoError(t, err)
}

func TestAssignRooms_Placements(t *testing.T) {
	c := clinicCatalog(t)
	days := confirmedDay(t, "2025-04-07", Morning, names("M", 1, 12))
	days = append(days, confirmedDay(t, "2025-04-07", Afternoon, names("M", 1, 5))...)
	on := dates(t, "2025-04-07")

	slots, warnings := AssignRooms(RoomInput{
		Days:   days,
		OnCall: []OnCallAssignment{{Date: on[0], Person: "M03", Source: OnCallSourceLottery}},
		Fixed: []Request{
			{Person: "M05", Category: CatFixedPlacement, Slot: SlotCategory{Kind: SlotRoom, Value: "8"}, Dates: on},
			{Person: "M06", Category: CatFixedPlacement, Slot: SlotCategory{Kind: SlotRoom, Value: "8"}, Dates: on},
		},
		Priority: []Request{
			{Person: "M07", Category: CatPriorityPlacement, Slot: SlotCategory{Kind: SlotNotLate}, Dates: on},
		},
		Catalog: c,
		Rand:    rand.New(rand.NewSource(1)),
	}, NewLedger(nil))

	require.Len(t, slots, 16)
	owners := slotOwners(slots)
	assert.Equal(t, "M03", owners["08:30(1)_duty"])
	assert.Equal(t, "M05", owners["10:00(8)"])
	// 늦은방 제외: 目录顺序中第一个非末段、非值班位置
	assert.Equal(t, "M07", owners["08:30(2)"])
	slot, ok := c.Lookup("08:30(2)")
	require.True(t, ok)
	assert.False(t, slot.Late)

	// 值班人不再占下午房间
	for _, s := range c.Slots(Afternoon) {
		assert.NotEqual(t, "M03", owners[s.ID])
	}

	assert.False(t, hasWarning(warnings, WarnCapacity))
	var conflict bool
	for _, w := range warnings {
		if w.Kind == WarnValidation && w.Person == "M06" {
			conflict = true
		}
	}
	assert.True(t, conflict)

	for _, shift := range []Shift{Morning, Afternoon} {
		held := map[string]bool{}
		for _, s := range c.Slots(shift) {
			p := owners[s.ID]
			assert.False(t, held[p], "同一半日重复占位 %s", p)
			held[p] = true
		}
	}
}

func TestAssignRooms_FairnessRotatesDuty(t *testing.T) {
	c := clinicCatalog(t)
	ledger := NewLedger(map[string]Counters{"M01": {Duty: 5}})
	days := confirmedDay(t, "2025-04-07", Morning, names("M", 1, 12))

	slots, _ := AssignRooms(RoomInput{Days: days, Catalog: c}, ledger)

	owners := slotOwners(slots)
	assert.Equal(t, "M02", owners["08:30(1)_duty"])
	assert.Equal(t, 1, ledger.Get("M02").Duty)
	assert.Equal(t, 5, ledger.Get("M01").Duty)
}

func TestAssignRooms_FallbackReusesOtherHalf(t *testing.T) {
	c := clinicCatalog(t)
	days := confirmedDay(t, "2025-04-07", Morning, names("M", 1, 11))
	days = append(days, confirmedDay(t, "2025-04-07", Afternoon, names("A", 1, 6))...)

	slots, warnings := AssignRooms(RoomInput{Days: days, Catalog: c, Rand: rand.New(rand.NewSource(9))}, NewLedger(nil))

	require.Len(t, slots, 16)
	owners := slotOwners(slots)
	assert.Contains(t, names("A", 1, 6), owners["10:00(9)"])

	var reused bool
	for _, w := range warnings {
		var ce *CapacityError
		if w.Kind == WarnCapacity && errors.As(w.Err, &ce) && ce.SlotID == "10:00(9)" {
			reused = w.Person == owners["10:00(9)"]
		}
	}
	assert.True(t, reused)
	assert.True(t, hasWarning(warnings, WarnUnplaced))
}

func TestAssignRooms_EmptySlotWhenNobodyLeft(t *testing.T) {
	c := clinicCatalog(t)
	days := confirmedDay(t, "2025-04-07", Morning, names("M", 1, 10))

	slots, warnings := AssignRooms(RoomInput{Days: days, Catalog: c}, NewLedger(nil))

	// 上午缺 2 个位置保持空缺；无下午名单则下午不开诊
	owners := slotOwners(slots)
	assert.Len(t, slots, 10)
	assert.NotContains(t, owners, "10:00(8)")
	assert.NotContains(t, owners, "10:00(9)")
	for _, s := range c.Slots(Afternoon) {
		assert.NotContains(t, owners, s.ID)
	}
	n := 0
	for _, w := range warnings {
		if w.Kind == WarnCapacity {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestParseSlotCategory_Matches(t *testing.T) {
	c := clinicCatalog(t)
	early, err := ParseSlotCategory("당직 아닌 이른방")
	require.NoError(t, err)

	var ids []string
	for _, s := range c.Slots("") {
		if early.Matches(s) {
			ids = append(ids, s.ID)
		}
	}
	assert.Equal(t, []string{"08:30(2)", "08:30(4)", "08:30(7)"}, ids)

	pm, err := ParseSlotCategory("afternoon_non_duty")
	require.NoError(t, err)
	n := 0
	for _, s := range c.Slots("") {
		if pm.Matches(s) {
			n++
		}
	}
	assert.Equal(t, 3, n)
}
