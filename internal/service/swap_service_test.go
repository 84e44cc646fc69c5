package service

import (
	"context"
	"errors"
	"testing"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
)

func seedSwapMonth(m *mockRepos) {
	m.day.byMonth["2025-04"] = []model.DayAssignment{
		{Month: "2025-04", Date: "2025-04-08", Shift: "morning", Person: "A", Status: "base", ColorTag: "default"},
		{Month: "2025-04", Date: "2025-04-08", Shift: "morning", Person: "C", Status: "base", ColorTag: "default"},
		{Month: "2025-04", Date: "2025-04-09", Shift: "morning", Person: "B", Status: "base", ColorTag: "default"},
		{Month: "2025-04", Date: "2025-04-09", Shift: "morning", Person: "C", Status: "base", ColorTag: "default"},
	}
	m.slot.byMonth["2025-04"] = []model.SlotAssignment{
		{Month: "2025-04", Date: "2025-04-08", SlotID: "08:30(4)", Person: "A"},
		{Month: "2025-04", Date: "2025-04-08", SlotID: "09:00(10)", Person: "C"},
		{Month: "2025-04", Date: "2025-04-09", SlotID: "08:30(4)", Person: "B"},
		{Month: "2025-04", Date: "2025-04-09", SlotID: "09:00(10)", Person: "C"},
	}
}

func TestSwapService_Reconcile_AppliesSwap(t *testing.T) {
	svc, mocks, _ := setupTestService(t)
	seedSwapMonth(mocks)
	ctx := context.Background()

	resp, err := svc.Swap.Reconcile(ctx, &dto.ReconcileRequest{
		Month: "2025-04",
		Shift: "morning",
		Current: []dto.DaySnapshotItem{
			{Date: "2025-04-08", Persons: []string{"B", "C"}},
			{Date: "2025-04-09", Persons: []string{"A", "C"}},
		},
	}, "admin-1")
	if err != nil {
		t.Fatalf("Reconcile 失败: %v", err)
	}
	if len(resp.Applied) != 1 {
		t.Fatalf("期望识别 1 次换班，实际 %d", len(resp.Applied))
	}
	sw := resp.Applied[0]
	if sw.Date1 != "2025-04-08" || sw.PersonA != "B" || sw.Date2 != "2025-04-09" || sw.PersonB != "A" {
		t.Errorf("换班记录错误: %+v", sw)
	}

	persons := make(map[string]string)
	for _, d := range mocks.day.byMonth["2025-04"] {
		if d.Person != "C" {
			persons[d.Date] = d.Person
		}
	}
	if persons["2025-04-08"] != "B" || persons["2025-04-09"] != "A" {
		t.Errorf("换班未写回排班: %v", persons)
	}

	for _, s := range mocks.slot.byMonth["2025-04"] {
		if s.SlotID != "08:30(4)" {
			continue
		}
		want := map[string]string{"2025-04-08": "B", "2025-04-09": "A"}[s.Date]
		if s.Person != want {
			t.Errorf("%s 房间应随换班转移给 %s，实际 %s", s.Date, want, s.Person)
		}
	}

	if len(mocks.swapLog.logs) != 1 {
		t.Errorf("期望追加 1 条换班日志，实际 %d", len(mocks.swapLog.logs))
	}
	if len(mocks.fairness.byPeriod["2025-04"]) == 0 {
		t.Error("换班后应重建台账")
	}

	logs, total, err := svc.Swap.ListLogs(ctx, &dto.SwapLogListRequest{Month: "2025-04"})
	if err != nil || total != 1 || len(logs) != 1 {
		t.Errorf("ListLogs 结果错误: total=%d err=%v", total, err)
	}
}

func TestSwapService_Reconcile_UnresolvedPersistsNothing(t *testing.T) {
	svc, mocks, _ := setupTestService(t)
	seedSwapMonth(mocks)

	resp, err := svc.Swap.Reconcile(context.Background(), &dto.ReconcileRequest{
		Month: "2025-04",
		Shift: "morning",
		Current: []dto.DaySnapshotItem{
			{Date: "2025-04-08", Persons: []string{"B", "C"}},
		},
	}, "")
	if !errors.Is(err, ErrUnresolvedSwaps) {
		t.Fatalf("期望 ErrUnresolvedSwaps，实际: %v", err)
	}
	if resp == nil || len(resp.Unresolved) != 2 {
		t.Fatalf("期望返回 2 条未解决警告，实际 %+v", resp)
	}
	if mocks.day.replaceCall != 0 || len(mocks.swapLog.logs) != 0 {
		t.Error("存在未解决改动时不应写入任何数据")
	}
}

func TestSwapService_Reconcile_DateOutOfMonth(t *testing.T) {
	svc, mocks, _ := setupTestService(t)
	seedSwapMonth(mocks)

	_, err := svc.Swap.Reconcile(context.Background(), &dto.ReconcileRequest{
		Month:   "2025-04",
		Shift:   "morning",
		Current: []dto.DaySnapshotItem{{Date: "2025-05-01", Persons: []string{"A"}}},
	}, "")
	if !errors.Is(err, ErrDateOutOfMonth) {
		t.Errorf("期望 ErrDateOutOfMonth，实际: %v", err)
	}
}

func TestSwapService_Reconcile_NoChange(t *testing.T) {
	svc, mocks, _ := setupTestService(t)
	seedSwapMonth(mocks)

	resp, err := svc.Swap.Reconcile(context.Background(), &dto.ReconcileRequest{
		Month:   "2025-04",
		Shift:   "morning",
		Current: []dto.DaySnapshotItem{{Date: "2025-04-08", Persons: []string{"A", "C"}}},
	}, "")
	if err != nil {
		t.Fatalf("Reconcile 失败: %v", err)
	}
	if len(resp.Applied) != 0 || mocks.day.replaceCall != 0 {
		t.Error("名单未变化时不应写入")
	}
}

func TestSwapService_Reconcile_OnCallFollowsMorningDuty(t *testing.T) {
	svc, mocks, _ := setupTestService(t)
	seedSwapMonth(mocks)
	mocks.slot.byMonth["2025-04"][0].SlotID = "08:30(1)_duty"
	mocks.oncall.byMonth["2025-04"] = []model.OnCallAssignment{
		{Month: "2025-04", Date: "2025-04-08", Person: "A", Source: "lottery"},
		{Month: "2025-04", Date: "2025-04-09", Person: "C", Source: "quota"},
	}

	_, err := svc.Swap.Reconcile(context.Background(), &dto.ReconcileRequest{
		Month: "2025-04",
		Shift: "morning",
		Current: []dto.DaySnapshotItem{
			{Date: "2025-04-08", Persons: []string{"B", "C"}},
			{Date: "2025-04-09", Persons: []string{"A", "C"}},
		},
	}, "")
	if err != nil {
		t.Fatalf("Reconcile 失败: %v", err)
	}

	for _, s := range mocks.slot.byMonth["2025-04"] {
		if s.Date == "2025-04-08" && s.SlotID == "08:30(1)_duty" && s.Person != "B" {
			t.Errorf("值班房应转移给 B，实际 %s", s.Person)
		}
	}
	onCall := make(map[string]string)
	for _, o := range mocks.oncall.byMonth["2025-04"] {
		onCall[o.Date] = o.Person
	}
	if onCall["2025-04-08"] != "B" {
		t.Errorf("值班应随值班房转移给 B，实际 %s", onCall["2025-04-08"])
	}
	if onCall["2025-04-09"] != "C" {
		t.Errorf("未涉及换班的值班不应变化，实际 %s", onCall["2025-04-09"])
	}
}
