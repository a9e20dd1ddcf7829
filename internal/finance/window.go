package finance

import (
	"fmt"
	"time"
)

// Window is a reporting time range. Windows shape dashboard aggregation only;
// ledger settlement always walks the full history.
type Window string

const (
	WindowToday      Window = "today"
	WindowYesterday  Window = "yesterday"
	WindowLast7Days  Window = "last7days"
	WindowLast30Days Window = "last30days"
	WindowAllTime    Window = "allTime"
)

func ParseWindow(value string) (Window, error) {
	switch Window(value) {
	case WindowToday, WindowYesterday, WindowLast7Days, WindowLast30Days, WindowAllTime:
		return Window(value), nil
	case "":
		return WindowAllTime, nil
	}
	return "", fmt.Errorf("unknown window %q", value)
}

// Bounds returns the half-open interval [start, end) in epoch milliseconds
// for the window evaluated at now, using local-day boundaries at midnight.
// bounded is false for allTime. Yesterday is the single calendar day before
// today: [yesterdayMidnight, todayMidnight).
func (w Window) Bounds(now time.Time) (startMs int64, endMs int64, bounded bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch w {
	case WindowToday:
		return midnight.UnixMilli(), maxEpochMs, true
	case WindowYesterday:
		return midnight.AddDate(0, 0, -1).UnixMilli(), midnight.UnixMilli(), true
	case WindowLast7Days:
		return midnight.AddDate(0, 0, -7).UnixMilli(), maxEpochMs, true
	case WindowLast30Days:
		return midnight.AddDate(0, 0, -30).UnixMilli(), maxEpochMs, true
	}
	return 0, 0, false
}

// Contains reports whether the creation timestamp falls inside the window.
func (w Window) Contains(createdAtMs int64, now time.Time) bool {
	start, end, bounded := w.Bounds(now)
	if !bounded {
		return true
	}
	return createdAtMs >= start && createdAtMs < end
}

const maxEpochMs = int64(1<<62 - 1)
