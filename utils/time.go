package utils

import (
	"time"
)

// TodayUTC 返回 UTC 当前日期串，账号日配额的日切键
func TodayUTC() string {
	return time.Now().UTC().Format("2006-01-02")
}

// NextUTCMidnight 返回下一个 UTC 零点，配额重置调度用
func NextUTCMidnight(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
