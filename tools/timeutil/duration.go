package timeutil

import (
	"strconv"
	"strings"
	"time"
)

// DefaultExpiration 解析失败时的兜底值
const DefaultExpiration = 7 * 24 * time.Hour

// ParseExpiration 解析 "<整数> <单位>" 形式的过期时长，如 "30 minutes"、"2 days"。
// 单位做归一化（单复数/缩写都认），解析失败一律返回一周，
// 过期配置写错不应该让注册流程失败。
func ParseExpiration(s string) time.Duration {
	split := strings.Fields(strings.TrimSpace(s))
	if len(split) != 2 {
		return DefaultExpiration
	}

	length, err := strconv.ParseInt(split[0], 10, 64)
	if err != nil || length <= 0 {
		return DefaultExpiration
	}

	unit, ok := normalizeUnit(split[1])
	if !ok {
		return DefaultExpiration
	}

	d := time.Duration(length) * unit
	if d <= 0 { // 溢出
		return DefaultExpiration
	}
	return d
}

// normalizeUnit 归一化时间单位（month 按 30 天、year 按 365 天折算）
func normalizeUnit(s string) (time.Duration, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "sec", "secs", "second", "seconds":
		return time.Second, true
	case "m", "min", "mins", "minute", "minutes":
		return time.Minute, true
	case "h", "hr", "hrs", "hour", "hours":
		return time.Hour, true
	case "d", "day", "days":
		return 24 * time.Hour, true
	case "w", "week", "weeks":
		return 7 * 24 * time.Hour, true
	case "month", "months":
		return 30 * 24 * time.Hour, true
	case "y", "year", "years":
		return 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
