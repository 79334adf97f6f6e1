// Package datetime 提供日期解析与年化期限换算。
package datetime

import (
	"strings"
	"time"

	"github.com/wyfcoding/bsgreeks/xerrors"
)

// DateLayout 用户输入与展示所用的日期格式。
const DateLayout = "2006-01-02"

// DaysPerYear Actual/365 计息基础。
const DaysPerYear = 365.0

const secondsPerDay = 24 * 60 * 60

// FormatDate 将时间格式化为标准日期字符串 "YYYY-MM-DD"。
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate 解析一个形如 "YYYY-MM-DD" 的日期字符串，结果位于 loc 时区的零点。
// loc 为 nil 时使用 UTC。
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, xerrors.ErrInvalidDate.Clone().WithContext("date", s).WithDetail("%v", err)
	}
	return t, nil
}

// StartOfDay 获取给定时间 t 所在天的开始时间（即当天00:00:00）。
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween 返回 from 到 to 之间相差的整日历天数，可为负。
// 两端先截断到各自时区的零点，再按日历日计数，不受夏令时切换影响。
// 按 Unix 秒相减，跨度超过 time.Duration 上限（约 292 年）时仍然精确。
func DaysBetween(from, to time.Time) int {
	a := StartOfDay(from)
	b := StartOfDay(to)
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int((ub.Unix() - ua.Unix()) / secondsPerDay)
}

// YearFraction 按 Actual/365 计算 today 到 maturity 的年化期限。
// 到期日早于或等于 today 时结果非正，由定价引擎拒绝。
func YearFraction(today, maturity time.Time) float64 {
	return float64(DaysBetween(today, maturity)) / DaysPerYear
}
