package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var absoluteLayouts = []string{
	time.RubyDate,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-1-2 15:04",
	"2006-1-2",
}

var (
	minutesAgo   = regexp.MustCompile(`^(\d+)\s*分钟前$`)
	hoursAgo     = regexp.MustCompile(`^(\d+)\s*小时前$`)
	secondsAgo   = regexp.MustCompile(`^(\d+)\s*秒前$`)
	todayAt      = regexp.MustCompile(`^今天\s*(\d{1,2}):(\d{2})$`)
	yesterdayAt  = regexp.MustCompile(`^昨天\s*(\d{1,2}):(\d{2})$`)
	fullCJK      = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(\d{1,2})日(?:\s*(\d{1,2}):(\d{2}))?$`)
	monthDayCJK  = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日(?:\s*(\d{1,2}):(\d{2}))?$`)
	monthDayDash = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})(?:\s+(\d{1,2}):(\d{2}))?$`)
)

// ParseDate parses the timestamp formats found across the timeline, search
// and mobile sources. Relative forms resolve against now in loc. The bool
// is false when s is empty or unrecognised.
func ParseDate(s string, now time.Time, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	if s == "刚刚" {
		return now, true
	}
	if m := secondsAgo.FindStringSubmatch(s); m != nil {
		return now.Add(-time.Duration(atoi(m[1])) * time.Second), true
	}
	if m := minutesAgo.FindStringSubmatch(s); m != nil {
		return now.Add(-time.Duration(atoi(m[1])) * time.Minute), true
	}
	if m := hoursAgo.FindStringSubmatch(s); m != nil {
		return now.Add(-time.Duration(atoi(m[1])) * time.Hour), true
	}
	if m := todayAt.FindStringSubmatch(s); m != nil {
		return clock(now, atoi(m[1]), atoi(m[2])), true
	}
	if m := yesterdayAt.FindStringSubmatch(s); m != nil {
		return clock(now.AddDate(0, 0, -1), atoi(m[1]), atoi(m[2])), true
	}
	if m := fullCJK.FindStringSubmatch(s); m != nil {
		return time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), atoi(m[4]), atoi(m[5]), 0, 0, loc), true
	}
	if m := monthDayCJK.FindStringSubmatch(s); m != nil {
		return thisYear(now, atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4])), true
	}
	if m := monthDayDash.FindStringSubmatch(s); m != nil {
		return thisYear(now, atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4])), true
	}

	normalized := strings.ReplaceAll(s, ".", "-")
	normalized = strings.ReplaceAll(normalized, "/", "-")
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, normalized, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clock(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// thisYear places a month/day stamp in the current year, or the previous one
// when that would lie in the future.
func thisYear(now time.Time, month, day, hour, minute int) time.Time {
	t := time.Date(now.Year(), time.Month(month), day, hour, minute, 0, 0, now.Location())
	if t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return t
}
