package config

import (
	"fmt"
	"strings"
	"time"
)

var boundLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ParseBound parses a since/until bound in loc. A bare date is the start of
// that day, or its last instant when endOfDay is set. Empty input yields the
// zero time.
func ParseBound(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		if endOfDay {
			return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return d, nil
	}
	for _, layout := range boundLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Window returns the parsed since/until bounds of the crawl section.
func (c *Config) Window() (since, until time.Time, err error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if since, err = ParseBound(c.Crawl.Since, loc, false); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("since: %w", err)
	}
	if until, err = ParseBound(c.Crawl.Until, loc, true); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("until: %w", err)
	}
	return since, until, nil
}
