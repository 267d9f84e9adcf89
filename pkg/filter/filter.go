// Package filter narrows a merged post collection to original posts inside
// a date window that mention at least one keyword.
package filter

import (
	"strings"
	"time"

	"weibocrawl/pkg/models"
)

// Criteria selects posts. Zero bounds and an empty keyword list disable the
// corresponding check.
type Criteria struct {
	Since    time.Time
	Until    time.Time
	Keywords []string
}

// Bounded reports whether either date bound is set.
func (c Criteria) Bounded() bool {
	return !c.Since.IsZero() || !c.Until.IsZero()
}

// Match reports whether a single post passes the criteria.
func (c Criteria) Match(p *models.Post) bool {
	if p.Reposted() {
		return false
	}
	if c.Bounded() {
		if !p.Dated() {
			return false
		}
		if !c.Since.IsZero() && p.Date.Before(c.Since) {
			return false
		}
		if !c.Until.IsZero() && p.Date.After(c.Until) {
			return false
		}
	}
	if len(c.Keywords) == 0 {
		return true
	}
	text := strings.ToLower(p.Text)
	for _, kw := range c.Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Apply returns the posts matching c in their original order. The input is
// not modified.
func Apply(posts []models.Post, c Criteria) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for i := range posts {
		if c.Match(&posts[i]) {
			out = append(out, posts[i])
		}
	}
	return out
}

// ParseKeywords splits a comma separated keyword list, accepting the
// full-width comma as well, and drops blanks.
func ParseKeywords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
