// Package summary computes aggregate statistics over a filtered post
// collection and renders them as a localized text report.
package summary

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"weibocrawl/pkg/models"
)

// Report limits.
const (
	TopMonths   = 6
	TopPosts    = 5
	TopTopics   = 10
	TopMentions = 10
	TopKeywords = 20
)

var (
	cjkRun   = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,}`)
	latinRun = regexp.MustCompile(`[a-z]{3,}`)
)

var stopwords = map[string]struct{}{
	"的": {}, "了": {}, "和": {}, "是": {}, "就": {}, "都": {}, "而": {}, "及": {}, "与": {},
	"呢": {}, "啊": {}, "吧": {}, "吗": {}, "在": {}, "也": {}, "被": {}, "很": {}, "这": {},
	"那": {}, "一个": {}, "我们": {}, "你们": {}, "他们": {}, "但是": {}, "因为": {}, "所以": {},
}

// Count is one entry of a frequency table.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Report is a read-only summary of a post collection.
type Report struct {
	Total      int           `json:"total"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Months     []Count       `json:"months"`
	ByLikes    []models.Post `json:"by_likes"`
	ByComments []models.Post `json:"by_comments"`
	Topics     []Count       `json:"topics"`
	Mentions   []Count       `json:"mentions"`
	Keywords   []Count       `json:"keywords"`
}

// Summarize builds the report for posts. It never fails; an empty input
// yields a zero report with empty lists.
func Summarize(posts []models.Post) Report {
	r := Report{Total: len(posts)}

	months := newTally()
	topics := newTally()
	mentions := newTally()
	keywords := newTally()

	for i := range posts {
		p := &posts[i]
		if p.Dated() {
			if r.Start.IsZero() || p.Date.Before(r.Start) {
				r.Start = p.Date
			}
			if r.End.IsZero() || p.Date.After(r.End) {
				r.End = p.Date
			}
		}
		months.add(p.MonthKey())
		for _, t := range p.Topics {
			topics.add(t)
		}
		for _, m := range p.Mentions {
			mentions.add(m)
		}
		for _, w := range Keywords(p.Text) {
			keywords.add(w)
		}
	}

	r.Months = months.top(TopMonths)
	r.Topics = topics.top(TopTopics)
	r.Mentions = mentions.top(TopMentions)
	r.Keywords = keywords.top(TopKeywords)
	r.ByLikes = topPosts(posts, func(p *models.Post) int { return p.Likes })
	r.ByComments = topPosts(posts, func(p *models.Post) int { return p.Comments })
	return r
}

// Keywords extracts candidate keywords from text: runs of two or more CJK
// ideographs and lowercased Latin runs of three or more letters, minus
// stopwords. Order of appearance is kept, CJK runs first.
func Keywords(text string) []string {
	var out []string
	for _, w := range cjkRun.FindAllString(text, -1) {
		if _, stop := stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	for _, w := range latinRun.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

func topPosts(posts []models.Post, metric func(*models.Post) int) []models.Post {
	sorted := make([]models.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return metric(&sorted[i]) > metric(&sorted[j])
	})
	if len(sorted) > TopPosts {
		sorted = sorted[:TopPosts]
	}
	return sorted
}

// tally counts keys and remembers first-seen order for tie breaking.
type tally struct {
	index  map[string]int
	counts []Count
}

func newTally() *tally {
	return &tally{index: make(map[string]int)}
}

func (t *tally) add(key string) {
	if i, ok := t.index[key]; ok {
		t.counts[i].Count++
		return
	}
	t.index[key] = len(t.counts)
	t.counts = append(t.counts, Count{Key: key, Count: 1})
}

func (t *tally) top(n int) []Count {
	out := make([]Count, len(t.counts))
	copy(out, t.counts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
