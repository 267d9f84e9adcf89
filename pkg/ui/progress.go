package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker renders a one-line crawl status that is rewritten in
// place after every fetched page.
type StatusTracker struct {
	mu        sync.Mutex
	out       io.Writer
	tier      string
	page      int
	budget    int
	total     int
	startTime time.Time
	dirty     bool
}

// NewStatusTracker creates a tracker writing to out.
func NewStatusTracker(out io.Writer) *StatusTracker {
	return &StatusTracker{out: out, startTime: time.Now()}
}

// Page records one fetched page of tier and redraws the status line.
// budget is the tier's page budget, 0 when unbounded.
func (st *StatusTracker) Page(tier string, page, budget, total int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.tier != "" && st.tier != tier {
		fmt.Fprintln(st.out)
	}
	st.tier, st.page, st.budget, st.total = tier, page, budget, total
	st.dirty = true
	fmt.Fprintf(st.out, "\r%s %s posts: %d", Magenta("["+tier+"]"), st.bar(), total)
}

// Done ends the status line.
func (st *StatusTracker) Done() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.dirty {
		fmt.Fprintln(st.out)
		st.dirty = false
	}
}

func (st *StatusTracker) bar() string {
	if st.budget <= 0 {
		return fmt.Sprintf("page %d", st.page)
	}
	filled := st.page * barWidth / st.budget
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(ProgressBar, filled),
		strings.Repeat(ProgressEmpty, barWidth-filled),
		st.page, st.budget)
}

// Elapsed returns the time since tracking started
func (st *StatusTracker) Elapsed() time.Duration {
	return time.Since(st.startTime)
}

// Rate returns the average posts collected per minute
func (st *StatusTracker) Rate() float64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	elapsed := time.Since(st.startTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.total) / elapsed
}
