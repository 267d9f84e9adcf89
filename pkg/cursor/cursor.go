// Package cursor tracks per-tier paging progress and decides when a tier
// should stop.
package cursor

import (
	"fmt"
	"time"
)

// State is the lifecycle position of a cursor.
type State string

const (
	StateActive  State = "active"
	StateStalled State = "stalled"
	StateDone    State = "done"
)

// StopReason explains why a cursor left the active state.
type StopReason string

const (
	ReasonNone         StopReason = ""
	ReasonEmptyPage    StopReason = "empty_page"
	ReasonEndOfData    StopReason = "end_of_data"
	ReasonPageBudget   StopReason = "page_budget"
	ReasonSinceReached StopReason = "since_reached"
	ReasonStalled      StopReason = "stalled"
	ReasonGlobalBudget StopReason = "global_budget"
	ReasonItemBudget   StopReason = "item_budget"
	ReasonExhausted    StopReason = "exhausted"
	ReasonCancelled    StopReason = "cancelled"
)

// DefaultStallThreshold is the number of consecutive fetches without new
// records after which a tier is considered stalled.
const DefaultStallThreshold = 3

// Observation is the outcome of one fetch attempt.
type Observation struct {
	// Fetched is the number of raw records the tier returned.
	Fetched int
	// New is the number of records whose dedup key was not seen before.
	New int
	// Token is the continuation token carried by the response, if any.
	Token string
	// HasMore is the tier's own end-of-data signal.
	HasMore bool
	// Pending marks an empty fetch that is not end of data, such as a
	// scroll step whose content has not loaded yet. It counts as a stall.
	Pending bool
	// Oldest is the earliest date among fetched original posts.
	Oldest time.Time
	// Since is the configured lower bound; zero when unbounded.
	Since time.Time
	// Err marks a failed attempt.
	Err error
}

// Cursor is the paging state of one tier within one run.
type Cursor struct {
	Tier              string     `json:"tier"`
	Page              int        `json:"page"`
	ContinuationToken string     `json:"continuation_token,omitempty"`
	StaleCount        int        `json:"stale_count"`
	State             State      `json:"state"`
	Reason            StopReason `json:"reason,omitempty"`
	PageBudget        int        `json:"page_budget"`
	StallThreshold    int        `json:"stall_threshold"`
	Fetches           int        `json:"fetches"`
	Collected         int        `json:"collected"`
	SinceReached      bool       `json:"since_reached"`
}

// New creates an active cursor positioned before page 1.
func New(tier string, pageBudget, stallThreshold int) *Cursor {
	if stallThreshold <= 0 {
		stallThreshold = DefaultStallThreshold
	}
	return &Cursor{
		Tier:           tier,
		State:          StateActive,
		PageBudget:     pageBudget,
		StallThreshold: stallThreshold,
	}
}

// Active reports whether the cursor may fetch again.
func (c *Cursor) Active() bool {
	return c.State == StateActive
}

// Next advances to the next page and returns its number. It moves the
// cursor to done when the page budget would be exceeded.
func (c *Cursor) Next() (int, bool) {
	if !c.Active() {
		return c.Page, false
	}
	if c.PageBudget > 0 && c.Page >= c.PageBudget {
		c.Stop(ReasonPageBudget)
		return c.Page, false
	}
	c.Page++
	return c.Page, true
}

// Observe applies the outcome of the fetch for the current page.
func (c *Cursor) Observe(o Observation) {
	if !c.Active() {
		return
	}
	c.Fetches++
	if o.Token != "" {
		c.ContinuationToken = o.Token
	}

	switch {
	case o.Err != nil:
		c.StaleCount++
	case o.Fetched == 0 && !o.Pending:
		c.Stop(ReasonEmptyPage)
		return
	case o.New == 0:
		c.StaleCount++
	default:
		c.StaleCount = 0
		c.Collected += o.New
	}

	if o.Err == nil && !o.Since.IsZero() && !o.Oldest.IsZero() && !o.Oldest.After(o.Since) {
		c.SinceReached = true
		c.Stop(ReasonSinceReached)
		return
	}
	if c.StaleCount >= c.StallThreshold {
		c.State = StateStalled
		c.Reason = ReasonStalled
		return
	}
	if o.Err == nil && !o.HasMore {
		c.Stop(ReasonEndOfData)
	}
}

// Stop moves the cursor to done with the given reason.
func (c *Cursor) Stop(reason StopReason) {
	if c.State == StateDone {
		return
	}
	c.State = StateDone
	if c.Reason == ReasonNone {
		c.Reason = reason
	}
}

// Finish settles a stalled cursor into done, keeping the stall reason.
func (c *Cursor) Finish() {
	if c.State == StateStalled {
		c.State = StateDone
	}
}

func (c *Cursor) String() string {
	return fmt.Sprintf("%s[page=%d stale=%d state=%s reason=%s]", c.Tier, c.Page, c.StaleCount, c.State, c.Reason)
}
