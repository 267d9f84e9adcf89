// Package tier implements the retrieval strategies used to page through an
// author's feed: the authenticated web timeline, a browser-driven infinite
// scroll, the mobile listing and public search. Each strategy turns one
// paging request into a page of raw records; paging state lives in a
// cursor.Cursor owned by the caller.
package tier

import (
	"context"
	"time"

	"weibocrawl/pkg/cursor"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/weibo"
)

// Tier names, in priority order.
const (
	NameWeb    = "web"
	NameScroll = "scroll"
	NameMobile = "mobile"
	NameSearch = "search"
)

// FallbackPages is the least number of pages the mobile and search tiers
// may fetch. A larger page budget raises their limit.
const FallbackPages = 50

// fallbackLimit returns the page limit of a fallback tier for c.
func fallbackLimit(c *cursor.Cursor) int {
	if c.PageBudget > FallbackPages {
		return c.PageBudget
	}
	return FallbackPages
}

// Request is one paging request.
type Request struct {
	Author models.Author
	Since  time.Time
	Until  time.Time
	Page   int
	Token  string
}

// Page is the outcome of one successful fetch.
type Page struct {
	Records   []normalize.Record
	NextToken string
	HasMore   bool
	// Pending marks an empty page that is not end of data.
	Pending bool
	// LongText expands truncated records of this page; nil when the tier
	// has no full-text endpoint.
	LongText normalize.LongTextFetcher
}

// Tier is one retrieval strategy.
type Tier interface {
	Name() string
	FetchPage(ctx context.Context, req Request) (Page, error)
	IsExhausted(c *cursor.Cursor) bool
}

// Applicable is implemented by tiers that need a particular author
// reference, such as a uid or a screen name.
type Applicable interface {
	Applies(author models.Author) bool
}

// Applies reports whether t can serve author.
func Applies(t Tier, author models.Author) bool {
	if a, ok := t.(Applicable); ok {
		return a.Applies(author)
	}
	return true
}

func statusRecords(list []weibo.Status) []normalize.Record {
	records := make([]normalize.Record, 0, len(list))
	for i := range list {
		records = append(records, normalize.Record{Status: &list[i]})
	}
	return records
}
