package tier

import (
	"context"

	"weibocrawl/pkg/cursor"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/weibo"
)

// ScrollDriver is a pull-based view of an infinite-scroll feed. Each Step
// scrolls once and returns the statuses observed since the previous step.
type ScrollDriver interface {
	Open(ctx context.Context, author models.Author) error
	Step(ctx context.Context) ([]weibo.Status, error)
	Close() error
}

// Scroll collects the records a browser intercepts while scrolling the
// author's page. An empty step is not end of data; content may still be
// loading, so it only counts towards the stall threshold.
type Scroll struct {
	driver   ScrollDriver
	longText normalize.LongTextFetcher
	opened   bool
}

// NewScroll creates the scroll tier. longText may be nil.
func NewScroll(driver ScrollDriver, longText normalize.LongTextFetcher) *Scroll {
	return &Scroll{driver: driver, longText: longText}
}

func (s *Scroll) Name() string { return NameScroll }

// Applies requires either author reference to open the page.
func (s *Scroll) Applies(author models.Author) bool { return !author.Empty() }

func (s *Scroll) FetchPage(ctx context.Context, req Request) (Page, error) {
	if !s.opened {
		if err := s.driver.Open(ctx, req.Author); err != nil {
			return Page{}, err
		}
		s.opened = true
	}
	statuses, err := s.driver.Step(ctx)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Records:  statusRecords(statuses),
		HasMore:  true,
		Pending:  len(statuses) == 0,
		LongText: s.longText,
	}, nil
}

func (s *Scroll) IsExhausted(c *cursor.Cursor) bool {
	return !c.Active()
}

// Close releases the browser session if one was opened.
func (s *Scroll) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	return s.driver.Close()
}
