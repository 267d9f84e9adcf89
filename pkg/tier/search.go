package tier

import (
	"context"
	"time"

	"weibocrawl/pkg/cursor"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/weibo"
)

// SearchAPI is the part of the client the search tier uses.
type SearchAPI interface {
	FetchSearch(ctx context.Context, screenName string, since, until time.Time, page int) ([]weibo.SearchCard, error)
}

// Search queries public search for posts from the author inside the
// window. Results carry no engagement counters.
type Search struct {
	api SearchAPI
}

// NewSearch creates the search tier.
func NewSearch(api SearchAPI) *Search {
	return &Search{api: api}
}

func (s *Search) Name() string { return NameSearch }

// Applies requires a screen name to scope the query.
func (s *Search) Applies(author models.Author) bool { return author.ScreenName != "" }

func (s *Search) FetchPage(ctx context.Context, req Request) (Page, error) {
	cards, err := s.api.FetchSearch(ctx, req.Author.ScreenName, req.Since, req.Until, req.Page)
	if err != nil {
		return Page{}, err
	}
	records := make([]normalize.Record, 0, len(cards))
	for i := range cards {
		records = append(records, normalize.Record{Card: &cards[i]})
	}
	return Page{Records: records, HasMore: len(cards) > 0}, nil
}

func (s *Search) IsExhausted(c *cursor.Cursor) bool {
	return !c.Active() || c.Page >= fallbackLimit(c)
}
