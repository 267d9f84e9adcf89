package normalize

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/models"
)

// LongTextFetcher retrieves the full body of a truncated post.
type LongTextFetcher interface {
	FetchLongText(ctx context.Context, id string) (string, error)
}

// LongTextFunc adapts a function to LongTextFetcher.
type LongTextFunc func(ctx context.Context, id string) (string, error)

// FetchLongText calls f.
func (f LongTextFunc) FetchLongText(ctx context.Context, id string) (string, error) {
	return f(ctx, id)
}

// ExpandLongText replaces the body of every status flagged as long-form
// with its full text. Fetches run concurrently, one per flagged status.
// Failures are logged and leave the truncated body in place. It returns
// the number of statuses expanded.
func (n *Normalizer) ExpandLongText(ctx context.Context, records []Record, fetcher LongTextFetcher) int {
	if fetcher == nil {
		return 0
	}

	full := make([]string, len(records))
	g, gctx := errgroup.WithContext(ctx)
	for i := range records {
		i := i
		s := records[i].Status
		if s == nil || !s.IsLongText || s.PostID() == "" {
			continue
		}
		g.Go(func() error {
			text, err := fetcher.FetchLongText(gctx, s.PostID())
			if err != nil {
				n.logger.WithError(err).DebugWithFields("long text unavailable, keeping truncated body", map[string]interface{}{
					"id": s.PostID(),
				})
				return nil
			}
			full[i] = text
			return nil
		})
	}
	_ = g.Wait()

	expanded := 0
	for i, text := range full {
		if text == "" {
			continue
		}
		records[i].Status.TextRaw = text
		records[i].Status.Text = text
		expanded++
	}
	return expanded
}

// Page expands long texts and normalizes every record of one fetched page.
// Promoted and malformed records are dropped and logged.
func (n *Normalizer) Page(ctx context.Context, records []Record, author models.Author, fetcher LongTextFetcher) []models.Post {
	n.ExpandLongText(ctx, records, fetcher)

	posts := make([]models.Post, 0, len(records))
	for _, r := range records {
		post, err := n.Normalize(r, author)
		switch {
		case err == nil:
			posts = append(posts, post)
		case errors.Is(err, ErrPromoted):
			n.logger.Debug("skipping promoted record")
		case errs.IsType(err, errs.ErrorTypeMalformedRecord):
			n.logger.WithError(err).Warn("dropping malformed record")
		default:
			n.logger.WithError(err).Warn("dropping record")
		}
	}
	return posts
}
