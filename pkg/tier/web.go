package tier

import (
	"context"

	"weibocrawl/pkg/cursor"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/weibo"
)

// WebAPI is the part of the web client the timeline tier uses.
type WebAPI interface {
	FetchMyBlog(ctx context.Context, uid string, page int, sinceID string) (*weibo.MyBlogResponse, error)
	FetchLongText(ctx context.Context, id string) (string, error)
}

// Web pages through the authenticated timeline endpoint by page number and
// since_id token.
type Web struct {
	api WebAPI
}

// NewWeb creates the primary tier.
func NewWeb(api WebAPI) *Web {
	return &Web{api: api}
}

func (w *Web) Name() string { return NameWeb }

// Applies requires a resolved uid.
func (w *Web) Applies(author models.Author) bool { return author.UID != "" }

func (w *Web) FetchPage(ctx context.Context, req Request) (Page, error) {
	resp, err := w.api.FetchMyBlog(ctx, req.Author.UID, req.Page, req.Token)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Records:   statusRecords(resp.Data.List),
		NextToken: resp.Data.SinceID.String(),
		HasMore:   len(resp.Data.List) > 0,
		LongText:  normalize.LongTextFunc(w.api.FetchLongText),
	}, nil
}

func (w *Web) IsExhausted(c *cursor.Cursor) bool {
	return !c.Active()
}
