package tier

import (
	"context"

	"weibocrawl/pkg/cursor"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/weibo"
)

// MobileAPI is the part of the client the mobile tier uses.
type MobileAPI interface {
	FetchMobileIndex(ctx context.Context, uid string, page int, sinceID string) (*weibo.MobileIndexResponse, error)
	FetchMobileExtend(ctx context.Context, id string) (string, error)
}

// Mobile pages through the mobile container listing. Posts arrive nested in
// cards and full text comes from the mobile extend endpoint.
type Mobile struct {
	api MobileAPI
}

// NewMobile creates the mobile tier.
func NewMobile(api MobileAPI) *Mobile {
	return &Mobile{api: api}
}

func (m *Mobile) Name() string { return NameMobile }

// Applies requires a resolved uid.
func (m *Mobile) Applies(author models.Author) bool { return author.UID != "" }

func (m *Mobile) FetchPage(ctx context.Context, req Request) (Page, error) {
	resp, err := m.api.FetchMobileIndex(ctx, req.Author.UID, req.Page, req.Token)
	if err != nil {
		return Page{}, err
	}
	statuses := resp.Statuses()
	return Page{
		Records:   statusRecords(statuses),
		NextToken: resp.Data.CardlistInfo.SinceID.String(),
		HasMore:   len(statuses) > 0,
		LongText:  normalize.LongTextFunc(m.api.FetchMobileExtend),
	}, nil
}

func (m *Mobile) IsExhausted(c *cursor.Cursor) bool {
	return !c.Active() || c.Page >= fallbackLimit(c)
}
