package normalize

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weibocrawl/pkg/dedup"
	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/weibo"
)

var cst = time.FixedZone("CST", 8*3600)

func fixedNow() time.Time {
	return time.Date(2024, 3, 10, 12, 0, 0, 0, cst)
}

func newNormalizer() (*Normalizer, *logger.TestLogger) {
	log := logger.NewTestLogger()
	return New(cst, log).WithClock(fixedNow), log
}

var author = models.Author{UID: "1669879400", ScreenName: "someone"}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  just text ", "just text"},
		{"line breaks", "hello<br />world", "hello\nworld"},
		{"emoticon", `nice <img alt="[doge]" src="x.png"> day`, "nice [doge] day"},
		{"links", `<a href="/n/bob">@bob</a> see <a href="https://t.cn/x">link</a>`, "@bob see link"},
		{"entities", "a &amp; b &lt;3", "a & b <3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestHashtagsAndMentionsKeepOrderAndDuplicates(t *testing.T) {
	assert.Equal(t, []string{"a", "c", "a"}, Hashtags("#a# b #c# #a#"))
	assert.Equal(t, []string{}, Hashtags("no topics here"))
	assert.Equal(t, []string{"张三", "bob_1", "张三"}, Mentions("@张三 hi @bob_1, @张三!"))
	assert.Equal(t, []string{}, Mentions(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 80))
	assert.Equal(t, "中文字"+Ellipsis, Truncate("中文字符串", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
}

func TestParseDate(t *testing.T) {
	now := fixedNow()
	tests := []struct {
		in   string
		want time.Time
	}{
		{"刚刚", now},
		{"30秒前", now.Add(-30 * time.Second)},
		{"5分钟前", now.Add(-5 * time.Minute)},
		{"2小时前", now.Add(-2 * time.Hour)},
		{"今天 08:30", time.Date(2024, 3, 10, 8, 30, 0, 0, cst)},
		{"昨天 23:10", time.Date(2024, 3, 9, 23, 10, 0, 0, cst)},
		{"03月01日 09:05", time.Date(2024, 3, 1, 9, 5, 0, 0, cst)},
		{"12-25", time.Date(2023, 12, 25, 0, 0, 0, 0, cst)},
		{"2021年07月04日 18:00", time.Date(2021, 7, 4, 18, 0, 0, 0, cst)},
		{"2021年7月4日", time.Date(2021, 7, 4, 0, 0, 0, 0, cst)},
		{"Tue Jun 30 10:00:00 +0800 2020", time.Date(2020, 6, 30, 2, 0, 0, 0, time.UTC)},
		{"2020.06.30 10:00", time.Date(2020, 6, 30, 10, 0, 0, 0, cst)},
		{"2020-06-30", time.Date(2020, 6, 30, 0, 0, 0, 0, cst)},
		{"2020-06-30T10:00:00Z", time.Date(2020, 6, 30, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in, now, cst)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	for _, bad := range []string{"", "   ", "sometime", "13月45日 99:99x"} {
		_, ok := ParseDate(bad, now, cst)
		assert.False(t, ok, bad)
	}
}

func TestFromStatus(t *testing.T) {
	n, _ := newNormalizer()
	s := &weibo.Status{
		ID:             "4890000000000002",
		MblogID:        "NxAbc",
		CreatedAt:      "Tue Jun 30 10:00:00 +0800 2020",
		Text:           `<a href="/n/bob">@bob</a> loves #travel#<br/>again`,
		AttitudesCount: 12000,
		CommentsCount:  3,
		RepostsCount:   -1,
		PicNum:         2,
		PageInfo:       &weibo.PageInfo{Type: "video"},
		User:           &weibo.User{ID: "77", ScreenName: "someone"},
	}

	p, err := n.FromStatus(s, author)
	require.NoError(t, err)
	assert.Equal(t, "4890000000000002", p.ID)
	assert.Equal(t, "NxAbc", p.BID)
	assert.Equal(t, "https://weibo.com/77/NxAbc", p.Link)
	assert.Equal(t, "@bob loves #travel#\nagain", p.Text)
	assert.Equal(t, []string{"travel"}, p.Topics)
	assert.Equal(t, []string{"bob"}, p.Mentions)
	assert.Equal(t, models.Engagement{Likes: 12000, Comments: 3, Reposts: 0}, p.Engagement)
	assert.Equal(t, 2, p.MediaCount)
	assert.True(t, p.HasVideo)
	assert.True(t, p.Dated())
	assert.Equal(t, "2020-06", p.MonthKey())
	require.NotNil(t, p.RepostInfo)
	assert.False(t, p.Reposted())
}

func TestFromStatusFallsBackToAuthorAndDetailLink(t *testing.T) {
	n, _ := newNormalizer()

	p, err := n.FromStatus(&weibo.Status{ID: "1", BID: "Ab", CreatedAt: "bogus"}, author)
	require.NoError(t, err)
	assert.Equal(t, "https://weibo.com/1669879400/Ab", p.Link)
	assert.False(t, p.Dated())
	assert.Equal(t, models.UnknownMonth, p.MonthKey())

	p, err = n.FromStatus(&weibo.Status{ID: "2"}, models.Author{})
	require.NoError(t, err)
	assert.Equal(t, "https://m.weibo.cn/detail/2", p.Link)
}

func TestFromStatusRepost(t *testing.T) {
	n, _ := newNormalizer()
	long := ""
	for i := 0; i < 100; i++ {
		long += "字"
	}
	s := &weibo.Status{
		ID:        "10",
		BID:       "Rp",
		CreatedAt: "2020-06-01 10:00",
		TextRaw:   "转发理由 //@origin: hi",
		User:      &weibo.User{ID: "77"},
		Retweeted: &weibo.Status{
			ID:      "9",
			BID:     "Og",
			TextRaw: long,
			User:    &weibo.User{ID: "88", ScreenName: "origin"},
		},
	}

	p, err := n.FromStatus(s, author)
	require.NoError(t, err)
	require.True(t, p.Reposted())
	assert.Equal(t, "origin", p.OriginalAuthor)
	assert.Equal(t, "88", p.OriginalAuthorID)
	assert.Equal(t, "9", p.OriginalPostID)
	assert.Equal(t, "Og", p.OriginalBID)
	assert.Equal(t, "https://weibo.com/88/Og", p.OriginalLink)
	assert.Equal(t, 81, len([]rune(p.OriginalTextExcerpt)))
	assert.True(t, len(p.OriginalTextExcerpt) > 0 && p.OriginalTextExcerpt[len(p.OriginalTextExcerpt)-len(Ellipsis):] == Ellipsis)
}

func TestFromStatusRejects(t *testing.T) {
	n, _ := newNormalizer()

	_, err := n.FromStatus(&weibo.Status{ID: "1", Promotion: &weibo.Promotion{Type: "ad"}}, author)
	assert.ErrorIs(t, err, ErrPromoted)

	_, err = n.FromStatus(&weibo.Status{Text: "orphan"}, author)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeMalformedRecord))
}

func TestFromSearchCard(t *testing.T) {
	n, _ := newNormalizer()

	p, err := n.FromSearchCard(&weibo.SearchCard{
		Text:      "去了 #博物馆# 和 @朋友",
		CreatedAt: "2021年07月04日 18:00",
		Href:      "//weibo.com/1669879400/KpQrSt?refer_flag=1001030103_",
	}, author)
	require.NoError(t, err)
	assert.Equal(t, "KpQrSt", p.ID)
	assert.Equal(t, "KpQrSt", p.BID)
	assert.Equal(t, "https://weibo.com/1669879400/KpQrSt", p.Link)
	assert.Equal(t, []string{"博物馆"}, p.Topics)
	assert.Equal(t, []string{"朋友"}, p.Mentions)
	assert.Equal(t, models.Engagement{}, p.Engagement)
	assert.True(t, time.Date(2021, 7, 4, 18, 0, 0, 0, cst).Equal(p.Date))
	assert.False(t, p.Reposted())

	p, err = n.FromSearchCard(&weibo.SearchCard{Text: "转发微博", Href: "https://weibo.com/1/Ab"}, author)
	require.NoError(t, err)
	assert.True(t, p.Reposted())

	p, err = n.FromSearchCard(&weibo.SearchCard{Text: "说得好 //@别人: 原文", Href: "https://weibo.com/1/Cd"}, author)
	require.NoError(t, err)
	assert.True(t, p.Reposted())

	_, err = n.FromSearchCard(&weibo.SearchCard{Text: "no link"}, author)
	assert.True(t, errs.IsType(err, errs.ErrorTypeMalformedRecord))
}

type fakeLongText struct {
	mu    sync.Mutex
	calls []string
	texts map[string]string
}

func (f *fakeLongText) FetchLongText(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if text, ok := f.texts[id]; ok {
		return text, nil
	}
	return "", errors.New("boom")
}

func TestExpandLongText(t *testing.T) {
	n, log := newNormalizer()
	fetcher := &fakeLongText{texts: map[string]string{"1": "full body of one #完整#"}}
	records := []Record{
		{Status: &weibo.Status{ID: "1", TextRaw: "truncated...", IsLongText: true}},
		{Status: &weibo.Status{ID: "2", TextRaw: "also truncated...", IsLongText: true}},
		{Status: &weibo.Status{ID: "3", TextRaw: "short"}},
		{Card: &weibo.SearchCard{Text: "card"}},
	}

	expanded := n.ExpandLongText(context.Background(), records, fetcher)
	assert.Equal(t, 1, expanded)
	assert.ElementsMatch(t, []string{"1", "2"}, fetcher.calls)
	assert.Equal(t, "full body of one #完整#", records[0].Status.Body())
	assert.Equal(t, "also truncated...", records[1].Status.Body())
	assert.True(t, log.HasMessageContaining("long text unavailable"))

	assert.Equal(t, 0, n.ExpandLongText(context.Background(), records, nil))
}

func TestPageDropsBadRecords(t *testing.T) {
	n, log := newNormalizer()
	records := []Record{
		{Status: &weibo.Status{ID: "1", TextRaw: "ok"}},
		{Status: &weibo.Status{ID: "2", Promotion: &weibo.Promotion{Type: "ad"}}},
		{Status: &weibo.Status{TextRaw: "no id"}},
		{},
	}

	posts := n.Page(context.Background(), records, author, nil)
	require.Len(t, posts, 1)
	assert.Equal(t, "1", posts[0].ID)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
}

func TestNormalizeAndDedupThreeRecords(t *testing.T) {
	n, _ := newNormalizer()
	records := []Record{
		{Status: &weibo.Status{ID: "100", BID: "A", TextRaw: "first", CreatedAt: "2020-06-01 10:00"}},
		{Status: &weibo.Status{ID: "200", BID: "B", TextRaw: "second", CreatedAt: "2020-06-02 10:00"}},
		{Status: &weibo.Status{ID: "100", BID: "A", TextRaw: "first again", CreatedAt: "2020-06-01 10:00"}},
	}

	posts := dedup.Dedup(n.Page(context.Background(), records, author, nil))
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0].Text)
	assert.Equal(t, "second", posts[1].Text)
}
