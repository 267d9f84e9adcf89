package weibo

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weibocrawl/pkg/config"
)

func testEndpoints() Endpoints {
	return NewEndpoints(config.DefaultConfig().Weibo)
}

func TestMyBlogURL(t *testing.T) {
	e := testEndpoints()

	u, err := url.Parse(e.MyBlog("1234", 2, "4890123"))
	require.NoError(t, err)
	assert.Equal(t, "weibo.com", u.Host)
	assert.Equal(t, MyBlogEndpoint, u.Path)
	assert.Equal(t, "1234", u.Query().Get("uid"))
	assert.Equal(t, "2", u.Query().Get("page"))
	assert.Equal(t, "4890123", u.Query().Get("since_id"))

	u, err = url.Parse(e.MyBlog("1234", 1, ""))
	require.NoError(t, err)
	assert.False(t, u.Query().Has("since_id"))
}

func TestMobileIndexURL(t *testing.T) {
	u, err := url.Parse(testEndpoints().MobileIndex("1234", 3, ""))
	require.NoError(t, err)
	assert.Equal(t, "m.weibo.cn", u.Host)
	assert.Equal(t, "1076031234", u.Query().Get("containerid"))
	assert.Equal(t, "uid", u.Query().Get("type"))
	assert.Equal(t, "3", u.Query().Get("page"))
}

func TestProfileURL(t *testing.T) {
	e := testEndpoints()

	u, _ := url.Parse(e.Profile("1234", "ignored"))
	assert.Equal(t, "1234", u.Query().Get("uid"))

	u, _ = url.Parse(e.Profile("", "故宫博物院"))
	assert.Equal(t, "故宫博物院", u.Query().Get("screen_name"))
}

func TestSearchURL(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	since := time.Date(2020, 1, 1, 0, 0, 0, 0, loc)
	until := time.Date(2020, 6, 30, 23, 59, 59, 0, loc)

	u, err := url.Parse(testEndpoints().SearchURL("故宫博物院", since, until, 4))
	require.NoError(t, err)
	assert.Equal(t, "s.weibo.com", u.Host)
	assert.Equal(t, "from:故宫博物院", u.Query().Get("q"))
	assert.Equal(t, "custom:2020-01-01-00:2020-06-30-23", u.Query().Get("timescope"))
	assert.Equal(t, "4", u.Query().Get("page"))

	u, _ = url.Parse(testEndpoints().SearchURL("x", time.Time{}, time.Time{}, 1))
	assert.Equal(t, "custom::", u.Query().Get("timescope"))
}

func TestExtendURLs(t *testing.T) {
	e := testEndpoints()
	assert.Equal(t, "https://weibo.com/ajax/statuses/longtext?id=Nx1", e.LongText("Nx1"))
	assert.Equal(t, "https://m.weibo.cn/statuses/extend?id=42", e.MobileExtend("42"))
	assert.Equal(t, "https://weibo.com/u/42", e.UserPage("42"))
}
