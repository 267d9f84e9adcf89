package crawler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weibocrawl/pkg/config"
	"weibocrawl/pkg/crawler"
	"weibocrawl/pkg/filter"
	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/snapshot"
	"weibocrawl/pkg/tier"
	"weibocrawl/pkg/weibo"
)

// mockWeibo serves a three-page web timeline for uid 77.
type mockWeibo struct {
	server   *httptest.Server
	timeline int32
	longText int32
}

func newMockWeibo(t *testing.T) *mockWeibo {
	t.Helper()
	m := &mockWeibo{}
	mux := http.NewServeMux()
	mux.HandleFunc(weibo.ProfileEndpoint, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("screen_name") != "someone" {
			fmt.Fprint(w, `{"ok":1,"data":{"user":{}}}`)
			return
		}
		fmt.Fprint(w, `{"ok":1,"data":{"user":{"id":77,"screen_name":"someone"}}}`)
	})
	mux.HandleFunc(weibo.MyBlogEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.timeline, 1)
		assert.Equal(t, "77", r.URL.Query().Get("uid"))
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"ok":1,"data":{"since_id":"s2","list":[
				{"idstr":"3","mblogid":"C","created_at":"Tue Jun 30 10:00:00 +0800 2020","text_raw":"third #旅行# @friend","attitudes_count":5,"user":{"id":77,"screen_name":"someone"}},
				{"idstr":"2","mblogid":"B","created_at":"Mon Jun 15 09:30:00 +0800 2020","text_raw":"second, truncated...","isLongText":true,"user":{"id":77,"screen_name":"someone"}}]}}`)
		case "2":
			assert.Equal(t, "s2", r.URL.Query().Get("since_id"))
			fmt.Fprint(w, `{"ok":1,"data":{"since_id":"s3","list":[
				{"idstr":"2","mblogid":"B","created_at":"Mon Jun 15 09:30:00 +0800 2020","text_raw":"second, truncated...","isLongText":true},
				{"idstr":"1","mblogid":"A","created_at":"Fri May 01 08:00:00 +0800 2020","text_raw":"first museum visit","comments_count":"1.5万"}]}}`)
		default:
			fmt.Fprint(w, `{"ok":1,"data":{"since_id":"","list":[]}}`)
		}
	})
	mux.HandleFunc(weibo.LongTextEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.longText, 1)
		fmt.Fprintf(w, `{"ok":1,"data":{"longTextContent":"second, the whole museum story %s"}}`, r.URL.Query().Get("id"))
	})
	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func TestEndToEndWebTimeline(t *testing.T) {
	mock := newMockWeibo(t)
	cst := time.FixedZone("CST", 8*3600)
	log := logger.NewTestLogger()

	cfg := config.DefaultConfig()
	cfg.Weibo.BaseURL = mock.server.URL
	cfg.Weibo.MobileBaseURL = mock.server.URL
	cfg.Weibo.SearchBaseURL = mock.server.URL
	cfg.Weibo.Cookie = "SUB=abc"
	cfg.Retry.MaxAttempts = 1

	client := weibo.NewClient(cfg.Weibo, 0, 5*time.Second, log)
	normalizer := normalize.New(cst, log)
	tiers := []tier.Tier{tier.NewWeb(client), tier.NewMobile(client), tier.NewSearch(client)}
	orch := crawler.New(tiers, normalizer, client, log).
		WithRetry(cfg.Retry).
		WithSleep(func(context.Context, time.Duration) error { return nil })

	res, err := orch.Run(context.Background(), models.Author{ScreenName: "someone"}, crawler.Options{PageBudget: 10, StallThreshold: 3})
	require.NoError(t, err)

	assert.Equal(t, "77", res.Author.UID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&mock.timeline))
	assert.Equal(t, int32(2), atomic.LoadInt32(&mock.longText), "long texts are expanded on every page they appear")
	require.Len(t, res.Cursors, 1, "fallbacks are skipped without a lower bound")
	require.Len(t, res.Posts, 3)

	byID := map[string]models.Post{}
	for _, p := range res.Posts {
		byID[p.ID] = p
	}
	assert.Contains(t, byID["2"].Text, "the whole museum story")
	assert.Equal(t, []string{"旅行"}, byID["3"].Topics)
	assert.Equal(t, 15000, byID["1"].Comments)
	assert.True(t, byID["1"].Date.Equal(time.Date(2020, 5, 1, 8, 0, 0, 0, cst)))

	kept := filter.Apply(res.Posts, filter.Criteria{Keywords: []string{"museum"}})
	require.Len(t, kept, 2)
	snapshot.SortByDate(kept)

	store, err := snapshot.NewStore(t.TempDir(), normalizer, cst, log)
	require.NoError(t, err)
	path, err := store.Save(res.Author, kept, time.Time{}, time.Time{})
	require.NoError(t, err)

	file, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "someone", file.User.ScreenName)
	assert.Equal(t, 2, file.Count)
	assert.Equal(t, "1", file.Items[0].ID)
}
