package summary

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weibocrawl/pkg/models"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func mkPost(id string, date time.Time, likes, comments int, text string, topics, mentions []string) models.Post {
	return models.Post{
		ID:         id,
		CreatedAt:  date.Format("2006-01-02 15:04"),
		Date:       date,
		Text:       text,
		Engagement: models.Engagement{Likes: likes, Comments: comments},
		Link:       "https://weibo.com/1/" + id,
		Topics:     topics,
		Mentions:   mentions,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	r := Summarize(nil)
	assert.Equal(t, 0, r.Total)
	assert.True(t, r.Start.IsZero())
	assert.True(t, r.End.IsZero())
	assert.Empty(t, r.Months)
	assert.Empty(t, r.ByLikes)
	assert.Empty(t, r.ByComments)
	assert.Empty(t, r.Topics)
	assert.Empty(t, r.Mentions)
	assert.Empty(t, r.Keywords)
}

func TestSummarizeCountsAndSpan(t *testing.T) {
	posts := []models.Post{
		mkPost("1", at(2020, 2, 3), 5, 1, "博物馆 真好", []string{"旅行"}, []string{"bob"}),
		mkPost("2", at(2020, 1, 9), 9, 0, "museum trip", []string{"旅行", "艺术"}, nil),
		mkPost("3", at(2020, 2, 20), 9, 7, "博物馆 museum", nil, []string{"bob", "amy"}),
		mkPost("4", time.Time{}, 0, 0, "", nil, nil),
	}

	r := Summarize(posts)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, at(2020, 1, 9), r.Start)
	assert.Equal(t, at(2020, 2, 20), r.End)
	assert.Equal(t, []Count{{"2020-02", 2}, {"2020-01", 1}, {models.UnknownMonth, 1}}, r.Months)
	assert.Equal(t, []Count{{"旅行", 2}, {"艺术", 1}}, r.Topics)
	assert.Equal(t, []Count{{"bob", 2}, {"amy", 1}}, r.Mentions)
	assert.Equal(t, []Count{{"博物馆", 2}, {"museum", 2}, {"真好", 1}, {"trip", 1}}, r.Keywords)

	require.Len(t, r.ByLikes, 4)
	assert.Equal(t, []string{"2", "3", "1", "4"}, ids(r.ByLikes), "ties keep input order")
	assert.Equal(t, []string{"3", "1", "2", "4"}, ids(r.ByComments))
}

func TestSummarizeLimits(t *testing.T) {
	var posts []models.Post
	for m := 1; m <= 9; m++ {
		posts = append(posts, mkPost(string(rune('a'+m)), at(2021, time.Month(m), 1), m, m, "", nil, nil))
	}
	r := Summarize(posts)
	assert.Len(t, r.Months, TopMonths)
	assert.Len(t, r.ByLikes, TopPosts)
	assert.Equal(t, 9, r.ByLikes[0].Likes)
}

func TestKeywordsStopwords(t *testing.T) {
	assert.Equal(t, []string{"今天天气", "good", "day"}, Keywords("我们 今天天气 的 Good day an"))
	assert.Empty(t, Keywords("的 了 ab"))
}

func TestRenderChinese(t *testing.T) {
	posts := []models.Post{
		mkPost("1", at(2020, 2, 3), 5, 1, "博物馆 #旅行#", []string{"旅行"}, []string{"bob"}),
	}
	r, err := NewRenderer("zh", time.UTC)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, models.Author{UID: "1", ScreenName: "someone"}, Summarize(posts)))
	out := buf.String()
	assert.Contains(t, out, "微博整理总结")
	assert.Contains(t, out, "用户: someone UID: 1")
	assert.Contains(t, out, "统计范围: 2020-02-03 ~ 2020-02-03 共1条")
	assert.Contains(t, out, "2020-02  1")
	assert.Contains(t, out, "2020-02-03 09:00  赞=5 评论=1 转发=0  博物馆 #旅行#  https://weibo.com/1/1")
	assert.Contains(t, out, "#旅行#  1")
	assert.Contains(t, out, "@bob  1")
	assert.Contains(t, out, "博物馆  1")
}

func TestRenderEnglishEmpty(t *testing.T) {
	r, err := NewRenderer("en", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, models.Author{}, Summarize(nil)))
	out := buf.String()
	assert.Contains(t, out, "Feed summary")
	assert.Contains(t, out, "Range: unknown ~ unknown, 0 posts")
	assert.False(t, strings.Contains(out, "微博"))
}

func ids(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
