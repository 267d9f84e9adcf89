package normalize

import (
	"errors"
	"net/url"
	"strings"
	"time"

	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/weibo"
)

// ErrPromoted is returned for advertising records. They are dropped
// without counting as malformed.
var ErrPromoted = errors.New("promoted record")

// Record is one raw record produced by a tier: a timeline status or a
// scraped search card. Exactly one field is set.
type Record struct {
	Status *weibo.Status
	Card   *weibo.SearchCard
}

// Normalizer converts raw records into posts.
type Normalizer struct {
	loc    *time.Location
	now    func() time.Time
	logger logger.Logger
}

// New creates a Normalizer resolving dates in loc.
func New(loc *time.Location, log logger.Logger) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Normalizer{loc: loc, now: time.Now, logger: log}
}

// WithClock overrides the clock used for relative timestamps.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// Location returns the timezone dates are resolved in.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// ParseDate parses s relative to the normalizer's clock and timezone.
func (n *Normalizer) ParseDate(s string) (time.Time, bool) {
	return ParseDate(s, n.now(), n.loc)
}

// Normalize dispatches a record to FromStatus or FromSearchCard.
func (n *Normalizer) Normalize(r Record, author models.Author) (models.Post, error) {
	switch {
	case r.Status != nil:
		return n.FromStatus(r.Status, author)
	case r.Card != nil:
		return n.FromSearchCard(r.Card, author)
	default:
		return models.Post{}, errs.MalformedRecord("empty record")
	}
}

// FromStatus normalizes a timeline status. The author supplies the uid when
// the status carries no user block.
func (n *Normalizer) FromStatus(s *weibo.Status, author models.Author) (models.Post, error) {
	if s.IsAd() {
		return models.Post{}, ErrPromoted
	}

	id := s.PostID()
	bid := s.ShortID()
	uid := author.UID
	if s.User != nil && s.User.ID != "" {
		uid = s.User.ID.String()
	}
	link := BuildLink(uid, bid, id)
	if id == "" && link == "" {
		return models.Post{}, errs.MalformedRecord("status has neither id nor link")
	}
	if id == "" {
		id = bid
	}

	text := StripHTML(s.Body())
	date, _ := n.ParseDate(s.CreatedAt)

	return models.Post{
		ID:        id,
		BID:       bid,
		CreatedAt: s.CreatedAt,
		Date:      date,
		Text:      text,
		Engagement: models.Engagement{
			Likes:    nonNegative(int(s.AttitudesCount)),
			Comments: nonNegative(int(s.CommentsCount)),
			Reposts:  nonNegative(int(s.RepostsCount)),
		},
		MediaCount: s.MediaCount(),
		HasVideo:   s.HasVideo(),
		Link:       link,
		Topics:     Hashtags(text),
		Mentions:   Mentions(text),
		RepostInfo: repostInfo(s.Retweeted),
	}, nil
}

// FromSearchCard normalizes a scraped search result. Search cards carry no
// engagement counters; reposts are detected from textual cues.
func (n *Normalizer) FromSearchCard(c *weibo.SearchCard, author models.Author) (models.Post, error) {
	link, uid, bid := canonicalSearchLink(c.Href)
	if link == "" || bid == "" {
		return models.Post{}, errs.MalformedRecord("search card without post link: %q", c.Href)
	}
	if uid == "" {
		uid = author.UID
	}

	text := strings.TrimSpace(c.Text)
	created := strings.TrimSpace(c.CreatedAt)
	date, _ := n.ParseDate(created)

	info := &models.RepostInfo{}
	if strings.Contains(text, "//@") || strings.Contains(text, "转发微博") {
		info.IsRepost = true
	}

	return models.Post{
		ID:         bid,
		BID:        bid,
		CreatedAt:  created,
		Date:       date,
		Text:       text,
		Link:       link,
		Topics:     Hashtags(text),
		Mentions:   Mentions(text),
		RepostInfo: info,
	}, nil
}

// BuildLink returns the web link for (uid, bid) when both are known, else
// the detail page of id, else "".
func BuildLink(uid, bid, id string) string {
	switch {
	case uid != "" && bid != "":
		return "https://weibo.com/" + uid + "/" + bid
	case id != "":
		return "https://m.weibo.cn/detail/" + id
	default:
		return ""
	}
}

func repostInfo(r *weibo.Status) *models.RepostInfo {
	if r == nil {
		return &models.RepostInfo{}
	}
	info := &models.RepostInfo{
		IsRepost:       true,
		OriginalPostID: r.PostID(),
		OriginalBID:    r.ShortID(),
	}
	if r.User != nil {
		info.OriginalAuthor = r.User.ScreenName
		info.OriginalAuthorID = r.User.ID.String()
	}
	info.OriginalLink = BuildLink(info.OriginalAuthorID, info.OriginalBID, info.OriginalPostID)
	info.OriginalTextExcerpt = Truncate(StripHTML(r.Body()), ExcerptLength)
	return info
}

// canonicalSearchLink resolves a protocol-relative search href and splits
// out the author id and short id from its path.
func canonicalSearchLink(href string) (link, uid, bid string) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", "", ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return "", "", ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) >= 2 {
		uid = segments[len(segments)-2]
	}
	bid = segments[len(segments)-1]
	return u.String(), uid, bid
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
