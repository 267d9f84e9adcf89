package models

import (
	"encoding/json"
	"time"
)

// Author identifies the feed being harvested.
type Author struct {
	UID        string `json:"uid"`
	ScreenName string `json:"screen_name"`
}

// Empty reports whether neither identifier is set.
func (a Author) Empty() bool {
	return a.UID == "" && a.ScreenName == ""
}

// Engagement holds the interaction counters of a post.
type Engagement struct {
	Likes    int `json:"attitudes"`
	Comments int `json:"comments"`
	Reposts  int `json:"reposts"`
}

// RepostInfo describes the original post embedded in a repost.
type RepostInfo struct {
	IsRepost            bool   `json:"isRepost"`
	OriginalAuthor      string `json:"repost_user,omitempty"`
	OriginalAuthorID    string `json:"repost_uid,omitempty"`
	OriginalPostID      string `json:"repost_id,omitempty"`
	OriginalBID         string `json:"repost_bid,omitempty"`
	OriginalLink        string `json:"repost_link,omitempty"`
	OriginalTextExcerpt string `json:"repost_text_short,omitempty"`
}

// Post is one normalized feed entry. The JSON layout is the snapshot item
// format: engagement and repost fields are flattened into the item.
type Post struct {
	ID        string    `json:"id"`
	BID       string    `json:"bid,omitempty"`
	CreatedAt string    `json:"created_at"`
	Date      time.Time `json:"-"`
	Text      string    `json:"text"`
	Engagement
	MediaCount int      `json:"pics"`
	HasVideo   bool     `json:"hasVideo"`
	Link       string   `json:"link"`
	Topics     []string `json:"topics"`
	Mentions   []string `json:"mentions"`
	*RepostInfo
}

// Dated reports whether the post carries a parsed timestamp.
func (p *Post) Dated() bool {
	return !p.Date.IsZero()
}

// Reposted reports whether the post is a repost of someone else's content.
func (p *Post) Reposted() bool {
	return p.RepostInfo != nil && p.RepostInfo.IsRepost
}

// MarshalJSON writes the item format plus the parsed date as an RFC 3339
// "timestamp", so relative source stamps keep their meaning after a reload.
func (p Post) MarshalJSON() ([]byte, error) {
	type item Post
	out := struct {
		item
		Timestamp string `json:"timestamp,omitempty"`
	}{item: item(p)}
	if p.Dated() {
		out.Timestamp = p.Date.Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the item format. A valid "timestamp" sets Date.
func (p *Post) UnmarshalJSON(b []byte) error {
	type item Post
	var in struct {
		item
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*p = Post(in.item)
	if in.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, in.Timestamp); err == nil {
			p.Date = t
		}
	}
	return nil
}

// MonthKey returns the YYYY-MM bucket of the post date, or UnknownMonth.
func (p *Post) MonthKey() string {
	if !p.Dated() {
		return UnknownMonth
	}
	return p.Date.Format("2006-01")
}

// UnknownMonth is the histogram bucket for posts without a parsed date.
const UnknownMonth = "未知"
