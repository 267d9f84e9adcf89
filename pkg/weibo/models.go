package weibo

import "encoding/json"

// User is the author block embedded in statuses and profile responses.
type User struct {
	ID         FlexString `json:"id"`
	ScreenName string     `json:"screen_name"`
}

// MediaInfo carries the playable stream of a video attachment.
type MediaInfo struct {
	StreamURL string `json:"stream_url"`
}

// PageInfo is the rich attachment card of a status.
type PageInfo struct {
	Type       FlexString `json:"type"`
	ObjectType string     `json:"object_type"`
	MediaInfo  *MediaInfo `json:"media_info"`
}

// Promotion marks advertising inserted into a feed.
type Promotion struct {
	Type string `json:"type"`
}

// Status is one raw post as returned by the web and mobile APIs.
type Status struct {
	ID             FlexString      `json:"id"`
	IDStr          string          `json:"idstr"`
	MID            FlexString      `json:"mid"`
	BID            string          `json:"bid"`
	MblogID        string          `json:"mblogid"`
	CreatedAt      string          `json:"created_at"`
	Text           string          `json:"text"`
	TextRaw        string          `json:"text_raw"`
	IsLongText     bool            `json:"isLongText"`
	AttitudesCount FlexInt         `json:"attitudes_count"`
	CommentsCount  FlexInt         `json:"comments_count"`
	RepostsCount   FlexInt         `json:"reposts_count"`
	Pics           json.RawMessage `json:"pics"`
	PicIDs         []string        `json:"pic_ids"`
	PicNum         int             `json:"pic_num"`
	PageInfo       *PageInfo       `json:"page_info"`
	User           *User           `json:"user"`
	Retweeted      *Status         `json:"retweeted_status"`
	Promotion      *Promotion      `json:"promotion"`
}

// PostID returns the best available numeric id.
func (s *Status) PostID() string {
	switch {
	case s.IDStr != "":
		return s.IDStr
	case s.ID != "":
		return s.ID.String()
	default:
		return s.MID.String()
	}
}

// ShortID returns the alphanumeric short id used in web links.
func (s *Status) ShortID() string {
	if s.BID != "" {
		return s.BID
	}
	return s.MblogID
}

// Body returns the plain-text body if present, else the HTML body.
func (s *Status) Body() string {
	if s.TextRaw != "" {
		return s.TextRaw
	}
	return s.Text
}

// MediaCount returns the number of attached pictures.
func (s *Status) MediaCount() int {
	if len(s.Pics) > 0 && s.Pics[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(s.Pics, &items); err == nil && len(items) > 0 {
			return len(items)
		}
	}
	if s.PicNum > 0 {
		return s.PicNum
	}
	return len(s.PicIDs)
}

// HasVideo reports whether the status carries a video attachment.
func (s *Status) HasVideo() bool {
	if s.PageInfo == nil {
		return false
	}
	if s.PageInfo.MediaInfo != nil && s.PageInfo.MediaInfo.StreamURL != "" {
		return true
	}
	return s.PageInfo.Type == "video" || s.PageInfo.ObjectType == "video"
}

// IsAd reports whether the status is a promoted insertion.
func (s *Status) IsAd() bool {
	return s.Promotion != nil && s.Promotion.Type == "ad"
}

// MyBlogResponse is the web timeline page envelope.
type MyBlogResponse struct {
	OK   FlexInt `json:"ok"`
	Data struct {
		List    []Status   `json:"list"`
		SinceID FlexString `json:"since_id"`
		Total   int        `json:"total"`
	} `json:"data"`
}

// LongTextResponse is the envelope of both full-text endpoints.
type LongTextResponse struct {
	OK   FlexInt `json:"ok"`
	Data struct {
		LongTextContent string `json:"longTextContent"`
	} `json:"data"`
}

// ProfileResponse is the profile info envelope.
type ProfileResponse struct {
	OK   FlexInt `json:"ok"`
	Data struct {
		User User `json:"user"`
	} `json:"data"`
}

// Card is one entry of a mobile container listing.
type Card struct {
	CardType  int     `json:"card_type"`
	Mblog     *Status `json:"mblog"`
	CardGroup []Card  `json:"card_group"`
}

// MobileIndexResponse is the mobile container listing envelope.
type MobileIndexResponse struct {
	OK   FlexInt `json:"ok"`
	Msg  string  `json:"msg"`
	Data struct {
		CardlistInfo struct {
			SinceID FlexString `json:"since_id"`
			Total   int        `json:"total"`
		} `json:"cardlistInfo"`
		Cards []Card `json:"cards"`
	} `json:"data"`
}

// Statuses flattens the cards, including grouped cards, into statuses.
func (r *MobileIndexResponse) Statuses() []Status {
	var out []Status
	var walk func(cards []Card)
	walk = func(cards []Card) {
		for _, c := range cards {
			if c.Mblog != nil {
				out = append(out, *c.Mblog)
			}
			if len(c.CardGroup) > 0 {
				walk(c.CardGroup)
			}
		}
	}
	walk(r.Data.Cards)
	return out
}

// SearchCard is one result scraped from the search page.
type SearchCard struct {
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	Href      string `json:"href"`
}
