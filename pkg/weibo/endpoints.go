package weibo

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"weibocrawl/pkg/config"
)

const (
	// MyBlogEndpoint is the authenticated web timeline
	MyBlogEndpoint = "/ajax/statuses/mymblog"

	// LongTextEndpoint returns the full body of a truncated web status
	LongTextEndpoint = "/ajax/statuses/longtext"

	// ProfileEndpoint resolves uid and screen name
	ProfileEndpoint = "/ajax/profile/info"

	// MobileIndexEndpoint is the mobile container listing
	MobileIndexEndpoint = "/api/container/getIndex"

	// MobileExtendEndpoint returns the full body of a truncated mobile status
	MobileExtendEndpoint = "/statuses/extend"

	// SearchEndpoint is the public search results page
	SearchEndpoint = "/weibo"

	// mobileContainerPrefix prefixes the uid to form the posts container id
	mobileContainerPrefix = "107603"
)

// Endpoints builds request URLs against configurable hosts.
type Endpoints struct {
	Base   string
	Mobile string
	Search string
}

// NewEndpoints derives the hosts from the weibo config section.
func NewEndpoints(cfg config.WeiboConfig) Endpoints {
	return Endpoints{
		Base:   strings.TrimRight(cfg.BaseURL, "/"),
		Mobile: strings.TrimRight(cfg.MobileBaseURL, "/"),
		Search: strings.TrimRight(cfg.SearchBaseURL, "/"),
	}
}

// MyBlog returns the URL of one web timeline page.
func (e Endpoints) MyBlog(uid string, page int, sinceID string) string {
	params := url.Values{}
	params.Set("uid", uid)
	params.Set("page", strconv.Itoa(page))
	params.Set("feature", "0")
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}
	return fmt.Sprintf("%s%s?%s", e.Base, MyBlogEndpoint, params.Encode())
}

// LongText returns the URL of the full body of a web status.
func (e Endpoints) LongText(id string) string {
	params := url.Values{}
	params.Set("id", id)
	return fmt.Sprintf("%s%s?%s", e.Base, LongTextEndpoint, params.Encode())
}

// Profile returns the profile lookup URL by uid, or by screen name when
// uid is empty.
func (e Endpoints) Profile(uid, screenName string) string {
	params := url.Values{}
	if uid != "" {
		params.Set("uid", uid)
	} else {
		params.Set("screen_name", screenName)
	}
	return fmt.Sprintf("%s%s?%s", e.Base, ProfileEndpoint, params.Encode())
}

// UserPage returns the web profile page the scroll tier navigates to.
func (e Endpoints) UserPage(uid string) string {
	return fmt.Sprintf("%s/u/%s", e.Base, url.PathEscape(uid))
}

// MobileIndex returns the URL of one mobile listing page.
func (e Endpoints) MobileIndex(uid string, page int, sinceID string) string {
	params := url.Values{}
	params.Set("type", "uid")
	params.Set("value", uid)
	params.Set("containerid", mobileContainerPrefix+uid)
	params.Set("page", strconv.Itoa(page))
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}
	return fmt.Sprintf("%s%s?%s", e.Mobile, MobileIndexEndpoint, params.Encode())
}

// MobileExtend returns the URL of the full body of a mobile status.
func (e Endpoints) MobileExtend(id string) string {
	params := url.Values{}
	params.Set("id", id)
	return fmt.Sprintf("%s%s?%s", e.Mobile, MobileExtendEndpoint, params.Encode())
}

// SearchURL returns the URL of one search results page restricted to posts
// from screenName inside [since, until]. Zero bounds are left open.
func (e Endpoints) SearchURL(screenName string, since, until time.Time, page int) string {
	params := url.Values{}
	params.Set("q", "from:"+screenName)
	params.Set("type", "all")
	params.Set("suball", "1")
	params.Set("timescope", "custom:"+scopeBound(since)+":"+scopeBound(until))
	params.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("%s%s?%s", e.Search, SearchEndpoint, params.Encode())
}

func scopeBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02-15")
}
