package weibo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/ratelimit"
	"weibocrawl/pkg/config"
	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/logger"
)

// okLoginRequired is the envelope status the source returns for
// unauthenticated requests.
const okLoginRequired = -100

// Client talks to the web, mobile and search hosts of the source.
type Client struct {
	httpClient    *http.Client
	headers       map[string]string
	mobileHeaders map[string]string
	endpoints     Endpoints
	limiter       ratelimit.Limiter
	logger        logger.Logger
}

// NewClient creates a client from the weibo config section. A non-positive
// requestsPerMinute disables pacing.
func NewClient(cfg config.WeiboConfig, requestsPerMinute int, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	limiter := ratelimit.NewUnlimited()
	if requestsPerMinute > 0 {
		limiter = ratelimit.New(requestsPerMinute, ratelimit.Per(time.Minute), ratelimit.WithSlack(0))
	}

	endpoints := NewEndpoints(cfg)
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":       cfg.UserAgent,
			"Accept":           "application/json, text/plain, */*",
			"Accept-Language":  "zh-CN,zh;q=0.9,en;q=0.8",
			"Referer":          endpoints.Base + "/",
			"X-Requested-With": "XMLHttpRequest",
		},
		mobileHeaders: map[string]string{
			"User-Agent":      cfg.MobileUserAgent,
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "zh-CN,zh;q=0.9",
			"Referer":         endpoints.Mobile + "/",
		},
		endpoints: endpoints,
		limiter:   limiter,
		logger:    log,
	}
	if cfg.Cookie != "" {
		c.SetCookie(cfg.Cookie)
	}
	return c
}

// SetCookie installs the session cookie on every host.
func (c *Client) SetCookie(cookie string) {
	c.headers["Cookie"] = cookie
	c.mobileHeaders["Cookie"] = cookie
}

// Endpoints returns the URL builder used by the client.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// do issues a GET. Listing pages are paced by the limiter; full-text
// lookups are not, since a single page can fan out into many of them.
func (c *Client) do(ctx context.Context, rawURL string, headers map[string]string, paced bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if paced {
		c.limiter.Take()
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Transport(err, "GET %s", req.URL.Path)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, headers map[string]string, target interface{}, paced bool) error {
	resp, err := c.do(ctx, rawURL, headers, paced)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Transport(err, "failed to read response body")
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"error":        err.Error(),
			"body_preview": preview,
		})
		// HTML in place of JSON means the session was bounced to a login page.
		if strings.HasPrefix(strings.TrimSpace(preview), "<") {
			return &errs.Error{Type: errs.ErrorTypeAuth, Message: "received HTML instead of JSON, session likely expired", Code: resp.StatusCode}
		}
		return errs.Parsing(err, "failed to parse JSON")
	}
	return nil
}

// GetJSON fetches a web-host URL and decodes the JSON body into target.
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}) error {
	return c.getJSON(ctx, rawURL, c.headers, target, true)
}

// GetMobileJSON fetches a mobile-host URL with the mobile headers.
func (c *Client) GetMobileJSON(ctx context.Context, rawURL string, target interface{}) error {
	return c.getJSON(ctx, rawURL, c.mobileHeaders, target, true)
}

// GetHTML fetches a page and parses it into a goquery document.
func (c *Client) GetHTML(ctx context.Context, rawURL string) (*goquery.Document, error) {
	headers := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		headers[k] = v
	}
	headers["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	delete(headers, "X-Requested-With")

	resp, err := c.do(ctx, rawURL, headers, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errs.Parsing(err, "failed to parse HTML")
	}
	return doc, nil
}

// checkResponseStatus maps HTTP status codes onto typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	e := &errs.Error{Code: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e.Type, e.Message = errs.ErrorTypeAuth, "authentication required"
	case resp.StatusCode == http.StatusNotFound:
		e.Type, e.Message = errs.ErrorTypeNotFound, "resource not found"
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418:
		e.Type, e.Message = errs.ErrorTypeRateLimit, "rate limit exceeded"
	case resp.StatusCode >= 500:
		e.Type, e.Message = errs.ErrorTypeServerError, "server error"
	default:
		e.Type, e.Message = errs.ErrorTypeUnknown, fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}
	c.logger.WarnWithFields(e.Message, fields)
	return e
}

func loginRequired(ok FlexInt, what string) error {
	if ok == okLoginRequired {
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: what + ": login required"}
	}
	return nil
}

// FetchProfile resolves an author by uid or screen name.
func (c *Client) FetchProfile(ctx context.Context, uid, screenName string) (*User, error) {
	var resp ProfileResponse
	if err := c.GetJSON(ctx, c.endpoints.Profile(uid, screenName), &resp); err != nil {
		return nil, err
	}
	if err := loginRequired(resp.OK, "profile"); err != nil {
		return nil, err
	}
	if resp.Data.User.ID == "" {
		return nil, &errs.Error{Type: errs.ErrorTypeNotFound, Message: "profile has no user"}
	}
	return &resp.Data.User, nil
}

// FetchMyBlog fetches one page of the web timeline.
func (c *Client) FetchMyBlog(ctx context.Context, uid string, page int, sinceID string) (*MyBlogResponse, error) {
	var resp MyBlogResponse
	if err := c.GetJSON(ctx, c.endpoints.MyBlog(uid, page, sinceID), &resp); err != nil {
		return nil, err
	}
	if err := loginRequired(resp.OK, "timeline"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchLongText returns the full body of a truncated web status.
func (c *Client) FetchLongText(ctx context.Context, id string) (string, error) {
	var resp LongTextResponse
	if err := c.getJSON(ctx, c.endpoints.LongText(id), c.headers, &resp, false); err != nil {
		return "", err
	}
	if resp.Data.LongTextContent == "" {
		return "", &errs.Error{Type: errs.ErrorTypeNotFound, Message: "long text unavailable"}
	}
	return resp.Data.LongTextContent, nil
}

// FetchMobileIndex fetches one page of the mobile listing.
func (c *Client) FetchMobileIndex(ctx context.Context, uid string, page int, sinceID string) (*MobileIndexResponse, error) {
	var resp MobileIndexResponse
	if err := c.GetMobileJSON(ctx, c.endpoints.MobileIndex(uid, page, sinceID), &resp); err != nil {
		return nil, err
	}
	if err := loginRequired(resp.OK, "mobile listing"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchMobileExtend returns the full body of a truncated mobile status.
func (c *Client) FetchMobileExtend(ctx context.Context, id string) (string, error) {
	var resp LongTextResponse
	if err := c.getJSON(ctx, c.endpoints.MobileExtend(id), c.mobileHeaders, &resp, false); err != nil {
		return "", err
	}
	if resp.Data.LongTextContent == "" {
		return "", &errs.Error{Type: errs.ErrorTypeNotFound, Message: "long text unavailable"}
	}
	return resp.Data.LongTextContent, nil
}

// FetchSearch fetches and parses one search results page.
func (c *Client) FetchSearch(ctx context.Context, screenName string, since, until time.Time, page int) ([]SearchCard, error) {
	doc, err := c.GetHTML(ctx, c.endpoints.SearchURL(screenName, since, until, page))
	if err != nil {
		return nil, err
	}
	return ParseSearchCards(doc), nil
}
