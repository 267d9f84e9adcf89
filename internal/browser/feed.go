package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"weibocrawl/pkg/config"
	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/weibo"
)

const (
	scrollJS = `window.scrollTo(0, document.body.scrollHeight); true`
	// clicks the first "more" control, reporting whether one was found
	loadMoreJS = `(() => {
		const el = Array.from(document.querySelectorAll('a,button'))
			.find(e => /更多|查看更多|下一页|更多微博/.test(e.textContent || ''));
		if (el) { el.click(); return true; }
		return false;
	})()`
	dismissJS = `(() => {
		const labels = ['继续访问','我已了解','知道了','同意','允许','确认','关闭'];
		const els = Array.from(document.querySelectorAll('button,a,div span'));
		labels.forEach(t => { const el = els.find(e => (e.textContent || '').includes(t)); if (el) el.click(); });
		return true;
	})()`
)

// FeedDriver implements the scroll tier's driver on top of chromedp.
type FeedDriver struct {
	cfg       config.BrowserConfig
	userAgent string
	cookie    string
	endpoints weibo.Endpoints
	logger    logger.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	// mu guards the capture state below; idle is signalled when inflight
	// drops to zero.
	mu       sync.Mutex
	idle     *sync.Cond
	watched  map[network.RequestID]bool
	pending  []weibo.Status
	inflight int
}

// NewFeedDriver creates a driver; the browser starts on Open.
func NewFeedDriver(cfg config.BrowserConfig, weiboCfg config.WeiboConfig, log logger.Logger) *FeedDriver {
	if log == nil {
		log = logger.NewNopLogger()
	}
	d := &FeedDriver{
		cfg:       cfg,
		userAgent: weiboCfg.UserAgent,
		cookie:    weiboCfg.Cookie,
		endpoints: weibo.NewEndpoints(weiboCfg),
		logger:    log.WithField("component", "browser"),
		watched:   make(map[network.RequestID]bool),
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// FeedURL returns the page the driver scrolls for author.
func (d *FeedDriver) FeedURL(author models.Author) string {
	if author.UID != "" {
		return d.endpoints.UserPage(author.UID) + "?tabType=feed"
	}
	return d.endpoints.Base + "/n/" + url.PathEscape(author.ScreenName) + "?tabType=feed"
}

// Open launches the browser, installs the session cookies and loads the
// author's feed.
func (d *FeedDriver) Open(ctx context.Context, author models.Author) error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(d.cfg, d.userAgent)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	d.ctx, d.cancel, d.allocCancel = browserCtx, cancel, allocCancel

	chromedp.ListenTarget(browserCtx, d.onEvent)

	target := d.FeedURL(author)
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8"}),
		d.setCookies(ParseCookies(d.cookie)),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(d.settle()),
		chromedp.Evaluate(dismissJS, nil),
	)
	if err != nil {
		d.Close()
		return fmt.Errorf("failed to open feed page: %w", err)
	}

	d.logger.InfoWithFields("feed page opened", map[string]interface{}{"url": target})
	return nil
}

// Step scrolls to the bottom, activates a "load more" control if present,
// waits for the page to settle and returns the statuses captured since the
// previous step.
func (d *FeedDriver) Step(ctx context.Context) ([]weibo.Status, error) {
	if d.ctx == nil {
		return nil, fmt.Errorf("feed driver not opened")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clicked bool
	err := chromedp.Run(d.ctx,
		chromedp.Evaluate(scrollJS, nil),
		chromedp.Sleep(d.settle()),
		chromedp.Evaluate(loadMoreJS, &clicked),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll feed: %w", err)
	}
	if clicked {
		if err := chromedp.Run(d.ctx, chromedp.Sleep(d.settle())); err != nil {
			return nil, err
		}
	}

	statuses := d.drain()
	d.logger.DebugWithFields("scroll step", map[string]interface{}{
		"captured":  len(statuses),
		"load_more": clicked,
	})
	return statuses, nil
}

// Close shuts the browser down.
func (d *FeedDriver) Close() error {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	return nil
}

func (d *FeedDriver) settle() time.Duration {
	if d.cfg.SettleDelay > 0 {
		return d.cfg.SettleDelay
	}
	return 1500 * time.Millisecond
}

func (d *FeedDriver) setCookies(cookies []*network.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// onEvent runs on the browser's event loop and must not block.
func (d *FeedDriver) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if IsTimelineURL(e.Response.URL) {
			d.mu.Lock()
			d.watched[e.RequestID] = true
			d.mu.Unlock()
		}
	case *network.EventLoadingFinished:
		d.mu.Lock()
		ok := d.watched[e.RequestID]
		delete(d.watched, e.RequestID)
		if ok {
			d.inflight++
		}
		d.mu.Unlock()
		if ok {
			go d.capture(e.RequestID)
		}
	}
}

func (d *FeedDriver) capture(id network.RequestID) {
	var statuses []weibo.Status
	defer func() { d.finishCapture(statuses) }()

	var body []byte
	err := chromedp.Run(d.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if err != nil {
		d.logger.WithError(err).Debug("failed to read intercepted timeline response")
		return
	}

	statuses, err = DecodeTimeline(body)
	if err != nil {
		d.logger.WithError(err).Debug("ignoring undecodable timeline response")
	}
}

// finishCapture queues the statuses of one capture and wakes drain once no
// capture is left in flight.
func (d *FeedDriver) finishCapture(statuses []weibo.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, statuses...)
	d.inflight--
	if d.inflight <= 0 {
		d.inflight = 0
		d.idle.Broadcast()
	}
}

// drain waits for in-flight captures and returns everything queued.
func (d *FeedDriver) drain() []weibo.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.inflight > 0 {
		d.idle.Wait()
	}
	out := d.pending
	d.pending = nil
	return out
}

// IsTimelineURL reports whether a response URL is a timeline page.
func IsTimelineURL(raw string) bool {
	return strings.Contains(raw, weibo.MyBlogEndpoint)
}

// DecodeTimeline extracts the statuses from an intercepted timeline body.
func DecodeTimeline(body []byte) ([]weibo.Status, error) {
	var resp weibo.MyBlogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Data.List, nil
}
