// Package browser drives a headless Chrome session over the author's feed
// page for the scroll tier. Timeline responses the page loads while
// scrolling are intercepted at the network layer and handed back one
// scroll step at a time.
package browser

import (
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"weibocrawl/pkg/config"
)

// Options returns allocator options with the automation fingerprint
// reduced.
func Options(cfg config.BrowserConfig, userAgent string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1440, 900),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("lang", "zh-CN"),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// CookieDomain is the domain session cookies are installed for.
const CookieDomain = ".weibo.com"

// ParseCookies splits a Cookie header value into browser cookies scoped to
// CookieDomain. Pairs without "=" are ignored.
func ParseCookies(header string) []*network.Cookie {
	var cookies []*network.Cookie
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &network.Cookie{
			Name:   name,
			Value:  value,
			Domain: CookieDomain,
			Path:   "/",
			Secure: true,
		})
	}
	return cookies
}
