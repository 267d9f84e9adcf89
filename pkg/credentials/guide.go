package credentials

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieGuide writes step-by-step instructions for copying the Weibo
// session cookie out of a browser.
func ShowCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"WEIBO COOKIE EXTRACTION GUIDE",
		rule,
		"",
		"Some feeds are only visible to a logged-in session. To reuse yours:",
		"",
		"1. Open https://weibo.com in your browser and log in.",
		"2. Open Developer Tools (F12, or Cmd+Option+I on macOS).",
		"3. Go to the Network tab and refresh the page.",
		"4. Click any request to weibo.com and open its Headers.",
		"5. Under Request Headers, copy the whole value of the Cookie: line.",
		"",
		"The value must contain SUB=... (or WBPSESS=...). Paste it at the prompt",
		"or export it as WEIBO_COOKIE.",
		"",
		"The cookie grants full access to your account. Never share it. Sessions",
		"expire, so repeat these steps when crawls start returning empty pages.",
		rule,
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
