package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	hashtagPattern = regexp.MustCompile(`#([^#]+)#`)
	mentionPattern = regexp.MustCompile(`@([\x{4e00}-\x{9fa5}A-Za-z0-9_\-]+)`)
)

// ExcerptLength is the rune length of repost excerpts.
const ExcerptLength = 80

// Ellipsis marks truncated text.
const Ellipsis = "…"

// StripHTML removes markup from a post body. Line breaks become newlines
// and emoticon images are replaced by their alt text.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + s + "</div>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		alt, _ := img.Attr("alt")
		img.ReplaceWithHtml(html.EscapeString(alt))
	})
	return strings.TrimSpace(doc.Find("body").Text())
}

// Hashtags returns the topics enclosed in #...# pairs, in order of
// appearance, duplicates included.
func Hashtags(text string) []string {
	out := []string{}
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// Mentions returns the @handles in text, in order, duplicates included.
func Mentions(text string) []string {
	out := []string{}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// Truncate shortens text to n runes, appending Ellipsis when it cut.
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + Ellipsis
}
