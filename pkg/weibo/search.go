package weibo

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseSearchCards extracts result cards from a search page. Cards without
// text are skipped.
func ParseSearchCards(doc *goquery.Document) []SearchCard {
	var cards []SearchCard
	doc.Find("div.card").Each(func(_ int, card *goquery.Selection) {
		// the full text variant is present when the result is expandable
		txt := card.Find(`p.txt[node-type="feed_list_content_full"]`).First()
		if txt.Length() == 0 {
			txt = card.Find("p.txt").First()
		}
		text := strings.TrimSpace(txt.Text())
		if text == "" {
			return
		}

		from := card.Find("p.from, div.from").First()
		created := strings.TrimSpace(from.Find("a.surl-text").First().Text())
		if created == "" {
			created = strings.TrimSpace(from.Find("a").First().Text())
		}

		var href string
		from.Find(`a[href*="weibo.com/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ = a.Attr("href")
			return href == ""
		})

		cards = append(cards, SearchCard{
			Text:      strings.Join(strings.Fields(text), " "),
			CreatedAt: created,
			Href:      href,
		})
	})
	return cards
}
