package summary

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
)

//go:embed locales/*.json
var localeFS embed.FS

// DefaultLocale is used when no locale is requested.
const DefaultLocale = "zh"

// Renderer prints reports in one locale.
type Renderer struct {
	localizer *i18n.Localizer
	loc       *time.Location
}

// NewBundle loads every embedded message file.
func NewBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.Chinese)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded locales: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+f.Name()); err != nil {
			return nil, fmt.Errorf("failed to load message file %s: %w", f.Name(), err)
		}
	}
	return bundle, nil
}

// NewRenderer creates a renderer for locale (zh or en). Dates are printed
// in loc; nil keeps each post's own zone.
func NewRenderer(locale string, loc *time.Location) (*Renderer, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	bundle, err := NewBundle()
	if err != nil {
		return nil, err
	}
	return &Renderer{localizer: i18n.NewLocalizer(bundle, locale, DefaultLocale), loc: loc}, nil
}

func (r *Renderer) msg(id string, data map[string]interface{}) string {
	out, err := r.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return out
}

func (r *Renderer) date(t time.Time) string {
	if t.IsZero() {
		return r.msg("SummaryUnknown", nil)
	}
	if r.loc != nil {
		t = t.In(r.loc)
	}
	return t.Format("2006-01-02")
}

// Render writes the report for author to w.
func (r *Renderer) Render(w io.Writer, author models.Author, rep Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n", r.msg("SummaryTitle", nil))
	fmt.Fprintln(&b, r.msg("SummaryUser", map[string]interface{}{"Name": author.ScreenName, "UID": author.UID}))
	fmt.Fprintln(&b, r.msg("SummaryRange", map[string]interface{}{
		"Start": r.date(rep.Start),
		"End":   r.date(rep.End),
		"Total": rep.Total,
	}))

	fmt.Fprintf(&b, "\n%s\n", r.msg("SummaryMonths", nil))
	for _, c := range rep.Months {
		key := c.Key
		if key == models.UnknownMonth {
			key = r.msg("SummaryUnknown", nil)
		}
		fmt.Fprintf(&b, "%s  %d\n", key, c.Count)
	}

	r.posts(&b, "SummaryByLikes", rep.ByLikes)
	r.posts(&b, "SummaryByComments", rep.ByComments)

	fmt.Fprintf(&b, "\n%s\n", r.msg("SummaryTopics", nil))
	for _, c := range rep.Topics {
		fmt.Fprintf(&b, "#%s#  %d\n", c.Key, c.Count)
	}
	fmt.Fprintf(&b, "\n%s\n", r.msg("SummaryMentions", nil))
	for _, c := range rep.Mentions {
		fmt.Fprintf(&b, "@%s  %d\n", c.Key, c.Count)
	}
	fmt.Fprintf(&b, "\n%s\n", r.msg("SummaryKeywords", nil))
	for _, c := range rep.Keywords {
		fmt.Fprintf(&b, "%s  %d\n", c.Key, c.Count)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) posts(b *strings.Builder, heading string, posts []models.Post) {
	fmt.Fprintf(b, "\n%s\n", r.msg(heading, nil))
	for _, p := range posts {
		fmt.Fprintln(b, r.msg("SummaryPost", map[string]interface{}{
			"CreatedAt": p.CreatedAt,
			"Likes":     p.Likes,
			"Comments":  p.Comments,
			"Reposts":   p.Reposts,
			"Text":      normalize.Truncate(p.Text, normalize.ExcerptLength),
			"Link":      p.Link,
		}))
	}
}
