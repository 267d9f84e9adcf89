package crawler

import (
	"time"

	"weibocrawl/pkg/config"
	"weibocrawl/pkg/cursor"
	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/filter"
)

// Modes select which tiers run.
const (
	ModeWeb  = "web"
	ModeAuto = "auto"
)

// Options bound one run.
type Options struct {
	Since    time.Time
	Until    time.Time
	Keywords []string
	// PageBudget caps pages per tier; 0 means unlimited.
	PageBudget int
	// MaxPages caps pages across all tiers; 0 means unlimited.
	MaxPages int
	// MaxItems caps collected posts; 0 means unlimited.
	MaxItems int
	// Delay is the cooperative pause between fetches of a tier.
	Delay          time.Duration
	StallThreshold int
	Mode           string
	// ClipToWindow keeps only posts inside [Since, Until]. Out-of-window
	// posts still count as progress.
	ClipToWindow bool
}

// OptionsFromConfig builds run options from the crawl section.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	since, until, err := cfg.Window()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Since:          since,
		Until:          until,
		Keywords:       filter.ParseKeywords(cfg.Crawl.Keywords),
		PageBudget:     cfg.Crawl.Pages,
		MaxPages:       cfg.Crawl.MaxPages,
		MaxItems:       cfg.Crawl.Max,
		Delay:          cfg.Crawl.Delay,
		StallThreshold: cfg.Crawl.StallThreshold,
		Mode:           cfg.Crawl.Mode,
	}, nil
}

// Validate checks the options before any network activity.
func (o Options) Validate() error {
	switch o.Mode {
	case "", ModeWeb, ModeAuto:
	default:
		return errs.Configuration("unknown mode %q", o.Mode)
	}
	if !o.Since.IsZero() && !o.Until.IsZero() && o.Since.After(o.Until) {
		return errs.Configuration("since %s is after until %s", o.Since.Format(time.RFC3339), o.Until.Format(time.RFC3339))
	}
	if o.PageBudget < 0 || o.MaxPages < 0 || o.MaxItems < 0 {
		return errs.Configuration("budgets must not be negative")
	}
	return nil
}

// Criteria returns the filter matching these options.
func (o Options) Criteria() filter.Criteria {
	return filter.Criteria{Since: o.Since, Until: o.Until, Keywords: o.Keywords}
}

func (o Options) inWindow(t time.Time) bool {
	if t.IsZero() {
		return o.Since.IsZero() && o.Until.IsZero()
	}
	if !o.Since.IsZero() && t.Before(o.Since) {
		return false
	}
	if !o.Until.IsZero() && t.After(o.Until) {
		return false
	}
	return true
}

func (o Options) stallThreshold() int {
	if o.StallThreshold > 0 {
		return o.StallThreshold
	}
	return cursor.DefaultStallThreshold
}
