package crawler

import (
	"context"
	"io"
	"time"

	"weibocrawl/pkg/config"
	"weibocrawl/pkg/cursor"
	"weibocrawl/pkg/dedup"
	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/retry"
	"weibocrawl/pkg/tier"
	"weibocrawl/pkg/weibo"
)

// ProfileResolver looks up an author by uid or screen name.
type ProfileResolver interface {
	FetchProfile(ctx context.Context, uid, screenName string) (*weibo.User, error)
}

// Result is the outcome of one run.
type Result struct {
	Author  models.Author
	Posts   []models.Post
	Cursors []*cursor.Cursor
	// SinceReached reports whether any tier crossed the since boundary.
	SinceReached bool
	// Oldest is the earliest date among fetched original posts.
	Oldest time.Time
	Pages  int
}

// ProgressFunc observes every fetched page. budget is the tier's page
// budget and total the number of posts collected so far.
type ProgressFunc func(tier string, page, budget, total int)

// Orchestrator drives the tiers for one author at a time. It is not safe
// for concurrent runs; use one instance per crawl.
type Orchestrator struct {
	tiers      []tier.Tier
	normalizer *normalize.Normalizer
	resolver   ProfileResolver
	retry      config.RetryConfig
	sleep      func(ctx context.Context, d time.Duration) error
	progress   ProgressFunc
	logger     logger.Logger
}

// New creates an orchestrator over tiers, given in priority order.
// resolver may be nil when authors always arrive fully resolved.
func New(tiers []tier.Tier, n *normalize.Normalizer, resolver ProfileResolver, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Orchestrator{
		tiers:      tiers,
		normalizer: n,
		resolver:   resolver,
		retry:      config.DefaultConfig().Retry,
		sleep:      retry.Wait,
		logger:     log,
	}
}

// WithRetry sets the retry policy applied to every fetch.
func (o *Orchestrator) WithRetry(cfg config.RetryConfig) *Orchestrator {
	o.retry = cfg
	return o
}

// WithSleep replaces the inter-fetch wait.
func (o *Orchestrator) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Orchestrator {
	o.sleep = sleep
	return o
}

// WithProgress registers a page observer.
func (o *Orchestrator) WithProgress(fn ProgressFunc) *Orchestrator {
	o.progress = fn
	return o
}

// Resolve fills in the missing half of an author reference through the
// profile endpoint. Lookup failures are returned with the partial author.
func (o *Orchestrator) Resolve(ctx context.Context, author models.Author) (models.Author, error) {
	if author.Empty() {
		return author, errs.Configuration("an author uid or screen name is required")
	}
	if o.resolver == nil || (author.UID != "" && author.ScreenName != "") {
		return author, nil
	}

	user, err := retry.DoWithResult(func() (*weibo.User, error) {
		return o.resolver.FetchProfile(ctx, author.UID, author.ScreenName)
	}, retry.FromSettings(ctx, o.retry, o.logger))
	if err != nil {
		return author, err
	}

	if author.UID == "" {
		author.UID = user.ID.String()
	}
	if author.ScreenName == "" {
		author.ScreenName = user.ScreenName
	}
	o.logger.InfoWithFields("author resolved", map[string]interface{}{
		"uid":         author.UID,
		"screen_name": author.ScreenName,
	})
	return author, nil
}

// Run harvests the author's feed within opts. Configuration problems and
// an unresolvable author are returned before any page is fetched; every
// other failure only shortens the run.
func (o *Orchestrator) Run(ctx context.Context, author models.Author, opts Options) (*Result, error) {
	if author.Empty() {
		return nil, errs.Configuration("an author uid or screen name is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	resolved, err := o.Resolve(ctx, author)
	if err != nil {
		if resolved.UID == "" && (resolved.ScreenName == "" || opts.Mode == ModeWeb) {
			return nil, errs.Wrap(errs.TypeOf(err), err, "failed to resolve author")
		}
		o.logger.WithError(err).Warn("author lookup failed, continuing with the reference given")
	}

	run := &run{
		orch:   o,
		author: resolved,
		opts:   opts,
		seen:   dedup.NewSet(),
		retry:  retry.FromSettings(ctx, o.retry, o.logger),
	}
	defer o.closeTiers()

	for _, t := range o.activeTiers(opts.Mode) {
		if len(run.cursors) > 0 && (opts.Since.IsZero() || run.sinceReached) {
			break
		}
		if run.budgetExhausted() || ctx.Err() != nil {
			break
		}
		if !tier.Applies(t, resolved) {
			o.logger.DebugWithFields("tier not applicable to author", map[string]interface{}{"tier": t.Name()})
			continue
		}
		run.drive(ctx, t)
	}

	result := &Result{
		Author:       resolved,
		Posts:        run.posts,
		Cursors:      run.cursors,
		SinceReached: run.sinceReached,
		Oldest:       run.oldest,
		Pages:        run.pages,
	}
	if result.Posts == nil {
		result.Posts = []models.Post{}
	}
	o.logger.InfoWithFields("crawl finished", map[string]interface{}{
		"uid":           resolved.UID,
		"posts":         len(result.Posts),
		"pages":         result.Pages,
		"since_reached": result.SinceReached,
	})
	return result, nil
}

func (o *Orchestrator) activeTiers(mode string) []tier.Tier {
	if mode != ModeWeb {
		return o.tiers
	}
	var out []tier.Tier
	for _, t := range o.tiers {
		if t.Name() == tier.NameWeb {
			out = append(out, t)
		}
	}
	return out
}

func (o *Orchestrator) closeTiers() {
	for _, t := range o.tiers {
		if c, ok := t.(io.Closer); ok {
			if err := c.Close(); err != nil {
				o.logger.WithError(err).WithField("tier", t.Name()).Warn("failed to close tier")
			}
		}
	}
}

// run is the mutable state of one Run call.
type run struct {
	orch         *Orchestrator
	author       models.Author
	opts         Options
	retry        *retry.Config
	seen         *dedup.Set
	posts        []models.Post
	cursors      []*cursor.Cursor
	pages        int
	oldest       time.Time
	sinceReached bool
}

func (r *run) budgetExhausted() bool {
	return r.budgetReason() != cursor.ReasonNone
}

func (r *run) budgetReason() cursor.StopReason {
	switch {
	case r.opts.MaxPages > 0 && r.pages >= r.opts.MaxPages:
		return cursor.ReasonGlobalBudget
	case r.opts.MaxItems > 0 && len(r.posts) >= r.opts.MaxItems:
		return cursor.ReasonItemBudget
	default:
		return cursor.ReasonNone
	}
}

// drive pages one tier until its cursor is done or a budget runs out.
func (r *run) drive(ctx context.Context, t tier.Tier) {
	log := logger.ForTier(r.orch.logger, t.Name(), r.author.UID)
	c := cursor.New(t.Name(), r.opts.PageBudget, r.opts.stallThreshold())
	r.cursors = append(r.cursors, c)

	for !t.IsExhausted(c) {
		if err := ctx.Err(); err != nil {
			c.Stop(cursor.ReasonCancelled)
			break
		}
		if reason := r.budgetReason(); reason != cursor.ReasonNone {
			c.Stop(reason)
			break
		}
		page, ok := c.Next()
		if !ok {
			break
		}

		req := tier.Request{
			Author: r.author,
			Since:  r.opts.Since,
			Until:  r.opts.Until,
			Page:   page,
			Token:  c.ContinuationToken,
		}
		fetched, err := retry.DoWithResult(func() (tier.Page, error) {
			return t.FetchPage(ctx, req)
		}, r.retry)
		r.pages++

		if err != nil {
			c.Observe(cursor.Observation{Err: err})
			log.WithError(err).WarnWithFields("page fetch failed", map[string]interface{}{
				"page":     page,
				"since_id": req.Token,
				"stale":    c.StaleCount,
			})
		} else {
			obs := r.absorb(ctx, fetched)
			c.Observe(obs)
			log.InfoWithFields("page fetched", map[string]interface{}{
				"page":     page,
				"since_id": req.Token,
				"fetched":  obs.Fetched,
				"new":      obs.New,
				"stale":    c.StaleCount,
				"total":    len(r.posts),
			})
		}
		if c.SinceReached {
			r.sinceReached = true
		}
		if r.orch.progress != nil {
			r.orch.progress(t.Name(), page, c.PageBudget, len(r.posts))
		}

		if c.Active() && c.PageBudget > 0 && c.Page >= c.PageBudget {
			c.Stop(cursor.ReasonPageBudget)
		}
		if t.IsExhausted(c) || r.budgetExhausted() {
			break
		}
		if err := r.orch.sleep(ctx, r.opts.Delay); err != nil {
			c.Stop(cursor.ReasonCancelled)
			break
		}
	}

	if reason := r.budgetReason(); reason != cursor.ReasonNone {
		c.Stop(reason)
	}
	if c.Active() {
		c.Stop(cursor.ReasonExhausted)
	}
	c.Finish()
	log.InfoWithFields("tier finished", map[string]interface{}{
		"reason":    string(c.Reason),
		"pages":     c.Page,
		"collected": c.Collected,
	})
}

// absorb normalizes a fetched page into the run and describes it as a
// cursor observation.
func (r *run) absorb(ctx context.Context, page tier.Page) cursor.Observation {
	posts := r.orch.normalizer.Page(ctx, page.Records, r.author, page.LongText)

	obs := cursor.Observation{
		Fetched: len(page.Records),
		Token:   page.NextToken,
		HasMore: page.HasMore,
		Pending: page.Pending,
		Since:   r.opts.Since,
	}
	for i := range posts {
		p := &posts[i]
		if !p.Reposted() && p.Dated() {
			if obs.Oldest.IsZero() || p.Date.Before(obs.Oldest) {
				obs.Oldest = p.Date
			}
		}
		if !r.seen.Add(p) {
			continue
		}
		obs.New++
		if r.opts.ClipToWindow && !r.opts.inWindow(p.Date) {
			continue
		}
		if r.opts.MaxItems > 0 && len(r.posts) >= r.opts.MaxItems {
			continue
		}
		r.posts = append(r.posts, *p)
	}
	if !obs.Oldest.IsZero() && (r.oldest.IsZero() || obs.Oldest.Before(r.oldest)) {
		r.oldest = obs.Oldest
	}
	return obs
}
