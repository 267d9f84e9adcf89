package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"weibocrawl/internal/browser"
	"weibocrawl/pkg/checkpoint"
	"weibocrawl/pkg/config"
	"weibocrawl/pkg/crawler"
	"weibocrawl/pkg/credentials"
	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/filter"
	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/segment"
	"weibocrawl/pkg/snapshot"
	"weibocrawl/pkg/summary"
	"weibocrawl/pkg/tier"
	"weibocrawl/pkg/ui"
	"weibocrawl/pkg/weibo"
)

const requestTimeout = 30 * time.Second

var (
	accountName string
	notify      bool
	noSummary   bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [uid | screen name]",
	Short: "Harvest an author's feed",
	Long: `Harvest an author's feed within an optional date range.

The author is given as a numeric uid or a screen name, either as the argument
or with --uid / --screen-name. Tiers run in order (web, scroll when --browser
is set, mobile, search); later tiers only run while --since has not been
reached. With --segments the range is swept one month or quarter at a time,
and --resume skips segments a previous run already saved.`,
	Example: `  # Everything the desktop API returns, 50 pages at most
  weibocrawl crawl 1669879400

  # One year, month by month, resumable, only posts mentioning a keyword
  weibocrawl crawl 1669879400 --since 2023-01-01 --until 2023-12-31 \
      --segments month --resume --keywords 博物馆,museum

  # Screen name only, with the browser fallback
  weibocrawl crawl 某某 --browser --since 2024-01-01`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	f := crawlCmd.Flags()
	f.String("uid", "", "numeric author id")
	f.String("screen-name", "", "author screen name")
	f.String("since", "", "lower date bound (YYYY-MM-DD or YYYY-MM-DD HH:MM)")
	f.String("until", "", "upper date bound; a bare date includes the whole day")
	f.String("keywords", "", "comma-separated keywords, any of which must appear")
	f.Int("pages", 50, "page budget per tier (per segment when segmenting)")
	f.Int("max-pages", 500, "page budget across all tiers, 0 for unlimited")
	f.Int("max", 0, "stop after this many posts, 0 for unlimited")
	f.Int("delay", 1200, "pause between fetches in milliseconds")
	f.Int("stall-threshold", 3, "consecutive pages without new posts before a tier gives up")
	f.String("segments", "", "sweep the range by month or quarter")
	f.String("mode", "auto", "web runs the desktop API only, auto enables fallbacks")
	f.String("cookie", "", "Cookie header of a logged-in session")
	f.String("output", "", "snapshot directory")
	f.String("locale", "", "summary language (zh or en)")
	f.Bool("browser", false, "enable the headless browser scroll tier")
	f.Bool("resume", false, "resume a segmented sweep from its checkpoint")
	f.StringVarP(&accountName, "account", "a", "", "stored credentials to use")
	f.BoolVar(&notify, "notify", false, "send a desktop notification when done")
	f.BoolVar(&noSummary, "no-summary", false, "do not print the summary")
}

// changedFlags collects the flags set on the command line.
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{}
	f := cmd.Flags()
	for _, name := range []string{"uid", "screen-name", "since", "until", "keywords", "segments", "mode", "cookie", "output", "locale"} {
		if f.Changed(name) {
			v, _ := f.GetString(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"pages", "max-pages", "max", "delay", "stall-threshold"} {
		if f.Changed(name) {
			v, _ := f.GetInt(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"browser", "resume"} {
		if f.Changed(name) {
			v, _ := f.GetBool(name)
			flags[name] = v
		}
	}
	return flags
}

// parseTarget treats an all-digit argument as a uid and anything else as a
// screen name. A leading @ is dropped.
func parseTarget(arg string, flags map[string]interface{}) {
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "@")
	if arg == "" {
		return
	}
	if strings.Trim(arg, "0123456789") == "" {
		flags["uid"] = arg
	} else {
		flags["screen-name"] = arg
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	flags := changedFlags(cmd)
	if len(args) == 1 {
		parseTarget(args[0], flags)
	}

	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}
	author := models.Author{UID: cfg.Crawl.UID, ScreenName: cfg.Crawl.ScreenName}
	if author.Empty() {
		return errs.Configuration("an author uid or screen name is required")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	applyStoredCredentials(cfg, log)
	if cfg.Weibo.Cookie != "" && !credentials.HasSession(cfg.Weibo.Cookie) {
		log.Warn("cookie carries no SUB or WBPSESS session, the web timeline will reject it")
	}

	client := weibo.NewClient(cfg.Weibo, cfg.RateLimit.RequestsPerMinute, requestTimeout, log)
	normalizer := normalize.New(loc, log)
	orch := crawler.New(buildTiers(cfg, client, log), normalizer, client, log).WithRetry(cfg.Retry)

	var tracker *ui.StatusTracker
	if !quiet {
		tracker = ui.NewStatusTracker(os.Stderr)
		orch.WithProgress(tracker.Page)
	}

	opts, err := crawler.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	unit, err := segment.ParseUnit(cfg.Crawl.Segments)
	if err != nil {
		return err
	}
	store, err := snapshot.NewStore(cfg.Output.Directory, normalizer, loc, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Author", describe(author))
	var (
		posts    []models.Post
		resolved models.Author
	)
	if unit == segment.UnitNone {
		res, err := orch.Run(ctx, author, opts)
		if err != nil {
			return err
		}
		posts, resolved = res.Posts, res.Author
		for _, c := range res.Cursors {
			log.DebugWithFields("tier cursor", map[string]interface{}{"cursor": c.String()})
		}
	} else {
		runner := segment.NewRunner(orch, store, log)
		if cfg.Output.Resume {
			mgr, err := checkpoint.NewManager(checkpoint.Key(author, opts.Since, opts.Until, string(unit)), log)
			if err != nil {
				return err
			}
			runner.WithCheckpoint(mgr)
		}
		res, err := runner.Run(ctx, author, opts, unit)
		if err != nil {
			return err
		}
		posts, resolved = res.Posts, res.Author
	}
	if tracker != nil {
		tracker.Done()
		ui.PrintInfo("Elapsed", fmt.Sprintf("%s (%.1f posts/min)", tracker.Elapsed().Round(time.Second), tracker.Rate()))
	}

	filtered := filter.Apply(posts, opts.Criteria())
	path, err := store.Save(resolved, filtered, opts.Since, opts.Until)
	if err != nil {
		return err
	}
	log.InfoWithFields("snapshot saved", map[string]interface{}{
		"path":      path,
		"collected": len(posts),
		"kept":      len(filtered),
	})
	ui.PrintHighlight(fmt.Sprintf("Collected %d posts, %d after filtering", len(posts), len(filtered)))
	ui.PrintInfo("Snapshot", path)

	if !noSummary {
		if err := printSummary(cfg, loc, resolved, filtered); err != nil {
			return err
		}
	}
	if notify {
		ui.NewNotifier().SendSuccess("weibocrawl", fmt.Sprintf("%s: %d posts saved", describe(resolved), len(filtered)))
	}
	if ctx.Err() != nil {
		ui.PrintWarning("Interrupted, partial results saved")
	}
	return nil
}

// buildTiers returns the tiers in priority order.
func buildTiers(cfg *config.Config, client *weibo.Client, log logger.Logger) []tier.Tier {
	tiers := []tier.Tier{tier.NewWeb(client)}
	if cfg.Browser.Enabled {
		driver := browser.NewFeedDriver(cfg.Browser, cfg.Weibo, log)
		tiers = append(tiers, tier.NewScroll(driver, normalize.LongTextFunc(client.FetchLongText)))
	}
	return append(tiers, tier.NewMobile(client), tier.NewSearch(client))
}

// applyStoredCredentials fills in the session cookie from the credential
// stores when none was configured.
func applyStoredCredentials(cfg *config.Config, log logger.Logger) {
	if cfg.Weibo.Cookie != "" {
		return
	}
	manager, err := credentials.NewManager()
	if err != nil {
		log.WithError(err).Debug("credential stores unavailable")
		return
	}
	account, err := manager.Retrieve(accountName)
	if err != nil {
		log.Debug("no stored session, crawling anonymously")
		return
	}
	cfg.Weibo.Cookie = account.Cookie
	if account.UserAgent != "" {
		cfg.Weibo.UserAgent = account.UserAgent
	}
	log.WithField("account", account.Name).Info("using stored session")
}

func describe(a models.Author) string {
	switch {
	case a.UID != "" && a.ScreenName != "":
		return fmt.Sprintf("%s (%s)", a.ScreenName, a.UID)
	case a.UID != "":
		return a.UID
	default:
		return a.ScreenName
	}
}

func printSummary(cfg *config.Config, loc *time.Location, author models.Author, posts []models.Post) error {
	renderer, err := summary.NewRenderer(cfg.Output.Locale, loc)
	if err != nil {
		return err
	}
	fmt.Println()
	return renderer.Render(os.Stdout, author, summary.Summarize(posts))
}
