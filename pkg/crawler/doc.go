// Package crawler sequences the retrieval tiers for one author.
//
// The Orchestrator runs the primary tier until its cursor is done and
// falls back to the scroll, mobile and search tiers, in that order, only
// while a since boundary is configured and has not been reached. Every
// fetched page is normalized and merged into a single deduplicated
// collection, so later tiers only contribute posts the earlier ones
// missed. Transport failures stay inside the run: they are retried with
// backoff and then count as a fetch without progress.
//
// Usage:
//
//	orch := crawler.New(tiers, normalizer, client, log).WithRetry(cfg.Retry)
//	result, err := orch.Run(ctx, models.Author{UID: "1669879400"}, crawler.Options{
//	    Since:      since,
//	    PageBudget: 50,
//	    Delay:      1200 * time.Millisecond,
//	    Mode:       crawler.ModeAuto,
//	})
package crawler
