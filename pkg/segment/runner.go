package segment

import (
	"context"
	"time"

	"weibocrawl/pkg/checkpoint"
	"weibocrawl/pkg/crawler"
	"weibocrawl/pkg/dedup"
	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/snapshot"
)

// Crawler runs one bounded harvest.
type Crawler interface {
	Run(ctx context.Context, author models.Author, opts crawler.Options) (*crawler.Result, error)
}

// Snapshots persists and reloads per-segment results.
type Snapshots interface {
	Save(author models.Author, posts []models.Post, since, until time.Time) (string, error)
	Load(path string) (*snapshot.File, error)
}

// Outcome describes one processed segment.
type Outcome struct {
	Segment  Segment
	Posts    int
	Pages    int
	Snapshot string
	Resumed  bool
}

// Result is the merged outcome of a sweep.
type Result struct {
	Author   models.Author
	Posts    []models.Post
	Segments []Outcome
	Pages    int
}

// Runner harvests a window one segment at a time.
type Runner struct {
	crawler     Crawler
	snapshots   Snapshots
	checkpoints *checkpoint.Manager
	logger      logger.Logger
}

// NewRunner creates a runner. snapshots may be nil to keep segments in
// memory only.
func NewRunner(c Crawler, snapshots Snapshots, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Runner{crawler: c, snapshots: snapshots, logger: log}
}

// WithCheckpoint enables resuming through m. It has no effect without
// snapshots, since completed segments are reloaded from their files.
func (r *Runner) WithCheckpoint(m *checkpoint.Manager) *Runner {
	r.checkpoints = m
	return r
}

// Run harvests [opts.Since, opts.Until] split by unit. Each segment gets
// fresh cursors, the per-tier page budget of opts and a window clipped to
// its own bounds. The item and global page budgets span the whole sweep.
func (r *Runner) Run(ctx context.Context, author models.Author, opts crawler.Options, unit Unit) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	segs, err := Build(opts.Since, opts.Until, unit)
	if err != nil {
		return nil, err
	}

	cp := r.loadCheckpoint(author, opts, unit)
	res := &Result{Author: author}
	var collected []models.Post

	for i, seg := range segs {
		if ctx.Err() != nil {
			break
		}
		log := r.logger.WithFields(map[string]interface{}{
			"segment": i + 1,
			"of":      len(segs),
			"range":   seg.String(),
		})

		if posts, rec, ok := r.resume(cp, seg, log); ok {
			collected = append(collected, posts...)
			res.Segments = append(res.Segments, Outcome{Segment: seg, Posts: len(posts), Snapshot: rec.Snapshot, Resumed: true})
			continue
		}

		segOpts := opts
		segOpts.Since = seg.Start
		segOpts.Until = seg.End
		segOpts.ClipToWindow = true
		if opts.MaxItems > 0 {
			segOpts.MaxItems = opts.MaxItems - len(collected)
		}
		if opts.MaxPages > 0 {
			segOpts.MaxPages = opts.MaxPages - res.Pages
		}
		if (opts.MaxItems > 0 && segOpts.MaxItems <= 0) || (opts.MaxPages > 0 && segOpts.MaxPages <= 0) {
			log.Info("budget spent, skipping remaining segments")
			break
		}

		log.Info("segment started")
		out, err := r.crawler.Run(ctx, res.Author, segOpts)
		if err != nil {
			return nil, err
		}
		res.Author = out.Author
		res.Pages += out.Pages
		collected = append(collected, out.Posts...)

		outcome := Outcome{Segment: seg, Posts: len(out.Posts), Pages: out.Pages}
		if r.snapshots != nil && ctx.Err() == nil {
			path, err := r.snapshots.Save(out.Author, out.Posts, seg.Start, seg.End)
			if err != nil {
				log.WithError(err).Warn("failed to save segment snapshot")
			} else {
				outcome.Snapshot = path
				r.record(cp, seg, path, len(out.Posts), log)
			}
		}
		res.Segments = append(res.Segments, outcome)
		log.InfoWithFields("segment finished", map[string]interface{}{
			"posts": outcome.Posts,
			"pages": outcome.Pages,
		})
	}

	res.Posts = dedup.Dedup(collected)
	snapshot.SortByDate(res.Posts)

	if cp != nil && ctx.Err() == nil && len(res.Segments) == len(segs) {
		if err := r.checkpoints.Delete(); err != nil {
			r.logger.WithError(err).Warn("failed to delete checkpoint")
		}
	}
	return res, nil
}

func (r *Runner) loadCheckpoint(author models.Author, opts crawler.Options, unit Unit) *checkpoint.Checkpoint {
	if r.checkpoints == nil || r.snapshots == nil {
		return nil
	}
	cp, err := r.checkpoints.Load()
	if err != nil {
		r.logger.WithError(err).Warn("unreadable checkpoint, starting over")
		cp = nil
	}
	if cp != nil {
		return cp
	}
	cp, err = r.checkpoints.Create(author, opts.Since, opts.Until, string(unit))
	if err != nil {
		r.logger.WithError(err).Warn("failed to create checkpoint, resume disabled")
		return nil
	}
	return cp
}

func (r *Runner) resume(cp *checkpoint.Checkpoint, seg Segment, log logger.Logger) ([]models.Post, checkpoint.SegmentRecord, bool) {
	if cp == nil {
		return nil, checkpoint.SegmentRecord{}, false
	}
	rec, ok := cp.Completed(seg.Start, seg.End)
	if !ok {
		return nil, rec, false
	}
	file, err := r.snapshots.Load(rec.Snapshot)
	if err != nil {
		log.WithError(err).Warn("completed segment snapshot unreadable, fetching again")
		return nil, rec, false
	}
	log.InfoWithFields("segment resumed from snapshot", map[string]interface{}{
		"snapshot": rec.Snapshot,
		"posts":    len(file.Items),
	})
	return file.Items, rec, true
}

func (r *Runner) record(cp *checkpoint.Checkpoint, seg Segment, path string, posts int, log logger.Logger) {
	if cp == nil {
		return
	}
	rec := checkpoint.SegmentRecord{Start: seg.Start, End: seg.End, Snapshot: path, Posts: posts}
	if err := r.checkpoints.RecordSegment(cp, rec); err != nil {
		log.WithError(err).Warn("failed to record segment progress")
	}
}
