package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"weibocrawl/pkg/dedup"
	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
)

// File is the on-disk snapshot layout.
type File struct {
	User  models.Author `json:"user"`
	Count int           `json:"count"`
	Since *time.Time    `json:"since"`
	Until *time.Time    `json:"until"`
	Items []models.Post `json:"items"`
}

// DateParser re-parses the source timestamp of a stored post.
type DateParser interface {
	ParseDate(s string) (time.Time, bool)
}

// Store reads and writes snapshot files in one directory.
type Store struct {
	dir    string
	dates  DateParser
	loc    *time.Location
	now    func() time.Time
	logger logger.Logger
}

// NewStore creates the output directory if needed.
func NewStore(dir string, dates DateParser, loc *time.Location, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{dir: dir, dates: dates, loc: loc, now: time.Now, logger: log}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes posts to a new timestamped snapshot and returns its path.
func (s *Store) Save(author models.Author, posts []models.Post, since, until time.Time) (string, error) {
	name := fmt.Sprintf("weibo_%s_%s_%s_%d", uidOrUnknown(author), s.day(since), s.day(until), s.now().UnixMilli())
	file := File{
		User:  author,
		Count: len(posts),
		Since: timePtr(since),
		Until: timePtr(until),
		Items: nonNil(posts),
	}
	return s.write(name, &file)
}

// SaveMerged writes a merge result. The name carries the date span of the
// posts rather than a requested window.
func (s *Store) SaveMerged(author models.Author, posts []models.Post) (string, error) {
	var first, last time.Time
	for _, p := range posts {
		if !p.Dated() {
			continue
		}
		if first.IsZero() {
			first = p.Date
		}
		last = p.Date
	}
	name := fmt.Sprintf("weibo_%s_%s_%s_%d_merged", uidOrUnknown(author), s.day(first), s.day(last), s.now().UnixMilli())
	return s.write(name, &File{User: author, Count: len(posts), Items: nonNil(posts)})
}

func (s *Store) write(base string, file *File) (string, error) {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary snapshot file: %w", err)
	}
	tempPath := tmp.Name()
	defer os.Remove(tempPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close snapshot file: %w", err)
	}

	// Link fails when the target exists; retry with a suffix.
	path := filepath.Join(s.dir, base+".json")
	for i := 1; ; i++ {
		err := os.Link(tempPath, path)
		if err == nil {
			break
		}
		if !os.IsExist(err) || i > 100 {
			return "", fmt.Errorf("failed to place snapshot file: %w", err)
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d.json", base, i))
	}

	s.logger.InfoWithFields("snapshot saved", map[string]interface{}{
		"path":  path,
		"count": file.Count,
	})
	return path, nil
}

// Load reads one snapshot file. Items keep their stored timestamp; older
// files without one have their source dates re-parsed.
func (s *Store) Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errs.Parsing(err, "invalid snapshot %s", filepath.Base(path))
	}
	for i := range file.Items {
		p := &file.Items[i]
		switch {
		case p.Dated():
			p.Date = p.Date.In(s.loc)
		case s.dates != nil:
			p.Date, _ = s.dates.ParseDate(p.CreatedAt)
		}
	}
	return &file, nil
}

// Merge loads every file matching pattern, deduplicates their items and
// sorts them by date ascending with undated posts first. Files that fail
// to parse are skipped. It also returns the files that were merged.
func (s *Store) Merge(pattern string) ([]models.Post, []string, error) {
	names, err := filepath.Glob(pattern)
	if err != nil {
		return nil, nil, errs.Configuration("invalid merge pattern %q: %v", pattern, err)
	}
	sort.Strings(names)

	var all []models.Post
	var merged []string
	for _, name := range names {
		file, err := s.Load(name)
		if err != nil {
			s.logger.WithError(err).WarnWithFields("skipping snapshot", map[string]interface{}{"path": name})
			continue
		}
		all = append(all, file.Items...)
		merged = append(merged, name)
	}

	posts := dedup.Dedup(all)
	SortByDate(posts)

	s.logger.InfoWithFields("snapshots merged", map[string]interface{}{
		"files":  len(merged),
		"items":  len(all),
		"unique": len(posts),
	})
	return posts, merged, nil
}

// SortByDate orders posts ascending by date in place. Undated posts sort
// first; ties keep their relative order.
func SortByDate(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := &posts[i], &posts[j]
		if !a.Dated() || !b.Dated() {
			return !a.Dated() && b.Dated()
		}
		return a.Date.Before(b.Date)
	})
}

func (s *Store) day(t time.Time) string {
	if t.IsZero() {
		return models.UnknownMonth
	}
	return t.In(s.loc).Format("2006-01-02")
}

func uidOrUnknown(a models.Author) string {
	if a.UID == "" {
		return "unknown"
	}
	return a.UID
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNil(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}
