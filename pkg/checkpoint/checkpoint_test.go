package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
)

var (
	author = models.Author{UID: "1669879400", ScreenName: "someone"}
	since  = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	until  = time.Date(2020, 6, 30, 23, 59, 59, 0, time.UTC)
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	mgr, err := NewManager(Key(author, since, until, "month"), logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return mgr
}

func TestCheckpointManager(t *testing.T) {
	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr := newManager(t)

		cp, err := mgr.Create(author, since, until, "month")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if cp.UID != author.UID {
			t.Errorf("Expected uid %s, got %s", author.UID, cp.UID)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if !loaded.Since.Equal(since) || !loaded.Until.Equal(until) {
			t.Errorf("Expected window %v..%v, got %v..%v", since, until, loaded.Since, loaded.Until)
		}
		if loaded.Unit != "month" {
			t.Errorf("Expected unit month, got %s", loaded.Unit)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		mgr := newManager(t)

		cp, err := mgr.Load()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cp != nil {
			t.Error("Expected no checkpoint")
		}
	})

	t.Run("RecordSegment", func(t *testing.T) {
		mgr := newManager(t)

		cp, err := mgr.Create(author, since, until, "month")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		jan := SegmentRecord{Start: since, End: since.AddDate(0, 1, 0).Add(-time.Nanosecond), Snapshot: "jan.json", Posts: 3}
		if err := mgr.RecordSegment(cp, jan); err != nil {
			t.Fatalf("Failed to record segment: %v", err)
		}
		jan.Snapshot = "jan_1.json"
		if err := mgr.RecordSegment(cp, jan); err != nil {
			t.Fatalf("Failed to record segment: %v", err)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if len(loaded.Segments) != 1 {
			t.Fatalf("Expected 1 segment, got %d", len(loaded.Segments))
		}
		rec, ok := loaded.Completed(jan.Start, jan.End)
		if !ok {
			t.Fatal("Expected January to be completed")
		}
		if rec.Snapshot != "jan_1.json" {
			t.Errorf("Expected latest snapshot, got %s", rec.Snapshot)
		}
		if rec.CompletedAt.IsZero() {
			t.Error("Expected completion time to be set")
		}
		if _, ok := loaded.Completed(jan.End.Add(time.Nanosecond), until); ok {
			t.Error("Expected the rest of the window to be pending")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr := newManager(t)

		if _, err := mgr.Create(author, since, until, "month"); err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if !mgr.Exists() {
			t.Error("Expected checkpoint to exist")
		}
		if err := mgr.Delete(); err != nil {
			t.Fatalf("Failed to delete checkpoint: %v", err)
		}
		if mgr.Exists() {
			t.Error("Expected checkpoint to not exist after deletion")
		}
		if err := mgr.Delete(); err != nil {
			t.Errorf("Deleting twice should succeed: %v", err)
		}
	})

	t.Run("AtomicWrite", func(t *testing.T) {
		mgr := newManager(t)

		cp, err := mgr.Create(author, since, until, "month")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if err := mgr.Save(cp); err != nil {
			t.Fatalf("Failed to save checkpoint: %v", err)
		}
		if _, err := os.Stat(mgr.Path() + ".tmp"); !os.IsNotExist(err) {
			t.Error("Temporary file left behind")
		}
	})

	t.Run("OtherVersionIgnored", func(t *testing.T) {
		mgr := newManager(t)

		if err := os.WriteFile(mgr.Path(), []byte(`{"uid":"1","version":99}`), 0644); err != nil {
			t.Fatal(err)
		}
		cp, err := mgr.Load()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cp != nil {
			t.Error("Expected checkpoint from another version to be ignored")
		}
	})

	t.Run("Corrupt", func(t *testing.T) {
		mgr := newManager(t)

		if err := os.WriteFile(mgr.Path(), []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := mgr.Load(); err == nil {
			t.Error("Expected decode error")
		}
	})
}

func TestKey(t *testing.T) {
	key := Key(models.Author{ScreenName: "a/b c"}, since, until, "quarter")
	if key != "a-b-c_20200101_20200630_quarter" {
		t.Errorf("Unexpected key %s", key)
	}
	if strings.ContainsRune(Key(author, since, until, "month"), filepath.Separator) {
		t.Error("Key must be a single path element")
	}
}

func TestGetDataDirectory(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	dir, err := getDataDirectory()
	if err != nil {
		t.Fatalf("Failed to get data directory: %v", err)
	}
	if filepath.Base(dir) != "weibocrawl" {
		t.Errorf("Unexpected data directory %s", dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Data directory not created: %v", err)
	}
}
