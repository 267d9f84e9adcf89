package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"weibocrawl/pkg/logger"
	"weibocrawl/pkg/models"
)

// Version is the current checkpoint file format.
const Version = 1

// SegmentRecord is one completed segment of a sweep.
type SegmentRecord struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Snapshot    string    `json:"snapshot"`
	Posts       int       `json:"posts"`
	CompletedAt time.Time `json:"completed_at"`
}

// Checkpoint represents the state of a segmented sweep
type Checkpoint struct {
	UID        string          `json:"uid"`
	ScreenName string          `json:"screen_name"`
	Since      time.Time       `json:"since"`
	Until      time.Time       `json:"until"`
	Unit       string          `json:"unit"`
	Segments   []SegmentRecord `json:"segments"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Version    int             `json:"version"`
}

// Completed returns the record of the segment [start, end], if any.
func (cp *Checkpoint) Completed(start, end time.Time) (SegmentRecord, bool) {
	for _, rec := range cp.Segments {
		if rec.Start.Equal(start) && rec.End.Equal(end) {
			return rec, true
		}
	}
	return SegmentRecord{}, false
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// Key names the checkpoint of one sweep. Characters that are unsafe in
// file names are replaced.
func Key(author models.Author, since, until time.Time, unit string) string {
	who := author.UID
	if who == "" {
		who = author.ScreenName
	}
	key := fmt.Sprintf("%s_%s_%s_%s", who, since.Format("20060102"), until.Format("20060102"), unit)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, key)
}

// NewManager creates a new checkpoint manager
func NewManager(key string, log logger.Logger) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Manager{
		checkpointPath: filepath.Join(checkpointsDir, key+".checkpoint.json"),
		logger:         log,
	}, nil
}

// Path returns the checkpoint file location.
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create creates a new checkpoint
func (m *Manager) Create(author models.Author, since, until time.Time, unit string) (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		UID:        author.UID,
		ScreenName: author.ScreenName,
		Since:      since,
		Until:      until,
		Unit:       unit,
		Segments:   []SegmentRecord{},
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    Version,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"uid":  author.UID,
		"path": m.checkpointPath,
	})

	return checkpoint, nil
}

// Load loads an existing checkpoint. It returns nil when none exists or
// the file was written by an incompatible version.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version != Version {
		m.logger.WarnWithFields("Ignoring checkpoint from another version", map[string]interface{}{
			"version": checkpoint.Version,
			"path":    m.checkpointPath,
		})
		return nil, nil
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"uid":        checkpoint.UID,
		"completed":  len(checkpoint.Segments),
		"updated_at": checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"uid":       checkpoint.UID,
		"completed": len(checkpoint.Segments),
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// RecordSegment marks a segment complete, replacing an earlier record of
// the same bounds, and saves the checkpoint.
func (m *Manager) RecordSegment(checkpoint *Checkpoint, rec SegmentRecord) error {
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	for i, existing := range checkpoint.Segments {
		if existing.Start.Equal(rec.Start) && existing.End.Equal(rec.End) {
			checkpoint.Segments[i] = rec
			return m.Save(checkpoint)
		}
	}
	checkpoint.Segments = append(checkpoint.Segments, rec)
	return m.Save(checkpoint)
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "weibocrawl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "weibocrawl")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "weibocrawl")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "weibocrawl")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
