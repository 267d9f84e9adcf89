package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Crawl.StallThreshold != 3 {
		t.Errorf("Expected default stall threshold to be 3, got %d", config.Crawl.StallThreshold)
	}
	if config.Crawl.Mode != "auto" {
		t.Errorf("Expected default mode to be auto, got %s", config.Crawl.Mode)
	}
	if config.Crawl.Delay < 500*time.Millisecond || config.Crawl.Delay > 2*time.Second {
		t.Errorf("Expected default delay around one second, got %s", config.Crawl.Delay)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WEIBOCRAWL_UID", "1234567890")
	t.Setenv("WEIBOCRAWL_SINCE", "2020-01-01")
	t.Setenv("WEIBOCRAWL_PAGES", "12")
	t.Setenv("WEIBOCRAWL_DELAY", "800")
	t.Setenv("WEIBOCRAWL_BROWSER", "true")
	t.Setenv("WEIBOCRAWL_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Crawl.UID != "1234567890" {
		t.Errorf("Expected uid 1234567890, got %s", config.Crawl.UID)
	}
	if config.Crawl.Since != "2020-01-01" {
		t.Errorf("Expected since 2020-01-01, got %s", config.Crawl.Since)
	}
	if config.Crawl.Pages != 12 {
		t.Errorf("Expected pages 12, got %d", config.Crawl.Pages)
	}
	if config.Crawl.Delay != 800*time.Millisecond {
		t.Errorf("Expected delay 800ms, got %s", config.Crawl.Delay)
	}
	if !config.Browser.Enabled {
		t.Error("Expected browser to be enabled")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("WEIBOCRAWL_PAGES", "many")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric pages")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "window", mutate: func(c *Config) {
			c.Crawl.Since = "2020-01-01"
			c.Crawl.Until = "2020-06-30"
			c.Crawl.Segments = "month"
		}},
		{name: "bad mode", mutate: func(c *Config) { c.Crawl.Mode = "mobile" }, wantError: true},
		{name: "bad segments", mutate: func(c *Config) {
			c.Crawl.Since = "2020-01-01"
			c.Crawl.Until = "2020-06-30"
			c.Crawl.Segments = "week"
		}, wantError: true},
		{name: "segments without window", mutate: func(c *Config) { c.Crawl.Segments = "month" }, wantError: true},
		{name: "reversed window", mutate: func(c *Config) {
			c.Crawl.Since = "2021-01-01"
			c.Crawl.Until = "2020-01-01"
		}, wantError: true},
		{name: "bad date", mutate: func(c *Config) { c.Crawl.Since = "yesterday" }, wantError: true},
		{name: "zero stall threshold", mutate: func(c *Config) { c.Crawl.StallThreshold = 0 }, wantError: true},
		{name: "invalid log level", mutate: func(c *Config) { c.Logging.Level = "invalid" }, wantError: true},
		{name: "invalid locale", mutate: func(c *Config) { c.Output.Locale = "fr" }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	config.MergeCommandLineFlags(map[string]interface{}{
		"uid":      "42",
		"keywords": "博物馆,museum",
		"pages":    7,
		"delay":    250,
		"segments": "quarter",
		"resume":   true,
	})

	if config.Crawl.UID != "42" {
		t.Errorf("Expected uid 42, got %s", config.Crawl.UID)
	}
	if config.Crawl.Keywords != "博物馆,museum" {
		t.Errorf("Expected keywords to be merged, got %s", config.Crawl.Keywords)
	}
	if config.Crawl.Pages != 7 {
		t.Errorf("Expected pages 7, got %d", config.Crawl.Pages)
	}
	if config.Crawl.Delay != 250*time.Millisecond {
		t.Errorf("Expected delay 250ms, got %s", config.Crawl.Delay)
	}
	if config.Crawl.Segments != "quarter" {
		t.Errorf("Expected quarter segments, got %s", config.Crawl.Segments)
	}
	if !config.Output.Resume {
		t.Error("Expected resume to be set")
	}
	if config.Crawl.Mode != "auto" {
		t.Errorf("Expected untouched mode to stay auto, got %s", config.Crawl.Mode)
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	content := `
crawl:
  uid: "998877"
  since: "2021-03-01"
  mode: web
  stall_threshold: 5
output:
  locale: en
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Crawl.UID != "998877" {
		t.Errorf("Expected uid 998877, got %s", config.Crawl.UID)
	}
	if config.Crawl.Mode != "web" {
		t.Errorf("Expected mode web, got %s", config.Crawl.Mode)
	}
	if config.Crawl.StallThreshold != 5 {
		t.Errorf("Expected stall threshold 5, got %d", config.Crawl.StallThreshold)
	}
	if config.Output.Locale != "en" {
		t.Errorf("Expected locale en, got %s", config.Output.Locale)
	}
	if config.Crawl.Pages != 50 {
		t.Errorf("Expected default pages to survive, got %d", config.Crawl.Pages)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.Crawl.ScreenName = "故宫博物院"
	if err := config.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	reloaded := DefaultConfig()
	if err := reloaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if reloaded.Crawl.ScreenName != "故宫博物院" {
		t.Errorf("Expected screen name to round trip, got %s", reloaded.Crawl.ScreenName)
	}
}

func TestParseBound(t *testing.T) {
	loc := DefaultLocation

	start, err := ParseBound("2020-01-01", loc, false)
	if err != nil {
		t.Fatalf("ParseBound failed: %v", err)
	}
	if !start.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, loc)) {
		t.Errorf("Unexpected start %s", start)
	}

	end, err := ParseBound("2020-06-30", loc, true)
	if err != nil {
		t.Fatalf("ParseBound failed: %v", err)
	}
	if !end.Equal(time.Date(2020, 7, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)) {
		t.Errorf("Expected end of day, got %s", end)
	}

	exact, err := ParseBound("2020-06-30 08:30", loc, true)
	if err != nil {
		t.Fatalf("ParseBound failed: %v", err)
	}
	if exact.Hour() != 8 || exact.Minute() != 30 {
		t.Errorf("Expected explicit time to be kept, got %s", exact)
	}

	zero, err := ParseBound("", loc, false)
	if err != nil || !zero.IsZero() {
		t.Errorf("Expected zero time for empty bound, got %s, %v", zero, err)
	}
}
