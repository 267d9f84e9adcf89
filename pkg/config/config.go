package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "WEIBOCRAWL_"

// Config holds all configuration options for the crawler
type Config struct {
	Weibo     WeiboConfig     `yaml:"weibo" json:"weibo"`
	Crawl     CrawlConfig     `yaml:"crawl" json:"crawl"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Browser   BrowserConfig   `yaml:"browser" json:"browser"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Sentry    SentryConfig    `yaml:"sentry" json:"sentry"`
}

// WeiboConfig holds source endpoints and session material
type WeiboConfig struct {
	Cookie          string `yaml:"cookie" json:"cookie"`
	UserAgent       string `yaml:"user_agent" json:"user_agent"`
	MobileUserAgent string `yaml:"mobile_user_agent" json:"mobile_user_agent"`
	BaseURL         string `yaml:"base_url" json:"base_url"`
	MobileBaseURL   string `yaml:"mobile_base_url" json:"mobile_base_url"`
	SearchBaseURL   string `yaml:"search_base_url" json:"search_base_url"`
	Timezone        string `yaml:"timezone" json:"timezone"`
}

// CrawlConfig holds the parameters of one harvesting run
type CrawlConfig struct {
	UID            string        `yaml:"uid" json:"uid"`
	ScreenName     string        `yaml:"screen_name" json:"screen_name"`
	Since          string        `yaml:"since" json:"since"`
	Until          string        `yaml:"until" json:"until"`
	Keywords       string        `yaml:"keywords" json:"keywords"`
	Pages          int           `yaml:"pages" json:"pages"`
	MaxPages       int           `yaml:"max_pages" json:"max_pages"`
	Delay          time.Duration `yaml:"delay" json:"delay"`
	Segments       string        `yaml:"segments" json:"segments"`
	Mode           string        `yaml:"mode" json:"mode"`
	Max            int           `yaml:"max" json:"max"`
	StallThreshold int           `yaml:"stall_threshold" json:"stall_threshold"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds transient failure retry configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// BrowserConfig holds the headless browser settings of the scroll tier
type BrowserConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	Headless    bool          `yaml:"headless" json:"headless"`
	UserDataDir string        `yaml:"user_data_dir" json:"user_data_dir"`
	ExecPath    string        `yaml:"exec_path" json:"exec_path"`
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
}

// OutputConfig holds snapshot and report settings
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Locale    string `yaml:"locale" json:"locale"`
	Resume    bool   `yaml:"resume" json:"resume"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// SentryConfig enables error reporting when DSN is set
type SentryConfig struct {
	DSN         string `yaml:"dsn" json:"dsn"`
	Environment string `yaml:"environment" json:"environment"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Weibo: WeiboConfig{
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			MobileUserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
			BaseURL:         "https://weibo.com",
			MobileBaseURL:   "https://m.weibo.cn",
			SearchBaseURL:   "https://s.weibo.com",
			Timezone:        "Asia/Shanghai",
		},
		Crawl: CrawlConfig{
			Pages:          50,
			MaxPages:       500,
			Delay:          1200 * time.Millisecond,
			Mode:           "auto",
			Max:            0,
			StallThreshold: 3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Browser: BrowserConfig{
			Enabled:     false,
			Headless:    true,
			SettleDelay: 1500 * time.Millisecond,
		},
		Output: OutputConfig{
			Directory: "./output",
			Locale:    "zh",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from WEIBOCRAWL_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(envPrefix + name); v != "" {
			d, err := parseDelay(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}

	setString("COOKIE", &c.Weibo.Cookie)
	setString("USER_AGENT", &c.Weibo.UserAgent)
	setString("TIMEZONE", &c.Weibo.Timezone)
	setString("UID", &c.Crawl.UID)
	setString("SCREEN_NAME", &c.Crawl.ScreenName)
	setString("SINCE", &c.Crawl.Since)
	setString("UNTIL", &c.Crawl.Until)
	setString("KEYWORDS", &c.Crawl.Keywords)
	setString("SEGMENTS", &c.Crawl.Segments)
	setString("MODE", &c.Crawl.Mode)
	setInt("PAGES", &c.Crawl.Pages)
	setInt("MAX_PAGES", &c.Crawl.MaxPages)
	setInt("MAX", &c.Crawl.Max)
	setInt("STALL_THRESHOLD", &c.Crawl.StallThreshold)
	setDuration("DELAY", &c.Crawl.Delay)
	setInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	setBool("BROWSER", &c.Browser.Enabled)
	setString("CHROME_PATH", &c.Browser.ExecPath)
	setString("OUTPUT_DIR", &c.Output.Directory)
	setString("LOCALE", &c.Output.Locale)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("SENTRY_DSN", &c.Sentry.DSN)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".weibocrawl.yaml",
		".weibocrawl.yml",
		filepath.Join(home, ".config", "weibocrawl", "config.yaml"),
		filepath.Join(home, ".weibocrawl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Crawl.Pages <= 0 {
		errs = append(errs, errors.New("pages must be positive"))
	}
	if c.Crawl.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}
	if c.Crawl.Max < 0 {
		errs = append(errs, errors.New("max items cannot be negative"))
	}
	if c.Crawl.Delay < 0 {
		errs = append(errs, errors.New("delay cannot be negative"))
	}
	if c.Crawl.StallThreshold <= 0 {
		errs = append(errs, errors.New("stall threshold must be positive"))
	}
	switch c.Crawl.Mode {
	case "web", "auto":
	default:
		errs = append(errs, fmt.Errorf("invalid mode %q (want web or auto)", c.Crawl.Mode))
	}
	switch c.Crawl.Segments {
	case "", "month", "quarter":
	default:
		errs = append(errs, fmt.Errorf("invalid segments %q (want month or quarter)", c.Crawl.Segments))
	}

	loc, err := c.Location()
	if err != nil {
		errs = append(errs, err)
	} else {
		since, err := ParseBound(c.Crawl.Since, loc, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("since: %w", err))
		}
		until, err := ParseBound(c.Crawl.Until, loc, true)
		if err != nil {
			errs = append(errs, fmt.Errorf("until: %w", err))
		}
		if !since.IsZero() && !until.IsZero() && until.Before(since) {
			errs = append(errs, errors.New("until must not be before since"))
		}
	}
	if c.Crawl.Segments != "" && (c.Crawl.Since == "" || c.Crawl.Until == "") {
		errs = append(errs, errors.New("segments require both since and until"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	switch c.Output.Locale {
	case "zh", "en":
	default:
		errs = append(errs, fmt.Errorf("invalid locale %q", c.Output.Locale))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Location resolves the configured timezone. Unknown names fall back to a
// fixed UTC+8 zone only when the tz database is unavailable.
func (c *Config) Location() (*time.Location, error) {
	if c.Weibo.Timezone == "" {
		return DefaultLocation, nil
	}
	loc, err := time.LoadLocation(c.Weibo.Timezone)
	if err != nil {
		if c.Weibo.Timezone == "Asia/Shanghai" {
			return DefaultLocation, nil
		}
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Weibo.Timezone, err)
	}
	return loc, nil
}

// DefaultLocation is the source's local time.
var DefaultLocation = time.FixedZone("CST", 8*60*60)

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// cookie material may be present
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override existing values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	str := func(key string, dst *string) {
		if v, ok := flags[key].(string); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := flags[key].(int); ok {
			*dst = v
		}
	}

	str("uid", &c.Crawl.UID)
	str("screen-name", &c.Crawl.ScreenName)
	str("since", &c.Crawl.Since)
	str("until", &c.Crawl.Until)
	str("keywords", &c.Crawl.Keywords)
	str("segments", &c.Crawl.Segments)
	str("mode", &c.Crawl.Mode)
	num("pages", &c.Crawl.Pages)
	num("max-pages", &c.Crawl.MaxPages)
	num("max", &c.Crawl.Max)
	num("stall-threshold", &c.Crawl.StallThreshold)
	if ms, ok := flags["delay"].(int); ok && ms >= 0 {
		c.Crawl.Delay = time.Duration(ms) * time.Millisecond
	}
	str("cookie", &c.Weibo.Cookie)
	str("output", &c.Output.Directory)
	str("locale", &c.Output.Locale)
	str("log-level", &c.Logging.Level)
	if v, ok := flags["browser"].(bool); ok {
		c.Browser.Enabled = v
	}
	if v, ok := flags["resume"].(bool); ok {
		c.Output.Resume = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".weibocrawl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// parseDelay accepts Go durations ("1.5s") or bare milliseconds ("1500").
func parseDelay(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}
