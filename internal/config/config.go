// Package config provides configuration loading and validation for the campaign site.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the Apps Script web app backing the campaign spreadsheet.
const DefaultEndpoint = "https://script.google.com/macros/s/AKfycbxI0O2U5KhwQHtgaMTwif9vFN_DjlTv7lCQpCiE74rm9OE7pi1gg69QTX1f5jJgs8Jxcw/exec"

// Config represents the site configuration that can be loaded from a YAML file.
// All fields are optional; missing values use Defaults.
type Config struct {
	// Store
	Endpoint        string        `yaml:"endpoint,omitempty"`         // Remote tabular store URL
	FetchTimeout    time.Duration `yaml:"fetch_timeout,omitempty"`    // Primary transport timeout
	CallbackTimeout time.Duration `yaml:"callback_timeout,omitempty"` // Callback transport deadline

	// Opinions
	ReaggregateDelay time.Duration `yaml:"reaggregate_delay,omitempty"` // Wait before re-reading opinions after a submission
	FeedbackDuration time.Duration `yaml:"feedback_duration,omitempty"` // How long form feedback stays visible
	TagCloudLimit    int           `yaml:"tag_cloud_limit,omitempty"`   // Number of tags kept in the cloud
	MinFontScale     float64       `yaml:"min_font_scale,omitempty"`    // Smallest tag size (rem)
	MaxFontScale     float64       `yaml:"max_font_scale,omitempty"`    // Largest tag size (rem)

	// Rendering
	DownloadsCap     int      `yaml:"downloads_cap,omitempty"`     // Downloads shown before "show more"
	TimelineSubjects []string `yaml:"timeline_subjects,omitempty"` // Candidate numbers with a timeline container
	Locale           string   `yaml:"locale,omitempty"`            // "th" or "en"
	Template         string   `yaml:"template,omitempty"`          // Page template path; embedded page when empty
	Output           string   `yaml:"output,omitempty"`            // Static build output path

	// Server
	Port int `yaml:"port,omitempty"`
}

// Defaults returns the configuration the site ships with.
func Defaults() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		FetchTimeout:     30 * time.Second,
		CallbackTimeout:  10 * time.Second,
		ReaggregateDelay: 1500 * time.Millisecond,
		FeedbackDuration: 5 * time.Second,
		TagCloudLimit:    30,
		MinFontScale:     0.8,
		MaxFontScale:     2.4,
		DownloadsCap:     9,
		TimelineSubjects: []string{"9", "10"},
		Locale:           "th",
		Output:           "dist/index.html",
		Port:             8080,
	}
}

// LoadConfig loads configuration from a YAML file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a copy of c with CAMPAIGN_* environment variables applied on top.
func (c Config) FromEnv() Config {
	c.Endpoint = getEnvString("CAMPAIGN_ENDPOINT", c.Endpoint)
	c.FetchTimeout = getEnvDuration("CAMPAIGN_FETCH_TIMEOUT", c.FetchTimeout)
	c.CallbackTimeout = getEnvDuration("CAMPAIGN_CALLBACK_TIMEOUT", c.CallbackTimeout)
	c.ReaggregateDelay = getEnvDuration("CAMPAIGN_REAGGREGATE_DELAY", c.ReaggregateDelay)
	c.Locale = getEnvString("CAMPAIGN_LOCALE", c.Locale)
	c.Template = getEnvString("CAMPAIGN_TEMPLATE", c.Template)
	c.Port = getEnvInt("CAMPAIGN_PORT", c.Port)
	if subjects := getEnvString("CAMPAIGN_TIMELINE_SUBJECTS", ""); subjects != "" {
		c.TimelineSubjects = splitList(subjects)
	}
	return c
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config error: 'endpoint' must be an absolute URL, got %q", c.Endpoint)
	}

	if c.FetchTimeout <= 0 || c.CallbackTimeout <= 0 {
		return fmt.Errorf("config error: timeouts must be positive")
	}
	if c.ReaggregateDelay < 0 || c.FeedbackDuration < 0 {
		return fmt.Errorf("config error: delays must be non-negative")
	}
	if c.DownloadsCap <= 0 {
		return fmt.Errorf("config error: 'downloads_cap' must be positive")
	}
	if c.TagCloudLimit <= 0 {
		return fmt.Errorf("config error: 'tag_cloud_limit' must be positive")
	}
	if c.MinFontScale > c.MaxFontScale {
		return fmt.Errorf("config error: 'min_font_scale' exceeds 'max_font_scale'")
	}
	if len(c.TimelineSubjects) == 0 {
		return fmt.Errorf("config error: 'timeline_subjects' must not be empty")
	}
	if c.Locale != "th" && c.Locale != "en" {
		return fmt.Errorf("config error: unsupported locale %q", c.Locale)
	}

	if c.Template != "" {
		if _, err := os.Stat(c.Template); os.IsNotExist(err) {
			return fmt.Errorf("config error: template file not found: %s", c.Template)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Endpoint == "" {
		result.Endpoint = defaults.Endpoint
	}
	if result.Locale == "" {
		result.Locale = defaults.Locale
	}
	if result.Template == "" {
		result.Template = defaults.Template
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}

	if result.FetchTimeout == 0 {
		result.FetchTimeout = defaults.FetchTimeout
	}
	if result.CallbackTimeout == 0 {
		result.CallbackTimeout = defaults.CallbackTimeout
	}
	if result.ReaggregateDelay == 0 {
		result.ReaggregateDelay = defaults.ReaggregateDelay
	}
	if result.FeedbackDuration == 0 {
		result.FeedbackDuration = defaults.FeedbackDuration
	}

	if result.TagCloudLimit == 0 {
		result.TagCloudLimit = defaults.TagCloudLimit
	}
	if result.DownloadsCap == 0 {
		result.DownloadsCap = defaults.DownloadsCap
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Scales are merged as a pair so a file cannot set only one end of the range.
	if result.MinFontScale == 0 && result.MaxFontScale == 0 {
		result.MinFontScale = defaults.MinFontScale
		result.MaxFontScale = defaults.MaxFontScale
	}

	if len(result.TimelineSubjects) == 0 {
		result.TimelineSubjects = append([]string(nil), defaults.TimelineSubjects...)
	}

	return result
}

// Load resolves the effective configuration: file (optional), then defaults, then environment.
func Load(path string) (Config, error) {
	var fileCfg Config
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		fileCfg = *loaded
	}

	cfg := fileCfg.MergeWithDefaults(Defaults()).FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
