package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Body scan modes for the extractor.
const (
	BodyScanAlways = "always"
	BodyScanHinted = "hinted"
)

// Config holds all configuration for the application. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	Reddit        RedditConfig        `json:"reddit"`
	Application   ApplicationConfig   `json:"application"`
	Notifications NotificationsConfig `json:"notifications"`
	Filtering     FilteringConfig     `json:"filtering"`
	Patterns      PatternsConfig      `json:"patterns"`

	// Optional ledger backup, configured via environment only
	StorageAccount   string `json:"-"`
	StorageContainer string `json:"-"`

	// Compiled from Patterns at load time
	CandidateCodeRegexp *regexp.Regexp `json:"-"`
	ReferralCodeRegexp  *regexp.Regexp `json:"-"`
}

// SubredditRule holds the per-subreddit filtering rules.
type SubredditRule struct {
	// AllowedFlairs is an exact-match allow-list. Empty means every flair
	// (including no flair) is accepted.
	AllowedFlairs []string `json:"allowed_flairs"`
}

// RedditConfig holds Reddit API credentials and the monitored subreddits.
type RedditConfig struct {
	ClientID     string                   `json:"client_id"`
	ClientSecret string                   `json:"client_secret"`
	UserAgent    string                   `json:"user_agent"`
	Subreddits   map[string]SubredditRule `json:"subreddits"`
}

// ApplicationConfig holds runtime settings.
type ApplicationConfig struct {
	FetchIntervalSeconds int    `json:"fetch_interval_seconds"`
	PostLimit            int    `json:"post_limit"`
	CodesFile            string `json:"codes_file"`
	LogFile              string `json:"log_file"`
	Port                 string `json:"port"`
	Debug                bool   `json:"debug"`
}

// NotificationsConfig holds the notification targets.
type NotificationsConfig struct {
	NtfyTopicURL   string       `json:"ntfy_topic_url"`
	NtfyTitle      string       `json:"ntfy_title"`
	DesktopEnabled bool         `json:"desktop_enabled"`
	Email          *EmailConfig `json:"email,omitempty"`

	// PersistOnFailure controls whether a code is written to the ledger even
	// when every delivery attempt failed. Defaults to true: the ledger exists
	// to suppress duplicates, not to guarantee delivery.
	PersistOnFailure *bool `json:"persist_on_failure,omitempty"`
}

// EmailConfig holds the optional email notification channel.
type EmailConfig struct {
	To           string `json:"to"`
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`
}

// FilteringConfig holds the trusted-user and ignored-word rules.
type FilteringConfig struct {
	TrustedUsers []string `json:"trusted_users"`
	IgnoredWords []string `json:"ignored_words"`
	BodyScan     string   `json:"body_scan"` // "always" or "hinted"
}

// PatternsConfig holds the two extraction regexes.
type PatternsConfig struct {
	CandidateCodePattern string `json:"candidate_code_pattern"`
	ReferralCodePattern  string `json:"referral_code_pattern"`
}

var requiredSections = []string{"reddit", "application", "notifications", "filtering", "patterns"}

// Load reads and validates the JSON configuration file. The path comes from
// the CONFIG_FILE environment variable, defaulting to config.json.
func Load() (*Config, error) {
	return LoadFile(getEnv("CONFIG_FILE", "config.json"))
}

// LoadFile reads and validates the JSON configuration file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	// Check section presence before decoding so a missing section is reported
	// as such rather than as a zero-valued struct downstream.
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("invalid JSON in configuration file %s: %w", path, err)
	}
	for _, section := range requiredSections {
		if _, ok := sections[section]; !ok {
			return nil, fmt.Errorf("missing required configuration section: %s", section)
		}
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := cfg.compilePatterns(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Application.FetchIntervalSeconds <= 0 {
		c.Application.FetchIntervalSeconds = 300
	}
	if c.Application.PostLimit <= 0 {
		c.Application.PostLimit = 25
	}
	if c.Application.CodesFile == "" {
		c.Application.CodesFile = "notified_codes.txt"
	}
	if c.Application.Port == "" {
		c.Application.Port = "8080"
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "tacticus-codes-bot/1.0"
	}
	if c.Notifications.NtfyTitle == "" {
		c.Notifications.NtfyTitle = "New Tacticus Code!"
	}
	if c.Notifications.PersistOnFailure == nil {
		persist := true
		c.Notifications.PersistOnFailure = &persist
	}
	if c.Filtering.BodyScan == "" {
		c.Filtering.BodyScan = BodyScanAlways
	}
}

func (c *Config) applyEnvOverrides() {
	c.Reddit.ClientID = getEnv("REDDIT_CLIENT_ID", c.Reddit.ClientID)
	c.Reddit.ClientSecret = getEnv("REDDIT_CLIENT_SECRET", c.Reddit.ClientSecret)
	c.StorageAccount = getEnv("AZURE_STORAGE_ACCOUNT", "")
	c.StorageContainer = getEnv("AZURE_STORAGE_CONTAINER", "codes")
}

func (c *Config) validate() error {
	if len(c.Reddit.Subreddits) == 0 {
		return fmt.Errorf("at least one subreddit must be configured under reddit.subreddits")
	}

	if c.Notifications.NtfyTopicURL == "" {
		return fmt.Errorf("notifications.ntfy_topic_url is required")
	}

	if email := c.Notifications.Email; email != nil {
		if email.To == "" || email.SMTPHost == "" || email.SMTPUsername == "" || email.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is incomplete for the email notification channel")
		}
	}

	if c.Filtering.BodyScan != BodyScanAlways && c.Filtering.BodyScan != BodyScanHinted {
		return fmt.Errorf("filtering.body_scan must be %q or %q", BodyScanAlways, BodyScanHinted)
	}

	if c.Patterns.CandidateCodePattern == "" {
		return fmt.Errorf("patterns.candidate_code_pattern is required")
	}
	if c.Patterns.ReferralCodePattern == "" {
		return fmt.Errorf("patterns.referral_code_pattern is required")
	}

	return nil
}

func (c *Config) compilePatterns() error {
	candidate, err := regexp.Compile(c.Patterns.CandidateCodePattern)
	if err != nil {
		return fmt.Errorf("invalid candidate code pattern: %w", err)
	}
	referral, err := regexp.Compile(c.Patterns.ReferralCodePattern)
	if err != nil {
		return fmt.Errorf("invalid referral code pattern: %w", err)
	}
	c.CandidateCodeRegexp = candidate
	c.ReferralCodeRegexp = referral
	return nil
}

// FetchInterval returns the inter-cycle sleep as a duration.
func (c *Config) FetchInterval() time.Duration {
	return time.Duration(c.Application.FetchIntervalSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
