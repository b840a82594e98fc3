// Package config provides YAML-based configuration loading for the concierge service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration, loaded from config.yaml.
type Config struct {
	Domain   string         `yaml:"domain"`    // inbound mail domain, e.g. "nmbli.com"
	FromName string         `yaml:"from_name"` // display name on outbound email
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Rounds   RoundsConfig   `yaml:"rounds"`
	Channels ChannelsConfig `yaml:"channels"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Slack    SlackConfig    `yaml:"slack"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DBConfig holds database connection settings. Driver is "mysql" or "sqlite".
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"` // sqlite only
}

// RoundsConfig controls the negotiation round schedule, measured from brief
// creation.
type RoundsConfig struct {
	CounterDelaySec int `yaml:"counter_delay_sec"`
	FinalDelaySec   int `yaml:"final_delay_sec"`
	TickIntervalSec int `yaml:"tick_interval_sec"`
}

// CounterDelay returns the counter-round delay as a duration.
func (r RoundsConfig) CounterDelay() time.Duration {
	return time.Duration(r.CounterDelaySec) * time.Second
}

// FinalDelay returns the final-round delay as a duration.
func (r RoundsConfig) FinalDelay() time.Duration {
	return time.Duration(r.FinalDelaySec) * time.Second
}

// ChannelsConfig holds credentials for the three outreach channels.
type ChannelsConfig struct {
	Resend  ResendConfig  `yaml:"resend"`
	Twilio  TwilioConfig  `yaml:"twilio"`
	Skyvern SkyvernConfig `yaml:"skyvern"`
	// Per-call timeout applied to every channel send.
	SendTimeoutSec int `yaml:"send_timeout_sec"`
}

// SendTimeout returns the per-call channel timeout as a duration.
func (c ChannelsConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSec) * time.Second
}

// ResendConfig holds settings for the Resend email API.
type ResendConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// TwilioConfig holds settings for the Twilio SMS API.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
	BaseURL    string `yaml:"base_url"`
}

// SkyvernConfig holds settings for the Skyvern browser-automation API.
type SkyvernConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LookupConfig holds settings for the generative-AI dealer lookup.
type LookupConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	DealerCount int    `yaml:"dealer_count"`
}

// SlackConfig holds optional ops-notification settings. Notifications are
// disabled when the token is empty.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values. Secrets fall back to
// environment variables so config files can stay credential-free.
func (c *Config) applyDefaults() {
	if c.FromName == "" {
		c.FromName = "nmbli"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = "concierge.db"
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" {
		c.DB.Database = "concierge"
	}
	if c.Rounds.CounterDelaySec == 0 {
		c.Rounds.CounterDelaySec = 120
	}
	if c.Rounds.FinalDelaySec == 0 {
		c.Rounds.FinalDelaySec = 240
	}
	if c.Rounds.TickIntervalSec == 0 {
		c.Rounds.TickIntervalSec = 30
	}
	if c.Channels.SendTimeoutSec == 0 {
		c.Channels.SendTimeoutSec = 30
	}
	if c.Channels.Resend.APIKey == "" {
		c.Channels.Resend.APIKey = os.Getenv("RESEND_API_KEY")
	}
	if c.Channels.Twilio.AccountSID == "" {
		c.Channels.Twilio.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if c.Channels.Twilio.AuthToken == "" {
		c.Channels.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if c.Channels.Twilio.FromNumber == "" {
		c.Channels.Twilio.FromNumber = os.Getenv("TWILIO_PHONE_NUMBER")
	}
	if c.Channels.Skyvern.APIKey == "" {
		c.Channels.Skyvern.APIKey = os.Getenv("SKYVERN_API_KEY")
	}
	if c.Lookup.APIKey == "" {
		c.Lookup.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Lookup.Model == "" {
		c.Lookup.Model = "gemini-2.5-flash"
	}
	if c.Lookup.DealerCount == 0 {
		c.Lookup.DealerCount = 15
	}
	if c.Slack.BotToken == "" {
		c.Slack.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Domain == "" {
		errs = append(errs, "domain is required")
	}
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q is not supported", c.DB.Driver))
	}
	if c.Rounds.CounterDelaySec >= c.Rounds.FinalDelaySec {
		errs = append(errs, "rounds.counter_delay_sec must be less than rounds.final_delay_sec")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
