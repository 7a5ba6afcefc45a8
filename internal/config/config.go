// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath        = "config.toml"
	DefaultHTTPAddr          = ":8080"
	DefaultBaseURL           = "http://localhost:8080"
	DefaultPGHost            = "127.0.0.1"
	DefaultPGPort            = 5432
	DefaultPGUser            = "postgres"
	DefaultPGDatabase        = "buwa_crm"
	DefaultPGSSLMode         = "disable"
	DefaultVoicemailGreeting = "Hello, you've reached BuWa Digital. Please leave a message after the beep."
	DefaultWelcomeMessage    = "Thanks for signing up with BuWa Digital! We're excited to work with you. One of our team members will reach out shortly. Reply to this message anytime if you have questions."
	DefaultLeadSource        = "buwatv.com"
	DefaultObserverKind      = "none"
	DefaultObserverTimeout   = 10
	DefaultLeadRateLimit     = 5
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Twilio   TwilioConfig   `toml:"twilio"`
	Leads    LeadsConfig    `toml:"leads"`
	Observer ObserverConfig `toml:"observer"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address and the public base URL
// used to build provider callback URLs.
type ServerConfig struct {
	Addr    string `toml:"addr"`
	BaseURL string `toml:"base_url"`
}

// AuthConfig holds the JWT secret used to validate staff sessions.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// TwilioConfig holds provider credentials and voice behavior.
type TwilioConfig struct {
	AccountSID         string `toml:"account_sid"`
	AuthToken          string `toml:"auth_token"`
	PhoneNumber        string `toml:"phone_number"`
	ValidateSignatures bool   `toml:"validate_signatures"`
	VoicemailGreeting  string `toml:"voicemail_greeting"`
	ForwardNumber      string `toml:"forward_number"`
}

// LeadsConfig holds the lead intake shared secret and welcome SMS text.
type LeadsConfig struct {
	Secret         string  `toml:"secret"`
	WelcomeMessage string  `toml:"welcome_message"`
	DefaultSource  string  `toml:"default_source"`
	RateLimit      float64 `toml:"rate_limit"`
}

// ObserverConfig selects the external observer sink (none, webhook, amqp, nats).
type ObserverConfig struct {
	Kind           string `toml:"kind"`
	URL            string `toml:"url"`
	Exchange       string `toml:"exchange"`
	Subject        string `toml:"subject"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-delivery timeout.
func (c ObserverConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultObserverTimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CallbackURL joins the public base URL with path.
func (c ServerConfig) CallbackURL(path string) string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:    DefaultHTTPAddr,
			BaseURL: DefaultBaseURL,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Twilio: TwilioConfig{
			VoicemailGreeting: DefaultVoicemailGreeting,
		},
		Leads: LeadsConfig{
			WelcomeMessage: DefaultWelcomeMessage,
			DefaultSource:  DefaultLeadSource,
			RateLimit:      DefaultLeadRateLimit,
		},
		Observer: ObserverConfig{
			Kind:           DefaultObserverKind,
			Exchange:       "crm",
			Subject:        "crm.events",
			TimeoutSeconds: DefaultObserverTimeout,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
