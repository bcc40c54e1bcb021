package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tpchat/pkg/errdefs"
)

// Config is the widget configuration, loaded from a YAML file and
// overridable via TPCHAT_* env vars. Defaults mirror the hosted widget.
type Config struct {
	AppID    string `yaml:"app_id"`
	TeamSlug string `yaml:"team_slug"`
	APIBase  string `yaml:"api_base"`
	WSBase   string `yaml:"ws_base"`
	UserJWT  string `yaml:"user_jwt"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`

	Socket struct {
		HeartbeatInterval Duration  `yaml:"heartbeat_interval"`
		ConnectTimeout    Duration  `yaml:"connect_timeout"`
		Reconnect         Reconnect `yaml:"reconnect"`
	} `yaml:"socket"`

	Notify struct {
		Reconnect Reconnect `yaml:"reconnect"`
	} `yaml:"notify"`

	Transport struct {
		MaxRetries int      `yaml:"max_retries"`
		BaseDelay  Duration `yaml:"base_delay"`
		RateLimit  struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"transport"`

	Limits struct {
		MaxMessageLength int      `yaml:"max_message_length"`
		MaxFileSize      int64    `yaml:"max_file_size"`
		AllowedFileTypes []string `yaml:"allowed_file_types"`
	} `yaml:"limits"`

	Conversations struct {
		MaxStored           int `yaml:"max_stored"`
		AutoDeleteAfterDays int `yaml:"auto_delete_after_days"`
	} `yaml:"conversations"`

	Retention struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"retention"`

	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the listener
	} `yaml:"metrics"`
}

// Reconnect parameterizes a socket reconnect policy.
type Reconnect struct {
	Attempts  int      `yaml:"attempts"`
	BaseDelay Duration `yaml:"base_delay"`
}

// Default returns a config with the widget's built-in defaults applied.
func Default() *Config {
	var c Config
	c.APIBase = "https://api.ticketping.com"
	c.WSBase = "wss://ws.ticketping.com"
	c.Storage.DBPath = "./.tpchat"
	c.Logging.Level = "info"
	c.Logging.Format = "text"
	c.Socket.HeartbeatInterval = Duration(30 * time.Second)
	c.Socket.ConnectTimeout = Duration(5 * time.Second)
	c.Socket.Reconnect = Reconnect{Attempts: 5, BaseDelay: Duration(time.Second)}
	c.Notify.Reconnect = Reconnect{Attempts: 10, BaseDelay: Duration(2 * time.Second)}
	c.Transport.MaxRetries = 3
	c.Transport.BaseDelay = Duration(time.Second)
	c.Transport.RateLimit.RPS = 5
	c.Transport.RateLimit.Burst = 10
	c.Limits.MaxMessageLength = 5000
	c.Limits.MaxFileSize = 10 * 1024 * 1024
	c.Limits.AllowedFileTypes = []string{
		"image/jpeg", "image/png", "image/gif",
		"application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
	}
	c.Conversations.MaxStored = 50
	c.Conversations.AutoDeleteAfterDays = 30
	c.Retention.Cron = "0 2 * * *"
	return &c
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; env overrides and flags may supply everything.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required identity fields. The widget refuses to start
// without them.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.AppID) == "" {
		missing = append(missing, "app_id")
	}
	if strings.TrimSpace(c.TeamSlug) == "" {
		missing = append(missing, "team_slug")
	}
	if c.APIBase != "" && !strings.HasPrefix(c.APIBase, "http") {
		missing = append(missing, "api_base")
	}
	if c.WSBase != "" && !strings.HasPrefix(c.WSBase, "ws") {
		missing = append(missing, "ws_base")
	}
	if len(missing) > 0 {
		return &errdefs.ConfigurationError{Fields: missing}
	}
	return nil
}

// LoadEnvOverrides applies TPCHAT_* env vars onto cfg and reports whether
// any were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	set := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			envUsed = true
			*dst = v
		}
	}
	set("TPCHAT_APP_ID", &cfg.AppID)
	set("TPCHAT_TEAM_SLUG", &cfg.TeamSlug)
	set("TPCHAT_API_BASE", &cfg.APIBase)
	set("TPCHAT_WS_BASE", &cfg.WSBase)
	set("TPCHAT_USER_JWT", &cfg.UserJWT)
	set("TPCHAT_DB_PATH", &cfg.Storage.DBPath)
	set("TPCHAT_LOG_LEVEL", &cfg.Logging.Level)
	set("TPCHAT_LOG_FORMAT", &cfg.Logging.Format)
	set("TPCHAT_RETENTION_CRON", &cfg.Retention.Cron)
	set("TPCHAT_METRICS_ADDR", &cfg.Metrics.Addr)
	if v := os.Getenv("TPCHAT_RETENTION_ENABLED"); v != "" {
		envUsed = true
		vl := strings.ToLower(strings.TrimSpace(v))
		cfg.Retention.Enabled = vl == "1" || vl == "true" || vl == "yes"
	}
	if v := os.Getenv("TPCHAT_MAX_CONVERSATIONS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Conversations.MaxStored = n
		}
	}
	return envUsed
}

// ParseCommandFlags defines and parses command-line flags and returns
// their values along with a map of flags explicitly set.
func ParseCommandFlags() (cfgPath string, dbPath string, setFlags map[string]bool) {
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	dbPtr := flag.String("db", "", "Pebble DB path (overrides config)")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *cfgPtr, *dbPtr, setFlags
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and TPCHAT_CONFIG when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("TPCHAT_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// LoadEffective loads the config file and applies env overrides.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, false, err
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, envUsed, nil
}
