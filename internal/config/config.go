// Load envs from .env
// Load YAML config
// Override from env
// Provide default values and validate

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

const (
	RendererPlaywright = "playwright"
	RendererStatic     = "static"
)

type Config struct {
	//Source site
	ListingsURL string `yaml:"listings_url"`
	Limit       int    `yaml:"limit"`

	//Rendering
	Renderer    string        `yaml:"renderer"`
	Headless    bool          `yaml:"headless"`
	UserAgent   string        `yaml:"user_agent"`
	PaceDelay   time.Duration `yaml:"pace_delay"`
	ScrollDelay time.Duration `yaml:"scroll_delay"`
	PoliteDelay time.Duration `yaml:"polite_delay"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	MaxScrolls  int           `yaml:"max_scrolls"`

	//Storage
	DatabaseURL string `yaml:"database_url"`

	//Seen-link cache
	SkipSeen      bool          `yaml:"skip_seen"`
	CachePath     string        `yaml:"cache_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	SeenTTL       time.Duration `yaml:"seen_ttl"`

	//Outputs
	NATSURL          string `yaml:"nats_url"`
	TelegramToken    string `yaml:"telegram_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
	DebugScreenshots bool   `yaml:"debug_screenshots"`

	//Paths
	CookiesPath string `yaml:"cookies_path"`
	LockPath    string `yaml:"lock_path"`

	ServerAddr string `yaml:"server_addr"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListingsURL: "https://www.actuarylist.com/",
		Limit:       100,
		Renderer:    RendererPlaywright,
		Headless:    true,
		PaceDelay:   2 * time.Second,
		ScrollDelay: 2 * time.Second,
		PoliteDelay: 500 * time.Millisecond,
		WaitTimeout: 20 * time.Second,
		MaxScrolls:  10,
		DatabaseURL: "sqlite://jobs.db",
		CachePath:   ".cache",
		SeenTTL:     30 * 24 * time.Hour,
		LockPath:    ".cache/ingest.lock",
		ServerAddr:  ":8080",
	}
}

// Load reads .env, then the YAML file at path (a missing file is fine), then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LISTINGS_URL"); v != "" {
		c.ListingsURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATSURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	if v := os.Getenv("PORT"); v != "" {
		c.ServerAddr = ":" + v
	}
	return nil
}

// applyDefaults fills zero values that a partial YAML file may have left behind.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Limit <= 0 {
		c.Limit = d.Limit
	}
	if c.Renderer == "" {
		c.Renderer = d.Renderer
	}
	if c.ScrollDelay <= 0 {
		c.ScrollDelay = c.PaceDelay
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = d.WaitTimeout
	}
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = d.MaxScrolls
	}
	if c.CachePath == "" {
		c.CachePath = d.CachePath
	}
	if c.SeenTTL <= 0 {
		c.SeenTTL = d.SeenTTL
	}
	if c.ServerAddr == "" {
		c.ServerAddr = d.ServerAddr
	}
}

// SetPaceDelaySeconds applies the CLI's fractional-seconds delay to both pacing waits.
func (c *Config) SetPaceDelaySeconds(seconds float64) {
	d := time.Duration(seconds * float64(time.Second))
	c.PaceDelay = d
	c.ScrollDelay = d
}

// Validate rejects values the scraper cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ListingsURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("listings_url must be an absolute URL, got %q", c.ListingsURL)
	}
	if c.Renderer != RendererPlaywright && c.Renderer != RendererStatic {
		return fmt.Errorf("renderer must be %q or %q, got %q", RendererPlaywright, RendererStatic, c.Renderer)
	}
	if c.PaceDelay < 0 || c.PoliteDelay < 0 {
		return errors.New("delays must not be negative")
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return errors.New("telegram_chat_id is required when telegram_token is set")
	}
	return nil
}
