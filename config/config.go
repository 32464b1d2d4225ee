package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Ticketmaster TicketmasterConfig `yaml:"ticketmaster"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	Resend       ResendConfig       `yaml:"resend"`
	Contact      ContactConfig      `yaml:"contact"`
	Database     DatabaseConfig     `yaml:"database"`
	Cache        CacheConfig        `yaml:"cache"`
	RateLimit    RateLimitConfig    `yaml:"rateLimit"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	// SearchTimeout bounds one discovery search, personalization included.
	SearchTimeout time.Duration `yaml:"searchTimeout"`
	// SessionIdle evicts discovery sessions not touched for this long.
	SessionIdle time.Duration `yaml:"sessionIdle"`
	// MaxSessions caps tracked discovery sessions; the oldest settled one is
	// evicted to make room.
	MaxSessions int `yaml:"maxSessions"`
	// TrustedProxies lists CIDRs or addresses allowed to set X-Forwarded-For
	// and X-Real-IP. Empty means the socket peer is always the client.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// LogConfig controls log output. An empty File logs to stderr only.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type TicketmasterConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseURL"`
	PageSize       int           `yaml:"pageSize"`
	Timeout        time.Duration `yaml:"timeout"`
	DefaultCountry string        `yaml:"defaultCountry"`
	// MaxConcurrency bounds the number of sub-queries in flight per aggregation.
	MaxConcurrency int `yaml:"maxConcurrency"`
}

type OpenAIConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseURL"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ResendConfig struct {
	APIKey     string        `yaml:"apiKey"`
	BaseURL    string        `yaml:"baseURL"`
	AudienceID string        `yaml:"audienceId"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ContactConfig struct {
	AdminEmail string `yaml:"adminEmail"`
	From       string `yaml:"from"`
	SiteName   string `yaml:"siteName"`
	SiteURL    string `yaml:"siteURL"`
}

// DatabaseConfig locates the submissions ledger. An empty path disables it.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls the on-disk search response cache. TTL 0 disables it.
type CacheConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

type RateLimitConfig struct {
	FormsPerMinute    int `yaml:"formsPerMinute"`
	FormsBurst        int `yaml:"formsBurst"`
	DiscoverPerMinute int `yaml:"discoverPerMinute"`
	DiscoverBurst     int `yaml:"discoverBurst"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (if it exists), applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only configuration
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 90 * time.Second
	}
	if c.Server.SearchTimeout == 0 {
		c.Server.SearchTimeout = 75 * time.Second
	}
	if c.Server.SessionIdle == 0 {
		c.Server.SessionIdle = 30 * time.Minute
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = 10000
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
	if c.Ticketmaster.BaseURL == "" {
		c.Ticketmaster.BaseURL = "https://app.ticketmaster.com"
	}
	if c.Ticketmaster.PageSize == 0 {
		c.Ticketmaster.PageSize = 50
	}
	if c.Ticketmaster.Timeout == 0 {
		c.Ticketmaster.Timeout = 15 * time.Second
	}
	if c.Ticketmaster.DefaultCountry == "" {
		c.Ticketmaster.DefaultCountry = "US"
	}
	if c.Ticketmaster.MaxConcurrency == 0 {
		c.Ticketmaster.MaxConcurrency = 4
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-3.5-turbo-16k"
	}
	if c.OpenAI.Temperature == 0 {
		c.OpenAI.Temperature = 0.5
	}
	if c.OpenAI.MaxTokens == 0 {
		c.OpenAI.MaxTokens = 4000
	}
	if c.OpenAI.Timeout == 0 {
		c.OpenAI.Timeout = 60 * time.Second
	}
	if c.Resend.BaseURL == "" {
		c.Resend.BaseURL = "https://api.resend.com"
	}
	if c.Resend.Timeout == 0 {
		c.Resend.Timeout = 20 * time.Second
	}
	if c.Contact.From == "" {
		c.Contact.From = "Astra UI <contact@egeuysal.com>"
	}
	if c.Contact.SiteName == "" {
		c.Contact.SiteName = "Astra UI"
	}
	if c.Contact.SiteURL == "" {
		c.Contact.SiteURL = "https://astraui.me"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache/events"
	}
	if c.RateLimit.FormsPerMinute == 0 {
		c.RateLimit.FormsPerMinute = 5
	}
	if c.RateLimit.FormsBurst == 0 {
		c.RateLimit.FormsBurst = 5
	}
	if c.RateLimit.DiscoverPerMinute == 0 {
		c.RateLimit.DiscoverPerMinute = 10
	}
	if c.RateLimit.DiscoverBurst == 0 {
		c.RateLimit.DiscoverBurst = 3
	}
}

// applyEnv overlays environment variables on top of file values. Secrets are
// normally supplied this way.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("SPOT_ADDR", &c.Server.Addr)
	str("SPOT_LOG_FILE", &c.Log.File)
	str("SPOT_DATABASE_PATH", &c.Database.Path)
	str("SPOT_CACHE_DIR", &c.Cache.Dir)
	str("TICKETMASTER_API_KEY", &c.Ticketmaster.APIKey)
	str("TICKETMASTER_BASE_URL", &c.Ticketmaster.BaseURL)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("OPENAI_MODEL", &c.OpenAI.Model)
	str("RESEND_API_KEY", &c.Resend.APIKey)
	str("RESEND_AUDIENCE_ID", &c.Resend.AudienceID)
	str("ADMIN_EMAIL", &c.Contact.AdminEmail)

	list := func(key string, dst *[]string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
	list("SPOT_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)
	list("SPOT_TRUSTED_PROXIES", &c.Server.TrustedProxies)
	if v, ok := lookup("SPOT_CACHE_TTL"); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			c.Cache.TTL = d
		}
	}
	if v, ok := lookup("TICKETMASTER_MAX_CONCURRENCY"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Ticketmaster.MaxConcurrency = n
		}
	}
}

// Validate checks values that cannot be defaulted. Missing API keys are not
// errors here: the affected operation reports them at call time.
func (c *Config) Validate() error {
	if c.Ticketmaster.PageSize < 1 || c.Ticketmaster.PageSize > 200 {
		return fmt.Errorf("ticketmaster.pageSize must be between 1 and 200, got %d", c.Ticketmaster.PageSize)
	}
	if len(c.Ticketmaster.DefaultCountry) != 2 {
		return fmt.Errorf("ticketmaster.defaultCountry must be a two-letter code, got %q", c.Ticketmaster.DefaultCountry)
	}
	if c.Ticketmaster.MaxConcurrency < 1 {
		return fmt.Errorf("ticketmaster.maxConcurrency must be positive, got %d", c.Ticketmaster.MaxConcurrency)
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("openai.temperature must be between 0 and 2, got %v", c.OpenAI.Temperature)
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server.maxSessions must be positive, got %d", c.Server.MaxSessions)
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	return nil
}
