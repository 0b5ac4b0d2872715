package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      int     `yaml:"port"`
		APIKey    string  `yaml:"api_key"`
		RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 disables
		RateBurst int     `yaml:"rate_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Availability struct {
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		Timezone        string `yaml:"timezone"`
	} `yaml:"availability"`

	Booking struct {
		// RejectPastMutations controls whether block/unblock/cancel of an
		// already-elapsed slot is refused. Kept configurable; see DESIGN.md.
		RejectPastMutations *bool `yaml:"reject_past_mutations"`
		QuotaEnabled        bool  `yaml:"quota_enabled"`
	} `yaml:"booking"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/garagebook.db"
	}
	if cfg.Availability.CacheTTLSeconds == 0 {
		cfg.Availability.CacheTTLSeconds = 60
	}

	return &cfg, nil
}

// RejectPastMutations defaults to true when unset.
func (c *Config) RejectPastMutations() bool {
	if c.Booking.RejectPastMutations == nil {
		return true
	}
	return *c.Booking.RejectPastMutations
}

// CacheTTL returns the availability cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Availability.CacheTTLSeconds) * time.Second
}

// Location resolves the configured timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Availability.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Availability.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
