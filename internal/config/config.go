package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/accounts"
	"github.com/yuriy-kovalchuk/yk-dns-promoter/internal/dns"
)

// Config holds everything the promoter needs to run.
type Config struct {
	DryRun bool `yaml:"dry_run"`
	Once   bool `yaml:"once"`

	RootDomain string `yaml:"root_domain"`
	RootRole   string `yaml:"root_role"`

	// Explicit mode: roles to assume for subdomains.
	SubRoles []string `yaml:"sub_roles"`

	// Organization mode: role name assumed in every discovered account.
	DiscoverRole   string `yaml:"discover_role"`
	EnvironmentTag string `yaml:"environment_tag"`
	Partition      string `yaml:"partition"`

	// Regions searched for certificates; empty means the default region.
	Regions []string `yaml:"regions"`

	Interval     time.Duration `yaml:"interval"`
	Concurrency  int           `yaml:"concurrency"`
	SessionName  string        `yaml:"session_name"`
	Route53QPS   float32       `yaml:"route53_qps"`
	Route53Burst int           `yaml:"route53_burst"`

	MetricsBindAddress     string `yaml:"metrics_bind_address"`
	HealthProbeBindAddress string `yaml:"health_probe_bind_address"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		EnvironmentTag:         accounts.DefaultEnvironmentTag,
		Partition:              "aws",
		Interval:               5 * time.Minute,
		Concurrency:            1,
		SessionName:            "yk-dns-promoter",
		Route53QPS:             5,
		Route53Burst:           5,
		MetricsBindAddress:     ":9090",
		HealthProbeBindAddress: ":8081",
	}
}

// Load reads the configuration from the path specified by the
// PROMOTER_CONFIG_PATH environment variable. Without it the defaults are
// returned and everything comes from flags.
func Load() (*Config, error) {
	path := os.Getenv("PROMOTER_CONFIG_PATH")
	if path == "" {
		return Default(), nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration file at path on top of the defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand ${ENV_VAR} references in role values.
	cfg.RootRole = os.ExpandEnv(cfg.RootRole)
	cfg.DiscoverRole = os.ExpandEnv(cfg.DiscoverRole)
	for i, r := range cfg.SubRoles {
		cfg.SubRoles[i] = os.ExpandEnv(r)
	}

	return cfg, nil
}

// OrganizationMode reports whether accounts are discovered from the
// organization rather than listed explicitly.
func (c *Config) OrganizationMode() bool {
	return c.DiscoverRole != ""
}

// Validate normalizes the configuration and reports the first problem.
func (c *Config) Validate() error {
	c.RootDomain = dns.TrimDot(c.RootDomain)
	if c.RootDomain == "" {
		return errors.New("config: missing required field 'root_domain'")
	}
	switch {
	case c.DiscoverRole != "" && len(c.SubRoles) > 0:
		return errors.New("config: 'sub_roles' and 'discover_role' are mutually exclusive")
	case c.DiscoverRole == "" && len(c.SubRoles) == 0:
		return errors.New("config: one of 'sub_roles' or 'discover_role' is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("config: invalid interval %s", c.Interval)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("config: invalid concurrency %d", c.Concurrency)
	}
	if c.Route53QPS <= 0 || c.Route53Burst < 1 {
		return fmt.Errorf("config: invalid route53 rate limit %v/%d", c.Route53QPS, c.Route53Burst)
	}
	return nil
}
