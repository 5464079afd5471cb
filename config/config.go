package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/sqldns/sqldns/log"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v2"
)

const upstreamDefaultPort = 53

// Upstream is the definition of the external DNS server
type Upstream struct {
	Host string
	Port uint16
}

// IsZero returns true if the upstream is not configured
func (u Upstream) IsZero() bool {
	return u == Upstream{}
}

func (u Upstream) String() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(int(u.Port)))
}

// UnmarshalYAML creates an Upstream from a "host[:port]" string
func (u *Upstream) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	upstream, err := ParseUpstream(s)
	if err != nil {
		return err
	}

	*u = upstream

	return nil
}

// ParseUpstream creates a new Upstream from the passed string in format host[:port]
func ParseUpstream(upstream string) (Upstream, error) {
	upstream = strings.TrimSpace(upstream)
	if upstream == "" {
		return Upstream{}, nil
	}

	port := uint16(upstreamDefaultPort)

	host, portPart, err := net.SplitHostPort(upstream)
	if err != nil {
		// no port in the input, use the default
		host = strings.Trim(upstream, "[]")
	} else {
		p, err := strconv.Atoi(portPart)
		if err != nil {
			return Upstream{}, fmt.Errorf("can't convert port to number: %w", err)
		}

		if p < 1 || p > 65535 {
			return Upstream{}, fmt.Errorf("invalid port %d", p)
		}

		port = uint16(p)
	}

	if host == "" {
		return Upstream{}, errors.New("wrong configuration, host wasn't specified")
	}

	return Upstream{Host: host, Port: port}, nil
}

// DatabaseConfig contains the connection parameters of the backing store
type DatabaseConfig struct {
	Driver string `yaml:"driver" default:"mysql"`
	Target string `yaml:"target"`
}

// DynamicConfig configures resolution from the backing database
type DynamicConfig struct {
	Database    DatabaseConfig `yaml:"database"`
	LookupQuery string         `yaml:"lookupQuery" default:"SELECT address FROM dns WHERE domain = ?"`
	TTL         uint32         `yaml:"ttl" default:"300"`
	Domains     []string       `yaml:"domains"`
}

// HostsFileConfig configures the static hosts file resolver
type HostsFileConfig struct {
	Filepath string `yaml:"filePath"`
	TTL      uint32 `yaml:"ttl" default:"3600"`
}

// CachingConfig configures the response cache
type CachingConfig struct {
	MaxItemsCount  int `yaml:"maxItemsCount" default:"1024"`
	MinCachingTime int `yaml:"minTime"`
	MaxCachingTime int `yaml:"maxTime"`
}

// PrometheusConfig contains the config values for prometheus
type PrometheusConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path" default:"/metrics"`
}

// Config is the main configuration, immutable after load
type Config struct {
	Upstream   Upstream         `yaml:"upstream"`
	Dynamic    DynamicConfig    `yaml:"dynamic"`
	HostsFile  HostsFileConfig  `yaml:"hostsFile"`
	Caching    CachingConfig    `yaml:"caching"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Log        log.Config       `yaml:"log"`
	Port       uint16           `yaml:"port" default:"53"`
	HTTPPort   uint16           `yaml:"httpPort"`
}

// NewConfig reads the configuration from the passed file path
func NewConfig(path string) (Config, error) {
	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		return cfg, fmt.Errorf("can't apply default values: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("can't read config file: %w", err)
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("wrong file structure: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return cfg, err
	}

	// the allow-list is matched case-insensitively against lowercased names
	for i, domain := range cfg.Dynamic.Domains {
		cfg.Dynamic.Domains[i] = strings.ToLower(strings.TrimSuffix(domain, "."))
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Upstream.IsZero() {
		return errors.New("'upstream' is required")
	}

	if cfg.Dynamic.Database.Target == "" {
		return errors.New("'dynamic.database.target' is required")
	}

	if len(cfg.Dynamic.Domains) == 0 {
		return errors.New("'dynamic.domains' must contain at least one domain suffix")
	}

	if !strings.Contains(cfg.Dynamic.LookupQuery, "?") {
		return errors.New("'dynamic.lookupQuery' must contain exactly one '?' placeholder")
	}

	if cfg.Log.Format != log.FormatText && cfg.Log.Format != log.FormatJSON {
		return fmt.Errorf("log format should be '%s' or '%s'", log.FormatText, log.FormatJSON)
	}

	return nil
}
