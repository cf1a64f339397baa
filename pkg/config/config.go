// Package config loads the service configuration from a YAML file and
// CORRIDOR_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Graph   GraphConfig   `yaml:"graph"`
	Routing RoutingConfig `yaml:"routing"`
	Logging LoggingConfig `yaml:"logging"`
	Auth    AuthConfig    `yaml:"auth"`
	Audit   AuditConfig   `yaml:"audit"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are honored.
	TrustedProxies []string `yaml:"trusted_proxies"`
	// RateLimitRPS limits requests per client IP; 0 disables rate limiting.
	RateLimitRPS   float64   `yaml:"rate_limit_rps"`
	RateLimitBurst int       `yaml:"rate_limit_burst"`
	MaxBodyBytes   int64     `yaml:"max_body_bytes"`
	TLS            TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CertFile     string `yaml:"cert_file"`
	KeyFile      string `yaml:"key_file"`
	ClientCAFile string `yaml:"client_ca_file"`
	// AutoGenerate serves a self-signed certificate for Hosts. Development only.
	AutoGenerate bool     `yaml:"auto_generate"`
	Hosts        []string `yaml:"hosts"`
	MinVersion   string   `yaml:"min_version"`
}

type GraphConfig struct {
	// Source is a corridor dataset URI: a file path, s3://, postgres:// or neo4j://.
	Source       string `yaml:"source"`
	SnapshotPath string `yaml:"snapshot_path"`
	// Watch rebuilds the graph when a file source changes.
	Watch        bool          `yaml:"watch"`
	WatchDelay   time.Duration `yaml:"watch_delay"`
	PredictorURL string        `yaml:"predictor_url"`
	// MaxAge marks the graph degraded in health checks once exceeded; 0 disables.
	MaxAge time.Duration `yaml:"max_age"`
}

type RoutingConfig struct {
	DefaultK       int           `yaml:"default_k"`
	DefaultMaxHops int           `yaml:"default_max_hops"`
	MaxK           int           `yaml:"max_k"`
	MaxHopsLimit   int           `yaml:"max_hops_limit"`
	MaxExpansions  int           `yaml:"max_expansions"`
	Timeout        time.Duration `yaml:"timeout"`
	// Workers sizes the search pool; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	// JWTSecret enables admin authentication when set. At least 32 characters.
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type AuditConfig struct {
	// Path is the hash-chained audit log file; empty keeps events in memory only.
	Path string `yaml:"path"`
	// Capacity is the number of recent events kept for GET /admin/audit.
	Capacity int `yaml:"capacity"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitBurst:  20,
			MaxBodyBytes:    1 << 20,
		},
		Graph: GraphConfig{
			WatchDelay: 2 * time.Second,
		},
		Routing: RoutingConfig{
			DefaultK:       3,
			DefaultMaxHops: 3,
			MaxK:           50,
			MaxHopsLimit:   8,
			MaxExpansions:  200_000,
			Timeout:        10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Auth: AuthConfig{
			Issuer:   "corridord",
			TokenTTL: time.Hour,
		},
		Audit: AuditConfig{Capacity: 1000},
	}
}

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads path (optional) and applies the process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	num("PORT", &c.Server.Port)
	num("CORRIDOR_PORT", &c.Server.Port)
	if v, ok := lookup("CORRIDOR_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("CORRIDOR_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = splitList(v)
	}
	if v, ok := lookup("CORRIDOR_RATE_LIMIT_RPS"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("CORRIDOR_RATE_LIMIT_RPS: %w", err))
		}
		c.Server.RateLimitRPS = f
	}
	num("CORRIDOR_RATE_LIMIT_BURST", &c.Server.RateLimitBurst)
	str("CORRIDOR_GRAPH_SOURCE", &c.Graph.Source)
	str("CORRIDOR_SNAPSHOT_PATH", &c.Graph.SnapshotPath)
	str("CORRIDOR_PREDICTOR_URL", &c.Graph.PredictorURL)
	if v, ok := lookup("CORRIDOR_GRAPH_WATCH"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("CORRIDOR_GRAPH_WATCH: %w", err))
		}
		c.Graph.Watch = b
	}
	num("CORRIDOR_DEFAULT_K", &c.Routing.DefaultK)
	num("CORRIDOR_DEFAULT_MAX_HOPS", &c.Routing.DefaultMaxHops)
	num("CORRIDOR_MAX_EXPANSIONS", &c.Routing.MaxExpansions)
	num("CORRIDOR_WORKERS", &c.Routing.Workers)
	dur("CORRIDOR_ROUTING_TIMEOUT", &c.Routing.Timeout)
	str("LOG_LEVEL", &c.Logging.Level)
	str("CORRIDOR_LOG_LEVEL", &c.Logging.Level)
	str("CORRIDOR_JWT_SECRET", &c.Auth.JWTSecret)
	str("CORRIDOR_TLS_CERT_FILE", &c.Server.TLS.CertFile)
	str("CORRIDOR_TLS_KEY_FILE", &c.Server.TLS.KeyFile)
	if c.Server.TLS.CertFile != "" && c.Server.TLS.KeyFile != "" {
		c.Server.TLS.Enabled = true
	}
	str("CORRIDOR_AUDIT_PATH", &c.Audit.Path)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	server := validation.NewConfigValidator("server").
		RangeInt("port", c.Server.Port, 1, 65535).
		RangeDuration("read_timeout", c.Server.ReadTimeout, time.Second, 10*time.Minute).
		RangeDuration("write_timeout", c.Server.WriteTimeout, time.Second, 10*time.Minute).
		RangeDuration("idle_timeout", c.Server.IdleTimeout, time.Second, time.Hour).
		RangeDuration("shutdown_timeout", c.Server.ShutdownTimeout, time.Second, 10*time.Minute).
		FiniteNonNegative("rate_limit_rps", c.Server.RateLimitRPS).
		When(c.Server.RateLimitRPS > 0, func(cv *validation.ConfigValidator) {
			cv.Positive("rate_limit_burst", c.Server.RateLimitBurst)
		}).
		Custom("max_body_bytes", func() error {
			if c.Server.MaxBodyBytes <= 0 {
				return errors.New("must be positive")
			}
			return nil
		}).
		When(c.Server.TLS.Enabled, func(cv *validation.ConfigValidator) {
			cv.OneOf("tls.min_version", c.Server.TLS.MinVersion, []string{"", "1.2", "1.3"}).
				Custom("tls.cert_file", func() error {
					hasCert, hasKey := c.Server.TLS.CertFile != "", c.Server.TLS.KeyFile != ""
					switch {
					case hasCert != hasKey:
						return errors.New("cert_file and key_file must be set together")
					case !hasCert && !c.Server.TLS.AutoGenerate:
						return errors.New("required unless auto_generate is set")
					}
					return nil
				})
		})

	graph := validation.NewConfigValidator("graph").
		Required("source", c.Graph.Source).
		When(c.Graph.Watch, func(cv *validation.ConfigValidator) {
			cv.RangeDuration("watch_delay", c.Graph.WatchDelay, 0, time.Minute)
		}).
		When(c.Graph.PredictorURL != "", func(cv *validation.ConfigValidator) {
			cv.URL("predictor_url", c.Graph.PredictorURL, "http", "https")
		}).
		RangeDuration("max_age", c.Graph.MaxAge, 0, 30*24*time.Hour)

	routing := validation.NewConfigValidator("routing").
		Positive("max_k", c.Routing.MaxK).
		RangeInt("max_hops_limit", c.Routing.MaxHopsLimit, 1, 16).
		NonNegative("default_k", c.Routing.DefaultK).
		AtMost("default_k", c.Routing.DefaultK, "max_k", c.Routing.MaxK).
		Positive("default_max_hops", c.Routing.DefaultMaxHops).
		AtMost("default_max_hops", c.Routing.DefaultMaxHops, "max_hops_limit", c.Routing.MaxHopsLimit).
		NonNegative("max_expansions", c.Routing.MaxExpansions).
		NonNegative("workers", c.Routing.Workers).
		RangeDuration("timeout", c.Routing.Timeout, time.Millisecond, 5*time.Minute)

	logging := validation.NewConfigValidator("logging").
		OneOf("level", strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "warning", "error"})

	auth := validation.NewConfigValidator("auth").
		When(c.Auth.JWTSecret != "", func(cv *validation.ConfigValidator) {
			cv.Custom("jwt_secret", func() error {
				if len(c.Auth.JWTSecret) < 32 {
					return errors.New("must be at least 32 characters")
				}
				return nil
			}).
				RangeDuration("token_ttl", c.Auth.TokenTTL, time.Minute, 30*24*time.Hour)
		})

	audit := validation.NewConfigValidator("audit").
		Positive("capacity", c.Audit.Capacity)

	return errors.Join(server.Validate(), graph.Validate(), routing.Validate(), logging.Validate(), auth.Validate(), audit.Validate())
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
