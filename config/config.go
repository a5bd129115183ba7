package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/sph/sphsig"
)

// EnvPrefix prefixes every environment override, e.g. SPH_GATEWAY_SECRET.
const EnvPrefix = "SPH"

const redacted = "[REDACTED]"

// Field sources accepted by the verification server.
const (
	SourceHeader = "header"
	SourceQuery  = "query"
	SourceForm   = "form"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type GatewayConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Account  string `mapstructure:"account" yaml:"account"`
	Merchant string `mapstructure:"merchant" yaml:"merchant"`
	KeyID    string `mapstructure:"key_id" yaml:"key_id"`
	Secret   string `mapstructure:"secret" yaml:"secret"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Source       string        `mapstructure:"source" yaml:"source"`
	MaxAge         time.Duration `mapstructure:"max_age" yaml:"max_age"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" yaml:"handler_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// RedisConfig enables the shared replay guard. An empty Addr keeps replay
// state in memory.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr" yaml:"addr"`
	Password  string        `mapstructure:"password" yaml:"password"`
	DB        int           `mapstructure:"db" yaml:"db"`
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	ReplayTTL time.Duration `mapstructure:"replay_ttl" yaml:"replay_ttl"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.base_url", "https://v1-hub-staging.sph-test-solinor.com")
	v.SetDefault("gateway.account", "")
	v.SetDefault("gateway.merchant", "")
	v.SetDefault("gateway.key_id", "")
	v.SetDefault("gateway.secret", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.source", SourceQuery)
	v.SetDefault("server.max_age", 5*time.Minute)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.handler_timeout", 5*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "sph")
	v.SetDefault("redis.replay_ttl", 15*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Load reads the YAML file at path, when given, and applies SPH_*
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that are wrong regardless of the command using
// them. Missing credentials are reported by the commands that need them.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL != "" {
		u, err := url.Parse(c.Gateway.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: gateway.base_url must be an absolute url", ErrInvalid)
		}
	}

	switch c.Server.Source {
	case SourceHeader, SourceQuery, SourceForm:
	default:
		return fmt.Errorf("%w: server.source must be one of header, query, form", ErrInvalid)
	}

	// the server always runs a replay guard, which needs a freshness
	// window and must outlive it
	if c.Server.MaxAge <= 0 {
		return fmt.Errorf("%w: server.max_age must be positive", ErrInvalid)
	}

	if c.Redis.ReplayTTL < 2*c.Server.MaxAge {
		return fmt.Errorf("%w: redis.replay_ttl must be at least twice server.max_age", ErrInvalid)
	}

	if c.Server.HandlerTimeout <= 0 {
		return fmt.Errorf("%w: server.handler_timeout must be positive", ErrInvalid)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: server.max_body_bytes must be positive", ErrInvalid)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalid, err)
	}

	return nil
}

// Credentials returns the gateway signing credentials.
func (c *Config) Credentials() sphsig.Credentials {
	return sphsig.Credentials{
		KeyID:  c.Gateway.KeyID,
		Secret: []byte(c.Gateway.Secret),
	}
}

// Redacted returns a copy with secrets masked.
func (c Config) Redacted() Config {
	if c.Gateway.Secret != "" {
		c.Gateway.Secret = redacted
	}

	if c.Redis.Password != "" {
		c.Redis.Password = redacted
	}

	return c
}

// WriteYAML renders the redacted configuration.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(c.Redacted()); err != nil {
		return err
	}

	return enc.Close()
}
