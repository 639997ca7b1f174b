package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	xutil "EconDash/pkg/util"
)

// Token slot backends.
const (
	TokenBackendSQLite = "sqlite"
	TokenBackendRedis  = "redis"
	TokenBackendMemory = "memory"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	API         struct {
		BaseURL string        `yaml:"base_url" default:"http://localhost:8000" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	} `yaml:"api"`
	Token struct {
		Backend string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite redis memory"`
		Path    string `yaml:"path" default:"econdash.db"`
		Key     string `yaml:"key" default:"token" validate:"required"`
	} `yaml:"token"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"econdash"`
	} `yaml:"redis"`
	Server struct {
		Host            string        `yaml:"host" default:"127.0.0.1"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"35s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Watcher struct {
		Schedule string `yaml:"schedule" default:"@every 5m" validate:"required"`
		Refresh  bool   `yaml:"refresh" default:"true"`
	} `yaml:"watcher"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		TriggerTopic string        `yaml:"trigger_topic" default:"econdash.alert-triggers"`
		LogTopic     string        `yaml:"log_topic"`
		GroupID      string        `yaml:"group_id" default:"econdash"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"log"`
}

var validate = validator.New()

// Default returns a configuration made of defaults only.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment
// variables. Variables from envFile (when present) are loaded first without
// replacing ones already set in the process.
func LoadWithEnv(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ECONDASH_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("ECONDASH_TOKEN_BACKEND"); v != "" {
		c.Token.Backend = v
	}
	if v := os.Getenv("ECONDASH_TOKEN_PATH"); v != "" {
		c.Token.Path = v
	}
	if v := os.Getenv("ECONDASH_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.Redis.DB = xutil.ParseIntDefault(v, c.Redis.DB)
	}
	if brokers := xutil.SplitList(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		c.Kafka.Brokers = brokers
		c.Kafka.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Token.Backend == TokenBackendSQLite && c.Token.Path == "" {
		return fmt.Errorf("token.path is required for the sqlite backend")
	}
	if c.Token.Backend == TokenBackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis backend")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
