package redisx

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognised by FromEnv.
const (
	EnvAddr           = "FELPSBOT_REDIS_ADDR"
	EnvUsername       = "FELPSBOT_REDIS_USERNAME"
	EnvPassword       = "FELPSBOT_REDIS_PASSWORD"
	EnvDB             = "FELPSBOT_REDIS_DB"
	EnvDialTimeout    = "FELPSBOT_REDIS_DIAL_TIMEOUT"
	EnvReadTimeout    = "FELPSBOT_REDIS_READ_TIMEOUT"
	EnvWriteTimeout   = "FELPSBOT_REDIS_WRITE_TIMEOUT"
	EnvPoolSize       = "FELPSBOT_REDIS_POOL_SIZE"
	EnvMinIdleConns   = "FELPSBOT_REDIS_MIN_IDLE_CONNS"
	EnvCommandLogging = "FELPSBOT_REDIS_COMMAND_LOGGING"
)

// Config holds Redis connection configuration shared by all felpsbot services.
type Config struct {
	Addr           string        `yaml:"addr"`            // Redis server address (host:port)
	Username       string        `yaml:"username"`        // Redis ACL username (optional)
	Password       string        `yaml:"password"`        // Redis password (optional)
	DB             int           `yaml:"db"`              // Redis database number
	DialTimeout    time.Duration `yaml:"dial_timeout"`    // connection establishment timeout
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // per-command read timeout
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // per-command write timeout
	PoolSize       int           `yaml:"pool_size"`       // maximum number of socket connections
	MinIdleConns   int           `yaml:"min_idle_conns"`  // idle connections kept open
	CommandLogging bool          `yaml:"command_logging"` // debug-log every command and response
}

// DefaultConfig returns the connection defaults used across felpsbot
// deployments.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	}
}

// FromEnv builds a Config from FELPSBOT_REDIS_* environment variables,
// falling back to DefaultConfig for anything unset.
func FromEnv() Config {
	def := DefaultConfig()
	return Config{
		Addr:           parseString(EnvAddr, def.Addr),
		Username:       parseString(EnvUsername, def.Username),
		Password:       parseString(EnvPassword, def.Password),
		DB:             parseInt(EnvDB, def.DB),
		DialTimeout:    parseDuration(EnvDialTimeout, def.DialTimeout),
		ReadTimeout:    parseDuration(EnvReadTimeout, def.ReadTimeout),
		WriteTimeout:   parseDuration(EnvWriteTimeout, def.WriteTimeout),
		PoolSize:       parseInt(EnvPoolSize, def.PoolSize),
		MinIdleConns:   parseInt(EnvMinIdleConns, def.MinIdleConns),
		CommandLogging: parseBool(EnvCommandLogging, def.CommandLogging),
	}
}

// LoadFile reads a YAML config file. Fields absent from the file keep their
// DefaultConfig values, so partial files are valid.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot possibly work.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.DB < 0 {
		return fmt.Errorf("config: db must not be negative, got %d", c.DB)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("config: pool_size must be positive, got %d", c.PoolSize)
	}
	if c.MinIdleConns < 0 {
		return fmt.Errorf("config: min_idle_conns must not be negative, got %d", c.MinIdleConns)
	}
	if c.MinIdleConns > c.PoolSize {
		return fmt.Errorf("config: min_idle_conns (%d) must not exceed pool_size (%d)", c.MinIdleConns, c.PoolSize)
	}
	return nil
}
