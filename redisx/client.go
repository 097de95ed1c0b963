package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/parmenashp/felpsbot-shared-libs/log"
)

// Client is the shared felpsbot Redis client. It embeds *redis.Client, so
// the full go-redis command surface is available, with the house hooks
// (logging, metrics, tracing) installed and the JSON namespace attached.
type Client struct {
	*redis.Client

	cfg    Config
	logger zerolog.Logger
}

// New builds a client from the given configuration. The connection is not
// established here; call Connect to verify the server is reachable.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	rdb.AddHook(NewMetricsHook())
	rdb.AddHook(NewTracingHook())
	if cfg.CommandLogging {
		rdb.AddHook(NewLoggingHook(logger))
	}

	return &Client{
		Client: rdb,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// NewFromEnv builds a client from FELPSBOT_REDIS_* environment variables.
func NewFromEnv() (*Client, error) {
	return New(FromEnv(), log.WithComponent("redisx"))
}

// Connect verifies the connection with a PING. It returns a wrapped error
// when the server is not reachable.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info().
		Str(log.FieldRedisAddr, c.cfg.Addr).
		Int(log.FieldRedisDB, c.cfg.DB).
		Msg("connecting to Redis")

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	c.logger.Info().
		Str(log.FieldRedisAddr, c.cfg.Addr).
		Int(log.FieldRedisDB, c.cfg.DB).
		Msg("connected to Redis")
	return nil
}

// Close disconnects from Redis and releases the connection pool.
func (c *Client) Close() error {
	c.logger.Info().Msg("disconnecting from Redis")
	return c.Client.Close()
}

// HealthCheck checks if Redis is available.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// JSON returns the RedisJSON namespace bound to this client.
func (c *Client) JSON() *JSONClient {
	return NewJSON(c)
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}
