// Command redis-check verifies that a Redis server is reachable with the
// shared felpsbot client configuration. It is meant for container health
// checks and deploy-time smoke tests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parmenashp/felpsbot-shared-libs/log"
	"github.com/parmenashp/felpsbot-shared-libs/redisx"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("redis-check", flag.ContinueOnError)
	addr := fs.String("addr", "", "Redis address (host:port); overrides config and environment")
	db := fs.Int("db", -1, "Redis database number; overrides config and environment")
	configPath := fs.String("config", "", "YAML config file (optional; FELPSBOT_REDIS_* environment is used otherwise)")
	timeout := fs.Duration("timeout", 5*time.Second, "check timeout")
	jsonProbe := fs.Bool("json", false, "also verify that the RedisJSON module is loaded")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := redisx.FromEnv()
	if *configPath != "" {
		loaded, err := redisx.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Redis check failed (config): %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *db >= 0 {
		cfg.DB = *db
	}

	client, err := redisx.New(cfg, log.WithComponent("redis-check"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Redis check failed (config): %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Redis check failed (connect): %v\n", err)
		return 1
	}

	if *jsonProbe {
		if err := probeJSON(ctx, client); err != nil {
			fmt.Fprintf(os.Stderr, "Redis check failed (json module): %v\n", err)
			return 1
		}
	}

	fmt.Printf("Redis check successful (%s db=%d)\n", cfg.Addr, cfg.DB)
	return 0
}

// probeJSON issues a harmless JSON.TYPE against a key nobody writes. A
// server without the RedisJSON module rejects the command itself.
func probeJSON(ctx context.Context, client *redisx.Client) error {
	err := client.JSON().Type(ctx, "felpsbot:redis-check:probe", redisx.RootPath).Err()
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
		return fmt.Errorf("RedisJSON module not loaded: %w", err)
	}
	return err
}
