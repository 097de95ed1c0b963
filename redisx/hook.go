package redisx

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/parmenashp/felpsbot-shared-libs/log"
)

// LoggingHook debug-logs every command and its response, and every pipeline
// flush. It covers commands issued directly on the client as well as queued
// pipeline commands, since go-redis routes both through the hook chain.
type LoggingHook struct {
	logger zerolog.Logger
}

// NewLoggingHook creates a logging hook that writes to the given logger.
func NewLoggingHook(logger zerolog.Logger) *LoggingHook {
	return &LoggingHook{logger: logger}
}

// DialHook logs connection establishment.
func (h *LoggingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		h.logger.Debug().
			Str("network", network).
			Str(log.FieldRedisAddr, addr).
			Msg("dialing Redis")
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Error().
				Err(err).
				Str(log.FieldRedisAddr, addr).
				Msg("Redis dial failed")
		}
		return conn, err
	}
}

// ProcessHook logs every command with its arguments and response.
func (h *LoggingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		l := log.WithContext(ctx, h.logger)
		l.Debug().
			Str(log.FieldRedisCmd, cmd.Name()).
			Str("args", fmt.Sprintf("%v", cmd.Args())).
			Msg("executing command")

		err := next(ctx, cmd)

		if err != nil && !errors.Is(err, redis.Nil) {
			l.Debug().
				Err(err).
				Str(log.FieldRedisCmd, cmd.Name()).
				Msg("command failed")
			return err
		}
		// cmd.String() renders the command together with its reply.
		l.Debug().
			Str(log.FieldRedisCmd, cmd.Name()).
			Str("response", cmd.String()).
			Msg("command finished")
		return err
	}
}

// ProcessPipelineHook logs pipeline flushes with the queued command names.
func (h *LoggingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		l := log.WithContext(ctx, h.logger)

		names := make([]string, len(cmds))
		for i, cmd := range cmds {
			names[i] = cmd.Name()
		}
		l.Debug().
			Int("commands", len(cmds)).
			Strs("names", names).
			Msg("executing pipeline")

		err := next(ctx, cmds)

		failed := 0
		for _, cmd := range cmds {
			if cmdErr := cmd.Err(); cmdErr != nil && !errors.Is(cmdErr, redis.Nil) {
				failed++
			}
		}
		l.Debug().
			Int("commands", len(cmds)).
			Int("failed", failed).
			Msg("pipeline finished")
		return err
	}
}
