package redisx

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	// CommandsTotal counts executed commands by command name.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "felpsbot_redis_commands_total",
		Help: "Total number of Redis commands executed, by command name.",
	}, []string{"command"})

	// CommandErrorsTotal counts failed commands by command name. A key miss
	// (redis.Nil) is not an error.
	CommandErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "felpsbot_redis_command_errors_total",
		Help: "Total number of failed Redis commands, by command name.",
	}, []string{"command"})

	// CommandDuration observes per-command latency.
	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "felpsbot_redis_command_duration_seconds",
		Help:    "Latency of Redis commands, by command name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	// PipelineCommandsTotal counts commands flushed through pipelines.
	PipelineCommandsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "felpsbot_redis_pipeline_commands_total",
		Help: "Total number of Redis commands flushed through pipelines.",
	})

	// DialsTotal counts connection attempts by outcome.
	DialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "felpsbot_redis_dials_total",
		Help: "Total number of Redis connection attempts, by outcome.",
	}, []string{"status"})
)

// MetricsHook records Prometheus metrics for every command, pipeline flush
// and dial. It is always installed; the metrics are cheap and the felpsbot
// dashboards depend on them.
type MetricsHook struct{}

// NewMetricsHook creates the metrics hook.
func NewMetricsHook() *MetricsHook {
	return &MetricsHook{}
}

// DialHook counts connection attempts.
func (h *MetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			DialsTotal.WithLabelValues("error").Inc()
		} else {
			DialsTotal.WithLabelValues("ok").Inc()
		}
		return conn, err
	}
}

// ProcessHook counts commands and observes their latency.
func (h *MetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		CommandDuration.WithLabelValues(cmd.Name()).Observe(time.Since(start).Seconds())
		CommandsTotal.WithLabelValues(cmd.Name()).Inc()
		if err != nil && !errors.Is(err, redis.Nil) {
			CommandErrorsTotal.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

// ProcessPipelineHook counts commands flushed through pipelines.
func (h *MetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		PipelineCommandsTotal.Add(float64(len(cmds)))
		for _, cmd := range cmds {
			if cmdErr := cmd.Err(); cmdErr != nil && !errors.Is(cmdErr, redis.Nil) {
				CommandErrorsTotal.WithLabelValues(cmd.Name()).Inc()
			}
		}
		return err
	}
}
