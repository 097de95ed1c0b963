// Package redisx is the shared Redis client for felpsbot services. It wraps
// go-redis with the house observability stack (per-command logging, metrics
// and tracing hooks) and exposes the RedisJSON command surface the bot's
// persistence code relies on, for both single commands and pipelines.
package redisx
