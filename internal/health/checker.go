// Package health probes the chain store and drives the service's readiness
// signal. The ledger itself has no background work; this checker is the only
// periodic task in the process.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
}

// StoreProber is the minimal store surface a liveness probe needs.
type StoreProber interface {
	Chains(ctx context.Context) ([]string, error)
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(up bool)

// Checker runs periodic store probes and tracks readiness.
type Checker struct {
	store     StoreProber
	cfg       Config
	logger    *zap.Logger
	onMetrics MetricsRecordFunc

	mu    sync.RWMutex
	ready bool
}

// New creates a Checker. The store is assumed ready until the first probe
// says otherwise.
func New(store StoreProber, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	return &Checker{store: store, cfg: cfg, logger: logger, ready: true}
}

// SetMetricsRecord configures the metrics recording callback.
func (c *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	c.onMetrics = fn
}

// Ready reports whether the last probe reached the store.
func (c *Checker) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Start runs the probe loop until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Probe performs one store liveness check and records the result.
func (c *Checker) Probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	_, err := c.store.Chains(probeCtx)
	up := err == nil

	c.mu.Lock()
	was := c.ready
	c.ready = up
	c.mu.Unlock()

	if c.onMetrics != nil {
		c.onMetrics(up)
	}

	switch {
	case was && !up:
		c.logger.Warn("chain store unreachable", zap.Error(err))
	case !was && up:
		c.logger.Info("chain store recovered")
	}
}
