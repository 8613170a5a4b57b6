// Package health runs a periodic connectivity probe against the backing
// services and exposes the latest result for the health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"cafezao-backend-go/internal/cache"
)

// checkInterval is how often the probe runs.
const checkInterval = 10 * time.Second

// probeTimeout bounds a single round of checks.
const probeTimeout = 5 * time.Second

// Status is the most recent probe result.
type Status struct {
	Healthy   bool      `json:"healthy"`
	Firestore bool      `json:"firestore"`
	Cache     bool      `json:"cache"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Monitor probes Firestore and the cache on a fixed interval.
type Monitor struct {
	fsClient *firestore.Client
	cache    cache.Cache
	logger   *zap.Logger

	mu     sync.RWMutex
	status Status
}

// NewMonitor creates a new Monitor. Either dependency may be nil; a nil
// dependency is reported healthy since there is nothing to probe.
func NewMonitor(fsClient *firestore.Client, c cache.Cache, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		fsClient: fsClient,
		cache:    c,
		logger:   logger,
		// Optimistic until the first probe lands.
		status: Status{Healthy: true, Firestore: true, Cache: true, CheckedAt: time.Now()},
	}
}

// Start launches the probe loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		m.probe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Status returns the latest probe result.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status := Status{Firestore: true, Cache: true, CheckedAt: time.Now()}

	if m.fsClient != nil {
		// A single-document read is the cheapest end-to-end check the
		// Firestore API offers.
		iter := m.fsClient.Collection("settings").Limit(1).Documents(ctx)
		_, err := iter.Next()
		iter.Stop()
		if err != nil && err != iterator.Done {
			status.Firestore = false
		}
	}

	if m.cache != nil {
		if err := m.cache.Ping(ctx); err != nil {
			status.Cache = false
		}
	}

	status.Healthy = status.Firestore && status.Cache

	m.mu.Lock()
	changed := m.status.Healthy != status.Healthy
	m.status = status
	m.mu.Unlock()

	if changed {
		if status.Healthy {
			m.logger.Info("backing services reachable again")
		} else {
			m.logger.Warn("backing service unreachable",
				zap.Bool("firestore", status.Firestore),
				zap.Bool("cache", status.Cache))
		}
	}
}
