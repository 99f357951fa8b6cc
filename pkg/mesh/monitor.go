package mesh

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MonitorConfig holds service monitor settings. Zero values select the
// defaults: every service, 30s interval, 10s probe timeout, threshold 3,
// 4 concurrent probes.
type MonitorConfig struct {
	Services      []ServiceType
	Interval      time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
	Concurrency   int
}

// ServiceHealth is the monitor's view of one service.
type ServiceHealth struct {
	Healthy   bool
	FailCount int
	LastProbe time.Time
}

// TransitionFunc is an optional callback invoked when a service crosses the
// failure threshold in either direction.
type TransitionFunc func(service ServiceType, healthy bool, failCount int)

// Monitor pings mesh services on an interval and tracks consecutive
// failures. A service is considered healthy until FailThreshold probes in a
// row fail, and healthy again on the first success after that.
type Monitor struct {
	c   *Client
	cfg MonitorConfig

	mu       sync.Mutex
	statuses map[ServiceType]ServiceHealth

	onTransition TransitionFunc
	logger       *zap.Logger
}

// NewMonitor creates a Monitor probing through c's fetch pipeline, so a
// probe exercises discovery and token acquisition as well as the service.
func NewMonitor(c *Client, cfg MonitorConfig) *Monitor {
	if len(cfg.Services) == 0 {
		cfg.Services = Services()
	}
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}

	statuses := make(map[ServiceType]ServiceHealth, len(cfg.Services))
	for _, svc := range cfg.Services {
		statuses[svc] = ServiceHealth{Healthy: true}
	}

	return &Monitor{
		c:        c,
		cfg:      cfg,
		statuses: statuses,
		logger:   c.logger,
	}
}

// SetTransitionFunc configures the transition callback.
func (m *Monitor) SetTransitionFunc(fn TransitionFunc) {
	m.onTransition = fn
}

// Start sweeps immediately, then on every interval tick until ctx is
// cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.CheckAll(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll probes every monitored service once with bounded concurrency.
func (m *Monitor) CheckAll(ctx context.Context) {
	sem := make(chan struct{}, m.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, svc := range m.cfg.Services {
		wg.Add(1)
		go func(service ServiceType) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			m.probe(ctx, service)
		}(svc)
	}

	wg.Wait()
}

func (m *Monitor) probe(ctx context.Context, service ServiceType) {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	ping, err := m.c.Ping(probeCtx, service)
	success := err == nil && ping.OK()

	m.mu.Lock()
	st := m.statuses[service]
	prev := st.FailCount
	if success {
		st.FailCount = 0
		st.Healthy = true
	} else {
		st.FailCount++
		if st.FailCount >= m.cfg.FailThreshold {
			st.Healthy = false
		}
	}
	st.LastProbe = time.Now().UTC()
	count := st.FailCount
	healthy := st.Healthy
	m.statuses[service] = st
	m.mu.Unlock()

	setServiceUp(service, healthy)

	switch {
	case success && prev >= m.cfg.FailThreshold:
		m.logger.Info("service recovered", zap.Stringer("service", service))
		if m.onTransition != nil {
			m.onTransition(service, true, 0)
		}
	case !success && count == m.cfg.FailThreshold:
		m.logger.Warn("service degraded",
			zap.Stringer("service", service),
			zap.Int("fail_count", count),
		)
		if m.onTransition != nil {
			m.onTransition(service, false, count)
		}
	case !success:
		m.logger.Debug("service probe failed",
			zap.Stringer("service", service),
			zap.Int("fail_count", count),
			zap.Error(err),
		)
	}
}

// Status returns a snapshot of the monitor's view of each service.
func (m *Monitor) Status() map[ServiceType]ServiceHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ServiceType]ServiceHealth, len(m.statuses))
	for svc, st := range m.statuses {
		out[svc] = st
	}
	return out
}
