// Package errorrate counts bootstrap failures in a sliding window so the caller can back
// off and alert on failure bursts.
package errorrate

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/khlpkg/gateway"
)

const (
	DefaultWindow    = time.Minute
	DefaultThreshold = 5
	DefaultCheckSpec = "@every 5s"
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 30 * time.Second
)

type Option func(m *Monitor)

func WithWindow(window time.Duration) Option {
	return func(m *Monitor) {
		m.window = window
	}
}

func WithThreshold(threshold int) Option {
	return func(m *Monitor) {
		m.threshold = threshold
	}
}

// WithCheckSpec sets the cron spec of the periodic check.
func WithCheckSpec(spec string) Option {
	return func(m *Monitor) {
		m.spec = spec
	}
}

func WithBackoff(base, max time.Duration) Option {
	return func(m *Monitor) {
		m.baseDelay = base
		m.maxDelay = max
	}
}

// WithAlert registers a callback for checks that find the window at or above the threshold.
func WithAlert(alert func(failures int)) Option {
	return func(m *Monitor) {
		m.alert = alert
	}
}

func WithLogger(logger gateway.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func withClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

func New(options ...Option) *Monitor {
	m := &Monitor{
		window:    DefaultWindow,
		threshold: DefaultThreshold,
		spec:      DefaultCheckSpec,
		baseDelay: DefaultBaseDelay,
		maxDelay:  DefaultMaxDelay,
		now:       time.Now,
	}
	for _, option := range options {
		option(m)
	}
	if m.logger == nil {
		m.logger = gateway.NopLogger()
	}
	m.lastResetAt = m.now()
	return m
}

type Monitor struct {
	window    time.Duration
	threshold int
	spec      string
	baseDelay time.Duration
	maxDelay  time.Duration
	alert     func(failures int)
	logger    gateway.Logger
	now       func() time.Time

	mu            sync.Mutex
	failures      []time.Time
	consecutive   int
	lastFailureAt time.Time
	lastResetAt   time.Time

	cron *cron.Cron
}

func (m *Monitor) AddError() {
	m.mu.Lock()
	m.lastFailureAt = m.now()
	m.failures = append(m.failures, m.lastFailureAt)
	m.consecutive++
	m.mu.Unlock()
}

// Reset records a successful attempt. The backoff starts over, the window is left to expire.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.consecutive = 0
	m.mu.Unlock()
}

// Count returns the number of failures inside the window.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune()
	return len(m.failures)
}

func (m *Monitor) LastResetAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResetAt
}

func (m *Monitor) prune() {
	cutoff := m.now().Add(-m.window)
	i := 0
	for ; i < len(m.failures); i++ {
		if m.failures[i].After(cutoff) {
			break
		}
	}
	m.failures = m.failures[i:]
}

// Check drops failures that left the window and fires the alert while the window holds at
// least threshold failures. Once every failure expired the window counts as reset.
func (m *Monitor) Check() {
	m.mu.Lock()
	m.prune()
	failures := len(m.failures)
	if failures == 0 && !m.lastFailureAt.IsZero() && !m.lastFailureAt.Before(m.lastResetAt) {
		m.logger.Debug("bootstrap failures subsided, resetting")
		m.lastResetAt = m.now()
	}
	alert := m.alert
	m.mu.Unlock()

	if failures >= m.threshold {
		m.logger.Error("%d bootstrap failures within %s", failures, m.window)
		if alert != nil {
			alert(failures)
		}
	}
}

// Backoff is the delay before the next bootstrap attempt. It doubles with every failure
// since the last Reset, up to the maximum delay.
func (m *Monitor) Backoff() time.Duration {
	m.mu.Lock()
	failures := m.consecutive
	m.mu.Unlock()
	if failures == 0 {
		return 0
	}

	delay := m.baseDelay
	for i := 1; i < failures && delay < m.maxDelay; i++ {
		delay *= 2
	}
	if delay > m.maxDelay {
		delay = m.maxDelay
	}
	return delay
}

// Start schedules the periodic check.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.spec, m.Check); err != nil {
		return err
	}
	c.Start()
	m.cron = c
	return nil
}

// Stop halts the periodic check and waits for a running check to complete.
func (m *Monitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
