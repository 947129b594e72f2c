package service

import (
	"context"
	"sync"
	"time"

	"livepoll/pkg/logger"
)

// armedTimer is the deadline a session's timer was armed for. timer is nil
// while an already-due session is being ended.
type armedTimer struct {
	at    time.Time
	timer Timer
}

// ExpiryMonitor ends deadline sessions when their endsAt passes
type ExpiryMonitor struct {
	engine *SessionEngine
	clock  Clock
	logger *logger.Logger

	mu          sync.Mutex
	timers      map[string]armedTimer
	unsubscribe func()
	done        chan struct{}
	isRunning   bool
}

// NewExpiryMonitor creates a monitor driven by the engine's clock
func NewExpiryMonitor(engine *SessionEngine, logger *logger.Logger) *ExpiryMonitor {
	return &ExpiryMonitor{
		engine: engine,
		clock:  engine.Clock(),
		logger: logger.Named("expiry"),
		timers: make(map[string]armedTimer),
	}
}

// Start arms timers for every active deadline session and keeps them in step
// with the session collection until Stop
func (m *ExpiryMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return nil
	}
	changes, unsubscribe := m.engine.Changes()
	m.unsubscribe = unsubscribe
	m.done = make(chan struct{})
	m.isRunning = true
	done := m.done
	m.mu.Unlock()

	m.logger.Info("Starting expiry monitor...")
	go m.watch(changes, done)
	m.reconcile()
	return nil
}

// Stop cancels the subscription and every pending timer
func (m *ExpiryMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	unsubscribe, done := m.unsubscribe, m.done
	m.mu.Unlock()

	unsubscribe()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Expiry monitor did not drain before shutdown deadline")
	}

	m.mu.Lock()
	for code, armed := range m.timers {
		if armed.timer != nil {
			armed.timer.Stop()
		}
		delete(m.timers, code)
	}
	m.mu.Unlock()

	m.logger.Info("Expiry monitor stopped")
	return nil
}

// Pending returns how many session timers are currently armed
func (m *ExpiryMonitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, armed := range m.timers {
		if armed.timer != nil {
			n++
		}
	}
	return n
}

func (m *ExpiryMonitor) watch(changes <-chan struct{}, done chan struct{}) {
	defer close(done)
	for range changes {
		m.reconcile()
	}
}

// reconcile brings the armed timers in line with the current sessions. The
// snapshot is read under m.mu so concurrent reconciles apply in read order.
func (m *ExpiryMonitor) reconcile() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	sessions := m.engine.Sessions()
	now := m.clock.Now()

	wanted := make(map[string]time.Time)
	var due []string
	for _, s := range sessions {
		if !s.IsActive || s.EndsAt == nil {
			continue
		}
		code, endsAt := s.SessionCode, *s.EndsAt
		wanted[code] = endsAt

		if armed, ok := m.timers[code]; ok && armed.at.Equal(endsAt) {
			continue
		}
		if !endsAt.After(now) {
			m.timers[code] = armedTimer{at: endsAt}
			due = append(due, code)
			continue
		}
		m.timers[code] = armedTimer{
			at:    endsAt,
			timer: m.clock.AfterFunc(endsAt.Sub(now), func() { m.fire(code) }),
		}
		m.logger.WithFields(map[string]interface{}{
			"session_code": code,
			"ends_at":      endsAt.Format(time.RFC3339),
		}).Debug("Expiry timer armed")
	}

	for code, armed := range m.timers {
		if _, ok := wanted[code]; ok {
			continue
		}
		if armed.timer != nil {
			armed.timer.Stop()
		}
		delete(m.timers, code)
	}
	m.mu.Unlock()

	for _, code := range due {
		m.fire(code)
	}
}

func (m *ExpiryMonitor) fire(code string) {
	m.mu.Lock()
	running := m.isRunning
	m.mu.Unlock()
	if !running {
		return
	}

	ended, err := m.engine.ExpireSession(context.Background(), code)
	if err != nil {
		m.logger.WithError(err).WithField("session_code", code).Error("Failed to auto-end session")
		return
	}
	if ended {
		m.logger.WithField("session_code", code).Info("Session auto-ended at deadline")
		return
	}

	// woke before the deadline or the session already ended; forget the timer
	// so reconcile re-arms it if it is still wanted
	m.mu.Lock()
	delete(m.timers, code)
	m.mu.Unlock()
	m.reconcile()
}
