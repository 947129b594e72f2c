package service

import (
	"context"
	"time"

	"livepoll/internal/domain"
	"livepoll/pkg/logger"
)

// LiveFeed streams session views to a single viewer
type LiveFeed struct {
	engine   *SessionEngine
	interval time.Duration
	logger   *logger.Logger
}

// NewLiveFeed creates a feed that refreshes at least once per interval
func NewLiveFeed(engine *SessionEngine, interval time.Duration, logger *logger.Logger) *LiveFeed {
	if interval <= 0 {
		interval = time.Second
	}
	return &LiveFeed{
		engine:   engine,
		interval: interval,
		logger:   logger.Named("live"),
	}
}

// Watch sends the current view immediately, then again on every engine event
// for the session and on every refresh tick. The channel is closed when ctx is
// done or the session disappears.
func (f *LiveFeed) Watch(ctx context.Context, sessionCode string, adminView bool, voterID string) (<-chan domain.SessionView, error) {
	view, err := f.engine.View(sessionCode, adminView, voterID)
	if err != nil {
		return nil, err
	}

	events, unsubscribe := f.engine.Subscribe()
	out := make(chan domain.SessionView, 1)
	out <- *view

	go func() {
		defer close(out)
		defer unsubscribe()

		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.SessionCode != sessionCode {
					continue
				}
			case <-ticker.C:
			}

			view, err := f.engine.View(sessionCode, adminView, voterID)
			if err != nil {
				f.logger.WithError(err).WithField("session_code", sessionCode).Warn("Live feed closed")
				return
			}

			select {
			case out <- *view:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
