package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"livepoll/internal/domain"
	"livepoll/pkg/logger"
)

// snapshotRepository encodes the engine's collections as JSON records in a StateStore
type snapshotRepository struct {
	store  StateStore
	logger *logger.Logger
}

// NewSnapshotRepository creates the persistent store adapter over store
func NewSnapshotRepository(store StateStore, logger *logger.Logger) SnapshotRepository {
	return &snapshotRepository{store: store, logger: logger.Named("snapshot")}
}

// storedSession tolerates records written before resultsVisibleToAudience existed
// and sessions whose timestamps were stored as null.
type storedSession struct {
	ID                       string         `json:"id"`
	SessionCode              string         `json:"sessionCode"`
	PollID                   string         `json:"pollId"`
	Poll                     domain.Poll    `json:"poll"`
	IsActive                 bool           `json:"isActive"`
	StartedAt                *time.Time     `json:"startedAt"`
	EndsAt                   *time.Time     `json:"endsAt"`
	EndedAt                  *time.Time     `json:"endedAt"`
	DurationMinutes          *int           `json:"durationMinutes"`
	ResultsVisibleToAudience *bool          `json:"resultsVisibleToAudience"`
	Votes                    []domain.Tally `json:"votes"`
}

func (s storedSession) toDomain() domain.Session {
	session := domain.Session{
		ID:              s.ID,
		SessionCode:     s.SessionCode,
		PollID:          s.PollID,
		Poll:            s.Poll,
		IsActive:        s.IsActive,
		EndsAt:          s.EndsAt,
		EndedAt:         s.EndedAt,
		DurationMinutes: s.DurationMinutes,
		Votes:           s.Votes,
	}
	if s.StartedAt != nil {
		session.StartedAt = *s.StartedAt
	}
	if s.ResultsVisibleToAudience != nil {
		session.ResultsVisibleToAudience = *s.ResultsVisibleToAudience
	}
	for i := range session.Votes {
		if session.Votes[i].Voters == nil {
			session.Votes[i].Voters = []string{}
		}
	}
	return session
}

// Load reads both collections. A record that does not decode is treated as absent
// so a corrupted store means a cold start, not a crash.
func (r *snapshotRepository) Load(ctx context.Context) ([]domain.Poll, []domain.Session, error) {
	polls := []domain.Poll{}
	found, err := r.loadJSON(ctx, KeyPolls, &polls)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		polls = []domain.Poll{}
	}

	var stored []storedSession
	found, err = r.loadJSON(ctx, KeyActiveSessions, &stored)
	if err != nil {
		return nil, nil, err
	}

	sessions := make([]domain.Session, 0, len(stored))
	if found {
		for _, s := range stored {
			sessions = append(sessions, s.toDomain())
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"polls":    len(polls),
		"sessions": len(sessions),
	}).Info("Loaded persisted state")

	return polls, sessions, nil
}

func (r *snapshotRepository) loadJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := r.store.Load(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Stored record is not valid JSON, starting empty")
		return false, nil
	}
	return true, nil
}

func (r *snapshotRepository) SavePolls(ctx context.Context, polls []domain.Poll) error {
	if polls == nil {
		polls = []domain.Poll{}
	}
	return r.saveJSON(ctx, KeyPolls, polls)
}

func (r *snapshotRepository) SaveSessions(ctx context.Context, sessions []domain.Session) error {
	if sessions == nil {
		sessions = []domain.Session{}
	}
	return r.saveJSON(ctx, KeyActiveSessions, sessions)
}

func (r *snapshotRepository) saveJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.store.Save(ctx, key, string(data)); err != nil {
		return err
	}
	r.logger.WithFields(map[string]interface{}{
		"key":   key,
		"bytes": len(data),
	}).Debug("Persisted record")
	return nil
}
