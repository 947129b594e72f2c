package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"livepoll/internal/domain"
	"livepoll/internal/repository"
	"livepoll/pkg/logger"

	"github.com/google/uuid"
)

// defaultSubscriberBuffer is the event backlog a subscriber may fall behind by
// before events are dropped for it
const defaultSubscriberBuffer = 64

// SessionEngine owns the poll and session collections and every transition on them.
// All operations serialize on one lock; records are replaced wholesale and callers
// only ever receive deep copies.
type SessionEngine struct {
	mu          sync.RWMutex
	polls       []domain.Poll
	sessions    []domain.Session
	currentCode string

	repo    repository.SnapshotRepository
	clock   Clock
	newCode CodeGenerator
	logger  *logger.Logger

	subsMu  sync.Mutex
	subs    map[int]chan domain.Event
	signals map[int]chan struct{}
	nextSub int
}

// EngineOption customizes a SessionEngine
type EngineOption func(*SessionEngine)

// WithClock replaces the system clock
func WithClock(clock Clock) EngineOption {
	return func(e *SessionEngine) { e.clock = clock }
}

// WithCodeGenerator replaces the random session code source
func WithCodeGenerator(gen CodeGenerator) EngineOption {
	return func(e *SessionEngine) { e.newCode = gen }
}

// NewSessionEngine creates an empty engine persisting through repo
func NewSessionEngine(repo repository.SnapshotRepository, logger *logger.Logger, opts ...EngineOption) *SessionEngine {
	e := &SessionEngine{
		polls:    []domain.Poll{},
		sessions: []domain.Session{},
		repo:     repo,
		clock:    SystemClock(),
		newCode:  RandomSessionCode,
		logger:   logger.Named("engine"),
		subs:     make(map[int]chan domain.Event),
		signals:  make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore replaces the in-memory collections with the persisted ones
func (e *SessionEngine) Restore(ctx context.Context) error {
	polls, sessions, err := e.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.polls = polls
	e.sessions = sessions
	e.currentCode = ""
	return nil
}

// Clock returns the engine's time source
func (e *SessionEngine) Clock() Clock {
	return e.clock
}

// CreatePoll appends a new poll. Blank options are dropped; the minimum option
// count is the caller's check.
func (e *SessionEngine) CreatePoll(ctx context.Context, req *domain.CreatePollRequest) (*domain.Poll, error) {
	options := make([]string, 0, len(req.Options))
	for _, opt := range req.Options {
		if trimmed := strings.TrimSpace(opt); trimmed != "" {
			options = append(options, trimmed)
		}
	}

	var duration *int
	if req.DurationMinutes != nil && *req.DurationMinutes > 0 {
		d := *req.DurationMinutes
		duration = &d
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	poll := domain.Poll{
		ID:                       newID(),
		Title:                    strings.TrimSpace(req.Title),
		Question:                 strings.TrimSpace(req.Question),
		Options:                  options,
		DurationMinutes:          duration,
		ResultsVisibleToAudience: req.ResultsVisibleToAudience,
		Votes:                    domain.NewTallies(options),
		CreatedAt:                e.clock.Now().UTC(),
	}

	polls := make([]domain.Poll, len(e.polls), len(e.polls)+1)
	copy(polls, e.polls)
	e.polls = append(polls, poll)
	e.persistPolls(ctx)

	e.logger.WithFields(map[string]interface{}{
		"poll_id": poll.ID,
		"options": len(options),
	}).Info("Poll created")
	e.publish(domain.Event{Type: domain.EventPollCreated, PollID: poll.ID})

	out := poll.Clone()
	return &out, nil
}

// LaunchSession starts a live session from a poll. A nil duration falls back to
// the poll's default; zero or negative means no deadline.
func (e *SessionEngine) LaunchSession(ctx context.Context, pollID string, durationMinutes *int) (*domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.pollIndex(pollID)
	if idx < 0 {
		return nil, domain.ErrPollNotFound
	}
	poll := e.polls[idx]

	if durationMinutes == nil {
		durationMinutes = poll.DurationMinutes
	}

	code, err := e.uniqueCodeLocked()
	if err != nil {
		return nil, err
	}

	startedAt := e.clock.Now().UTC()
	session := domain.Session{
		ID:                       newID(),
		SessionCode:              code,
		PollID:                   poll.ID,
		Poll:                     poll.Clone(),
		IsActive:                 true,
		StartedAt:                startedAt,
		ResultsVisibleToAudience: poll.ResultsVisibleToAudience,
		Votes:                    domain.NewTallies(poll.Options),
	}
	if durationMinutes != nil && *durationMinutes > 0 {
		d := *durationMinutes
		endsAt := startedAt.Add(time.Duration(d) * time.Minute)
		session.DurationMinutes = &d
		session.EndsAt = &endsAt
	}

	sessions := make([]domain.Session, len(e.sessions), len(e.sessions)+1)
	copy(sessions, e.sessions)
	e.sessions = append(sessions, session)
	e.currentCode = code
	e.persistSessions(ctx)

	fields := map[string]interface{}{
		"session_code": code,
		"poll_id":      poll.ID,
	}
	if session.EndsAt != nil {
		fields["ends_at"] = session.EndsAt.Format(time.RFC3339)
	}
	e.logger.WithFields(fields).Info("Session launched")
	e.publish(domain.Event{Type: domain.EventSessionLaunched, PollID: poll.ID, SessionCode: code})

	out := session.Clone()
	return &out, nil
}

// JoinSession looks a session up by code for a participant. An active session
// past its deadline is ended here before the visibility rule is applied.
func (e *SessionEngine) JoinSession(ctx context.Context, sessionCode string) (*domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 {
		return nil, domain.ErrSessionNotFound
	}

	if s := e.sessions[idx]; s.IsActive && s.PastDeadline(e.clock.Now()) {
		e.endLocked(ctx, idx, true)
		if !e.sessions[idx].ResultsVisibleToAudience {
			return nil, domain.ErrSessionExpired
		}
	}

	session := e.sessions[idx]
	if !session.IsActive && !session.ResultsVisibleToAudience {
		return nil, domain.ErrSessionClosed
	}

	e.currentCode = session.SessionCode
	out := session.Clone()
	return &out, nil
}

// SubmitVote records voterID's choice. Closed sessions and repeat voters are
// rejected without touching any tally.
func (e *SessionEngine) SubmitVote(ctx context.Context, sessionCode string, optionIndex int, voterID string) (*domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 || !e.sessions[idx].AcceptingVotes(e.clock.Now()) {
		return nil, domain.ErrVotingClosed
	}
	session := e.sessions[idx]

	if session.HasVoted(voterID) {
		return nil, domain.ErrAlreadyVoted
	}
	if optionIndex < 0 || optionIndex >= len(session.Votes) {
		return nil, domain.ErrInvalidOption
	}

	updated := session.Clone()
	tally := &updated.Votes[optionIndex]
	tally.Count++
	tally.Voters = append(tally.Voters, voterID)

	e.replaceLocked(idx, updated)
	e.persistSessions(ctx)

	e.logger.WithFields(map[string]interface{}{
		"session_code": sessionCode,
		"option":       optionIndex,
	}).Debug("Vote recorded")
	e.publish(domain.Event{Type: domain.EventVoteSubmitted, PollID: updated.PollID, SessionCode: sessionCode})

	out := updated.Clone()
	return &out, nil
}

// EndSession closes a session and makes its results public. endedAt is only
// recorded the first time; autoEnded only changes the published event.
func (e *SessionEngine) EndSession(ctx context.Context, sessionCode string, autoEnded bool) (*domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 {
		return nil, domain.ErrSessionNotFound
	}

	e.endLocked(ctx, idx, autoEnded)
	out := e.sessions[idx].Clone()
	return &out, nil
}

func (e *SessionEngine) endLocked(ctx context.Context, idx int, autoEnded bool) {
	updated := e.sessions[idx].Clone()
	updated.IsActive = false
	updated.ResultsVisibleToAudience = true
	if updated.EndedAt == nil {
		now := e.clock.Now().UTC()
		updated.EndedAt = &now
	}

	e.replaceLocked(idx, updated)
	e.persistSessions(ctx)

	e.logger.WithFields(map[string]interface{}{
		"session_code": updated.SessionCode,
		"auto_ended":   autoEnded,
		"total_votes":  updated.TotalVotes(),
	}).Info("Session ended")
	e.publish(domain.Event{
		Type:        domain.EventSessionEnded,
		PollID:      updated.PollID,
		SessionCode: updated.SessionCode,
		AutoEnded:   autoEnded,
	})
}

// ExpireSession ends the session only if it is still active and its deadline
// has been reached, checked under the same lock as the transition. It reports whether
// this call ended it.
func (e *SessionEngine) ExpireSession(ctx context.Context, sessionCode string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 {
		return false, domain.ErrSessionNotFound
	}
	if s := e.sessions[idx]; !s.IsActive || s.EndsAt == nil || e.clock.Now().Before(*s.EndsAt) {
		return false, nil
	}

	e.endLocked(ctx, idx, true)
	return true, nil
}

// ToggleResultsVisibility flips whether the audience sees results
func (e *SessionEngine) ToggleResultsVisibility(ctx context.Context, sessionCode string) (*domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 {
		return nil, domain.ErrSessionNotFound
	}

	updated := e.sessions[idx].Clone()
	updated.ResultsVisibleToAudience = !updated.ResultsVisibleToAudience
	e.replaceLocked(idx, updated)
	e.persistSessions(ctx)

	e.logger.WithFields(map[string]interface{}{
		"session_code": sessionCode,
		"visible":      updated.ResultsVisibleToAudience,
	}).Info("Results visibility changed")
	e.publish(domain.Event{Type: domain.EventVisibilityChanged, PollID: updated.PollID, SessionCode: sessionCode})

	out := updated.Clone()
	return &out, nil
}

// HasUserVoted reports whether voterID appears in any option of the session
func (e *SessionEngine) HasUserVoted(sessionCode, voterID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 {
		return false
	}
	return e.sessions[idx].HasVoted(voterID)
}

// CurrentSession returns the session the active view is looking at, if any
func (e *SessionEngine) CurrentSession() *domain.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.currentCode == "" {
		return nil
	}
	idx := e.sessionIndex(e.currentCode)
	if idx < 0 {
		return nil
	}
	out := e.sessions[idx].Clone()
	return &out
}

// SetCurrentSession points the current-session pointer at an existing session
func (e *SessionEngine) SetCurrentSession(sessionCode string) (*domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 {
		return nil, domain.ErrSessionNotFound
	}
	e.currentCode = sessionCode
	out := e.sessions[idx].Clone()
	return &out, nil
}

// Polls returns every poll in creation order
func (e *SessionEngine) Polls() []domain.Poll {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Poll, len(e.polls))
	for i, p := range e.polls {
		out[i] = p.Clone()
	}
	return out
}

// Poll returns one poll by id
func (e *SessionEngine) Poll(pollID string) (*domain.Poll, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx := e.pollIndex(pollID)
	if idx < 0 {
		return nil, domain.ErrPollNotFound
	}
	out := e.polls[idx].Clone()
	return &out, nil
}

// Sessions returns every session in launch order
func (e *SessionEngine) Sessions() []domain.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Session, len(e.sessions))
	for i, s := range e.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Session returns one session by code without any lifecycle side effects
func (e *SessionEngine) Session(sessionCode string) (*domain.Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 {
		return nil, domain.ErrSessionNotFound
	}
	out := e.sessions[idx].Clone()
	return &out, nil
}

// View projects a session for a viewer. voterID may be empty.
func (e *SessionEngine) View(sessionCode string, adminView bool, voterID string) (*domain.SessionView, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx := e.sessionIndex(sessionCode)
	if idx < 0 {
		return nil, domain.ErrSessionNotFound
	}
	session := e.sessions[idx]
	view := session.View(adminView)
	if voterID != "" {
		voted := session.HasVoted(voterID)
		view.HasVoted = &voted
	}
	return &view, nil
}

// Subscribe registers for engine events. The returned cancel func must be called
// to release the subscription; it closes the channel.
func (e *SessionEngine) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, defaultSubscriberBuffer)

	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.subsMu.Lock()
			delete(e.subs, id)
			e.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Changes returns a signal that fires after every mutation. Signals coalesce:
// a pending one is never dropped, so a reader that re-reads state after each
// receive never misses a change. cancel closes the channel.
func (e *SessionEngine) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.signals[id] = ch
	e.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.subsMu.Lock()
			delete(e.signals, id)
			e.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish never blocks a mutation on a slow subscriber
func (e *SessionEngine) publish(ev domain.Event) {
	ev.At = e.clock.Now().UTC()

	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.signals {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.logger.WithFields(map[string]interface{}{
				"subscriber": id,
				"event":      string(ev.Type),
			}).Warn("Subscriber lagging, event dropped")
		}
	}
}

// replaceLocked swaps in a new record and a new slice header so snapshots
// handed out earlier never observe the change
func (e *SessionEngine) replaceLocked(idx int, updated domain.Session) {
	sessions := make([]domain.Session, len(e.sessions))
	copy(sessions, e.sessions)
	sessions[idx] = updated
	e.sessions = sessions
}

func (e *SessionEngine) uniqueCodeLocked() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := e.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate session code: %w", err)
		}
		if e.sessionIndex(code) < 0 {
			return code, nil
		}
		e.logger.WithField("attempt", attempt+1).Debug("Session code collision, regenerating")
	}
	return "", domain.ErrCodeExhausted
}

func (e *SessionEngine) pollIndex(pollID string) int {
	for i := range e.polls {
		if e.polls[i].ID == pollID {
			return i
		}
	}
	return -1
}

func (e *SessionEngine) sessionIndex(sessionCode string) int {
	for i := range e.sessions {
		if e.sessions[i].SessionCode == sessionCode {
			return i
		}
	}
	return -1
}

// The store mirrors memory; a failed write is logged and the transition stands.
func (e *SessionEngine) persistPolls(ctx context.Context) {
	if err := e.repo.SavePolls(ctx, e.polls); err != nil {
		e.logger.WithError(err).Error("Failed to persist polls")
	}
}

func (e *SessionEngine) persistSessions(ctx context.Context) {
	if err := e.repo.SaveSessions(ctx, e.sessions); err != nil {
		e.logger.WithError(err).Error("Failed to persist sessions")
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
