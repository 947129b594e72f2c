package domain

import "time"

// EventType names an engine state change
type EventType string

const (
	EventPollCreated       EventType = "poll_created"
	EventSessionLaunched   EventType = "session_launched"
	EventVoteSubmitted     EventType = "vote_submitted"
	EventSessionEnded      EventType = "session_ended"
	EventVisibilityChanged EventType = "visibility_changed"
)

// Event is published after every successful mutation
type Event struct {
	Type        EventType `json:"type"`
	PollID      string    `json:"pollId,omitempty"`
	SessionCode string    `json:"sessionCode,omitempty"`
	AutoEnded   bool      `json:"autoEnded,omitempty"`
	At          time.Time `json:"at"`
}
