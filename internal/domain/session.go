package domain

import (
	"math"
	"time"
)

// Session is one live or concluded run of a Poll
type Session struct {
	ID                       string     `json:"id"`
	SessionCode              string     `json:"sessionCode"`
	PollID                   string     `json:"pollId"`
	Poll                     Poll       `json:"poll"`
	IsActive                 bool       `json:"isActive"`
	StartedAt                time.Time  `json:"startedAt"`
	EndsAt                   *time.Time `json:"endsAt"`
	EndedAt                  *time.Time `json:"endedAt,omitempty"`
	DurationMinutes          *int       `json:"durationMinutes"`
	ResultsVisibleToAudience bool       `json:"resultsVisibleToAudience"`
	Votes                    []Tally    `json:"votes"`
}

// Clone returns a deep copy of the session record
func (s Session) Clone() Session {
	clone := s
	clone.Poll = s.Poll.Clone()
	clone.EndsAt = cloneTime(s.EndsAt)
	clone.EndedAt = cloneTime(s.EndedAt)
	clone.DurationMinutes = cloneInt(s.DurationMinutes)
	clone.Votes = cloneTallies(s.Votes)
	return clone
}

// PastDeadline reports whether the session has a deadline that now lies behind it
func (s Session) PastDeadline(now time.Time) bool {
	return s.EndsAt != nil && now.After(*s.EndsAt)
}

// AcceptingVotes reports whether a vote submitted at now may be counted
func (s Session) AcceptingVotes(now time.Time) bool {
	return s.IsActive && !s.PastDeadline(now)
}

// AudienceCanSeeResults is the audience gate: ended results are always public
func (s Session) AudienceCanSeeResults() bool {
	return s.ResultsVisibleToAudience || !s.IsActive
}

// HasVoted scans every option's voter set
func (s Session) HasVoted(voterID string) bool {
	for _, tally := range s.Votes {
		for _, v := range tally.Voters {
			if v == voterID {
				return true
			}
		}
	}
	return false
}

// TotalVotes sums the per-option counts
func (s Session) TotalVotes() int {
	total := 0
	for _, tally := range s.Votes {
		total += tally.Count
	}
	return total
}

// OptionResult is one row of a results chart
type OptionResult struct {
	Index      int     `json:"index"`
	Option     string  `json:"option"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// SessionResults aggregates a session's tallies for display
type SessionResults struct {
	Options    []OptionResult `json:"options"`
	TotalVotes int            `json:"totalVotes"`
}

// Results computes per-option percentages rounded to one decimal
func (s Session) Results() SessionResults {
	total := s.TotalVotes()
	results := SessionResults{
		Options:    make([]OptionResult, len(s.Votes)),
		TotalVotes: total,
	}
	for i, tally := range s.Votes {
		option := tally.Option
		if i < len(s.Poll.Options) {
			option = s.Poll.Options[i]
		}
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(tally.Count)/float64(total)*1000) / 10
		}
		results.Options[i] = OptionResult{
			Index:      i,
			Option:     option,
			Votes:      tally.Count,
			Percentage: pct,
		}
	}
	return results
}

// SessionView is what a viewer of a session receives. Voter identities are never exposed;
// Results is nil when the viewer may not see them yet.
type SessionView struct {
	SessionCode              string          `json:"sessionCode"`
	PollID                   string          `json:"pollId"`
	Title                    string          `json:"title"`
	Question                 string          `json:"question"`
	Options                  []string        `json:"options"`
	IsActive                 bool            `json:"isActive"`
	StartedAt                time.Time       `json:"startedAt"`
	EndsAt                   *time.Time      `json:"endsAt"`
	EndedAt                  *time.Time      `json:"endedAt,omitempty"`
	ResultsVisibleToAudience bool            `json:"resultsVisibleToAudience"`
	CanSeeResults            bool            `json:"canSeeResults"`
	Results                  *SessionResults `json:"results,omitempty"`
	HasVoted                 *bool           `json:"hasVoted,omitempty"`
}

// View projects the session for an admin or an audience member
func (s Session) View(adminView bool) SessionView {
	view := SessionView{
		SessionCode:              s.SessionCode,
		PollID:                   s.PollID,
		Title:                    s.Poll.Title,
		Question:                 s.Poll.Question,
		Options:                  append([]string(nil), s.Poll.Options...),
		IsActive:                 s.IsActive,
		StartedAt:                s.StartedAt,
		EndsAt:                   cloneTime(s.EndsAt),
		EndedAt:                  cloneTime(s.EndedAt),
		ResultsVisibleToAudience: s.ResultsVisibleToAudience,
		CanSeeResults:            adminView || s.AudienceCanSeeResults(),
	}
	if view.CanSeeResults {
		results := s.Results()
		view.Results = &results
	}
	return view
}

// LaunchSessionRequest overrides the poll's default duration when set
type LaunchSessionRequest struct {
	DurationMinutes *int `json:"durationMinutes,omitempty"`
}

// JoinSessionRequest carries the code typed by a participant
type JoinSessionRequest struct {
	SessionCode string `json:"sessionCode"`
}

// VoteRequest is one participant's choice
type VoteRequest struct {
	OptionIndex *int   `json:"optionIndex"`
	VoterID     string `json:"voterId"`
}
