package domain

import (
	"time"
)

// Tally is one option's vote count together with the participants who chose it
type Tally struct {
	Option string   `json:"option"`
	Count  int      `json:"count"`
	Voters []string `json:"voters"`
}

// Poll is a reusable question-and-options template
type Poll struct {
	ID                       string    `json:"id"`
	Title                    string    `json:"title"`
	Question                 string    `json:"question"`
	Options                  []string  `json:"options"`
	DurationMinutes          *int      `json:"durationMinutes"`
	ResultsVisibleToAudience bool      `json:"resultsVisibleToAudience"`
	Votes                    []Tally   `json:"votes"`
	CreatedAt                time.Time `json:"createdAt"`
}

// CreatePollRequest represents the admin's poll definition
type CreatePollRequest struct {
	Title                    string   `json:"title"`
	Question                 string   `json:"question"`
	Options                  []string `json:"options"`
	DurationMinutes          *int     `json:"durationMinutes,omitempty"`
	ResultsVisibleToAudience bool     `json:"resultsVisibleToAudience"`
}

// NewTallies returns zeroed tallies parallel to options
func NewTallies(options []string) []Tally {
	tallies := make([]Tally, len(options))
	for i, option := range options {
		tallies[i] = Tally{Option: option, Voters: []string{}}
	}
	return tallies
}

// Clone returns a deep copy so callers never share slices with the engine
func (p Poll) Clone() Poll {
	clone := p
	clone.Options = append([]string(nil), p.Options...)
	clone.DurationMinutes = cloneInt(p.DurationMinutes)
	clone.Votes = cloneTallies(p.Votes)
	return clone
}

func cloneTallies(tallies []Tally) []Tally {
	if tallies == nil {
		return nil
	}
	out := make([]Tally, len(tallies))
	for i, t := range tallies {
		out[i] = Tally{
			Option: t.Option,
			Count:  t.Count,
			Voters: append([]string{}, t.Voters...),
		}
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
