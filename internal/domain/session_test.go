package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() Session {
	ends := time.Date(2025, 1, 1, 12, 5, 0, 0, time.UTC)
	options := []string{"Red", "Blue", "Green"}
	return Session{
		ID:          "s-1",
		SessionCode: "ABC123",
		PollID:      "p-1",
		Poll:        Poll{ID: "p-1", Title: "Colours", Question: "Pick one", Options: options, Votes: NewTallies(options)},
		IsActive:    true,
		StartedAt:   time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		EndsAt:      &ends,
		Votes: []Tally{
			{Option: "Red", Count: 2, Voters: []string{"a", "b"}},
			{Option: "Blue", Count: 1, Voters: []string{"c"}},
			{Option: "Green", Count: 0, Voters: []string{}},
		},
	}
}

func TestSession_Results(t *testing.T) {
	results := sampleSession().Results()

	require.Len(t, results.Options, 3)
	assert.Equal(t, 3, results.TotalVotes)
	assert.Equal(t, 66.7, results.Options[0].Percentage)
	assert.Equal(t, 33.3, results.Options[1].Percentage)
	assert.Equal(t, 0.0, results.Options[2].Percentage)
	assert.Equal(t, "Blue", results.Options[1].Option)
}

func TestSession_ResultsWithNoVotes(t *testing.T) {
	s := sampleSession()
	s.Votes = NewTallies(s.Poll.Options)

	results := s.Results()
	assert.Equal(t, 0, results.TotalVotes)
	for _, row := range results.Options {
		assert.Zero(t, row.Percentage)
	}
}

func TestSession_PastDeadline(t *testing.T) {
	s := sampleSession()

	assert.False(t, s.PastDeadline(s.EndsAt.Add(-time.Second)))
	assert.False(t, s.PastDeadline(*s.EndsAt))
	assert.True(t, s.PastDeadline(s.EndsAt.Add(time.Millisecond)))
	assert.False(t, s.AcceptingVotes(s.EndsAt.Add(time.Millisecond)))

	s.EndsAt = nil
	assert.False(t, s.PastDeadline(time.Now().Add(1000*time.Hour)))
	assert.True(t, s.AcceptingVotes(time.Now()))
}

func TestSession_HasVoted(t *testing.T) {
	s := sampleSession()
	assert.True(t, s.HasVoted("c"))
	assert.False(t, s.HasVoted("z"))
}

func TestSession_ViewGating(t *testing.T) {
	s := sampleSession()

	audience := s.View(false)
	assert.False(t, audience.CanSeeResults)
	assert.Nil(t, audience.Results)

	admin := s.View(true)
	assert.True(t, admin.CanSeeResults)
	require.NotNil(t, admin.Results)
	assert.Equal(t, 3, admin.Results.TotalVotes)

	s.IsActive = false
	ended := s.View(false)
	assert.True(t, ended.CanSeeResults)
	assert.NotNil(t, ended.Results)
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := sampleSession()
	clone := s.Clone()

	clone.Votes[0].Voters[0] = "mutated"
	clone.Votes[0].Count = 99
	clone.Poll.Options[0] = "Purple"
	*clone.EndsAt = clone.EndsAt.Add(time.Hour)

	assert.Equal(t, "a", s.Votes[0].Voters[0])
	assert.Equal(t, 2, s.Votes[0].Count)
	assert.Equal(t, "Red", s.Poll.Options[0])
	assert.Equal(t, 5, s.EndsAt.Minute())
}
