package dresscode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tallyRoom(submissions []Submission, votes []Vote) Room {
	return Room{
		ID:          "room-1",
		Submissions: submissions,
		Votes:       votes,
	}
}

func TestTallyCountsAndSorts(t *testing.T) {
	room := tallyRoom(
		[]Submission{
			{DeviceID: "d1", Name: "Dana"},
			{DeviceID: "d2", Name: "Eli"},
			{DeviceID: "d3", Name: "Fay"},
		},
		[]Vote{
			{DeviceID: "d1", VotedFor: []string{"d2", "d3"}},
			{DeviceID: "d2", VotedFor: []string{"d3"}},
			{DeviceID: "d3", VotedFor: []string{"d2"}},
		},
	)

	results := Tally(room)
	require.Len(t, results, 3)

	assert.Equal(t, "d2", results[0].DeviceID)
	assert.Equal(t, 2, results[0].VoteCount)
	assert.Equal(t, "d3", results[1].DeviceID)
	assert.Equal(t, 2, results[1].VoteCount)
	assert.Equal(t, "d1", results[2].DeviceID)
	assert.Equal(t, 0, results[2].VoteCount)

	// Ballots are conserved: every counted vote came from a ballot.
	total := 0
	for _, r := range results {
		total += r.VoteCount
	}
	assert.Equal(t, 4, total)
}

func TestTallyTiesKeepSubmissionOrder(t *testing.T) {
	room := tallyRoom(
		[]Submission{
			{DeviceID: "d1", Name: "Dana"},
			{DeviceID: "d2", Name: "Eli"},
		},
		[]Vote{
			{DeviceID: "d1", VotedFor: []string{"d2"}},
			{DeviceID: "d2", VotedFor: []string{"d1"}},
		},
	)

	results := Tally(room)
	require.Len(t, results, 2)
	assert.Equal(t, "d1", results[0].DeviceID)
	assert.Equal(t, "d2", results[1].DeviceID)
}

func TestTallyIgnoresVotesForNonSubmitters(t *testing.T) {
	room := tallyRoom(
		[]Submission{
			{DeviceID: "d1", Name: "Dana"},
		},
		[]Vote{
			{DeviceID: "d2", VotedFor: []string{"d1", "d9"}},
		},
	)

	results := Tally(room)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].DeviceID)
	assert.Equal(t, 1, results[0].VoteCount)
}

func TestTallyZeroVoteEntriesRetained(t *testing.T) {
	room := tallyRoom(
		[]Submission{
			{DeviceID: "d1", Name: "Dana"},
			{DeviceID: "d2", Name: "Eli"},
		},
		nil,
	)

	results := Tally(room)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 0, r.VoteCount)
	}
}

func TestTallyEmptyRoom(t *testing.T) {
	assert.Empty(t, Tally(tallyRoom(nil, nil)))
}
