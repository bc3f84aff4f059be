// Package dresscode implements the outfit-voting room: participants
// submit a photo entry once per device, vote for up to three others,
// and completion freezes a vote tally.
package dresscode

import "time"

// Collection is the store collection holding dress-code rooms.
const Collection = "dressCodeRooms"

const (
	// MaxVotes is the most targets one ballot may carry.
	MaxVotes = 3

	// MaxPhotoBytes caps the inline photo data URI at intake.
	MaxPhotoBytes = 10 << 20
)

// Submission is one device's entry. At most one per DeviceID;
// resubmission before completion overwrites in place.
type Submission struct {
	DeviceID    string    `json:"deviceId"`
	Name        string    `json:"name"`
	PhotoURL    string    `json:"photoURL"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Vote is one device's ballot. Single-shot: no revote.
type Vote struct {
	DeviceID string    `json:"deviceId"`
	VotedFor []string  `json:"votedFor"`
	VotedAt  time.Time `json:"votedAt"`
}

type Room struct {
	ID          string       `json:"id"`
	Code        string       `json:"roomCode"`
	HostName    string       `json:"hostName"`
	CreatedAt   time.Time    `json:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	IsCompleted bool         `json:"isCompleted"`
	Submissions []Submission `json:"submissions"`
	Votes       []Vote       `json:"votes"`
}

// VoteResult is one row of the final tally.
type VoteResult struct {
	DeviceID  string `json:"deviceId"`
	Name      string `json:"name"`
	PhotoURL  string `json:"photoURL"`
	Message   string `json:"message"`
	VoteCount int    `json:"voteCount"`
}

// UserStatus reports what a device has already done in this room.
type UserStatus struct {
	HasSubmitted bool        `json:"hasSubmitted"`
	HasVoted     bool        `json:"hasVoted"`
	Submission   *Submission `json:"submission,omitempty"`
}
