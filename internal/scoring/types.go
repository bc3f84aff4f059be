// Package scoring implements the judged-performance room: a host
// enrolls judges and performances, judges submit 1-10 scores, and
// completion freezes an average-ranked result.
package scoring

import (
	"net/url"
	"time"
)

// Collection is the store collection holding scoring rooms.
const Collection = "rooms"

const (
	MinScore = 1
	MaxScore = 10
)

type Judge struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Token    string    `json:"token"` // capability key granting scoring access
	Avatar   string    `json:"avatar"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Performance struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"` // assigned at creation, never renumbered
	CreatedAt time.Time `json:"createdAt"`
}

// Score is keyed by (JudgeID, PerformanceID); resubmission replaces.
type Score struct {
	JudgeID       string    `json:"judgeId"`
	PerformanceID string    `json:"performanceId"`
	Value         int       `json:"score"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

type Room struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	HostName     string        `json:"hostName"`
	CreatedAt    time.Time     `json:"createdAt"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	IsCompleted  bool          `json:"isCompleted"`
	Judges       []Judge       `json:"judges"`
	Performances []Performance `json:"performances"`
	Scores       []Score       `json:"scores"`
}

func avatarFor(name string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(name)
}
