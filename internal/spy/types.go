// Package spy implements the social-deduction room: players join a
// waiting lobby, the host starts a round by assigning k spies at
// random and distributing keywords, eliminations are recorded in
// order, and the room can be restarted in place for another round.
package spy

import "time"

// Collection is the store collection holding spy rooms.
const Collection = "spyRooms"

// MinPlayers is the smallest lobby a round can start with.
const MinPlayers = 3

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

type Role string

const (
	RoleCivilian Role = "civilian"
	RoleSpy      Role = "spy"
)

type PlayerStatus string

const (
	PlayerAlive      PlayerStatus = "alive"
	PlayerEliminated PlayerStatus = "eliminated"
)

type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Role         *Role        `json:"role"` // nil until a round starts
	Status       PlayerStatus `json:"status"`
	JoinedAt     time.Time    `json:"joinedAt"`
	EliminatedAt *time.Time   `json:"eliminatedAt,omitempty"`
	Avatar       string       `json:"avatar"`
}

// Settings are fixed once per round start and cleared on restart.
type Settings struct {
	SpyCount        int    `json:"spyCount"`
	CivilianKeyword string `json:"civilianKeyword"`
	SpyKeyword      string `json:"spyKeyword"`
}

type Room struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	HostID          string    `json:"hostId"` // anonymous, system-generated
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"autoDeleteAt"`
	Status          Status    `json:"status"`
	Settings        *Settings `json:"settings"` // non-nil iff a round has started
	Players         []Player  `json:"players"`
	EliminatedOrder []string  `json:"eliminatedOrder"`
}
